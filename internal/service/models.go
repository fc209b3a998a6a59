package service

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/pkg/utils"
)

// ModelService exposes read-only introspection over the ML artifacts
// the scoring backend was trained with. Metrics are precomputed JSON
// files written at training time; missing files degrade to empty
// sections, never to errors.
type ModelService struct {
	dir string
}

// NewModelService creates a model introspection service over the given
// artifact directory.
func NewModelService(dir string) *ModelService {
	return &ModelService{dir: dir}
}

func (s *ModelService) artifact(name, typ, file, description string) domain.ModelArtifact {
	a := domain.ModelArtifact{
		Name:        name,
		Type:        typ,
		Status:      "not_found",
		File:        file,
		Description: description,
	}
	if info, err := os.Stat(filepath.Join(s.dir, file)); err == nil {
		a.Status = "loaded"
		a.SizeKB = utils.RoundTo(float64(info.Size())/1024, 2)
	}
	return a
}

func (s *ModelService) readJSON(rel string, out any) bool {
	data, err := os.ReadFile(filepath.Join(s.dir, rel))
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// Info describes the loaded model set.
func (s *ModelService) Info() domain.ModelInfo {
	realtime := s.artifact(
		"XGBoost Vehicle-Specific Risk Predictor", "XGBRegressor",
		"xgb_vehicle_specific_risk.pkl",
		"Real-time risk prediction with per-vehicle thresholds",
	)
	realtime.Features = []string{
		"curvature", "temperature", "humidity", "precipitation",
		"wind_speed", "is_wet", "vehicle_type", "hour_of_day",
	}

	cause := s.artifact(
		"Accident Cause Classifier", "LogisticRegression",
		"cause_classifier.joblib",
		"Predicts most likely accident cause from conditions",
	)
	cause.Classes = []string{"Excessive Speed", "Slipped", "Mechanical Error", "Mechanical Failure"}

	return domain.ModelInfo{
		RealtimeModel: realtime,
		HistoricalModels: map[string]domain.ModelArtifact{
			"cause_classifier": cause,
			"segment_gbr": s.artifact(
				"Segment Risk Severity Model", "HistGradientBoostingRegressor",
				"segment_gbr.joblib",
				"Predicts accident severity index from historical data",
			),
		},
		VehicleTypes: domain.Vehicles,
	}
}

// Metrics aggregates training/validation metrics for the dashboard.
func (s *ModelService) Metrics() domain.ModelMetrics {
	realtime := map[string]any{}
	s.readJSON(filepath.Join("realtime_risk_pipeline", "outputs", "metrics.json"), &realtime)

	historical := map[string]any{}
	s.readJSON(filepath.Join("historical_risk_engine", "outputs", "metrics.json"), &historical)

	perVehicle := map[string]any{}
	s.readJSON(filepath.Join("realtime_risk_pipeline", "outputs", "classification_metrics_per_vehicle.json"), &perVehicle)

	summary := map[string]float64{}
	if test, ok := realtime["test_metrics"].(map[string]any); ok {
		if r2, ok := test["r2"].(float64); ok {
			summary["realtime_r2"] = r2
		}
		if rmse, ok := test["rmse"].(float64); ok {
			summary["realtime_rmse"] = rmse
		}
	}
	if cc, ok := historical["cause_classifier"].(map[string]any); ok {
		if acc, ok := cc["accuracy"].(float64); ok {
			summary["cause_accuracy"] = acc
		}
		if f1, ok := cc["f1_macro"].(float64); ok {
			summary["cause_f1_macro"] = f1
		}
	}

	return domain.ModelMetrics{
		Realtime:   realtime,
		PerVehicle: perVehicle,
		Historical: historical,
		Summary:    summary,
	}
}

// Health reports which artifacts are ready.
func (s *ModelService) Health() domain.ModelHealth {
	info := s.Info()

	health := func(a domain.ModelArtifact) domain.ArtifactHealth {
		loaded := a.Status == "loaded"
		status := "ready"
		if !loaded {
			status = "not_loaded"
		}
		return domain.ArtifactHealth{Loaded: loaded, Status: status}
	}

	models := map[string]domain.ArtifactHealth{
		"xgboost_realtime": health(info.RealtimeModel),
	}
	for name, a := range info.HistoricalModels {
		models[name] = health(a)
	}

	mode := "fallback"
	if info.RealtimeModel.Status == "loaded" {
		mode = "xgboost"
	}
	return domain.ModelHealth{
		Status:         "healthy",
		Models:         models,
		PredictionMode: mode,
	}
}

// RealtimeMetrics returns the realtime pipeline metrics file.
func (s *ModelService) RealtimeMetrics() map[string]any {
	out := map[string]any{"available": false}
	if s.readJSON(filepath.Join("realtime_risk_pipeline", "outputs", "metrics.json"), &out) {
		out["available"] = true
	}
	return out
}

// FeatureImportance returns the realtime model's feature weights,
// falling back to the documented training-time ordering when the
// artifact file is absent.
func (s *ModelService) FeatureImportance() []domain.FeatureImportance {
	var loaded []domain.FeatureImportance
	if s.readJSON(filepath.Join("realtime_risk_pipeline", "outputs", "feature_importance.json"), &loaded) && len(loaded) > 0 {
		return loaded
	}
	return []domain.FeatureImportance{
		{Feature: "curvature", Importance: 0.31},
		{Feature: "is_wet", Importance: 0.22},
		{Feature: "vehicle_type", Importance: 0.17},
		{Feature: "precipitation", Importance: 0.12},
		{Feature: "hour_of_day", Importance: 0.09},
		{Feature: "wind_speed", Importance: 0.05},
		{Feature: "temperature", Importance: 0.04},
	}
}

// HistoricalMetrics returns the historical engine metrics.
func (s *ModelService) HistoricalMetrics() map[string]any {
	result := map[string]any{
		"cause_classifier": map[string]any{},
		"segment_gbr":      map[string]any{},
		"available":        false,
	}

	metrics := map[string]any{}
	if s.readJSON(filepath.Join("historical_risk_engine", "outputs", "metrics.json"), &metrics) {
		if cc, ok := metrics["cause_classifier"]; ok {
			result["cause_classifier"] = cc
		}
		result["segment_gbr"] = map[string]any{
			"rmse": metrics["segment_gbr_rmse"],
			"mae":  metrics["segment_gbr_mae"],
			"r2":   metrics["segment_gbr_r2"],
		}
		result["available"] = true
	}

	detailed := map[string]any{}
	if s.readJSON(filepath.Join("historical_risk_engine", "outputs", "classification_metrics.json"), &detailed) {
		result["cause_classifier_detailed"] = detailed
	}
	return result
}

// RiskTiles returns the historical risk heat grid.
func (s *ModelService) RiskTiles() []domain.RiskTile {
	var tiles []domain.RiskTile
	s.readJSON(filepath.Join("historical_risk_engine", "outputs", "risk_tiles.json"), &tiles)
	return tiles
}
