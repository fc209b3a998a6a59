package domain

// ModelArtifact describes one model file on disk.
type ModelArtifact struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Status      string   `json:"status"` // "loaded" or "not_found"
	File        string   `json:"file"`
	SizeKB      float64  `json:"size_kb"`
	Features    []string `json:"features,omitempty"`
	Classes     []string `json:"classes,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ModelInfo describes the loaded model set.
type ModelInfo struct {
	RealtimeModel    ModelArtifact            `json:"realtime_model"`
	HistoricalModels map[string]ModelArtifact `json:"historical_models"`
	VehicleTypes     []Vehicle                `json:"vehicle_types"`
}

// ModelMetrics aggregates training/validation metrics for the dashboard.
type ModelMetrics struct {
	Realtime   map[string]any     `json:"realtime_model"`
	PerVehicle map[string]any     `json:"vehicle_specific_performance"`
	Historical map[string]any     `json:"historical_model"`
	Summary    map[string]float64 `json:"summary"`
}

// ModelHealth reports which artifacts are ready.
type ModelHealth struct {
	Status         string                    `json:"status"`
	Models         map[string]ArtifactHealth `json:"models"`
	PredictionMode string                    `json:"prediction_mode"`
}

// ArtifactHealth is the health of a single artifact.
type ArtifactHealth struct {
	Loaded bool   `json:"loaded"`
	Status string `json:"status"`
}

// FeatureImportance is one feature weight from the realtime model.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// RiskTile is one cell of the historical risk heat grid.
type RiskTile struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Risk0To100 int     `json:"risk_0_100"`
	Count      int     `json:"count"`
}
