package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/internal/repository/postgres"
	"github.com/riskroute/backend/internal/risk"
	"github.com/riskroute/backend/internal/service"
)

var (
	testBBox        = domain.BoundingBox{MinLon: 80.43, MinLat: 6.94, MaxLon: 80.55, MaxLat: 7.03}
	testServiceArea = domain.BoundingBox{MinLon: 80.4, MinLat: 7.0, MaxLon: 80.9, MaxLat: 7.5}
)

func newTestApp(t *testing.T) (*fiber.App, *service.Session, *service.WeatherService) {
	t.Helper()

	repo := postgres.NewMockRepository()
	session := service.NewSession(context.Background(), repo, domain.LatLon{Lat: 7.0, Lon: 80.5}, true, nil)
	weather := service.NewWeatherService("", "", "http://unused")

	mock := risk.NewMock(testBBox, nil)
	client := risk.NewClient("http://unused")
	riskSvc := service.NewRiskService(mock, client, session, weather, nil, repo, testServiceArea)

	router := service.NewRouter(service.NewStraightLineProvider())
	simulator := service.NewDriveSimulator(riskSvc.Source, time.Hour)
	models := service.NewModelService(t.TempDir())
	geocoder := service.NewGeocodeService("http://unused", "lk", domain.BoundingBox{})
	analytics := service.NewAnalyticsService(riskSvc, session, repo)

	handler := NewHandler(riskSvc, session, weather, router, geocoder, models, analytics, simulator, repo, testBBox)
	t.Cleanup(simulator.Stop)

	app := fiber.New()
	SetupRoutes(app, handler)
	return app, session, weather
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	out := map[string]any{}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s %s: invalid JSON body %q", method, path, data)
		}
	}
	return resp, out
}

func TestHealthEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodGet, "/health", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" || body["storage"] != "ok" {
		t.Errorf("health body = %v", body)
	}
}

func TestScorePointEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/risk/score",
		map[string]float64{"lat": 7.01, "lon": 80.48})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["success"] != true {
		t.Errorf("body = %v", body)
	}
	if band, ok := body["band"].(string); !ok || band == "" {
		t.Errorf("band = %v", body["band"])
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %v", body["data"])
	}
	riskVal, ok := data["risk_0_100"].(float64)
	if !ok || riskVal < 0 || riskVal > 100 {
		t.Errorf("risk = %v", data["risk_0_100"])
	}
}

func TestScorePointRejectsOutOfServiceArea(t *testing.T) {
	app, _, _ := newTestApp(t)

	// South of the service area's lat floor.
	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/risk/score",
		map[string]float64{"lat": 6.98, "lon": 80.48})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["error"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestSegmentsTodayEndpoint(t *testing.T) {
	app, session, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodGet,
		"/api/v1/risk/segments/today?bbox=80.43,6.94,80.55,7.03&hour=8", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["type"] != "FeatureCollection" {
		t.Errorf("type = %v", body["type"])
	}
	features, ok := body["features"].([]any)
	if !ok || len(features) == 0 {
		t.Fatal("expected a non-empty feature list")
	}
	if len(session.Segments().Features) != len(features) {
		t.Error("session segments not updated from the fetch")
	}
}

func TestSegmentsTodayRejectsBadInput(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, _ := doJSON(t, app, fiber.MethodGet, "/api/v1/risk/segments/today?bbox=junk", nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad bbox status = %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/v1/risk/segments/today?hour=25", nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad hour status = %d", resp.StatusCode)
	}
}

func TestTopSpotsEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/v1/risk/spots/top?limit=5", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	spots, ok := body["data"].([]any)
	if !ok || len(spots) != 5 {
		t.Errorf("spot count = %v", body["count"])
	}
}

func TestOverviewEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/v1/overview?limit=3", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %v", body["data"])
	}
	if _, ok := data["segments"]; !ok {
		t.Error("overview missing segments")
	}
	if spots, ok := data["top_spots"].([]any); !ok || len(spots) != 3 {
		t.Errorf("top_spots = %v", data["top_spots"])
	}
}

func TestUpdatePreferencesEndpoint(t *testing.T) {
	app, session, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodPut, "/api/v1/session/preferences",
		map[string]any{"vehicle": "Motorcycle", "hour": 18, "mock_mode": false})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["vehicle"] != "MOTORCYCLE" || body["hour"] != float64(18) {
		t.Errorf("snapshot = %v", body)
	}
	if session.MockMode() {
		t.Error("mock mode not applied")
	}

	resp, _ = doJSON(t, app, fiber.MethodPut, "/api/v1/session/preferences",
		map[string]any{"hour": 25})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("invalid hour status = %d", resp.StatusCode)
	}
}

func TestRouteEndpointFallsBackToStraightLine(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodGet,
		"/api/v1/route?from_lat=6.94&from_lon=80.43&to_lat=7.03&to_lon=80.55", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %v", body["data"])
	}
	if data["provider"] != "straight-line" {
		t.Errorf("provider = %v", data["provider"])
	}

	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/v1/route", nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("missing params status = %d", resp.StatusCode)
	}
}

func TestWeatherManualModeOverHTTP(t *testing.T) {
	app, _, weather := newTestApp(t)

	resp, _ := doJSON(t, app, fiber.MethodPut, "/api/v1/weather/manual",
		map[string]any{"temperature_c": 29.0, "is_wet": 1})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("manual status = %d", resp.StatusCode)
	}

	resp, body := doJSON(t, app, fiber.MethodPut, "/api/v1/weather/mode",
		map[string]string{"mode": "live"})
	if resp.StatusCode != fiber.StatusOK || body["mode"] != "live" {
		t.Fatalf("mode switch = %d %v", resp.StatusCode, body)
	}

	// No live snapshot was fetched, so the active conditions stay manual.
	resp, body = doJSON(t, app, fiber.MethodGet, "/api/v1/weather/active", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("active status = %d", resp.StatusCode)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %v", body["data"])
	}
	if data["temperature_c"] != 29.0 || data["is_wet"] != float64(1) {
		t.Errorf("active weather = %v", data)
	}
	if got := weather.Manual(); got.TemperatureC != 29.0 {
		t.Errorf("manual snapshot = %+v", got)
	}
}

func TestModelEndpoints(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/v1/models/health", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["prediction_mode"] != "fallback" {
		t.Errorf("prediction_mode = %v", body["prediction_mode"])
	}

	resp, body = doJSON(t, app, fiber.MethodGet, "/api/v1/models/realtime/feature-importance", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if fi, ok := body["data"].([]any); !ok || len(fi) == 0 {
		t.Error("feature importance should fall back to the documented list")
	}
}

func TestRouteComparisonEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/analytics/route-comparison",
		map[string]any{"routes": []map[string]any{
			{"name": "Main Road", "coordinates": [][2]float64{{80.45, 6.96}, {80.46, 6.97}, {80.47, 6.98}}},
			{"name": "Bypass", "coordinates": [][2]float64{{80.50, 7.00}, {80.51, 7.01}, {80.52, 7.02}}},
		}})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	comparison, ok := body["comparison"].([]any)
	if !ok || len(comparison) != 2 {
		t.Fatalf("comparison = %v", body["comparison"])
	}
	if safest, ok := body["safest_route"].(string); !ok || safest == "" {
		t.Errorf("safest_route = %v", body["safest_route"])
	}

	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/analytics/route-comparison",
		map[string]any{"routes": []any{}})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("empty routes status = %d", resp.StatusCode)
	}
}

func TestRiskDistributionEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodGet,
		"/api/v1/analytics/risk-distribution?bbox=80.43,6.94,80.55,7.03&hour=8", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	count, ok := body["segments_count"].(float64)
	if !ok || count == 0 {
		t.Errorf("segments_count = %v", body["segments_count"])
	}

	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/v1/analytics/risk-distribution?hour=99", nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad hour status = %d", resp.StatusCode)
	}
}

func TestScoreTrendsEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/v1/analytics/score-trends", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["window_hours"] != float64(24) || body["count"] != float64(0) {
		t.Errorf("trends = %v", body)
	}

	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/v1/analytics/score-trends?hours=0", nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad window status = %d", resp.StatusCode)
	}
}

func TestAlertStreamValidation(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, _ := doJSON(t, app, fiber.MethodGet, "/api/v1/alerts/stream", nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("missing position status = %d", resp.StatusCode)
	}
}

func TestSimulationValidation(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/simulate/start",
		map[string]any{"coordinates": [][2]float64{{80.5, 7.0}}})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("degenerate route status = %d", resp.StatusCode)
	}

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/v1/simulate/status", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["running"] != false {
		t.Errorf("running = %v", body["running"])
	}
}
