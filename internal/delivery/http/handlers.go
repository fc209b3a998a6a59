package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/internal/risk"
	"github.com/riskroute/backend/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	riskSvc   *service.RiskService
	session   *service.Session
	weather   *service.WeatherService
	router    *service.Router
	geocoder  *service.GeocodeService
	models    *service.ModelService
	analytics *service.AnalyticsService
	simulator *service.DriveSimulator
	repo      domain.DataRepository

	defaultBBox domain.BoundingBox

	simMu   sync.Mutex
	lastSim *service.SimUpdate
}

// NewHandler creates a new handler
func NewHandler(
	riskSvc *service.RiskService,
	session *service.Session,
	weather *service.WeatherService,
	router *service.Router,
	geocoder *service.GeocodeService,
	models *service.ModelService,
	analytics *service.AnalyticsService,
	simulator *service.DriveSimulator,
	repo domain.DataRepository,
	defaultBBox domain.BoundingBox,
) *Handler {
	return &Handler{
		riskSvc:     riskSvc,
		session:     session,
		weather:     weather,
		router:      router,
		geocoder:    geocoder,
		models:      models,
		analytics:   analytics,
		simulator:   simulator,
		repo:        repo,
		defaultBBox: defaultBBox,
	}
}

// queryBBox parses the optional bbox query parameter, defaulting to
// the configured segment area.
func (h *Handler) queryBBox(c *fiber.Ctx) (domain.BoundingBox, error) {
	raw := c.Query("bbox")
	if raw == "" {
		return h.defaultBBox, nil
	}
	return domain.ParseBoundingBox(raw)
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.repo.Health(c.Context()); err != nil {
		dbStatus = "degraded"
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "riskroute-backend",
		"version": "1.0.0",
		"storage": dbStatus,
	})
}

type scorePointRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ScorePoint answers a point risk query with the session's selections.
func (h *Handler) ScorePoint(c *fiber.Ctx) error {
	var req scorePointRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.riskSvc.ScorePoint(c.Context(), req.Lat, req.Lon)
	if errors.Is(err, domain.ErrOutOfServiceArea) {
		return fiber.NewError(fiber.StatusBadRequest, "Point outside service area")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to score point")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    resp,
		"band":    risk.ToBand(resp.Risk0To100),
		"color":   risk.Color(resp.Risk0To100),
	})
}

type scoreRouteRequest struct {
	Coordinates [][2]float64 `json:"coordinates"` // [lng,lat]
}

// ScoreRoute scores an entire polyline pointwise.
func (h *Handler) ScoreRoute(c *fiber.Ctx) error {
	var req scoreRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if len(req.Coordinates) < 2 {
		return fiber.NewError(fiber.StatusBadRequest, "Need at least 2 coordinates")
	}

	score, err := h.riskSvc.ScoreRoute(c.Context(), req.Coordinates)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to score route")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    score,
	})
}

// GetSegmentsToday returns today's risk segments as GeoJSON.
func (h *Handler) GetSegmentsToday(c *fiber.Ctx) error {
	bbox, err := h.queryBBox(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	hour := c.QueryInt("hour", h.session.Hour())
	if hour < 0 || hour > 23 {
		return fiber.NewError(fiber.StatusBadRequest, "hour must be 0-23")
	}

	vehicle := h.session.Vehicle()
	if raw := c.Query("vehicle"); raw != "" {
		vehicle = domain.ParseVehicle(raw)
	}

	col, err := h.riskSvc.Source().SegmentsToday(c.Context(), bbox, hour, vehicle)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to fetch segments")
	}
	h.session.SetSegments(col)

	return c.JSON(col)
}

// GetTopSpots returns the riskiest spots for list display.
func (h *Handler) GetTopSpots(c *fiber.Ctx) error {
	vehicle := h.session.Vehicle()
	if raw := c.Query("vehicle"); raw != "" {
		vehicle = domain.ParseVehicle(raw)
	}
	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}

	spots, err := h.riskSvc.Source().TopSpots(c.Context(), vehicle, limit)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to fetch top spots")
	}

	if c.QueryBool("names", false) {
		spots = h.riskSvc.AnnotateRoadNames(c.Context(), spots)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    spots,
		"count":   len(spots),
	})
}

// GetOverview fetches segments and top spots concurrently for the map
// screen.
func (h *Handler) GetOverview(c *fiber.Ctx) error {
	bbox, err := h.queryBBox(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	limit := c.QueryInt("limit", 10)

	overview, err := h.riskSvc.GetOverview(c.Context(), bbox, limit)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to fetch overview")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    overview,
	})
}

// GetWeather fetches live conditions for the location and caches them
// as the session's live snapshot.
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	center := h.session.Center()
	lat := c.QueryFloat("lat", center.Lat)
	lon := c.QueryFloat("lon", center.Lon)

	w, err := h.weather.Refresh(c.Context(), lat, lon)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to fetch weather")
	}

	return c.JSON(domain.WeatherResponse{Data: w, Success: true})
}

// GetActiveWeather returns the conditions currently feeding the model.
func (h *Handler) GetActiveWeather(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"mode":    h.weather.Mode(),
		"data":    h.weather.Active(),
	})
}

// SetManualWeather stores user-entered conditions.
func (h *Handler) SetManualWeather(c *fiber.Ctx) error {
	var w domain.Weather
	if err := c.BodyParser(&w); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	h.weather.SetManual(w)
	return c.JSON(fiber.Map{"success": true})
}

type weatherModeRequest struct {
	Mode domain.WeatherMode `json:"mode"`
}

// SetWeatherMode switches between manual and live weather inputs.
func (h *Handler) SetWeatherMode(c *fiber.Ctx) error {
	var req weatherModeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	h.weather.SetMode(req.Mode)
	return c.JSON(fiber.Map{"success": true, "mode": h.weather.Mode()})
}

// GetRoute requests directions through the provider fallback chain.
func (h *Handler) GetRoute(c *fiber.Ctx) error {
	from := domain.LatLon{Lat: c.QueryFloat("from_lat"), Lon: c.QueryFloat("from_lon")}
	to := domain.LatLon{Lat: c.QueryFloat("to_lat"), Lon: c.QueryFloat("to_lon")}
	if from == (domain.LatLon{}) || to == (domain.LatLon{}) {
		return fiber.NewError(fiber.StatusBadRequest, "from_lat, from_lon, to_lat, to_lon are required")
	}

	route, err := h.router.Route(c.Context(), from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to compute route")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    route,
	})
}

// GeocodeSearch forward-geocodes a free-text query.
func (h *Handler) GeocodeSearch(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q is required")
	}
	limit := c.QueryInt("limit", 5)

	results, err := h.geocoder.Search(c.Context(), q, limit)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Geocoding service error")
	}
	return c.JSON(results)
}

// GeocodeReverse resolves a coordinate to a display name, degrading to
// a formatted coordinate string on provider failure.
func (h *Handler) GeocodeReverse(c *fiber.Ctx) error {
	lat := c.QueryFloat("lat")
	lon := c.QueryFloat("lon")
	return c.JSON(fiber.Map{
		"display_name": h.geocoder.Reverse(c.Context(), lat, lon),
	})
}

// Model introspection endpoints, polled by the dashboard.

func (h *Handler) GetModelInfo(c *fiber.Ctx) error {
	return c.JSON(h.models.Info())
}

func (h *Handler) GetModelMetrics(c *fiber.Ctx) error {
	return c.JSON(h.models.Metrics())
}

func (h *Handler) GetModelHealth(c *fiber.Ctx) error {
	return c.JSON(h.models.Health())
}

func (h *Handler) GetRealtimeMetrics(c *fiber.Ctx) error {
	return c.JSON(h.models.RealtimeMetrics())
}

func (h *Handler) GetFeatureImportance(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.models.FeatureImportance(),
	})
}

func (h *Handler) GetHistoricalMetrics(c *fiber.Ctx) error {
	return c.JSON(h.models.HistoricalMetrics())
}

func (h *Handler) GetRiskTiles(c *fiber.Ctx) error {
	tiles := h.models.RiskTiles()
	return c.JSON(fiber.Map{
		"success": true,
		"data":    tiles,
		"count":   len(tiles),
	})
}

// GetSession returns the full session snapshot.
func (h *Handler) GetSession(c *fiber.Ctx) error {
	return c.JSON(h.session.Snapshot())
}

type preferencesRequest struct {
	Hour     *int           `json:"hour,omitempty"`
	Vehicle  *string        `json:"vehicle,omitempty"`
	MockMode *bool          `json:"mock_mode,omitempty"`
	MapStyle *string        `json:"map_style,omitempty"`
	Center   *domain.LatLon `json:"center,omitempty"`
	Selected *string        `json:"selected,omitempty"`
}

// UpdatePreferences applies partial updates to the session state.
func (h *Handler) UpdatePreferences(c *fiber.Ctx) error {
	var req preferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Hour != nil {
		if *req.Hour < 0 || *req.Hour > 23 {
			return fiber.NewError(fiber.StatusBadRequest, "hour must be 0-23")
		}
		h.session.SetHour(*req.Hour)
	}
	if req.Vehicle != nil {
		h.session.SetVehicle(domain.ParseVehicle(*req.Vehicle))
	}
	if req.MockMode != nil {
		h.session.SetMockMode(*req.MockMode)
	}
	if req.MapStyle != nil {
		h.session.SetMapStyle(*req.MapStyle)
	}
	if req.Center != nil {
		h.session.SetCenter(*req.Center)
	}
	if req.Selected != nil {
		h.session.Select(*req.Selected)
	}

	return c.JSON(h.session.Snapshot())
}

type simulateRequest struct {
	Coordinates [][2]float64 `json:"coordinates"` // [lng,lat]
}

// StartSimulation begins a demo-drive playback along the route.
func (h *Handler) StartSimulation(c *fiber.Ctx) error {
	var req simulateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if len(req.Coordinates) < 2 {
		return fiber.NewError(fiber.StatusBadRequest, "Need at least 2 coordinates")
	}

	weather := h.weather.Active()
	h.simulator.Start(req.Coordinates, h.session.Vehicle(), h.session.Hour(), &weather, func(u service.SimUpdate) {
		h.simMu.Lock()
		update := u
		h.lastSim = &update
		h.simMu.Unlock()
	})

	return c.JSON(fiber.Map{"success": true, "running": true})
}

// StopSimulation tears the playback down.
func (h *Handler) StopSimulation(c *fiber.Ctx) error {
	h.simulator.Stop()
	return c.JSON(fiber.Map{"success": true, "running": false})
}

// GetSimulationStatus returns the latest playback step.
func (h *Handler) GetSimulationStatus(c *fiber.Ctx) error {
	h.simMu.Lock()
	update := h.lastSim
	h.simMu.Unlock()

	return c.JSON(fiber.Map{
		"success": true,
		"running": h.simulator.Running(),
		"update":  update,
	})
}

// Analytics endpoints.

type routeComparisonRequest struct {
	Routes []service.NamedRoute `json:"routes"`
}

// CompareRoutes ranks candidate routes by overall risk.
func (h *Handler) CompareRoutes(c *fiber.Ctx) error {
	var req routeComparisonRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if len(req.Routes) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Need at least 1 route")
	}

	result, err := h.analytics.CompareRoutes(c.Context(), req.Routes)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to compare routes")
	}
	return c.JSON(result)
}

// GetRiskDistribution returns the risk histogram for a region.
func (h *Handler) GetRiskDistribution(c *fiber.Ctx) error {
	bbox, err := h.queryBBox(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	hour := c.QueryInt("hour", h.session.Hour())
	if hour < 0 || hour > 23 {
		return fiber.NewError(fiber.StatusBadRequest, "hour must be 0-23")
	}
	vehicle := h.session.Vehicle()
	if raw := c.Query("vehicle"); raw != "" {
		vehicle = domain.ParseVehicle(raw)
	}

	dist, err := h.analytics.Distribution(c.Context(), bbox, hour, vehicle)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to compute distribution")
	}
	return c.JSON(dist)
}

// GetVehicleComparison compares every vehicle type over a region.
func (h *Handler) GetVehicleComparison(c *fiber.Ctx) error {
	bbox, err := h.queryBBox(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	hour := c.QueryInt("hour", h.session.Hour())
	if hour < 0 || hour > 23 {
		return fiber.NewError(fiber.StatusBadRequest, "hour must be 0-23")
	}

	result, err := h.analytics.CompareVehicles(c.Context(), bbox, hour)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to compare vehicles")
	}
	return c.JSON(result)
}

// GetHourlyTrends sweeps the region's risk across all 24 hours.
func (h *Handler) GetHourlyTrends(c *fiber.Ctx) error {
	bbox, err := h.queryBBox(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	vehicle := h.session.Vehicle()
	if raw := c.Query("vehicle"); raw != "" {
		vehicle = domain.ParseVehicle(raw)
	}

	result, err := h.analytics.HourlyTrends(c.Context(), bbox, vehicle)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to compute trends")
	}
	return c.JSON(result)
}

// GetScoreTrends summarizes the recorded score log over a window.
func (h *Handler) GetScoreTrends(c *fiber.Ctx) error {
	hours := c.QueryInt("hours", 24)
	if hours < 1 || hours > 24*30 {
		return fiber.NewError(fiber.StatusBadRequest, "hours must be 1-720")
	}

	trends, err := h.analytics.LogTrends(c.Context(), hours)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to read score trends")
	}
	return c.JSON(trends)
}

// StreamAlerts pushes a risk update for the position every 2 seconds as
// server-sent events, until the client disconnects.
func (h *Handler) StreamAlerts(c *fiber.Ctx) error {
	lat := c.QueryFloat("lat")
	lon := c.QueryFloat("lon")
	if lat == 0 && lon == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lon are required")
	}
	vehicle := h.session.Vehicle()
	if raw := c.Query("vehicle"); raw != "" {
		vehicle = domain.ParseVehicle(raw)
	}
	hour := h.session.Hour()
	weather := h.weather.Active()
	source := h.riskSvc.Source()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			scoreCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			resp, err := source.Score(scoreCtx, domain.ScoreRequest{
				Lat: lat, Lon: lon, Vehicle: vehicle, Hour: hour, Weather: &weather,
			})
			cancel()
			if err != nil {
				log.Printf("alerts: score failed: %v", err)
				continue
			}

			payload, err := json.Marshal(fiber.Map{
				"overall":   resp.Risk0To100,
				"level":     risk.ToBand(resp.Risk0To100),
				"top_cause": resp.TopCause,
			})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: tick\ndata: %s\n\n", payload)
			// Flush fails once the client hangs up; end the stream.
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}
