package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/pkg/utils"
)

// Client is a Source backed by the remote scoring API. It translates
// between the backend's wire shapes (fractional risk, cause weight
// maps) and the normalized domain types. Errors propagate to the
// caller; there is no retry and no backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a scoring client for the given API base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type scoreRequestWire struct {
	VehicleType  domain.Vehicle `json:"vehicleType"`
	Coordinates  [][2]float64   `json:"coordinates"` // [lat,lon] pairs
	TimestampUTC string         `json:"timestampUtc,omitempty"`
}

type nearbyRequestWire struct {
	VehicleType  domain.Vehicle `json:"vehicleType"`
	Point        [2]float64     `json:"point"`
	RadiusMeters int            `json:"radiusMeters"`
}

type scoreResponseWire struct {
	Overall       float64            `json:"overall"`
	SegmentScores []float64          `json:"segmentScores"`
	Explain       map[string]float64 `json:"explain"`
}

// TopCauseFromWeights selects the dominant cause from a weight map.
// Ties break lexicographically on the cause name so that the result is
// deterministic regardless of map iteration order.
func TopCauseFromWeights(weights map[string]float64) (string, float64) {
	best := ""
	bestWeight := 0.0
	for cause, w := range weights {
		if best == "" || w > bestWeight || (w == bestWeight && cause < best) {
			best = cause
			bestWeight = w
		}
	}
	return best, bestWeight
}

// fractionToRisk converts the backend's 0-1 fraction to a 0-100 score.
func fractionToRisk(f float64) int {
	return int(utils.Clamp(f*100, 0, 100))
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("risk client: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("risk client: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("risk client: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("risk client: %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("risk client: failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("risk client: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("risk client: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("risk client: %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("risk client: failed to decode response: %w", err)
	}
	return nil
}

// Score answers a point query via the backend's nearby endpoint.
func (c *Client) Score(ctx context.Context, req domain.ScoreRequest) (domain.ScoreResponse, error) {
	wire := nearbyRequestWire{
		VehicleType:  req.Vehicle,
		Point:        [2]float64{req.Lat, req.Lon},
		RadiusMeters: 300,
	}

	var out scoreResponseWire
	if err := c.postJSON(ctx, "/api/v1/risk/nearby", wire, &out); err != nil {
		return domain.ScoreResponse{}, err
	}

	cause, weight := TopCauseFromWeights(out.Explain)
	return domain.ScoreResponse{
		Risk0To100: fractionToRisk(out.Overall),
		TopCause:   cause,
		PTopCause:  weight,
		RatePred:   out.Overall,
		Components: out.Explain,
		Weather:    req.Weather,
	}, nil
}

// ScoreRoute scores a [lng,lat] polyline via the backend.
func (c *Client) ScoreRoute(ctx context.Context, coords [][2]float64, vehicle domain.Vehicle, hour int, weather *domain.Weather) (domain.RouteScore, error) {
	// The backend expects [lat,lon] order.
	latLon := make([][2]float64, len(coords))
	for i, pt := range coords {
		latLon[i] = [2]float64{pt[1], pt[0]}
	}

	wire := scoreRequestWire{
		VehicleType:  vehicle,
		Coordinates:  latLon,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
	}

	var out scoreResponseWire
	if err := c.postJSON(ctx, "/api/v1/risk/score", wire, &out); err != nil {
		return domain.RouteScore{}, err
	}

	result := domain.RouteScore{
		Overall:       fractionToRisk(out.Overall),
		SegmentScores: make([]int, len(out.SegmentScores)),
		Points:        make([]domain.LatLon, len(coords)),
		Explain:       out.Explain,
	}
	for i, s := range out.SegmentScores {
		result.SegmentScores[i] = fractionToRisk(s)
	}
	for i, pt := range coords {
		result.Points[i] = domain.LatLon{Lat: pt[1], Lon: pt[0]}
	}
	return result, nil
}

// SegmentsToday fetches today's scored segments inside the box.
func (c *Client) SegmentsToday(ctx context.Context, bbox domain.BoundingBox, hour int, vehicle domain.Vehicle) (domain.SegmentCollection, error) {
	q := url.Values{}
	if bbox != (domain.BoundingBox{}) {
		q.Set("bbox", bbox.String())
	}
	if hour >= 0 && hour <= 23 {
		q.Set("hour", strconv.Itoa(hour))
	}
	if vehicle != "" {
		q.Set("vehicle", string(vehicle))
	}

	var out domain.SegmentCollection
	if err := c.getJSON(ctx, "/api/v1/risk/segments/today", q, &out); err != nil {
		return domain.SegmentCollection{}, err
	}
	return out, nil
}

// TopSpots fetches the riskiest spots from the backend.
func (c *Client) TopSpots(ctx context.Context, vehicle domain.Vehicle, limit int) ([]domain.TopSpot, error) {
	q := url.Values{}
	if vehicle != "" {
		q.Set("vehicle", string(vehicle))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out []domain.TopSpot
	if err := c.getJSON(ctx, "/api/v1/risk/spots/top", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}
