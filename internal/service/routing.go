package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zoobzio/pipz"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/internal/geo"
)

// RouteProvider produces driving directions between two points.
type RouteProvider interface {
	Name() string
	Route(ctx context.Context, from, to domain.LatLon) (domain.RouteResult, error)
}

// routeJob flows through the provider fallback chain.
type routeJob struct {
	From, To domain.LatLon
	Result   domain.RouteResult
}

// Router tries providers in a fixed priority order, short-circuiting on
// the first success. This is the only retry-like behavior in the
// system; individual providers do not retry.
type Router struct {
	chain *pipz.Fallback[routeJob]
}

// NewRouter composes the providers into a fallback chain. Order
// matters: the first provider is the primary.
func NewRouter(providers ...RouteProvider) *Router {
	procs := make([]pipz.Chainable[routeJob], 0, len(providers))
	for _, p := range providers {
		provider := p
		procs = append(procs, pipz.Apply(pipz.Name(provider.Name()), func(ctx context.Context, job routeJob) (routeJob, error) {
			result, err := provider.Route(ctx, job.From, job.To)
			if err != nil {
				return job, err
			}
			job.Result = result
			return job, nil
		}))
	}
	return &Router{chain: pipz.NewFallback("routing-providers", procs...)}
}

// Route returns directions from the first provider that succeeds.
func (r *Router) Route(ctx context.Context, from, to domain.LatLon) (domain.RouteResult, error) {
	job, err := r.chain.Process(ctx, routeJob{From: from, To: to})
	if err != nil {
		return domain.RouteResult{}, fmt.Errorf("routing: all providers failed: %w", err)
	}
	return job.Result, nil
}

func bboxOf(coords [][2]float64) domain.BoundingBox {
	if len(coords) == 0 {
		return domain.BoundingBox{}
	}
	b := domain.BoundingBox{
		MinLon: coords[0][0], MaxLon: coords[0][0],
		MinLat: coords[0][1], MaxLat: coords[0][1],
	}
	for _, c := range coords[1:] {
		if c[0] < b.MinLon {
			b.MinLon = c[0]
		}
		if c[0] > b.MaxLon {
			b.MaxLon = c[0]
		}
		if c[1] < b.MinLat {
			b.MinLat = c[1]
		}
		if c[1] > b.MaxLat {
			b.MaxLat = c[1]
		}
	}
	return b
}

// OSRMProvider queries an OSRM server (the public demo by default).
type OSRMProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewOSRMProvider creates the primary routing provider.
func NewOSRMProvider(baseURL string) *OSRMProvider {
	return &OSRMProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *OSRMProvider) Name() string { return "osrm" }

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// Route fetches directions with full GeoJSON geometry.
func (p *OSRMProvider) Route(ctx context.Context, from, to domain.LatLon) (domain.RouteResult, error) {
	u := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		p.baseURL, from.Lon, from.Lat, to.Lon, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.RouteResult{}, fmt.Errorf("osrm: failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.RouteResult{}, fmt.Errorf("osrm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.RouteResult{}, fmt.Errorf("osrm: returned status %d", resp.StatusCode)
	}

	var out osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.RouteResult{}, fmt.Errorf("osrm: failed to decode response: %w", err)
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return domain.RouteResult{}, fmt.Errorf("osrm: no route found (code %q)", out.Code)
	}

	route := out.Routes[0]
	return domain.RouteResult{
		Coordinates:    route.Geometry.Coordinates,
		DistanceMeters: route.Distance,
		DurationSec:    route.Duration,
		BBox:           bboxOf(route.Geometry.Coordinates),
		Provider:       p.Name(),
	}, nil
}

// ORSProvider queries OpenRouteService. It requires an API key and
// reports itself unavailable without one.
type ORSProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewORSProvider creates the secondary routing provider.
func NewORSProvider(baseURL, apiKey string) *ORSProvider {
	return &ORSProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *ORSProvider) Name() string { return "openrouteservice" }

type orsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

func (p *ORSProvider) Route(ctx context.Context, from, to domain.LatLon) (domain.RouteResult, error) {
	if p.apiKey == "" {
		return domain.RouteResult{}, fmt.Errorf("openrouteservice: no API key configured")
	}

	u := fmt.Sprintf("%s/v2/directions/driving-car?api_key=%s&start=%f,%f&end=%f,%f",
		p.baseURL, p.apiKey, from.Lon, from.Lat, to.Lon, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.RouteResult{}, fmt.Errorf("openrouteservice: failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.RouteResult{}, fmt.Errorf("openrouteservice: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.RouteResult{}, fmt.Errorf("openrouteservice: returned status %d", resp.StatusCode)
	}

	var out orsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.RouteResult{}, fmt.Errorf("openrouteservice: failed to decode response: %w", err)
	}
	if len(out.Features) == 0 {
		return domain.RouteResult{}, fmt.Errorf("openrouteservice: no route found")
	}

	feat := out.Features[0]
	return domain.RouteResult{
		Coordinates:    feat.Geometry.Coordinates,
		DistanceMeters: feat.Properties.Summary.Distance,
		DurationSec:    feat.Properties.Summary.Duration,
		BBox:           bboxOf(feat.Geometry.Coordinates),
		Provider:       p.Name(),
	}, nil
}

// StraightLineProvider synthesizes a direct route when every real
// provider fails. It never errors, so it terminates the chain.
type StraightLineProvider struct {
	points int
}

// NewStraightLineProvider creates the last-resort provider.
func NewStraightLineProvider() *StraightLineProvider {
	return &StraightLineProvider{points: 20}
}

func (p *StraightLineProvider) Name() string { return "straight-line" }

// Route interpolates evenly along the direct segment and estimates
// duration at 40 km/h. Identical endpoints degenerate to a minimal
// zero-distance route rather than an error.
func (p *StraightLineProvider) Route(ctx context.Context, from, to domain.LatLon) (domain.RouteResult, error) {
	line := [][2]float64{{from.Lon, from.Lat}, {to.Lon, to.Lat}}
	samples := geo.SamplePolylineByCount(line, p.points)

	coords := make([][2]float64, len(samples))
	for i, s := range samples {
		coords[i] = [2]float64{s.Lon, s.Lat}
	}

	distance := geo.Haversine(from.Lat, from.Lon, to.Lat, to.Lon)
	return domain.RouteResult{
		Coordinates:    coords,
		DistanceMeters: distance,
		DurationSec:    distance / (40.0 / 3.6),
		BBox:           bboxOf(coords),
		Provider:       p.Name(),
	}, nil
}
