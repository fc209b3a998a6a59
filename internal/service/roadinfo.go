package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	overpass "github.com/serjvanilla/go-overpass"

	"github.com/riskroute/backend/internal/geo"
)

// RoadInfoService resolves named roads near a point through the
// Overpass API, used to annotate top risk spots for list display.
// Failures degrade to an empty name; spot listings never block on it.
type RoadInfoService struct {
	client *overpass.Client
}

// NewRoadInfoService creates a road lookup against the given Overpass
// endpoint. The HTTP client timeout bounds each query; the Overpass
// library does not take a context.
func NewRoadInfoService(endpoint string) *RoadInfoService {
	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &RoadInfoService{client: &client}
}

// NearestRoadName returns the name of the closest named highway within
// roughly 200 m of the point, or "" when none is found.
func (s *RoadInfoService) NearestRoadName(ctx context.Context, lat, lon float64) (string, error) {
	const delta = 0.002
	bbox := fmt.Sprintf("%f,%f,%f,%f", lat-delta, lon-delta, lat+delta, lon+delta)

	query := fmt.Sprintf(`
		[out:json];
		way["highway"]["name"](%s);
		out body;
		>;
		out skel qt;
	`, bbox)

	result, err := s.client.Query(query)
	if err != nil {
		return "", fmt.Errorf("roadinfo: overpass query failed: %w", err)
	}

	best := ""
	bestDist := 0.0
	for _, way := range result.Ways {
		name := way.Tags["name"]
		if name == "" || len(way.Nodes) == 0 {
			continue
		}
		var cLat, cLon float64
		for _, n := range way.Nodes {
			cLat += n.Lat
			cLon += n.Lon
		}
		cLat /= float64(len(way.Nodes))
		cLon /= float64(len(way.Nodes))

		d := geo.Haversine(lat, lon, cLat, cLon)
		if best == "" || d < bestDist {
			best = name
			bestDist = d
		}
	}
	return best, nil
}
