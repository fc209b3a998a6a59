package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/riskroute/backend/internal/domain"
)

const geocodeUserAgent = "RiskRoute/1.0 (risk assessment dashboard)"

// GeocodeService wraps Nominatim forward and reverse geocoding,
// country-filtered and bounded to the service area to reduce result
// noise.
type GeocodeService struct {
	baseURL      string
	countryCodes string
	viewbox      domain.BoundingBox
	httpClient   *http.Client
}

// NewGeocodeService creates a geocoder against the given Nominatim
// base URL, filtering results to the given ISO country codes. A
// non-zero viewbox restricts search results to the service area.
func NewGeocodeService(baseURL, countryCodes string, viewbox domain.BoundingBox) *GeocodeService {
	return &GeocodeService{
		baseURL:      baseURL,
		countryCodes: countryCodes,
		viewbox:      viewbox,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type nominatimResult struct {
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// Search forward-geocodes a free-text query.
func (s *GeocodeService) Search(ctx context.Context, query string, limit int) ([]domain.GeocodeResult, error) {
	if limit <= 0 {
		limit = 5
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("countrycodes", s.countryCodes)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("addressdetails", "1")
	if s.viewbox != (domain.BoundingBox{}) {
		q.Set("viewbox", s.viewbox.String())
		q.Set("bounded", "1")
	}

	var raw []nominatimResult
	if err := s.get(ctx, s.baseURL+"/search?"+q.Encode(), &raw); err != nil {
		return nil, err
	}

	results := make([]domain.GeocodeResult, 0, len(raw))
	for _, r := range raw {
		lat, err1 := strconv.ParseFloat(r.Lat, 64)
		lon, err2 := strconv.ParseFloat(r.Lon, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		results = append(results, domain.GeocodeResult{
			DisplayName: r.DisplayName,
			Lat:         lat,
			Lon:         lon,
			Type:        r.Type,
			Importance:  r.Importance,
		})
	}
	return results, nil
}

// Reverse resolves a coordinate to a place name. On any failure it
// returns a formatted coordinate string instead of an error, so the
// caller always has something displayable.
func (s *GeocodeService) Reverse(ctx context.Context, lat, lon float64) string {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))
	q.Set("format", "json")

	var raw nominatimResult
	if err := s.get(ctx, s.baseURL+"/reverse?"+q.Encode(), &raw); err != nil || raw.DisplayName == "" {
		return fmt.Sprintf("%.5f, %.5f", lat, lon)
	}
	return raw.DisplayName
}

func (s *GeocodeService) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("geocode: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", geocodeUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("geocode: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocode: returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 2<<20)).Decode(out); err != nil {
		return fmt.Errorf("geocode: failed to decode response: %w", err)
	}
	return nil
}
