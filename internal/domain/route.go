package domain

// RouteResult is the outcome of an external routing call.
// Immutable once returned; Coordinates are ordered [lng,lat] pairs.
type RouteResult struct {
	Coordinates    [][2]float64 `json:"coordinates"`
	DistanceMeters float64      `json:"distance_m"`
	DurationSec    float64      `json:"duration_s"`
	BBox           BoundingBox  `json:"bbox"`
	Provider       string       `json:"provider"`
}

// GeocodeResult is one forward-geocoding match.
type GeocodeResult struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Type        string  `json:"type,omitempty"`
	Importance  float64 `json:"importance,omitempty"`
}
