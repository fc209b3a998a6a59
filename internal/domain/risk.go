package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrOutOfServiceArea rejects queries for points outside the configured
// service bounds.
var ErrOutOfServiceArea = errors.New("point outside service area")

// Vehicle is the backend vehicle-type enum used by the scoring model.
type Vehicle string

const (
	VehicleCar          Vehicle = "CAR"
	VehicleBus          Vehicle = "BUS"
	VehicleMotorcycle   Vehicle = "MOTORCYCLE"
	VehicleThreeWheeler Vehicle = "THREE_WHEELER"
	VehicleVan          Vehicle = "VAN"
	VehicleLorry        Vehicle = "LORRY"
)

// Vehicles lists every supported vehicle type.
var Vehicles = []Vehicle{
	VehicleCar, VehicleBus, VehicleMotorcycle,
	VehicleThreeWheeler, VehicleVan, VehicleLorry,
}

// displayNames is the fixed bidirectional mapping between the display
// names shown in the UI and the model enum.
var displayNames = map[string]Vehicle{
	"Car":           VehicleCar,
	"Bus":           VehicleBus,
	"Motorcycle":    VehicleMotorcycle,
	"Three Wheeler": VehicleThreeWheeler,
	"Van":           VehicleVan,
	"Lorry":         VehicleLorry,
}

// ParseVehicle maps a display name or enum value to a Vehicle.
// Unknown values fall back to CAR.
func ParseVehicle(s string) Vehicle {
	if v, ok := displayNames[s]; ok {
		return v
	}
	for _, v := range Vehicles {
		if string(v) == strings.ToUpper(s) {
			return v
		}
	}
	return VehicleCar
}

// DisplayName returns the UI display name for a vehicle.
// Unknown values fall back to "Car".
func (v Vehicle) DisplayName() string {
	for name, vv := range displayNames {
		if vv == v {
			return name
		}
	}
	return "Car"
}

// LatLon is a geographic coordinate in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox is a rectangular geographic filter.
// Invariant: Min <= Max on each axis.
type BoundingBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// ParseBoundingBox parses the "minLon,minLat,maxLon,maxLat" query form.
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bbox must have 4 values: minLon,minLat,maxLon,maxLat")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("invalid bbox value %q", p)
		}
		vals[i] = f
	}
	b := BoundingBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if b.MinLon > b.MaxLon || b.MinLat > b.MaxLat {
		return BoundingBox{}, fmt.Errorf("bbox min must not exceed max")
	}
	return b, nil
}

// Contains reports whether the point lies within the box (inclusive).
func (b BoundingBox) Contains(lat, lon float64) bool {
	return b.MinLon <= lon && lon <= b.MaxLon && b.MinLat <= lat && lat <= b.MaxLat
}

// String renders the box back into query form.
func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// ScoreRequest is the input to a point risk query.
type ScoreRequest struct {
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Vehicle Vehicle  `json:"vehicle"`
	Hour    int      `json:"hour"`
	Weather *Weather `json:"weather,omitempty"`
}

// ScoreResponse is the normalized output of a point risk query.
type ScoreResponse struct {
	Risk0To100 int                `json:"risk_0_100"`
	TopCause   string             `json:"top_cause"`
	PTopCause  float64            `json:"p_top_cause"`
	RatePred   float64            `json:"rate_pred"`
	Components map[string]float64 `json:"components,omitempty"`
	Weather    *Weather           `json:"weather,omitempty"`
}

// SegmentProps carries segment metadata on a GeoJSON feature.
type SegmentProps struct {
	SegmentID  string  `json:"segment_id"`
	Risk0To100 int     `json:"risk_0_100"`
	Hour       int     `json:"hour"`
	Vehicle    Vehicle `json:"vehicle"`
	TopCause   string  `json:"top_cause,omitempty"`
	Model      string  `json:"model,omitempty"`
}

// SegmentGeometry is a GeoJSON geometry; Coordinates holds [lon,lat]
// for Point and [[lon,lat],...] for LineString/Polygon.
type SegmentGeometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// SegmentFeature is a GeoJSON feature carrying one scored road segment.
// Identity is Props.SegmentID.
type SegmentFeature struct {
	Type     string          `json:"type"`
	Geometry SegmentGeometry `json:"geometry"`
	Props    SegmentProps    `json:"properties"`
}

// SegmentCollection is the GeoJSON FeatureCollection the map renders.
type SegmentCollection struct {
	Type     string           `json:"type"`
	Features []SegmentFeature `json:"features"`
}

// TopSpot is a flattened projection of a segment for list display.
type TopSpot struct {
	SegmentID  string  `json:"segment_id"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Risk0To100 int     `json:"risk_0_100"`
	Vehicle    Vehicle `json:"vehicle"`
	Hour       int     `json:"hour"`
	TopCause   string  `json:"top_cause,omitempty"`
	RoadName   string  `json:"road_name,omitempty"`
}

// RouteScore is the result of scoring an entire route pointwise.
type RouteScore struct {
	Overall       int                `json:"overall"`
	SegmentScores []int              `json:"segment_scores"`
	Points        []LatLon           `json:"points"`
	Explain       map[string]float64 `json:"explain,omitempty"`
}
