package risk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/pkg/utils"
)

// Vehicle risk multipliers relative to a car.
var vehicleMultipliers = map[domain.Vehicle]float64{
	domain.VehicleMotorcycle:   1.3,
	domain.VehicleThreeWheeler: 1.15,
	domain.VehicleCar:          1.0,
	domain.VehicleVan:          1.05,
	domain.VehicleBus:          0.85,
	domain.VehicleLorry:        0.90,
}

const wetMultiplier = 1.15

var causesByBand = map[Band][]string{
	BandDanger: {
		"Dangerous sharp curve with very poor visibility",
		"Steep descent with hairpin turn",
		"Narrow road with blind spots",
		"Wet road with poor drainage",
		"Heavy traffic during rush hour",
	},
	BandWarning: {
		"Moderate traffic zone",
		"Uneven road surface",
		"Tight turn",
		"Medium traffic",
		"Narrow lane with limited visibility",
	},
	BandSafe: {
		"Well-maintained road section",
		"Safe residential area",
		"Wide road",
		"Good visibility",
	},
}

var vehicleContext = map[domain.Vehicle]string{
	domain.VehicleMotorcycle:   " - high risk for motorcycles",
	domain.VehicleThreeWheeler: " - risky for three wheelers",
	domain.VehicleBus:          " - challenging for buses",
	domain.VehicleLorry:        " - difficult for lorries",
	domain.VehicleVan:          " - watch clearance for vans",
}

// Mock is a Source producing deterministic synthetic scores seeded from
// the query coordinates, for offline development and demo mode.
type Mock struct {
	defaultBBox domain.BoundingBox
	loc         *time.Location
}

// NewMock creates a mock source generating segments inside defaultBBox
// when a query supplies no box of its own. "Today" defaults resolve in
// loc, the service area's zone; nil falls back to server time.
func NewMock(defaultBBox domain.BoundingBox, loc *time.Location) *Mock {
	if loc == nil {
		loc = time.Local
	}
	return &Mock{defaultBBox: defaultBBox, loc: loc}
}

// seededRandom is a deterministic pseudo-random generator in [0,1).
func seededRandom(seed int64) float64 {
	x := math.Sin(float64(seed)) * 10000
	return x - math.Floor(x)
}

// hashCoords folds a coordinate into a seed. Repeated queries at the
// same location must return the same synthetic result.
func hashCoords(lat, lon float64) int64 {
	return int64((lat*1000 + lon*1000) * 12345)
}

func segmentID(lat, lon float64) string {
	return fmt.Sprintf("seg_%d_%d", int(lat*10000), int(lon*10000))
}

// riskAt computes the synthetic score and top cause for a location.
func riskAt(lat, lon float64, vehicle domain.Vehicle, hour int, wet bool) (int, string) {
	seed := hashCoords(lat, lon)
	base := seededRandom(seed) * 100

	mult, ok := vehicleMultipliers[vehicle]
	if !ok {
		mult = 1.0
	}
	score := base * mult

	switch {
	case hour >= 7 && hour <= 9, hour >= 17 && hour <= 19:
		score *= 1.2
	case hour >= 0 && hour <= 5:
		score *= 1.1
	}
	if wet {
		score *= wetMultiplier
	}

	final := int(utils.Clamp(score, 0, 100))

	causes := causesByBand[ToBand(final)]
	cause := causes[int(seededRandom(seed+1)*float64(len(causes)))]
	if final >= 60 {
		cause += vehicleContext[vehicle]
	}
	return final, cause
}

// Score answers a single point query with synthetic data.
func (m *Mock) Score(ctx context.Context, req domain.ScoreRequest) (domain.ScoreResponse, error) {
	wet := req.Weather != nil && req.Weather.IsWet == 1
	score, cause := riskAt(req.Lat, req.Lon, req.Vehicle, req.Hour, wet)

	seed := hashCoords(req.Lat, req.Lon)
	wetness := 0.0
	if wet {
		wetness = 1.0
	}
	mult := vehicleMultipliers[req.Vehicle]
	if mult == 0 {
		mult = 1.0
	}

	return domain.ScoreResponse{
		Risk0To100: score,
		TopCause:   cause,
		PTopCause:  utils.RoundTo(0.55+0.4*seededRandom(seed+2), 3),
		RatePred:   utils.RoundTo(float64(score)/100*2.5, 3),
		Components: map[string]float64{
			"curvature":            utils.RoundTo(seededRandom(seed+3), 3),
			"surface_wetness_prob": wetness,
			"vehicle_factor":       mult,
		},
		Weather: req.Weather,
	}, nil
}

// ScoreRoute scores every coordinate of the polyline and averages.
func (m *Mock) ScoreRoute(ctx context.Context, coords [][2]float64, vehicle domain.Vehicle, hour int, weather *domain.Weather) (domain.RouteScore, error) {
	wet := weather != nil && weather.IsWet == 1

	result := domain.RouteScore{
		SegmentScores: make([]int, 0, len(coords)),
		Points:        make([]domain.LatLon, 0, len(coords)),
	}
	sum := 0
	for _, c := range coords {
		lon, lat := c[0], c[1]
		score, _ := riskAt(lat, lon, vehicle, hour, wet)
		result.SegmentScores = append(result.SegmentScores, score)
		result.Points = append(result.Points, domain.LatLon{Lat: lat, Lon: lon})
		sum += score
	}
	if len(coords) > 0 {
		result.Overall = sum / len(coords)
	}
	mult := vehicleMultipliers[vehicle]
	if mult == 0 {
		mult = 1.0
	}
	result.Explain = map[string]float64{"vehicle_factor": mult}
	return result, nil
}

// SegmentsToday generates a grid of point segments over the box at
// roughly 200 m spacing, at least 3 per axis.
func (m *Mock) SegmentsToday(ctx context.Context, bbox domain.BoundingBox, hour int, vehicle domain.Vehicle) (domain.SegmentCollection, error) {
	if bbox == (domain.BoundingBox{}) {
		bbox = m.defaultBBox
	}
	if hour < 0 || hour > 23 {
		hour = time.Now().In(m.loc).Hour()
	}
	if vehicle == "" {
		vehicle = domain.VehicleCar
	}

	latRange := bbox.MaxLat - bbox.MinLat
	lonRange := bbox.MaxLon - bbox.MinLon
	nLat := int(latRange / 0.002)
	if nLat < 3 {
		nLat = 3
	}
	nLon := int(lonRange / 0.002)
	if nLon < 3 {
		nLon = 3
	}
	stepLat := latRange / float64(nLat)
	stepLon := lonRange / float64(nLon)

	features := make([]domain.SegmentFeature, 0, nLat*nLon)
	for i := 0; i < nLat; i++ {
		for j := 0; j < nLon; j++ {
			lat := bbox.MinLat + (float64(i)+0.5)*stepLat
			lon := bbox.MinLon + (float64(j)+0.5)*stepLon
			score, cause := riskAt(lat, lon, vehicle, hour, false)

			features = append(features, domain.SegmentFeature{
				Type: "Feature",
				Geometry: domain.SegmentGeometry{
					Type:        "Point",
					Coordinates: []float64{lon, lat},
				},
				Props: domain.SegmentProps{
					SegmentID:  segmentID(lat, lon),
					Risk0To100: score,
					Hour:       hour,
					Vehicle:    vehicle,
					TopCause:   cause,
					Model:      "mock",
				},
			})
		}
	}

	return domain.SegmentCollection{Type: "FeatureCollection", Features: features}, nil
}

// TopSpots flattens the default-area grid and returns the riskiest
// spots, sorted by score descending then segment id for stable order.
func (m *Mock) TopSpots(ctx context.Context, vehicle domain.Vehicle, limit int) ([]domain.TopSpot, error) {
	col, err := m.SegmentsToday(ctx, m.defaultBBox, time.Now().In(m.loc).Hour(), vehicle)
	if err != nil {
		return nil, err
	}

	spots := make([]domain.TopSpot, 0, len(col.Features))
	for _, f := range col.Features {
		coords, ok := f.Geometry.Coordinates.([]float64)
		if !ok || len(coords) != 2 {
			continue
		}
		spots = append(spots, domain.TopSpot{
			SegmentID:  f.Props.SegmentID,
			Lat:        coords[1],
			Lon:        coords[0],
			Risk0To100: f.Props.Risk0To100,
			Vehicle:    f.Props.Vehicle,
			Hour:       f.Props.Hour,
			TopCause:   f.Props.TopCause,
		})
	}

	sort.Slice(spots, func(i, j int) bool {
		if spots[i].Risk0To100 != spots[j].Risk0To100 {
			return spots[i].Risk0To100 > spots[j].Risk0To100
		}
		return spots[i].SegmentID < spots[j].SegmentID
	})

	if limit <= 0 {
		limit = 10
	}
	if limit < len(spots) {
		spots = spots[:limit]
	}
	return spots, nil
}
