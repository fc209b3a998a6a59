// Package geo provides the geometric utilities used to turn route
// polylines into pointwise samples for risk scoring.
package geo

import (
	"math"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/pkg/utils"
)

// EarthRadiusM is the spherical-Earth radius used for distances.
const EarthRadiusM = 6371000.0

// Haversine returns the great-circle distance in meters between two
// points, using the spherical-Earth approximation.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}

// Interpolate returns the point at the given fraction between two
// coordinates. Interpolation is linear in lat/lon space, which is a
// deliberate simplification valid at the ~100 m scale. The fraction is
// not clamped; callers keep it in [0,1].
func Interpolate(lat1, lon1, lat2, lon2, fraction float64) domain.LatLon {
	return domain.LatLon{
		Lat: utils.Lerp(lat1, lat2, fraction),
		Lon: utils.Lerp(lon1, lon2, fraction),
	}
}

// SamplePolyline walks each consecutive [lng,lat] pair and emits evenly
// spaced points every intervalMeters, always including the first and
// last input point. When a segment's length is an exact multiple of the
// interval, the sample that would land on its end vertex is dropped so
// the vertex is never emitted twice. Fewer than 2 input coordinates
// yield an empty result rather than an error.
func SamplePolyline(coordinates [][2]float64, intervalMeters float64) []domain.LatLon {
	if len(coordinates) < 2 {
		return nil
	}
	if intervalMeters <= 0 {
		intervalMeters = 100
	}

	points := []domain.LatLon{{Lat: coordinates[0][1], Lon: coordinates[0][0]}}

	for i := 1; i < len(coordinates); i++ {
		lon1, lat1 := coordinates[i-1][0], coordinates[i-1][1]
		lon2, lat2 := coordinates[i][0], coordinates[i][1]

		segLen := Haversine(lat1, lon1, lat2, lon2)
		interior := int(segLen / intervalMeters)
		for j := 1; j <= interior; j++ {
			frac := float64(j) * intervalMeters / segLen
			if frac >= 1 {
				break
			}
			points = append(points, Interpolate(lat1, lon1, lat2, lon2, frac))
		}
	}

	last := domain.LatLon{Lat: coordinates[len(coordinates)-1][1], Lon: coordinates[len(coordinates)-1][0]}
	points = append(points, last)
	return points
}

// SamplePolylineByCount resamples the polyline into exactly max(count,2)
// points spaced evenly along its cumulative length, always including the
// input endpoints. A route of zero total length collapses to a single
// point.
func SamplePolylineByCount(coordinates [][2]float64, count int) []domain.LatLon {
	if len(coordinates) < 2 {
		if len(coordinates) == 1 {
			return []domain.LatLon{{Lat: coordinates[0][1], Lon: coordinates[0][0]}}
		}
		return nil
	}
	if count < 2 {
		count = 2
	}

	// Cumulative arc length per vertex.
	cumulative := make([]float64, len(coordinates))
	for i := 1; i < len(coordinates); i++ {
		d := Haversine(
			coordinates[i-1][1], coordinates[i-1][0],
			coordinates[i][1], coordinates[i][0],
		)
		cumulative[i] = cumulative[i-1] + d
	}
	total := cumulative[len(cumulative)-1]
	if total == 0 {
		return []domain.LatLon{{Lat: coordinates[0][1], Lon: coordinates[0][0]}}
	}

	points := make([]domain.LatLon, 0, count)
	points = append(points, domain.LatLon{Lat: coordinates[0][1], Lon: coordinates[0][0]})

	step := total / float64(count-1)
	seg := 1
	for i := 1; i < count-1; i++ {
		target := float64(i) * step
		for seg < len(cumulative)-1 && cumulative[seg] < target {
			seg++
		}
		segStart := cumulative[seg-1]
		segLen := cumulative[seg] - segStart
		frac := 0.0
		if segLen > 0 {
			frac = (target - segStart) / segLen
		}
		points = append(points, Interpolate(
			coordinates[seg-1][1], coordinates[seg-1][0],
			coordinates[seg][1], coordinates[seg][0],
			frac,
		))
	}

	points = append(points, domain.LatLon{
		Lat: coordinates[len(coordinates)-1][1],
		Lon: coordinates[len(coordinates)-1][0],
	})
	return points
}
