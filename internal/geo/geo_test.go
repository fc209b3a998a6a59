package geo

import (
	"math"
	"testing"
)

func TestHaversineZeroAndSymmetry(t *testing.T) {
	points := [][2]float64{
		{7.0, 80.0},
		{6.9271, 79.8612}, // Colombo
		{7.1643, 80.5725},
	}
	for _, p := range points {
		if d := Haversine(p[0], p[1], p[0], p[1]); d != 0 {
			t.Errorf("Haversine(a,a) = %v, want 0", d)
		}
	}
	ab := Haversine(points[0][0], points[0][1], points[1][0], points[1][1])
	ba := Haversine(points[1][0], points[1][1], points[0][0], points[0][1])
	if ab != ba {
		t.Errorf("Haversine not symmetric: %v vs %v", ab, ba)
	}
	if ab <= 0 {
		t.Errorf("distance between distinct points should be positive, got %v", ab)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// One degree of latitude is about 111.2 km.
	d := Haversine(7.0, 80.0, 8.0, 80.0)
	if math.Abs(d-111195) > 200 {
		t.Errorf("1 degree latitude = %v m, want ~111195", d)
	}
}

func TestInterpolate(t *testing.T) {
	mid := Interpolate(7.0, 80.0, 7.2, 80.4, 0.5)
	if math.Abs(mid.Lat-7.1) > 1e-9 || math.Abs(mid.Lon-80.2) > 1e-9 {
		t.Errorf("midpoint = %+v, want {7.1 80.2}", mid)
	}
	start := Interpolate(7.0, 80.0, 7.2, 80.4, 0)
	if start.Lat != 7.0 || start.Lon != 80.0 {
		t.Errorf("fraction 0 should return first point, got %+v", start)
	}
}

func TestSamplePolylineEndpoints(t *testing.T) {
	coords := [][2]float64{{80.0, 7.0}, {80.01, 7.01}}
	points := SamplePolyline(coords, 100)
	if len(points) < 2 {
		t.Fatalf("expected at least 2 points, got %d", len(points))
	}
	first, last := points[0], points[len(points)-1]
	if first.Lat != 7.0 || first.Lon != 80.0 {
		t.Errorf("first point = %+v, want {7 80}", first)
	}
	if last.Lat != 7.01 || last.Lon != 80.01 {
		t.Errorf("last point = %+v, want {7.01 80.01}", last)
	}
}

func TestSamplePolylineSpacing(t *testing.T) {
	coords := [][2]float64{{80.0, 7.0}, {80.01, 7.01}}
	points := SamplePolyline(coords, 100)
	// Interior points should be about 100 m apart.
	for i := 1; i < len(points)-1; i++ {
		d := Haversine(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
		if math.Abs(d-100) > 5 {
			t.Errorf("spacing between points %d and %d = %v m, want ~100", i-1, i, d)
		}
	}
}

func TestSamplePolylineExactMultipleSkipsEndVertex(t *testing.T) {
	coords := [][2]float64{{80.0, 7.0}, {80.01, 7.01}}
	// An interval that divides the segment exactly 4 times. Division by
	// a power of two keeps the multiple exact in floating point.
	segLen := Haversine(7.0, 80.0, 7.01, 80.01)
	points := SamplePolyline(coords, segLen/4)

	// Start, 3 interior samples, end. The fourth sample lands on the
	// end vertex and must not be emitted as an interior point.
	if len(points) != 5 {
		t.Fatalf("got %d points, want 5", len(points))
	}
	prev, last := points[len(points)-2], points[len(points)-1]
	if prev.Lat == last.Lat && prev.Lon == last.Lon {
		t.Error("end vertex duplicated by an interior sample")
	}
}

func TestSamplePolylineDegenerate(t *testing.T) {
	if got := SamplePolyline(nil, 100); len(got) != 0 {
		t.Errorf("nil input should yield empty result, got %d points", len(got))
	}
	if got := SamplePolyline([][2]float64{{80.0, 7.0}}, 100); len(got) != 0 {
		t.Errorf("single coordinate should yield empty result, got %d points", len(got))
	}
}

func TestSamplePolylineByCount(t *testing.T) {
	coords := [][2]float64{{80.0, 7.0}, {80.05, 7.02}, {80.1, 7.0}}
	for _, n := range []int{2, 5, 50} {
		points := SamplePolylineByCount(coords, n)
		if len(points) != n {
			t.Errorf("count %d: got %d points", n, len(points))
		}
		first, last := points[0], points[len(points)-1]
		if first.Lat != 7.0 || first.Lon != 80.0 {
			t.Errorf("count %d: first point = %+v", n, first)
		}
		if last.Lat != 7.0 || last.Lon != 80.1 {
			t.Errorf("count %d: last point = %+v", n, last)
		}
	}
}

func TestSamplePolylineByCountClampsToTwo(t *testing.T) {
	coords := [][2]float64{{80.0, 7.0}, {80.01, 7.01}}
	points := SamplePolylineByCount(coords, 0)
	if len(points) != 2 {
		t.Errorf("count 0 should clamp to 2, got %d", len(points))
	}
}

func TestSamplePolylineByCountZeroLength(t *testing.T) {
	coords := [][2]float64{{80.0, 7.0}, {80.0, 7.0}}
	points := SamplePolylineByCount(coords, 10)
	if len(points) != 1 {
		t.Errorf("zero-length route should collapse to a single point, got %d", len(points))
	}
}

func TestSamplePolylineByCountEvenSpacing(t *testing.T) {
	coords := [][2]float64{{80.0, 7.0}, {80.1, 7.0}}
	points := SamplePolylineByCount(coords, 11)
	var first float64
	for i := 1; i < len(points); i++ {
		d := Haversine(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
		if i == 1 {
			first = d
			continue
		}
		if math.Abs(d-first) > 1 {
			t.Errorf("step %d spacing %v differs from %v", i, d, first)
		}
	}
}
