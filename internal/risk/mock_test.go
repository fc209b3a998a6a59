package risk

import (
	"context"
	"testing"

	"github.com/riskroute/backend/internal/domain"
)

var testBBox = domain.BoundingBox{MinLon: 80.43, MinLat: 6.94, MaxLon: 80.55, MaxLat: 7.03}

func TestMockScoreDeterministic(t *testing.T) {
	m := NewMock(testBBox, nil)
	req := domain.ScoreRequest{
		Lat:     7.1643,
		Lon:     80.5725,
		Vehicle: domain.VehicleMotorcycle,
		Hour:    8,
		Weather: &domain.Weather{IsWet: 1},
	}

	first, err := m.Score(context.Background(), req)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	second, err := m.Score(context.Background(), req)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if first.Risk0To100 != second.Risk0To100 {
		t.Errorf("risk differs across identical queries: %d vs %d", first.Risk0To100, second.Risk0To100)
	}
	if first.TopCause != second.TopCause {
		t.Errorf("top cause differs: %q vs %q", first.TopCause, second.TopCause)
	}
	if first.Risk0To100 < 0 || first.Risk0To100 > 100 {
		t.Errorf("risk out of range: %d", first.Risk0To100)
	}
}

func TestMockVehicleMultiplierOrdering(t *testing.T) {
	// Pick a location whose base risk is mid-range so multipliers
	// do not saturate at the clamp.
	lat, lon := 7.012345, 80.454321
	moto, _ := riskAt(lat, lon, domain.VehicleMotorcycle, 12, false)
	car, _ := riskAt(lat, lon, domain.VehicleCar, 12, false)
	bus, _ := riskAt(lat, lon, domain.VehicleBus, 12, false)

	if car > 0 && car < 75 {
		if moto < car {
			t.Errorf("motorcycle risk %d should be >= car risk %d", moto, car)
		}
		if bus > car {
			t.Errorf("bus risk %d should be <= car risk %d", bus, car)
		}
	}
}

func TestMockSegmentsFilteredByRequest(t *testing.T) {
	m := NewMock(testBBox, nil)
	col, err := m.SegmentsToday(context.Background(), testBBox, 8, domain.VehicleCar)
	if err != nil {
		t.Fatalf("SegmentsToday: %v", err)
	}
	if col.Type != "FeatureCollection" {
		t.Errorf("collection type = %q", col.Type)
	}
	if len(col.Features) == 0 {
		t.Fatal("expected generated segments")
	}

	seen := make(map[string]bool, len(col.Features))
	for _, f := range col.Features {
		if f.Props.Vehicle != domain.VehicleCar {
			t.Errorf("segment %s vehicle = %q, want CAR", f.Props.SegmentID, f.Props.Vehicle)
		}
		if f.Props.Hour != 8 {
			t.Errorf("segment %s hour = %d, want 8", f.Props.SegmentID, f.Props.Hour)
		}
		coords, ok := f.Geometry.Coordinates.([]float64)
		if !ok || len(coords) != 2 {
			t.Fatalf("segment %s has malformed coordinates", f.Props.SegmentID)
		}
		if !testBBox.Contains(coords[1], coords[0]) {
			t.Errorf("segment %s lies outside the query box", f.Props.SegmentID)
		}
		if seen[f.Props.SegmentID] {
			t.Errorf("duplicate segment id %s", f.Props.SegmentID)
		}
		seen[f.Props.SegmentID] = true
		if f.Props.Risk0To100 < 0 || f.Props.Risk0To100 > 100 {
			t.Errorf("segment %s risk out of range: %d", f.Props.SegmentID, f.Props.Risk0To100)
		}
	}
}

func TestMockTopSpotsSorted(t *testing.T) {
	m := NewMock(testBBox, nil)
	spots, err := m.TopSpots(context.Background(), domain.VehicleBus, 10)
	if err != nil {
		t.Fatalf("TopSpots: %v", err)
	}
	if len(spots) == 0 || len(spots) > 10 {
		t.Fatalf("expected 1..10 spots, got %d", len(spots))
	}
	for i := 1; i < len(spots); i++ {
		if spots[i].Risk0To100 > spots[i-1].Risk0To100 {
			t.Errorf("spots not sorted descending at index %d", i)
		}
	}
}

func TestMockScoreRouteIdenticalEndpoints(t *testing.T) {
	m := NewMock(testBBox, nil)
	coords := [][2]float64{{80.5, 7.0}, {80.5, 7.0}}
	score, err := m.ScoreRoute(context.Background(), coords, domain.VehicleCar, 12, nil)
	if err != nil {
		t.Fatalf("ScoreRoute should degrade gracefully, got %v", err)
	}
	if len(score.SegmentScores) != 2 {
		t.Errorf("expected 2 segment scores, got %d", len(score.SegmentScores))
	}
	if score.SegmentScores[0] != score.SegmentScores[1] {
		t.Error("identical points must score identically")
	}
}
