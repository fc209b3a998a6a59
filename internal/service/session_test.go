package service

import (
	"context"
	"testing"
	"time"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/internal/repository/postgres"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(context.Background(), postgres.NewMockRepository(), domain.LatLon{Lat: 7.0, Lon: 80.5}, true, nil)
}

func TestSessionHourValidation(t *testing.T) {
	s := newTestSession(t)

	s.SetHour(15)
	if s.Hour() != 15 {
		t.Errorf("hour = %d, want 15", s.Hour())
	}

	s.SetHour(-1)
	s.SetHour(24)
	if s.Hour() != 15 {
		t.Errorf("out-of-range hour accepted, now %d", s.Hour())
	}
}

func TestSessionSubscribersNotified(t *testing.T) {
	s := newTestSession(t)

	calls := 0
	unsub := s.Subscribe(func() { calls++ })

	s.SetHour(9)
	s.SetMapStyle("satellite")
	if calls != 2 {
		t.Errorf("subscriber called %d times, want 2", calls)
	}

	unsub()
	s.SetHour(10)
	if calls != 2 {
		t.Errorf("unsubscribed callback still invoked, calls = %d", calls)
	}
}

func TestSessionKeepsDefaultsOnFirstRun(t *testing.T) {
	s := NewSession(context.Background(), postgres.NewMockRepository(), domain.LatLon{Lat: 7.0, Lon: 80.5}, true, nil)
	if !s.MockMode() {
		t.Error("empty repository must not override the configured mock mode")
	}
	if s.Vehicle() != domain.VehicleCar {
		t.Errorf("default vehicle = %q, want CAR", s.Vehicle())
	}
}

func TestSessionInitialHourUsesLocation(t *testing.T) {
	// A zone far from UTC so the local and zoned hour differ for most
	// of the day.
	loc := time.FixedZone("test-zone", 11*3600+30*60)
	s := NewSession(context.Background(), postgres.NewMockRepository(), domain.LatLon{Lat: 7.0, Lon: 80.5}, true, loc)
	if want := time.Now().In(loc).Hour(); s.Hour() != want {
		t.Errorf("initial hour = %d, want %d in the configured zone", s.Hour(), want)
	}
}

func TestSessionVehiclePersistsAcrossRestart(t *testing.T) {
	repo := postgres.NewMockRepository()
	ctx := context.Background()

	s := NewSession(ctx, repo, domain.LatLon{Lat: 7.0, Lon: 80.5}, true, nil)
	s.SetVehicle(domain.VehicleMotorcycle)
	s.SetMockMode(false)
	s.WaitBackground()

	restored := NewSession(ctx, repo, domain.LatLon{Lat: 7.0, Lon: 80.5}, true, nil)
	if restored.Vehicle() != domain.VehicleMotorcycle {
		t.Errorf("restored vehicle = %q, want MOTORCYCLE", restored.Vehicle())
	}
	if restored.MockMode() {
		t.Error("restored mock mode = true, want false")
	}
}

func TestSessionMockToggleKeepsSegments(t *testing.T) {
	s := newTestSession(t)

	col := domain.SegmentCollection{
		Type: "FeatureCollection",
		Features: []domain.SegmentFeature{
			{Type: "Feature", Props: domain.SegmentProps{SegmentID: "seg_70000_805000"}},
		},
	}
	s.SetSegments(col)
	s.SetMockMode(false)

	if len(s.Segments().Features) != 1 {
		t.Error("toggling mock mode must not clear loaded segments")
	}
}

func TestSessionSelectionAcrossReplace(t *testing.T) {
	s := newTestSession(t)

	col := domain.SegmentCollection{
		Type: "FeatureCollection",
		Features: []domain.SegmentFeature{
			{Type: "Feature", Props: domain.SegmentProps{SegmentID: "seg_a", Risk0To100: 55}},
			{Type: "Feature", Props: domain.SegmentProps{SegmentID: "seg_b", Risk0To100: 80}},
		},
	}
	s.SetSegments(col)
	s.Select("seg_b")

	feat, ok := s.SelectedSegment()
	if !ok || feat.Props.Risk0To100 != 80 {
		t.Fatalf("selected = %+v ok=%v, want seg_b", feat, ok)
	}

	// Wholesale replace without the selected id: selection dangles.
	s.SetSegments(domain.SegmentCollection{
		Type: "FeatureCollection",
		Features: []domain.SegmentFeature{
			{Type: "Feature", Props: domain.SegmentProps{SegmentID: "seg_c"}},
		},
	})
	if _, ok := s.SelectedSegment(); ok {
		t.Error("selection should not resolve after the segment is gone")
	}

	s.ClearSelection()
	if _, ok := s.SelectedSegment(); ok {
		t.Error("cleared selection should not resolve")
	}
}

func TestSessionSnapshotIsConsistent(t *testing.T) {
	s := newTestSession(t)
	s.SetHour(8)
	s.SetVehicle(domain.VehicleBus)
	s.SetCenter(domain.LatLon{Lat: 6.95, Lon: 80.44})
	s.WaitBackground()

	snap := s.Snapshot()
	if snap.Hour != 8 || snap.Vehicle != domain.VehicleBus {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Center.Lat != 6.95 || snap.Center.Lon != 80.44 {
		t.Errorf("snapshot center = %+v", snap.Center)
	}
}
