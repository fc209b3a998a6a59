package service

import (
	"testing"
	"time"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/internal/risk"
)

func testSimSource() risk.Source {
	return risk.NewMock(domain.BoundingBox{MinLon: 80.43, MinLat: 6.94, MaxLon: 80.55, MaxLat: 7.03}, nil)
}

func TestSimulatorPlaysRouteToCompletion(t *testing.T) {
	sim := NewDriveSimulator(testSimSource, 5*time.Millisecond)

	// ~300 m of route, resampled at 100 m spacing.
	route := [][2]float64{{80.5000, 7.0000}, {80.5000, 7.0027}}

	done := make(chan struct{})
	var updates []SimUpdate
	sim.Start(route, domain.VehicleCar, 8, nil, func(u SimUpdate) {
		updates = append(updates, u)
		if u.Done {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("simulation did not finish")
	}

	if len(updates) < 2 {
		t.Fatalf("got %d updates, want at least 2", len(updates))
	}
	first, last := updates[0], updates[len(updates)-1]
	if first.Index != 0 {
		t.Errorf("first index = %d", first.Index)
	}
	if !last.Done || last.Index != last.Total-1 {
		t.Errorf("last update = %+v", last)
	}
	for _, u := range updates {
		if u.Score.Risk0To100 < 0 || u.Score.Risk0To100 > 100 {
			t.Errorf("step %d risk out of range: %f", u.Index, u.Score.Risk0To100)
		}
	}
}

func TestSimulatorIgnoresDegenerateRoute(t *testing.T) {
	sim := NewDriveSimulator(testSimSource, time.Millisecond)
	sim.Start([][2]float64{{80.5, 7.0}}, domain.VehicleCar, 8, nil, func(SimUpdate) {
		t.Error("single-point route should produce no updates")
	})
	if sim.Running() {
		t.Error("simulator should not be running after a degenerate route")
	}
}

func TestSimulatorStopIsIdempotent(t *testing.T) {
	sim := NewDriveSimulator(testSimSource, time.Hour)
	route := [][2]float64{{80.5000, 7.0000}, {80.5000, 7.0027}}

	sim.Start(route, domain.VehicleCar, 8, nil, func(SimUpdate) {})
	if !sim.Running() {
		t.Fatal("simulator should report running after Start")
	}

	sim.Stop()
	sim.Stop()
	if sim.Running() {
		t.Error("simulator should report stopped after Stop")
	}
}
