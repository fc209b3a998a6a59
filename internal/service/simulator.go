package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/internal/geo"
	"github.com/riskroute/backend/internal/risk"
)

// SimUpdate is one playback step of a simulated drive.
type SimUpdate struct {
	Index    int                  `json:"index"`
	Total    int                  `json:"total"`
	Position domain.LatLon        `json:"position"`
	Score    domain.ScoreResponse `json:"score"`
	Done     bool                 `json:"done"`
}

// DriveSimulator plays back a route at a fixed tick, scoring each
// sampled position. The ticker goroutine must be torn down with Stop
// when the owning view goes away; Stop is safe to call twice.
type DriveSimulator struct {
	source   func() risk.Source
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewDriveSimulator creates a simulator at the given playback tick.
// The source is resolved per playback so a mock/live flip applies to
// the next start.
func NewDriveSimulator(source func() risk.Source, interval time.Duration) *DriveSimulator {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &DriveSimulator{source: source, interval: interval}
}

// Running reports whether a playback is active.
func (d *DriveSimulator) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Start resamples the route to ~100 m spacing and begins playback,
// invoking onUpdate for every step. A playback already in progress is
// stopped first. Routes with fewer than 2 points are ignored.
func (d *DriveSimulator) Start(coords [][2]float64, vehicle domain.Vehicle, hour int, weather *domain.Weather, onUpdate func(SimUpdate)) {
	points := geo.SamplePolyline(coords, 100)
	if len(points) < 2 {
		return
	}

	d.Stop()

	source := d.source()

	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	d.cancel = cancel
	d.running = true
	d.mu.Unlock()

	go func() {
		defer func() {
			d.mu.Lock()
			d.running = false
			d.mu.Unlock()
		}()

		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for i, p := range points {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			scoreCtx, scoreCancel := context.WithTimeout(ctx, 10*time.Second)
			score, err := source.Score(scoreCtx, domain.ScoreRequest{
				Lat: p.Lat, Lon: p.Lon, Vehicle: vehicle, Hour: hour, Weather: weather,
			})
			scoreCancel()
			if err != nil {
				log.Printf("simulator: score at step %d failed: %v", i, err)
				continue
			}

			onUpdate(SimUpdate{
				Index:    i,
				Total:    len(points),
				Position: p,
				Score:    score,
				Done:     i == len(points)-1,
			})
		}
	}()
}

// Stop ends the playback and releases the ticker goroutine.
func (d *DriveSimulator) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.running = false
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
