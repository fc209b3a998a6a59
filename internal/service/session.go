package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/riskroute/backend/internal/domain"
)

// Session is the explicit application-state container: UI selections
// plus the current risk-query results. All mutation goes through
// setters; subscribers are notified after every change. It replaces
// what the browser held in module-level stores, with the vehicle and
// mock-mode choices persisted through the repository.
type Session struct {
	repo domain.DataRepository

	mu         sync.RWMutex
	hour       int
	vehicle    domain.Vehicle
	mapStyle   string
	mockMode   bool
	center     domain.LatLon
	segments   domain.SegmentCollection
	selectedID string
	lastScore  *domain.ScoreResponse

	subMu       sync.Mutex
	subscribers map[int]func()
	nextSub     int

	wgBg sync.WaitGroup
}

// SessionSnapshot is a consistent read of the session state.
type SessionSnapshot struct {
	Hour       int                      `json:"hour"`
	Vehicle    domain.Vehicle           `json:"vehicle"`
	MapStyle   string                   `json:"map_style"`
	MockMode   bool                     `json:"mock_mode"`
	Center     domain.LatLon            `json:"center"`
	Segments   domain.SegmentCollection `json:"segments"`
	SelectedID string                   `json:"selected_id,omitempty"`
	LastScore  *domain.ScoreResponse    `json:"last_score,omitempty"`
}

// NewSession creates a session with defaults, restoring the persisted
// preference subset when available. The initial hour is the current
// hour in loc, the service area's zone; nil falls back to server time.
func NewSession(ctx context.Context, repo domain.DataRepository, center domain.LatLon, mockMode bool, loc *time.Location) *Session {
	if loc == nil {
		loc = time.Local
	}
	s := &Session{
		repo:        repo,
		hour:        time.Now().In(loc).Hour(),
		vehicle:     domain.VehicleCar,
		mapStyle:    "streets",
		mockMode:    mockMode,
		center:      center,
		segments:    domain.SegmentCollection{Type: "FeatureCollection"},
		subscribers: make(map[int]func()),
	}

	prefs, err := repo.LoadPreferences(ctx)
	if errors.Is(err, domain.ErrNoPreferences) {
		return s
	}
	if err != nil {
		log.Printf("session: could not restore preferences: %v", err)
		return s
	}
	if prefs.Vehicle != "" {
		s.vehicle = prefs.Vehicle
	}
	s.mockMode = prefs.MockMode
	return s
}

// Subscribe registers a change callback and returns an unsubscribe
// function. Callbacks run synchronously after each mutation.
func (s *Session) Subscribe(fn func()) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Session) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// persistPrefs saves the durable preference subset in the background.
func (s *Session) persistPrefs() {
	s.mu.RLock()
	prefs := domain.Preferences{Vehicle: s.vehicle, MockMode: s.mockMode}
	s.mu.RUnlock()

	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SavePreferences(ctx, prefs); err != nil {
			log.Printf("session: failed to save preferences: %v", err)
		}
	}()
}

// WaitBackground blocks until pending preference writes complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *Session) WaitBackground() {
	s.wgBg.Wait()
}

// SetHour selects the hour of day (0-23); out-of-range values are
// ignored.
func (s *Session) SetHour(hour int) {
	if hour < 0 || hour > 23 {
		return
	}
	s.mu.Lock()
	s.hour = hour
	s.mu.Unlock()
	s.notify()
}

// Hour returns the selected hour.
func (s *Session) Hour() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hour
}

// SetVehicle selects the vehicle type and persists it.
func (s *Session) SetVehicle(v domain.Vehicle) {
	s.mu.Lock()
	s.vehicle = v
	s.mu.Unlock()
	s.persistPrefs()
	s.notify()
}

// Vehicle returns the selected vehicle type.
func (s *Session) Vehicle() domain.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vehicle
}

// SetMapStyle selects the base map style.
func (s *Session) SetMapStyle(style string) {
	s.mu.Lock()
	s.mapStyle = style
	s.mu.Unlock()
	s.notify()
}

// MapStyle returns the active base map style.
func (s *Session) MapStyle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapStyle
}

// SetMockMode toggles the mock/live data flag and persists it. Loaded
// data is not cleared; the next fetch picks up the new flag.
func (s *Session) SetMockMode(mock bool) {
	s.mu.Lock()
	s.mockMode = mock
	s.mu.Unlock()
	s.persistPrefs()
	s.notify()
}

// MockMode reports whether the mock source is selected.
func (s *Session) MockMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mockMode
}

// SetCenter moves the map center.
func (s *Session) SetCenter(c domain.LatLon) {
	s.mu.Lock()
	s.center = c
	s.mu.Unlock()
	s.notify()
}

// Center returns the current map center.
func (s *Session) Center() domain.LatLon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.center
}

// SetSegments replaces the loaded segments wholesale. Selection is not
// reconciled automatically; SelectedSegment reports ok=false when the
// selected id is gone.
func (s *Session) SetSegments(col domain.SegmentCollection) {
	s.mu.Lock()
	s.segments = col
	s.mu.Unlock()
	s.notify()
}

// Segments returns the loaded segment collection.
func (s *Session) Segments() domain.SegmentCollection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.segments
}

// Select marks a segment as selected by id.
func (s *Session) Select(segmentID string) {
	s.mu.Lock()
	s.selectedID = segmentID
	s.mu.Unlock()
	s.notify()
}

// ClearSelection drops the selection.
func (s *Session) ClearSelection() {
	s.Select("")
}

// SelectedSegment returns the selected feature, matched by segment_id
// against the currently loaded collection.
func (s *Session) SelectedSegment() (domain.SegmentFeature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedID == "" {
		return domain.SegmentFeature{}, false
	}
	for _, f := range s.segments.Features {
		if f.Props.SegmentID == s.selectedID {
			return f, true
		}
	}
	return domain.SegmentFeature{}, false
}

// SetLastScore records the most recent point score.
func (s *Session) SetLastScore(score domain.ScoreResponse) {
	s.mu.Lock()
	s.lastScore = &score
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a consistent copy of the whole session state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionSnapshot{
		Hour:       s.hour,
		Vehicle:    s.vehicle,
		MapStyle:   s.mapStyle,
		MockMode:   s.mockMode,
		Center:     s.center,
		Segments:   s.segments,
		SelectedID: s.selectedID,
		LastScore:  s.lastScore,
	}
}
