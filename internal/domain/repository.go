package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNoPreferences signals that nothing was persisted yet; callers keep
// their configured defaults.
var ErrNoPreferences = errors.New("no stored preferences")

// Preferences is the small UI-preference subset that survives restarts.
// Everything else in a session resets.
type Preferences struct {
	Vehicle  Vehicle `json:"vehicle"`
	MockMode bool    `json:"mock_mode"`
}

// ScoreLog records one answered point query for later analysis.
type ScoreLog struct {
	Lat        float64
	Lon        float64
	Vehicle    Vehicle
	Hour       int
	Risk0To100 int
	TopCause   string
	Source     string
	Timestamp  time.Time
}

// DataRepository defines the persistence interface.
// The domain defines the interface; repository packages implement it.
type DataRepository interface {
	// SavePreferences persists the UI-preference subset.
	SavePreferences(ctx context.Context, p Preferences) error

	// LoadPreferences returns the stored preferences, or
	// ErrNoPreferences when none were saved yet.
	LoadPreferences(ctx context.Context) (Preferences, error)

	// SaveScoreLog persists an answered score query.
	SaveScoreLog(ctx context.Context, l ScoreLog) error

	// GetScoreLogs retrieves recent score logs.
	GetScoreLogs(ctx context.Context, from, to time.Time) ([]ScoreLog, error)

	// Health checks storage connectivity.
	Health(ctx context.Context) error
}
