package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/riskroute/backend/internal/domain"
)

// MockRepository implements domain.DataRepository in memory, for demo
// mode and for running without a database.
type MockRepository struct {
	mu    sync.Mutex
	prefs domain.Preferences
	set   bool
	logs  []domain.ScoreLog
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SavePreferences stores the preferences in memory.
func (r *MockRepository) SavePreferences(ctx context.Context, p domain.Preferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs = p
	r.set = true
	return nil
}

// LoadPreferences returns stored preferences, or
// domain.ErrNoPreferences when nothing was saved yet.
func (r *MockRepository) LoadPreferences(ctx context.Context) (domain.Preferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set {
		return domain.Preferences{}, domain.ErrNoPreferences
	}
	return r.prefs, nil
}

// SaveScoreLog appends the log in memory, keeping the last 500.
func (r *MockRepository) SaveScoreLog(ctx context.Context, l domain.ScoreLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
	if len(r.logs) > 500 {
		r.logs = r.logs[len(r.logs)-500:]
	}
	return nil
}

// GetScoreLogs returns logs within the time range.
func (r *MockRepository) GetScoreLogs(ctx context.Context, from, to time.Time) ([]domain.ScoreLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ScoreLog
	for _, l := range r.logs {
		if !l.Timestamp.Before(from) && !l.Timestamp.After(to) {
			out = append(out, l)
		}
	}
	return out, nil
}

// Health always returns nil in mock mode.
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
