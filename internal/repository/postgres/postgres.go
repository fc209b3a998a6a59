package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riskroute/backend/internal/domain"
)

// PostgresRepository implements domain.DataRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SavePreferences upserts the single-row UI-preference record.
func (r *PostgresRepository) SavePreferences(ctx context.Context, p domain.Preferences) error {
	query := `
		INSERT INTO ui_preferences (id, vehicle, mock_mode, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET vehicle = $1, mock_mode = $2, updated_at = $3
	`

	_, err := r.pool.Exec(ctx, query, string(p.Vehicle), p.MockMode, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: failed to save preferences: %w", err)
	}
	return nil
}

// LoadPreferences returns the stored preferences, or
// domain.ErrNoPreferences when no row exists yet.
func (r *PostgresRepository) LoadPreferences(ctx context.Context) (domain.Preferences, error) {
	query := `SELECT vehicle, mock_mode FROM ui_preferences WHERE id = 1`

	var vehicle string
	var mockMode bool
	err := r.pool.QueryRow(ctx, query).Scan(&vehicle, &mockMode)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Preferences{}, domain.ErrNoPreferences
	}
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("postgres: failed to load preferences: %w", err)
	}
	return domain.Preferences{Vehicle: domain.Vehicle(vehicle), MockMode: mockMode}, nil
}

// SaveScoreLog persists an answered score query.
func (r *PostgresRepository) SaveScoreLog(ctx context.Context, l domain.ScoreLog) error {
	query := `
		INSERT INTO score_logs (
			lat, lon, vehicle, hour, risk, top_cause, source, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		l.Lat, l.Lon, string(l.Vehicle), l.Hour, l.Risk0To100, l.TopCause, l.Source, l.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save score log: %w", err)
	}
	return nil
}

// GetScoreLogs retrieves score logs within a time range.
func (r *PostgresRepository) GetScoreLogs(ctx context.Context, from, to time.Time) ([]domain.ScoreLog, error) {
	query := `
		SELECT lat, lon, vehicle, hour, risk, top_cause, source, timestamp
		FROM score_logs
		WHERE timestamp BETWEEN $1 AND $2
		ORDER BY timestamp DESC
		LIMIT 500
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query score logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.ScoreLog
	for rows.Next() {
		var l domain.ScoreLog
		var vehicle string
		if err := rows.Scan(&l.Lat, &l.Lon, &vehicle, &l.Hour, &l.Risk0To100, &l.TopCause, &l.Source, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan score log: %w", err)
		}
		l.Vehicle = domain.Vehicle(vehicle)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: score log rows: %w", err)
	}
	return logs, nil
}

// Health checks database connectivity.
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}
	return nil
}
