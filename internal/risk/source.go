package risk

import (
	"context"

	"github.com/riskroute/backend/internal/domain"
)

// Source answers risk queries. Two implementations exist: Mock
// (deterministic synthetic data for offline demo) and Client (remote
// scoring backend). Callers resolve the active one per call, so a
// mode flip applies to the next query without reconstruction.
type Source interface {
	// Score answers a single point query.
	Score(ctx context.Context, req domain.ScoreRequest) (domain.ScoreResponse, error)

	// ScoreRoute scores an ordered [lng,lat] polyline pointwise.
	ScoreRoute(ctx context.Context, coords [][2]float64, vehicle domain.Vehicle, hour int, weather *domain.Weather) (domain.RouteScore, error)

	// SegmentsToday returns today's scored segments inside the box.
	SegmentsToday(ctx context.Context, bbox domain.BoundingBox, hour int, vehicle domain.Vehicle) (domain.SegmentCollection, error)

	// TopSpots returns the riskiest spots, sorted by score descending.
	TopSpots(ctx context.Context, vehicle domain.Vehicle, limit int) ([]domain.TopSpot, error)
}
