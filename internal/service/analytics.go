package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/internal/risk"
	"github.com/riskroute/backend/pkg/utils"
)

// AnalyticsService answers aggregate risk queries for the dashboard:
// route comparison, regional distributions, vehicle and hourly trends,
// and statistics over the recorded score log.
type AnalyticsService struct {
	riskSvc *RiskService
	session *Session
	repo    domain.DataRepository
}

// NewAnalyticsService wires analytics over the risk service and the
// score-log repository.
func NewAnalyticsService(riskSvc *RiskService, session *Session, repo domain.DataRepository) *AnalyticsService {
	return &AnalyticsService{riskSvc: riskSvc, session: session, repo: repo}
}

// NamedRoute is one candidate route in a comparison request.
type NamedRoute struct {
	Name        string       `json:"name"`
	Coordinates [][2]float64 `json:"coordinates"` // [lng,lat]
}

// RouteComparison is the scored summary of one compared route.
type RouteComparison struct {
	Name            string  `json:"name"`
	OverallRisk     int     `json:"overall_risk"`
	MaxRisk         int     `json:"max_risk"`
	MinRisk         int     `json:"min_risk"`
	StdDev          float64 `json:"std_dev"`
	SegmentCount    int     `json:"segment_count"`
	HighRiskCount   int     `json:"high_risk_count"`
	MediumRiskCount int     `json:"medium_risk_count"`
	LowRiskCount    int     `json:"low_risk_count"`
	TopCause        string  `json:"top_cause,omitempty"`
}

// RouteComparisonResult ranks the compared routes from safest up.
type RouteComparisonResult struct {
	Comparison    []RouteComparison `json:"comparison"`
	SafestRoute   string            `json:"safest_route,omitempty"`
	RiskiestRoute string            `json:"riskiest_route,omitempty"`
	Vehicle       domain.Vehicle    `json:"vehicle_type"`
	Timestamp     time.Time         `json:"timestamp"`
}

// CompareRoutes scores each candidate route pointwise and ranks them by
// overall risk ascending. Routes with fewer than 2 coordinates are
// skipped, matching the single-route scoring validation.
func (s *AnalyticsService) CompareRoutes(ctx context.Context, routes []NamedRoute) (RouteComparisonResult, error) {
	result := RouteComparisonResult{
		Comparison: []RouteComparison{},
		Vehicle:    s.session.Vehicle(),
		Timestamp:  time.Now().UTC(),
	}

	for i, route := range routes {
		if len(route.Coordinates) < 2 {
			continue
		}
		name := route.Name
		if name == "" {
			name = fmt.Sprintf("Route %d", i+1)
		}

		score, err := s.riskSvc.ScoreRoute(ctx, route.Coordinates)
		if err != nil {
			return RouteComparisonResult{}, fmt.Errorf("analytics: scoring route %q: %w", name, err)
		}

		entry := RouteComparison{
			Name:         name,
			OverallRisk:  score.Overall,
			SegmentCount: len(score.SegmentScores),
			StdDev:       utils.RoundTo(stdDev(score.SegmentScores), 2),
		}
		entry.MinRisk, entry.MaxRisk = minMax(score.SegmentScores)
		entry.HighRiskCount, entry.MediumRiskCount, entry.LowRiskCount = bandCounts(score.SegmentScores)
		entry.TopCause, _ = risk.TopCauseFromWeights(score.Explain)

		result.Comparison = append(result.Comparison, entry)
	}

	sort.SliceStable(result.Comparison, func(i, j int) bool {
		return result.Comparison[i].OverallRisk < result.Comparison[j].OverallRisk
	})
	if len(result.Comparison) > 0 {
		result.SafestRoute = result.Comparison[0].Name
		result.RiskiestRoute = result.Comparison[len(result.Comparison)-1].Name
	}
	return result, nil
}

// RiskDistribution is a histogram plus summary statistics over the
// segments of a region.
type RiskDistribution struct {
	Distribution      map[string]int     `json:"distribution"`
	Statistics        map[string]float64 `json:"statistics"`
	SegmentsCount     int                `json:"segments_count"`
	HighRiskPercent   float64            `json:"high_risk_percent"`
	MediumRiskPercent float64            `json:"medium_risk_percent"`
	LowRiskPercent    float64            `json:"low_risk_percent"`
}

// Distribution computes the risk histogram and statistics for a region
// from the active source's segments.
func (s *AnalyticsService) Distribution(ctx context.Context, bbox domain.BoundingBox, hour int, vehicle domain.Vehicle) (RiskDistribution, error) {
	col, err := s.riskSvc.Source().SegmentsToday(ctx, bbox, hour, vehicle)
	if err != nil {
		return RiskDistribution{}, fmt.Errorf("analytics: fetching segments: %w", err)
	}

	risks := make([]int, 0, len(col.Features))
	for _, f := range col.Features {
		risks = append(risks, f.Props.Risk0To100)
	}
	if len(risks) == 0 {
		return RiskDistribution{Distribution: map[string]int{}, Statistics: map[string]float64{}}, nil
	}

	// Ten decade bins; the top bin includes the score 100.
	histogram := make(map[string]int, 10)
	for _, r := range risks {
		lo := (r / 10) * 10
		if lo == 100 {
			lo = 90
		}
		histogram[fmt.Sprintf("%d-%d", lo, lo+10)]++
	}

	sorted := append([]int(nil), risks...)
	sort.Ints(sorted)
	high, medium, low := bandCounts(risks)
	n := float64(len(risks))

	return RiskDistribution{
		Distribution: histogram,
		Statistics: map[string]float64{
			"mean":   utils.RoundTo(mean(risks), 2),
			"median": median(sorted),
			"stdev":  utils.RoundTo(stdDev(risks), 2),
			"min":    float64(sorted[0]),
			"max":    float64(sorted[len(sorted)-1]),
			"q1":     float64(sorted[len(sorted)/4]),
			"q3":     float64(sorted[3*len(sorted)/4]),
		},
		SegmentsCount:     len(risks),
		HighRiskPercent:   utils.RoundTo(float64(high)/n*100, 1),
		MediumRiskPercent: utils.RoundTo(float64(medium)/n*100, 1),
		LowRiskPercent:    utils.RoundTo(float64(low)/n*100, 1),
	}, nil
}

// VehicleStats summarizes a region's risk for one vehicle type.
type VehicleStats struct {
	AvgRisk       float64 `json:"avg_risk"`
	MaxRisk       int     `json:"max_risk"`
	MinRisk       int     `json:"min_risk"`
	HighRiskCount int     `json:"high_risk_count"`
}

// VehicleComparisonResult compares every vehicle type over a region.
type VehicleComparisonResult struct {
	Comparison       map[domain.Vehicle]VehicleStats `json:"vehicle_comparison"`
	SafestVehicle    domain.Vehicle                  `json:"safest_vehicle,omitempty"`
	MostRiskyVehicle domain.Vehicle                  `json:"most_risky_vehicle,omitempty"`
	Timestamp        time.Time                       `json:"timestamp"`
}

// CompareVehicles scores the same region for every vehicle type.
// Average-risk ties resolve to the vehicle listed first in the enum, so
// the result is stable across calls.
func (s *AnalyticsService) CompareVehicles(ctx context.Context, bbox domain.BoundingBox, hour int) (VehicleComparisonResult, error) {
	result := VehicleComparisonResult{
		Comparison: make(map[domain.Vehicle]VehicleStats, len(domain.Vehicles)),
		Timestamp:  time.Now().UTC(),
	}

	safestAvg, riskiestAvg := math.Inf(1), math.Inf(-1)
	for _, vehicle := range domain.Vehicles {
		col, err := s.riskSvc.Source().SegmentsToday(ctx, bbox, hour, vehicle)
		if err != nil {
			return VehicleComparisonResult{}, fmt.Errorf("analytics: fetching segments for %s: %w", vehicle, err)
		}
		risks := make([]int, 0, len(col.Features))
		for _, f := range col.Features {
			risks = append(risks, f.Props.Risk0To100)
		}
		if len(risks) == 0 {
			continue
		}

		stats := VehicleStats{AvgRisk: utils.RoundTo(mean(risks), 2)}
		stats.MinRisk, stats.MaxRisk = minMax(risks)
		stats.HighRiskCount, _, _ = bandCounts(risks)
		result.Comparison[vehicle] = stats

		if stats.AvgRisk < safestAvg {
			safestAvg = stats.AvgRisk
			result.SafestVehicle = vehicle
		}
		if stats.AvgRisk > riskiestAvg {
			riskiestAvg = stats.AvgRisk
			result.MostRiskyVehicle = vehicle
		}
	}
	return result, nil
}

// HourlyTrend is one hour's aggregate over a region.
type HourlyTrend struct {
	Hour          int     `json:"hour"`
	AvgRisk       float64 `json:"avg_risk"`
	MaxRisk       int     `json:"max_risk"`
	SegmentCount  int     `json:"segment_count"`
	HighRiskCount int     `json:"high_risk_count"`
}

// HourlyTrendsResult sweeps all 24 hours for travel planning.
type HourlyTrendsResult struct {
	Trends            []HourlyTrend  `json:"hourly_trends"`
	SafestHour        int            `json:"safest_hour"`
	MostDangerousHour int            `json:"most_dangerous_hour"`
	Vehicle           domain.Vehicle `json:"vehicle_type"`
	Timestamp         time.Time      `json:"timestamp"`
}

// HourlyTrends scores the region at every hour of the day. Ties on
// average risk resolve to the earliest hour.
func (s *AnalyticsService) HourlyTrends(ctx context.Context, bbox domain.BoundingBox, vehicle domain.Vehicle) (HourlyTrendsResult, error) {
	result := HourlyTrendsResult{
		Trends:    make([]HourlyTrend, 0, 24),
		Vehicle:   vehicle,
		Timestamp: time.Now().UTC(),
	}

	safestAvg, riskiestAvg := math.Inf(1), math.Inf(-1)
	for hour := 0; hour < 24; hour++ {
		col, err := s.riskSvc.Source().SegmentsToday(ctx, bbox, hour, vehicle)
		if err != nil {
			return HourlyTrendsResult{}, fmt.Errorf("analytics: fetching segments for hour %d: %w", hour, err)
		}
		risks := make([]int, 0, len(col.Features))
		for _, f := range col.Features {
			risks = append(risks, f.Props.Risk0To100)
		}
		if len(risks) == 0 {
			continue
		}

		trend := HourlyTrend{
			Hour:         hour,
			AvgRisk:      utils.RoundTo(mean(risks), 2),
			SegmentCount: len(risks),
		}
		_, trend.MaxRisk = minMax(risks)
		trend.HighRiskCount, _, _ = bandCounts(risks)
		result.Trends = append(result.Trends, trend)

		if trend.AvgRisk < safestAvg {
			safestAvg = trend.AvgRisk
			result.SafestHour = hour
		}
		if trend.AvgRisk > riskiestAvg {
			riskiestAvg = trend.AvgRisk
			result.MostDangerousHour = hour
		}
	}
	return result, nil
}

// ScoreLogTrends aggregates the recorded point queries over a window.
type ScoreLogTrends struct {
	WindowHours int                    `json:"window_hours"`
	Count       int                    `json:"count"`
	AvgRisk     float64                `json:"avg_risk"`
	BandCounts  map[string]int         `json:"band_counts"`
	PerVehicle  map[domain.Vehicle]int `json:"per_vehicle"`
	TopCauses   map[string]int         `json:"top_causes"`
	Timestamp   time.Time              `json:"timestamp"`
}

// LogTrends summarizes the score log over the trailing window. This is
// the read path of the persisted query history.
func (s *AnalyticsService) LogTrends(ctx context.Context, windowHours int) (ScoreLogTrends, error) {
	if windowHours <= 0 {
		windowHours = 24
	}
	now := time.Now().UTC()
	logs, err := s.repo.GetScoreLogs(ctx, now.Add(-time.Duration(windowHours)*time.Hour), now)
	if err != nil {
		return ScoreLogTrends{}, fmt.Errorf("analytics: reading score logs: %w", err)
	}

	trends := ScoreLogTrends{
		WindowHours: windowHours,
		Count:       len(logs),
		BandCounts:  map[string]int{},
		PerVehicle:  map[domain.Vehicle]int{},
		TopCauses:   map[string]int{},
		Timestamp:   now,
	}
	if len(logs) == 0 {
		return trends, nil
	}

	sum := 0
	for _, l := range logs {
		sum += l.Risk0To100
		trends.BandCounts[string(risk.ToBand(l.Risk0To100))]++
		trends.PerVehicle[l.Vehicle]++
		if l.TopCause != "" {
			trends.TopCauses[l.TopCause]++
		}
	}
	trends.AvgRisk = utils.RoundTo(float64(sum)/float64(len(logs)), 2)
	return trends, nil
}

func bandCounts(scores []int) (high, medium, low int) {
	for _, s := range scores {
		switch risk.ToBand(s) {
		case risk.BandDanger:
			high++
		case risk.BandWarning:
			medium++
		default:
			low++
		}
	}
	return high, medium, low
}

func minMax(scores []int) (min, max int) {
	if len(scores) == 0 {
		return 0, 0
	}
	min, max = scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	return min, max
}

func mean(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores))
}

// median expects its input already sorted.
func median(sorted []int) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}

// stdDev is the sample standard deviation; fewer than 2 values yield 0.
func stdDev(scores []int) float64 {
	if len(scores) < 2 {
		return 0
	}
	m := mean(scores)
	var sum float64
	for _, s := range scores {
		d := float64(s) - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(scores)-1))
}
