package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/internal/risk"
)

// RiskService composes the scoring sources with the session, weather
// inputs and persistence. The mock/live choice is read from the
// session at each call; already-loaded data is never cleared by a
// flag flip.
type RiskService struct {
	mock        risk.Source
	client      risk.Source
	session     *Session
	weather     *WeatherService
	roads       *RoadInfoService
	repo        domain.DataRepository
	serviceArea domain.BoundingBox

	wgBg sync.WaitGroup
}

// NewRiskService wires the two sources with their collaborators.
// roads may be nil to disable road-name annotation; a zero serviceArea
// disables the bounds check on point queries.
func NewRiskService(mock, client risk.Source, session *Session, weather *WeatherService, roads *RoadInfoService, repo domain.DataRepository, serviceArea domain.BoundingBox) *RiskService {
	return &RiskService{
		mock:        mock,
		client:      client,
		session:     session,
		weather:     weather,
		roads:       roads,
		repo:        repo,
		serviceArea: serviceArea,
	}
}

// Source returns the active scoring source per the session flag.
func (s *RiskService) Source() risk.Source {
	if s.session.MockMode() {
		return s.mock
	}
	return s.client
}

// WaitBackground blocks until background log writes complete.
func (s *RiskService) WaitBackground() {
	s.wgBg.Wait()
}

// Overview holds the joined result of the segment and top-spot
// queries backing the map screen.
type Overview struct {
	Segments domain.SegmentCollection `json:"segments"`
	TopSpots []domain.TopSpot         `json:"top_spots"`
}

// GetOverview fetches segments and top spots concurrently, joins the
// results, and replaces the session's loaded segments. Partial
// failures surface the first error after both fetches settle.
func (s *RiskService) GetOverview(ctx context.Context, bbox domain.BoundingBox, limit int) (Overview, error) {
	source := s.Source()
	hour := s.session.Hour()
	vehicle := s.session.Vehicle()

	var (
		segments domain.SegmentCollection
		spots    []domain.TopSpot
		wg       sync.WaitGroup
		mu       sync.Mutex
		errs     []error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		col, err := source.SegmentsToday(ctx, bbox, hour, vehicle)
		mu.Lock()
		if err != nil {
			errs = append(errs, err)
		} else {
			segments = col
		}
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		top, err := source.TopSpots(ctx, vehicle, limit)
		mu.Lock()
		if err != nil {
			errs = append(errs, err)
		} else {
			spots = top
		}
		mu.Unlock()
	}()

	wg.Wait()

	if len(errs) > 0 {
		return Overview{}, errs[0]
	}

	s.session.SetSegments(segments)
	return Overview{Segments: segments, TopSpots: spots}, nil
}

// ScorePoint answers a point query with the session's selections and
// the active weather, records it on the session, and logs it in the
// background.
func (s *RiskService) ScorePoint(ctx context.Context, lat, lon float64) (domain.ScoreResponse, error) {
	if s.serviceArea != (domain.BoundingBox{}) && !s.serviceArea.Contains(lat, lon) {
		return domain.ScoreResponse{}, domain.ErrOutOfServiceArea
	}

	weather := s.weather.Active()
	req := domain.ScoreRequest{
		Lat:     lat,
		Lon:     lon,
		Vehicle: s.session.Vehicle(),
		Hour:    s.session.Hour(),
		Weather: &weather,
	}

	resp, err := s.Source().Score(ctx, req)
	if err != nil {
		return domain.ScoreResponse{}, err
	}
	s.session.SetLastScore(resp)

	sourceName := "live"
	if s.session.MockMode() {
		sourceName = "mock"
	}
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.repo.SaveScoreLog(bgCtx, domain.ScoreLog{
			Lat:        req.Lat,
			Lon:        req.Lon,
			Vehicle:    req.Vehicle,
			Hour:       req.Hour,
			Risk0To100: resp.Risk0To100,
			TopCause:   resp.TopCause,
			Source:     sourceName,
			Timestamp:  time.Now().UTC(),
		})
		if err != nil {
			log.Printf("risk: failed to save score log: %v", err)
		}
	}()

	return resp, nil
}

// ScoreRoute scores a [lng,lat] polyline with the active source.
func (s *RiskService) ScoreRoute(ctx context.Context, coords [][2]float64) (domain.RouteScore, error) {
	weather := s.weather.Active()
	return s.Source().ScoreRoute(ctx, coords, s.session.Vehicle(), s.session.Hour(), &weather)
}

// AnnotateRoadNames fills in road names for spots via Overpass.
// Lookup failures leave the name empty; the listing still renders.
func (s *RiskService) AnnotateRoadNames(ctx context.Context, spots []domain.TopSpot) []domain.TopSpot {
	if s.roads == nil {
		return spots
	}
	for i := range spots {
		name, err := s.roads.NearestRoadName(ctx, spots[i].Lat, spots[i].Lon)
		if err != nil {
			log.Printf("risk: road name lookup failed: %v", err)
			continue
		}
		spots[i].RoadName = name
	}
	return spots
}
