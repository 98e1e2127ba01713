// Package api exposes the journey planner over gRPC and REST.
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/transit-planner/internal/logging"
	linestatus "github.com/signalsfoundry/transit-planner/internal/status"
	"github.com/signalsfoundry/transit-planner/kb"
	"github.com/signalsfoundry/transit-planner/model"
	"github.com/signalsfoundry/transit-planner/planner"
	"github.com/signalsfoundry/transit-planner/timectrl"
)

// DefaultSearchLimit caps station search results when the request sets none.
const DefaultSearchLimit = 20

// StatusReporter exposes the cached status feed. *status.Tracker implements it.
type StatusReporter interface {
	Reports(ctx context.Context) ([]linestatus.LineReport, time.Time, error)
}

// Service implements the planner operations shared by both transports.
type Service struct {
	planner    *planner.Planner
	network    *kb.Network
	status     StatusReporter
	travelcard model.Travelcard
	clock      timectrl.Clock
	log        logging.Logger
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithStatusReporter enables the line status operation.
func WithStatusReporter(r StatusReporter) ServiceOption {
	return func(s *Service) { s.status = r }
}

// WithDefaultTravelcard sets the travelcard used when a request names none.
func WithDefaultTravelcard(tc model.Travelcard) ServiceOption {
	return func(s *Service) {
		if tc != "" {
			s.travelcard = tc
		}
	}
}

// WithClock sets the time used to decide which status entries are current.
func WithClock(c timectrl.Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the fallback logger used outside a request.
func WithLogger(l logging.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService binds the operations to a planner.
func NewService(p *planner.Planner, opts ...ServiceOption) (*Service, error) {
	if p == nil {
		return nil, errors.New("NewService: planner is required")
	}
	s := &Service{
		planner:    p,
		network:    p.Network(),
		travelcard: model.TravelcardAdult,
		clock:      timectrl.SystemClock{},
		log:        logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PlanJourney resolves the request into a query and plans it.
func (s *Service) PlanJourney(ctx context.Context, req PlanRequest) (*PlanResponse, error) {
	q, err := s.query(req)
	if err != nil {
		return nil, err
	}

	res, err := s.planner.Plan(ctx, q)
	if err != nil {
		return nil, err
	}
	if req.WaitForFares {
		fctx, span := startChildSpan(ctx, "api.AwaitFares", attribute.Int("journeys", len(res.Journeys)))
		res.AwaitFares(fctx)
		span.End()
	}

	resp := &PlanResponse{
		PlannedAt:      res.PlannedAt,
		StatusDegraded: res.StatusDegraded,
		Strategies:     make([]string, 0, len(res.Strategies)),
		Journeys:       make([]JourneyView, 0, len(res.Journeys)),
	}
	for _, st := range res.Strategies {
		resp.Strategies = append(resp.Strategies, st.String())
	}
	for _, j := range res.Journeys {
		resp.Journeys = append(resp.Journeys, journeyView(j))
	}

	requestLogger(ctx, s.log).Info(ctx, "journey planned",
		logging.String("from", q.From.Name()),
		logging.String("to", q.To.Name()),
		logging.Int("journeys", len(resp.Journeys)),
	)
	return resp, nil
}

func (s *Service) query(req PlanRequest) (planner.Query, error) {
	from, err := s.location(req.From)
	if err != nil {
		return planner.Query{}, fmt.Errorf("from: %w", err)
	}
	to, err := s.location(req.To)
	if err != nil {
		return planner.Query{}, fmt.Errorf("to: %w", err)
	}

	filters := planner.DefaultFilters()
	filters.AvoidZoneOne = req.AvoidZoneOne
	if req.MaxChanges != nil {
		if *req.MaxChanges < 0 {
			return planner.Query{}, fmt.Errorf("%w: max_changes must not be negative", ErrInvalidRequest)
		}
		filters.MaxChanges = *req.MaxChanges
	}
	if req.LeaveAt != nil {
		filters.TimePlanning.LeaveAt = *req.LeaveAt
	}
	if req.ArriveBy != nil {
		filters.TimePlanning.ArriveBy = *req.ArriveBy
	}

	sortKey, err := planner.ParseSortKey(req.SortBy)
	if err != nil {
		return planner.Query{}, err
	}
	travelcard := s.travelcard
	if req.Travelcard != "" {
		travelcard, err = model.ParseTravelcard(req.Travelcard)
		if err != nil {
			return planner.Query{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	return planner.Query{
		From:    from,
		To:      to,
		Filters: filters,
		Preferences: planner.Preferences{
			StatusAware:    req.StatusAware,
			HidePoorStatus: req.HidePoorStatus,
			SortKey:        sortKey,
			Travelcard:     travelcard,
		},
	}, nil
}

func (s *Service) location(e EndpointRequest) (planner.Location, error) {
	var st *model.Station
	switch {
	case e.Station != 0:
		st = s.network.FindStation(e.Station)
	case e.Naptan != "":
		st = s.network.FindStationByNaptan(e.Naptan)
	default:
		return nil, fmt.Errorf("%w: station or naptan is required", ErrInvalidRequest)
	}
	if st == nil {
		return nil, fmt.Errorf("%w: station %d %q", kb.ErrStationNotFound, e.Station, e.Naptan)
	}
	if e.WalkSeconds < 0 {
		return nil, fmt.Errorf("%w: walk_seconds must not be negative", ErrInvalidRequest)
	}

	coord := model.Coordinate{Lat: e.Latitude, Long: e.Longitude}
	switch e.Kind {
	case "", EndpointStation:
		return planner.StationLocation{At: st}, nil
	case EndpointPlace:
		return planner.PointOfInterest{Title: e.Name, Coordinate: coord, Nearest: st, WalkSeconds: e.WalkSeconds}, nil
	case EndpointAddress:
		return planner.StreetAddress{Address: e.Name, Coordinate: coord, Nearest: st, WalkSeconds: e.WalkSeconds}, nil
	}
	return nil, fmt.Errorf("%w: unknown endpoint kind %q", ErrInvalidRequest, e.Kind)
}

// SearchStations finds stations by physical-stop code or by name.
func (s *Service) SearchStations(ctx context.Context, req StationSearchRequest) (*StationSearchResponse, error) {
	resp := &StationSearchResponse{Stations: []StationView{}}
	if req.Naptan != "" {
		if st := s.network.FindStationByNaptan(req.Naptan); st != nil {
			resp.Stations = append(resp.Stations, stationView(st))
		}
		return resp, nil
	}
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query or naptan is required", ErrInvalidRequest)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	for _, st := range s.network.SearchStations(req.Query) {
		if len(resp.Stations) == limit {
			break
		}
		resp.Stations = append(resp.Stations, stationView(st))
	}
	return resp, nil
}

// Station returns one station by code.
func (s *Service) Station(ctx context.Context, code int) (*StationView, error) {
	st, err := s.network.Station(code)
	if err != nil {
		return nil, err
	}
	v := stationView(st)
	return &v, nil
}

// LineStatus reports the current status board. When the feed cannot be
// refreshed the last known board is returned marked stale.
func (s *Service) LineStatus(ctx context.Context) (*LineStatusResponse, error) {
	if s.status == nil {
		return nil, fmt.Errorf("%w: no status feed configured", linestatus.ErrUnavailable)
	}
	reports, fetchedAt, err := s.status.Reports(ctx)
	if err != nil && reports == nil {
		return nil, err
	}

	now := s.clock.Now()
	resp := &LineStatusResponse{
		FetchedAt:           fetchedAt,
		Stale:               err != nil,
		DegradedConnections: s.network.DegradedConnections(),
		Lines:               make([]LineStatusView, 0, len(reports)),
	}
	for _, r := range reports {
		lv := LineStatusView{
			Line:     string(r.Line),
			Name:     r.Line.DisplayName(),
			Severity: r.Worst(now).String(),
		}
		for _, d := range r.Details {
			if !d.CurrentAt(now) {
				continue
			}
			dv := StatusDetailView{Severity: d.Severity.String(), Reason: d.Reason}
			for _, naptan := range d.AffectedNaptans {
				if st := s.network.FindStationByNaptan(naptan); st != nil {
					dv.Stations = append(dv.Stations, st.Name)
				}
			}
			lv.Details = append(lv.Details, dv)
		}
		resp.Lines = append(resp.Lines, lv)
	}
	if err != nil {
		requestLogger(ctx, s.log).Warn(ctx, "serving stale line status", logging.Err(err))
	}
	return resp, nil
}
