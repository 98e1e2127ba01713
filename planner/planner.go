// Package planner turns a journey query into ranked candidate journeys. It
// builds a graph per query, runs the fewest-changes, fastest and lowest-fare
// searches side by side, converts routes into itineraries and applies the
// user's filters and ranking.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/transit-planner/core"
	"github.com/signalsfoundry/transit-planner/internal/logging"
	"github.com/signalsfoundry/transit-planner/kb"
	"github.com/signalsfoundry/transit-planner/model"
	"github.com/signalsfoundry/transit-planner/timectrl"
)

const tracerName = "github.com/signalsfoundry/transit-planner/planner"

// Route counts requested from each search.
const (
	FewestChangesLimit = 10
	FastestLimit       = 10
	LowestFareLimit    = 3
)

// StatusSource supplies the current line status overlay. When the source
// cannot refresh it may return its last known overlay together with an
// error.
type StatusSource interface {
	Current(ctx context.Context) (kb.Overlay, error)
}

// Metrics receives planner measurements.
type Metrics interface {
	IncQuery(outcome string)
	ObserveSearch(strategy string, d time.Duration, routes int)
}

type noopMetrics struct{}

func (noopMetrics) IncQuery(string)                          {}
func (noopMetrics) ObserveSearch(string, time.Duration, int) {}

// Planner answers journey queries against one network. It is safe for
// concurrent use.
type Planner struct {
	network   *kb.Network
	clock     timectrl.Clock
	status    StatusSource
	fares     FareEstimator
	penalties core.Penalties
	ranking   Ranking
	prefetch  bool
	log       logging.Logger
	metrics   Metrics
	tracer    trace.Tracer
}

// Option customises a Planner.
type Option func(*Planner)

// WithClock sets the time source used for the night window, peak fares and
// arrive-by filtering.
func WithClock(c timectrl.Clock) Option {
	return func(p *Planner) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithStatusSource attaches the line status collaborator.
func WithStatusSource(s StatusSource) Option {
	return func(p *Planner) { p.status = s }
}

// WithFareEstimator attaches the fare collaborator.
func WithFareEstimator(f FareEstimator) Option {
	return func(p *Planner) { p.fares = f }
}

// WithPenalties overrides the graph cost penalties.
func WithPenalties(pen core.Penalties) Option {
	return func(p *Planner) { p.penalties = pen }
}

// WithRanking replaces the preference-based ranking for every query.
func WithRanking(r Ranking) Option {
	return func(p *Planner) { p.ranking = r }
}

// WithFarePrefetch starts fare lookups in the background as soon as the
// journeys are known. Results are returned without waiting for them.
func WithFarePrefetch() Option {
	return func(p *Planner) { p.prefetch = true }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(p *Planner) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewPlanner creates a planner over network.
func NewPlanner(network *kb.Network, opts ...Option) (*Planner, error) {
	if network == nil {
		return nil, errors.New("NewPlanner: network is required")
	}
	p := &Planner{
		network:   network,
		clock:     timectrl.SystemClock{},
		penalties: core.DefaultPenalties(),
		log:       logging.Noop(),
		metrics:   noopMetrics{},
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Network returns the network the planner routes over.
func (p *Planner) Network() *kb.Network {
	return p.network
}

// Result is the outcome of one query.
type Result struct {
	Journeys  []*Journey
	PlannedAt time.Time

	// Strategies lists the searches that ran.
	Strategies []core.Strategy
	// StatusDegraded is set when live status could not be refreshed and the
	// last known status was used instead.
	StatusDegraded bool
}

// AwaitFares looks up every journey's fare and waits for all of them.
func (r *Result) AwaitFares(ctx context.Context) {
	var wg sync.WaitGroup
	for _, j := range r.Journeys {
		wg.Add(1)
		go func(j *Journey) {
			defer wg.Done()
			_, _ = j.Fare(ctx)
		}(j)
	}
	wg.Wait()
}

// Plan resolves both ends of the query, searches, and returns the journeys
// that pass the filters, ranked. Finding nothing is not an error.
func (p *Planner) Plan(ctx context.Context, q Query) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "planner.Plan")
	defer span.End()

	res, outcome, err := p.plan(ctx, q)
	p.metrics.IncQuery(outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("planner.journeys", len(res.Journeys)))
	return res, nil
}

func (p *Planner) plan(ctx context.Context, q Query) (*Result, string, error) {
	if err := q.validate(); err != nil {
		return nil, "invalid", err
	}
	from, to := q.From.Station(), q.To.Station()
	if p.network.FindStation(from.Code) != from || p.network.FindStation(to.Code) != to {
		return nil, "invalid", fmt.Errorf("%w: station not in network", ErrInvalidQuery)
	}

	progress := newProgress(q.Progress)
	progress.report(PhaseStarted)

	now := p.clock.Now()
	res := &Result{PlannedAt: now}
	if from == to {
		progress.report(PhaseCompleted)
		return res, "empty", nil
	}

	g, err := core.NewGraph(p.network.Stations(), core.WithPenalties(p.penalties))
	if err != nil {
		return nil, "error", fmt.Errorf("Plan: %w", err)
	}
	status := p.network.StatusSnapshot()
	var weighting model.StatusSnapshot
	if q.Preferences.StatusAware {
		status, res.StatusDegraded = p.currentStatus(ctx)
		weighting = status
	}
	progress.report(PhaseStatusApplied)
	g.Reset(now, weighting)

	routes, strategies, err := p.search(ctx, g, q, progress)
	if err != nil {
		return nil, "error", err
	}
	res.Strategies = strategies

	progress.report(PhaseApplyingFilters)
	for _, route := range routes {
		j := newJourney(route, q.From, q.To, q.Preferences.Travelcard, q.Filters.TimePlanning, now, p.fares)
		j.status = status
		if !j.Satisfies(q.Filters, q.Preferences.HidePoorStatus, now) || containsJourney(res.Journeys, j) {
			continue
		}
		res.Journeys = append(res.Journeys, j)
	}

	rank := p.ranking
	if rank == nil {
		rank = RankingFor(q.Preferences.SortKey)
		if q.Preferences.SortKey == SortLowestFare {
			res.AwaitFares(ctx)
		}
	}
	Sort(res.Journeys, rank)
	if p.prefetch {
		pending := &Result{Journeys: append([]*Journey(nil), res.Journeys...)}
		go pending.AwaitFares(context.WithoutCancel(ctx))
	}
	progress.report(PhaseCompleted)

	p.log.Info(ctx, "planned journeys",
		logging.Int("from", from.Code),
		logging.Int("to", to.Code),
		logging.Int("candidates", len(routes)),
		logging.Int("journeys", len(res.Journeys)),
		logging.Bool("status_degraded", res.StatusDegraded),
	)
	if len(res.Journeys) == 0 {
		return res, "empty", nil
	}
	return res, "ok", nil
}

// currentStatus resolves the latest overlay into a snapshot owned by this
// query and pushes the same overlay into the shared network for the status
// board. It reports whether it had to fall back to the last known status.
func (p *Planner) currentStatus(ctx context.Context) (model.StatusSnapshot, bool) {
	if p.status == nil {
		return p.network.StatusSnapshot(), false
	}
	overlay, err := p.status.Current(ctx)
	degraded := false
	if err != nil {
		degraded = true
		p.log.Warn(ctx, "line status refresh failed; using last known status", logging.Err(err))
	}
	if overlay == nil {
		return p.network.StatusSnapshot(), degraded
	}
	snap := p.network.ResolveOverlay(overlay)
	n := p.network.ApplyStatus(snap)
	p.log.Debug(ctx, "applied line status", logging.Int("connections", n), logging.Int("lines", len(overlay)))
	return snap, degraded
}

type strategyRun struct {
	strategy core.Strategy
	limit    int
	phase    Phase
}

// search runs the strategies concurrently on the shared graph and merges
// their routes in a fixed order, dropping repeated station sequences.
func (p *Planner) search(ctx context.Context, g *core.Graph, q Query, progress *progress) ([]core.Route, []core.Strategy, error) {
	from, to := q.From.Station(), q.To.Station()
	runs := []strategyRun{
		{core.FewestChanges, FewestChangesLimit, PhaseFewestChangesFound},
		{core.Fastest, FastestLimit, PhaseFastestFound},
	}
	// Two outer-zone endpoints already price cheaply unless the rider asked to
	// keep out of zone one.
	lowestFare := q.Filters.AvoidZoneOne || from.Zone.IsZoneOne() || to.Zone.IsZoneOne()
	if lowestFare {
		runs = append(runs, strategyRun{core.LowestFare, LowestFareLimit, PhaseLowestFareFound})
	}

	start, goal := g.Find(from.Code), g.Find(to.Code)
	results := make([][]core.Route, len(runs))
	errs := make([]error, len(runs))
	var wg sync.WaitGroup
	for i, r := range runs {
		wg.Add(1)
		go func(i int, r strategyRun) {
			defer wg.Done()
			sctx, span := p.tracer.Start(ctx, "planner.search",
				trace.WithAttributes(attribute.String("planner.strategy", r.strategy.String())))
			defer span.End()

			began := time.Now()
			routes, err := g.KShortestPaths(sctx, start, goal, r.limit, r.strategy)
			p.metrics.ObserveSearch(r.strategy.String(), time.Since(began), len(routes))
			if err != nil {
				span.RecordError(err)
			}
			span.SetAttributes(attribute.Int("planner.routes", len(routes)))
			results[i], errs[i] = routes, err
			progress.report(r.phase)
		}(i, r)
	}
	wg.Wait()
	if !lowestFare {
		progress.report(PhaseLowestFareFound)
	}

	var merged []core.Route
	strategies := make([]core.Strategy, 0, len(runs))
	for i, r := range runs {
		if errs[i] != nil {
			return nil, nil, errs[i]
		}
		strategies = append(strategies, r.strategy)
		for _, route := range results[i] {
			if !containsRoute(merged, &route) {
				merged = append(merged, route)
			}
		}
	}
	return merged, strategies, nil
}

func containsRoute(routes []core.Route, r *core.Route) bool {
	for i := range routes {
		if routes[i].SameStations(r) {
			return true
		}
	}
	return false
}

func containsJourney(journeys []*Journey, j *Journey) bool {
	for _, other := range journeys {
		if other.Equal(j) {
			return true
		}
	}
	return false
}

// progress serialises calls into the caller's callback.
type progress struct {
	mu sync.Mutex
	fn func(Phase)
}

func newProgress(fn func(Phase)) *progress {
	return &progress{fn: fn}
}

func (p *progress) report(phase Phase) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn(phase)
}
