package fares

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"

	"github.com/signalsfoundry/transit-planner/internal/logging"
	"github.com/signalsfoundry/transit-planner/model"
	"github.com/signalsfoundry/transit-planner/timectrl"
)

// Cache defaults.
const (
	DefaultCacheSize = 1000
	DefaultCacheTTL  = 24 * time.Hour
)

// ErrUnavailable wraps fare service failures.
var ErrUnavailable = errors.New("fare estimate unavailable")

// Lookuper returns the raw fare rows between two stops. *Client implements it.
type Lookuper interface {
	Lookup(ctx context.Context, from, to string, travelcard model.Travelcard) ([]model.Fare, error)
}

// Metrics receives lookup outcomes.
type Metrics interface {
	IncFareLookup(result string)
}

type noopMetrics struct{}

func (noopMetrics) IncFareLookup(string) {}

// Estimator answers fare queries, caching the service's rows per stop pair
// and travelcard. It satisfies planner.FareEstimator.
type Estimator struct {
	lookup   Lookuper
	cache    gcache.Cache
	clock    timectrl.Clock
	disabled bool
	log      logging.Logger
	metrics  Metrics

	size int
	ttl  time.Duration
}

// Option customises an Estimator.
type Option func(*Estimator)

// WithCache sets the LRU size and entry lifetime.
func WithCache(size int, ttl time.Duration) Option {
	return func(e *Estimator) {
		if size > 0 {
			e.size = size
		}
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

// WithClock sets the time source used when a query has no start time.
func WithClock(c timectrl.Clock) Option {
	return func(e *Estimator) {
		if c != nil {
			e.clock = c
		}
	}
}

// Disabled turns every estimate into "no fare".
func Disabled() Option {
	return func(e *Estimator) { e.disabled = true }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(e *Estimator) {
		if m != nil {
			e.metrics = m
		}
	}
}

// NewEstimator wraps lookup with a cache.
func NewEstimator(lookup Lookuper, opts ...Option) *Estimator {
	e := &Estimator{
		lookup:  lookup,
		clock:   timectrl.SystemClock{},
		log:     logging.Noop(),
		metrics: noopMetrics{},
		size:    DefaultCacheSize,
		ttl:     DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cache = gcache.New(e.size).
		LRU().
		Expiration(e.ttl).
		Build()
	return e
}

type cacheKey struct {
	from, to   string
	travelcard model.Travelcard
}

// Estimate returns the fare for q, or nil when fares are disabled, the query
// lacks stop codes, or no row matches. Service failures are reported as
// ErrUnavailable.
func (e *Estimator) Estimate(ctx context.Context, q model.FareQuery) (*model.Fare, error) {
	if e.disabled || e.lookup == nil || q.FromNaptan == "" || q.ToNaptan == "" {
		e.metrics.IncFareLookup("none")
		return nil, nil
	}
	travelcard := q.Travelcard
	if travelcard == "" {
		travelcard = model.TravelcardAdult
	}

	key := cacheKey{from: q.FromNaptan, to: q.ToNaptan, travelcard: travelcard}
	var rows []model.Fare
	if cached, err := e.cache.Get(key); err == nil {
		rows = cached.([]model.Fare)
		e.metrics.IncFareLookup("hit")
	} else {
		fetched, err := e.lookup.Lookup(ctx, q.FromNaptan, q.ToNaptan, travelcard)
		if err != nil {
			e.metrics.IncFareLookup("error")
			e.log.Warn(ctx, "fare lookup failed",
				logging.String("from", q.FromNaptan),
				logging.String("to", q.ToNaptan),
				logging.Err(err),
			)
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		rows = fetched
		if err := e.cache.Set(key, rows); err != nil {
			e.log.Debug(ctx, "fare cache set failed", logging.Err(err))
		}
		e.metrics.IncFareLookup("miss")
	}

	departAt := q.DepartAt
	if departAt.IsZero() {
		departAt = e.clock.Now()
	}
	return Select(rows, timectrl.IsPeak(departAt), q.Zones), nil
}
