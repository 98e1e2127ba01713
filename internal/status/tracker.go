package status

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/transit-planner/internal/logging"
	"github.com/signalsfoundry/transit-planner/kb"
	"github.com/signalsfoundry/transit-planner/timectrl"
)

// DefaultTTL is how long a fetched status is served before refetching.
const DefaultTTL = 5 * time.Minute

// ErrUnavailable is returned when the feed cannot be refreshed. The tracker
// still returns the last known overlay alongside it when it has one.
var ErrUnavailable = errors.New("line status unavailable")

// Fetcher retrieves the raw feed. *Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context) ([]LineReport, error)
}

// Metrics receives refresh outcomes.
type Metrics interface {
	IncStatusRefresh(result string)
	SetStatusAge(age time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) IncStatusRefresh(string)    {}
func (noopMetrics) SetStatusAge(time.Duration) {}

// Tracker caches the feed and serves the overlay in force now. It satisfies
// planner.StatusSource and is safe for concurrent use.
type Tracker struct {
	fetcher Fetcher
	clock   timectrl.Clock
	ttl     time.Duration
	log     logging.Logger
	metrics Metrics

	mu        sync.Mutex
	reports   []LineReport
	fetchedAt time.Time
	have      bool
	inflight  *fetchCall
}

// fetchCall is one upstream fetch shared by every caller that finds the cache
// stale while it runs.
type fetchCall struct {
	done    chan struct{}
	reports []LineReport
	err     error
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithClock sets the time source used for the cache and validity periods.
func WithClock(c timectrl.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithTTL sets how long a fetch is reused.
func WithTTL(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.ttl = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(t *Tracker) {
		if m != nil {
			t.metrics = m
		}
	}
}

// NewTracker wraps fetcher with a cache.
func NewTracker(fetcher Fetcher, opts ...Option) *Tracker {
	t := &Tracker{
		fetcher: fetcher,
		clock:   timectrl.SystemClock{},
		ttl:     DefaultTTL,
		log:     logging.Noop(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Current returns the overlay in force now, fetching when the cache is older
// than the TTL. On a failed fetch it returns the last known overlay, which
// may be nil, together with an error wrapping ErrUnavailable.
func (t *Tracker) Current(ctx context.Context) (kb.Overlay, error) {
	reports, err := t.load(ctx, false)
	return Flatten(reports, t.clock.Now()), err
}

// Reports returns the cached feed, fetching when stale, and when it was
// fetched.
func (t *Tracker) Reports(ctx context.Context) ([]LineReport, time.Time, error) {
	reports, err := t.load(ctx, false)
	t.mu.Lock()
	defer t.mu.Unlock()
	return reports, t.fetchedAt, err
}

// Refresh fetches regardless of the cache age.
func (t *Tracker) Refresh(ctx context.Context) (kb.Overlay, error) {
	reports, err := t.load(ctx, true)
	return Flatten(reports, t.clock.Now()), err
}

// load serves the cache or fetches. The lock is never held across the fetch:
// the first caller to find the cache stale fetches and the rest wait for its
// result or their own ctx.
func (t *Tracker) load(ctx context.Context, force bool) ([]LineReport, error) {
	t.mu.Lock()
	now := t.clock.Now()
	if !force && t.have && now.Sub(t.fetchedAt) < t.ttl {
		t.metrics.IncStatusRefresh("cached")
		t.metrics.SetStatusAge(now.Sub(t.fetchedAt))
		reports := t.reports
		t.mu.Unlock()
		return reports, nil
	}
	if t.fetcher == nil {
		reports := t.reports
		t.mu.Unlock()
		return reports, fmt.Errorf("%w: no status feed configured", ErrUnavailable)
	}
	if call := t.inflight; call != nil {
		last := t.reports
		t.mu.Unlock()
		select {
		case <-call.done:
			return call.reports, call.err
		case <-ctx.Done():
			return last, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
	}
	call := &fetchCall{done: make(chan struct{})}
	t.inflight = call
	t.mu.Unlock()

	reports, err := t.fetcher.Fetch(ctx)

	t.mu.Lock()
	t.inflight = nil
	if err != nil {
		t.metrics.IncStatusRefresh("error")
		if t.have {
			t.metrics.SetStatusAge(now.Sub(t.fetchedAt))
		}
		call.reports, call.err = t.reports, fmt.Errorf("%w: %v", ErrUnavailable, err)
	} else {
		t.reports = reports
		t.fetchedAt = now
		t.have = true
		t.metrics.IncStatusRefresh("ok")
		t.metrics.SetStatusAge(0)
		call.reports = reports
	}
	t.mu.Unlock()
	close(call.done)

	if err == nil {
		t.log.Debug(ctx, "line status refreshed", logging.Int("lines", len(reports)))
	}
	return call.reports, call.err
}

// Run refreshes the feed every interval and applies it to network until ctx
// is done. The returned channel closes when the loop exits.
func (t *Tracker) Run(ctx context.Context, network *kb.Network, interval time.Duration) <-chan struct{} {
	return timectrl.Every(ctx, interval, func(ctx context.Context) {
		overlay, err := t.Refresh(ctx)
		if err != nil {
			t.log.Warn(ctx, "line status refresh failed", logging.Err(err))
			if overlay == nil {
				return
			}
		}
		degraded := network.ApplyOverlay(overlay)
		t.log.Info(ctx, "line status applied",
			logging.Int("entries", len(overlay)),
			logging.Int("degraded_connections", degraded),
		)
	})
}
