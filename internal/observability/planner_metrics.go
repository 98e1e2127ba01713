package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PlannerCollector exposes routing-specific Prometheus metrics. It satisfies
// planner.Metrics and is also fed by the status tracker and fare estimator.
type PlannerCollector struct {
	gatherer prometheus.Gatherer

	Queries         *prometheus.CounterVec
	SearchDuration  *prometheus.HistogramVec
	RoutesFound     *prometheus.HistogramVec
	FareLookups     *prometheus.CounterVec
	StatusRefreshes *prometheus.CounterVec
	StatusAge       prometheus.Gauge
}

// NewPlannerCollector registers planner metrics against the provided registerer.
func NewPlannerCollector(reg prometheus.Registerer) (*PlannerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	queries, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_queries_total",
		Help: "Journey queries handled, labeled by outcome (ok, empty, invalid, error).",
	}, []string{"outcome"}), "planner_queries_total")
	if err != nil {
		return nil, err
	}

	searchDuration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_search_duration_seconds",
		Help:    "Duration of one K-shortest-paths search, labeled by strategy.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}, []string{"strategy"}), "planner_search_duration_seconds")
	if err != nil {
		return nil, err
	}

	routesFound, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_routes_found",
		Help:    "Number of routes returned by one search, labeled by strategy.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 10},
	}, []string{"strategy"}), "planner_routes_found")
	if err != nil {
		return nil, err
	}

	fareLookups, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_fare_lookups_total",
		Help: "Fare lookups, labeled by result (hit, miss, error, none).",
	}, []string{"result"}), "planner_fare_lookups_total")
	if err != nil {
		return nil, err
	}

	refreshes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_status_refreshes_total",
		Help: "Line status refreshes, labeled by result (ok, error, cached).",
	}, []string{"result"}), "planner_status_refreshes_total")
	if err != nil {
		return nil, err
	}

	age, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "planner_status_age_seconds",
		Help: "Age of the line status currently applied to the network.",
	}), "planner_status_age_seconds")
	if err != nil {
		return nil, err
	}

	return &PlannerCollector{
		gatherer:        gatherer,
		Queries:         queries,
		SearchDuration:  searchDuration,
		RoutesFound:     routesFound,
		FareLookups:     fareLookups,
		StatusRefreshes: refreshes,
		StatusAge:       age,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *PlannerCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// IncQuery counts one finished query.
func (c *PlannerCollector) IncQuery(outcome string) {
	if c == nil || c.Queries == nil {
		return
	}
	c.Queries.WithLabelValues(outcome).Inc()
}

// ObserveSearch records the duration and yield of one strategy's search.
func (c *PlannerCollector) ObserveSearch(strategy string, d time.Duration, routes int) {
	if c == nil {
		return
	}
	if c.SearchDuration != nil {
		c.SearchDuration.WithLabelValues(strategy).Observe(d.Seconds())
	}
	if c.RoutesFound != nil {
		c.RoutesFound.WithLabelValues(strategy).Observe(float64(routes))
	}
}

// IncFareLookup counts one fare lookup.
func (c *PlannerCollector) IncFareLookup(result string) {
	if c == nil || c.FareLookups == nil {
		return
	}
	c.FareLookups.WithLabelValues(result).Inc()
}

// IncStatusRefresh counts one line status refresh attempt.
func (c *PlannerCollector) IncStatusRefresh(result string) {
	if c == nil || c.StatusRefreshes == nil {
		return
	}
	c.StatusRefreshes.WithLabelValues(result).Inc()
}

// SetStatusAge updates the applied status age gauge.
func (c *PlannerCollector) SetStatusAge(age time.Duration) {
	if c == nil || c.StatusAge == nil {
		return
	}
	if age < 0 {
		age = 0
	}
	c.StatusAge.Set(age.Seconds())
}
