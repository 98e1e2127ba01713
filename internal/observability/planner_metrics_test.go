package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPlannerCollectorRecordsQueriesAndSearches(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPlannerCollector(reg)
	if err != nil {
		t.Fatalf("NewPlannerCollector: %v", err)
	}

	c.IncQuery("ok")
	c.IncQuery("ok")
	c.IncQuery("invalid")
	c.ObserveSearch("fastest", 3*time.Millisecond, 4)
	c.ObserveSearch("fastest", 5*time.Millisecond, 2)

	if got := testutil.ToFloat64(c.Queries.WithLabelValues("ok")); got != 2 {
		t.Fatalf("planner_queries_total{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Queries.WithLabelValues("invalid")); got != 1 {
		t.Fatalf("planner_queries_total{invalid} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "planner_search_duration_seconds", map[string]string{"strategy": "fastest"}); count != 2 {
		t.Fatalf("planner_search_duration_seconds sample_count = %d, want 2", count)
	}
	if sum := histogramSampleSum(t, reg, "planner_routes_found", map[string]string{"strategy": "fastest"}); sum != 6 {
		t.Fatalf("planner_routes_found sample_sum = %v, want 6", sum)
	}
}

func TestPlannerCollectorStatusAndFares(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPlannerCollector(reg)
	if err != nil {
		t.Fatalf("NewPlannerCollector: %v", err)
	}

	c.IncFareLookup("miss")
	c.IncFareLookup("hit")
	c.IncFareLookup("hit")
	c.IncStatusRefresh("error")
	c.SetStatusAge(90 * time.Second)

	if got := testutil.ToFloat64(c.FareLookups.WithLabelValues("hit")); got != 2 {
		t.Fatalf("planner_fare_lookups_total{hit} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.StatusRefreshes.WithLabelValues("error")); got != 1 {
		t.Fatalf("planner_status_refreshes_total{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.StatusAge); got != 90 {
		t.Fatalf("planner_status_age_seconds = %v, want 90", got)
	}

	c.SetStatusAge(-time.Second)
	if got := testutil.ToFloat64(c.StatusAge); got != 0 {
		t.Fatalf("negative age stored as %v, want 0", got)
	}
}

func TestNilPlannerCollectorIsSafe(t *testing.T) {
	var c *PlannerCollector
	c.IncQuery("ok")
	c.ObserveSearch("fastest", time.Millisecond, 1)
	c.IncFareLookup("hit")
	c.IncStatusRefresh("ok")
	c.SetStatusAge(time.Second)
	if c.Gatherer() != nil {
		t.Fatalf("nil collector returned a gatherer")
	}
}

func histogramSampleSum(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleSum()
			}
		}
	}
	return 0
}
