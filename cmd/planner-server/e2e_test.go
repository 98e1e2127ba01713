package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/signalsfoundry/transit-planner/internal/api"
	"github.com/signalsfoundry/transit-planner/internal/config"
	"github.com/signalsfoundry/transit-planner/internal/logging"
	"github.com/signalsfoundry/transit-planner/timectrl"
)

const upstreamStatus = `[
  {
    "id": "central",
    "lineStatuses": [
      {
        "statusSeverityDescription": "Suspended",
        "reason": "Central line: suspended between Oxford Circus and Tottenham Court Road.",
        "disruption": {"affectedStops": [{"stationNaptan": "940GZZLUOXC"}, {"stationNaptan": "940GZZLUTCR"}]}
      }
    ]
  },
  {"id": "victoria", "lineStatuses": [{"statusSeverityDescription": "Good Service"}]}
]`

const upstreamFares = `[
  {
    "rows": [
      {
        "passengerType": "Adult",
        "routeDescription": "Via Zone 1",
        "ticketsAvailable": [
          {"cost": "3.40", "ticketType": {"type": "Pay as you go"}, "ticketTime": {"type": "Peak"}},
          {"cost": "2.80", "ticketType": {"type": "Pay as you go"}, "ticketTime": {"type": "Off Peak"}}
        ]
      }
    ]
  }
]`

// fakeUpstream serves the line status and fare endpoints the planner calls.
type fakeUpstream struct {
	statusCalls atomic.Int32
	fareCalls   atomic.Int32
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasPrefix(r.URL.Path, "/Line/"):
		f.statusCalls.Add(1)
		_, _ = io.WriteString(w, upstreamStatus)
	case strings.HasPrefix(r.URL.Path, "/Stoppoint/"):
		f.fareCalls.Add(1)
		_, _ = io.WriteString(w, upstreamFares)
	default:
		http.NotFound(w, r)
	}
}

func startPlanner(t *testing.T, upstream http.Handler) string {
	t.Helper()

	original := newClock
	newClock = func(*time.Location) timectrl.Clock {
		return timectrl.NewManualClock(time.Date(2024, time.March, 12, 12, 0, 0, 0, time.UTC))
	}
	t.Cleanup(func() { newClock = original })

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := config.Default()
	cfg.TopologyPath = "../../configs/network.json"
	cfg.StatusURL = srv.URL
	cfg.FareURL = srv.URL
	cfg.StatusRefresh = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, logging.Noop(), grpcLis, httpLis)
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("server returned error: %v", err)
		}
	})
	return "http://" + httpLis.Addr().String()
}

func TestEndToEndStatusAwarePlanning(t *testing.T) {
	upstream := &fakeUpstream{}
	base := startPlanner(t, upstream)

	body := `{
		"from": {"station": 102},
		"to": {"station": 103},
		"status_aware": true,
		"sort_by": "fewest_changes",
		"wait_for_fares": true
	}`
	resp, err := http.Post(base+"/v1/journeys", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/journeys: %v", err)
	}
	var plan api.PlanResponse
	err = json.NewDecoder(resp.Body).Decode(&plan)
	resp.Body.Close()
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /v1/journeys status %d, decode error %v", resp.StatusCode, err)
	}
	if plan.StatusDegraded {
		t.Fatalf("StatusDegraded = true with a healthy feed")
	}

	var detour *api.JourneyView
	for i, j := range plan.Journeys {
		if len(j.Stations) == 3 && j.Stations[1] == 112 {
			detour = &plan.Journeys[i]
		}
	}
	if detour == nil {
		t.Fatalf("no Warren Street detour in %+v", plan.Journeys)
	}
	if detour.Fare == nil || detour.Fare.Cost != 2.80 {
		t.Fatalf("detour fare = %+v", detour.Fare)
	}
	if upstream.statusCalls.Load() == 0 || upstream.fareCalls.Load() == 0 {
		t.Fatalf("upstream calls: status %d, fares %d", upstream.statusCalls.Load(), upstream.fareCalls.Load())
	}

	resp, err = http.Get(base + "/v1/status")
	if err != nil {
		t.Fatalf("GET /v1/status: %v", err)
	}
	var board api.LineStatusResponse
	err = json.NewDecoder(resp.Body).Decode(&board)
	resp.Body.Close()
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /v1/status status %d, decode error %v", resp.StatusCode, err)
	}
	if board.Stale || len(board.Lines) != 2 || board.Lines[0].Severity != "Suspended" {
		t.Fatalf("status board = %+v", board)
	}
	if board.DegradedConnections == 0 {
		t.Fatalf("DegradedConnections = 0, want suspended connections counted")
	}
}

func TestEndToEndUpstreamOutage(t *testing.T) {
	base := startPlanner(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))

	body := `{"from": {"station": 102}, "to": {"station": 104}, "status_aware": true, "wait_for_fares": true}`
	resp, err := http.Post(base+"/v1/journeys", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/journeys: %v", err)
	}
	var plan api.PlanResponse
	err = json.NewDecoder(resp.Body).Decode(&plan)
	resp.Body.Close()
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /v1/journeys status %d, decode error %v", resp.StatusCode, err)
	}
	if !plan.StatusDegraded {
		t.Fatalf("StatusDegraded = false with the feed down")
	}
	if len(plan.Journeys) == 0 {
		t.Fatalf("no journeys while upstream is down")
	}
	for _, j := range plan.Journeys {
		if j.Fare != nil {
			t.Fatalf("journey has fare %+v while fare service is down", j.Fare)
		}
	}

	resp, err = http.Get(base + "/v1/status")
	if err != nil {
		t.Fatalf("GET /v1/status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("GET /v1/status = %d, want 503", resp.StatusCode)
	}
}

func TestServeFailureStopsStatusLoop(t *testing.T) {
	upstream := &fakeUpstream{}
	srv := httptest.NewServer(upstream)
	defer srv.Close()

	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	grpcLis.Close()
	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := config.Default()
	cfg.TopologyPath = "../../configs/network.json"
	cfg.StatusURL = srv.URL
	cfg.FaresEnabled = false
	cfg.StatusRefresh = 10 * time.Millisecond

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(context.Background(), cfg, logging.Noop(), grpcLis, httpLis)
	}()
	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("run error = nil, want the gRPC serve failure")
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not return after the gRPC listener failed")
	}

	// Let a request already on the wire reach the upstream first.
	time.Sleep(50 * time.Millisecond)
	after := upstream.statusCalls.Load()
	time.Sleep(100 * time.Millisecond)
	if got := upstream.statusCalls.Load(); got != after {
		t.Fatalf("status fetches after run returned = %d, want %d", got, after)
	}
}
