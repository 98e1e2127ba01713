package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/transit-planner/internal/testnet"
	"github.com/signalsfoundry/transit-planner/kb"
	"github.com/signalsfoundry/transit-planner/model"
)

func newTestGraph(t *testing.T) (*Graph, *kb.Network) {
	t.Helper()
	network := testnet.Network(t)
	g, err := NewGraph(network.Stations())
	if err != nil {
		t.Fatalf("NewGraph error: %v", err)
	}
	return g, network
}

// weekday noon, outside the night window
var middayTuesday = time.Date(2024, time.March, 12, 12, 0, 0, 0, time.UTC)

func TestNewGraphOneEdgePerConnection(t *testing.T) {
	g, network := newTestGraph(t)

	want := 0
	for _, st := range network.Stations() {
		want += len(st.AllConnections())
		n := g.Find(st.Code)
		if n == nil {
			t.Fatalf("Find(%d) = nil", st.Code)
		}
		if n.Station != st {
			t.Fatalf("Find(%d).Station = %p, want %p", st.Code, n.Station, st)
		}
		if got := len(n.Edges()); got != len(st.AllConnections()) {
			t.Fatalf("node %d edges = %d, want %d", st.Code, got, len(st.AllConnections()))
		}
	}
	if got := len(g.Edges()); got != want {
		t.Fatalf("edge count = %d, want %d", got, want)
	}
	if g.Find(999) != nil {
		t.Fatalf("Find(999) returned a node")
	}
}

func TestNewGraphUnknownTarget(t *testing.T) {
	st := &model.Station{
		Code:        1,
		Name:        "Orphan",
		Zone:        model.ZoneOne,
		Lines:       []model.Line{model.LineCentral},
		Connections: []*model.Connection{{From: 1, To: 2, Line: model.LineCentral, Direction: model.Eastbound, TravelTime: 60}},
	}
	_, err := NewGraph([]*model.Station{st})
	if !errors.Is(err, ErrUnknownStation) {
		t.Fatalf("NewGraph error = %v, want ErrUnknownStation", err)
	}
}

func TestNewGraphReverseEdges(t *testing.T) {
	g, _ := newTestGraph(t)

	// Warren Street to Euston runs on two lines; each has both return
	// connections as reverse edges.
	for _, idx := range g.Find(testnet.WarrenStreet).Edges() {
		e := g.Edge(idx)
		if e.To.Station.Code != testnet.Euston {
			continue
		}
		if got := len(e.reverse); got != 2 {
			t.Fatalf("reverse edges of %s Warren Street->Euston = %d, want 2", e.Connection.Line, got)
		}
		for _, r := range e.reverse {
			if g.Edge(r).To != e.From {
				t.Fatalf("reverse edge %d does not return to Warren Street", r)
			}
		}
	}
}

func TestResetWeightsNeverBelowTravelTime(t *testing.T) {
	g, network := newTestGraph(t)

	severities := []model.Severity{
		model.GoodService, model.ReducedService, model.MinorDelays, model.SevereDelays,
		model.PartSuspended, model.Suspended, model.PlannedClosure, model.PartClosure,
		model.SpecialService, model.ServiceClosed,
	}
	i := 0
	for _, st := range network.Stations() {
		for _, c := range st.Connections {
			c.SetStatus(severities[i%len(severities)])
			i++
		}
	}

	g.Reset(middayTuesday, network.StatusSnapshot())
	for _, e := range g.Edges() {
		if e.Weight() < float64(e.Connection.TravelTime) {
			t.Fatalf("edge %d weight = %v, below travel time %d", e.Index(), e.Weight(), e.Connection.TravelTime)
		}
		if !e.Active() {
			t.Fatalf("edge %d inactive at midday", e.Index())
		}
	}
}

func TestResetSeverityMultipliers(t *testing.T) {
	g, network := newTestGraph(t)
	conn := network.FindStation(testnet.OxfordCircus).ConnectionsTo(testnet.TottenhamCourtRoad, model.LineCentral)[0]

	edgeFor := func() *Edge {
		for _, idx := range g.Find(testnet.OxfordCircus).Edges() {
			if g.Edge(idx).Connection == conn {
				return g.Edge(idx)
			}
		}
		t.Fatalf("no edge for Oxford Circus->Tottenham Court Road")
		return nil
	}

	cases := []struct {
		severity model.Severity
		want     float64
	}{
		{model.GoodService, 90},
		{model.SpecialService, 90},
		{model.ReducedService, 180},
		{model.MinorDelays, 270},
		{model.SevereDelays, 450},
		{model.PartSuspended, 90000},
		{model.Suspended, 90000},
		{model.PlannedClosure, 90000},
		{model.PartClosure, 90000},
		{model.ServiceClosed, 90000},
	}
	for _, tc := range cases {
		conn.SetStatus(tc.severity)
		g.Reset(middayTuesday, network.StatusSnapshot())
		if got := edgeFor().Weight(); got != tc.want {
			t.Fatalf("weight under %s = %v, want %v", tc.severity, got, tc.want)
		}
	}

	conn.SetStatus(model.Suspended)
	g.Reset(middayTuesday, nil)
	if got := edgeFor().Weight(); got != 90 {
		t.Fatalf("weight ignoring status = %v, want 90", got)
	}
}

func TestResetWalkingMultiplier(t *testing.T) {
	g, _ := newTestGraph(t)
	g.Reset(middayTuesday, nil)

	for _, idx := range g.Find(testnet.Bank).Edges() {
		e := g.Edge(idx)
		if !e.Connection.IsWalking() {
			continue
		}
		if got, want := e.Weight(), float64(e.Connection.TravelTime)*10; got != want {
			t.Fatalf("OSI weight = %v, want %v", got, want)
		}
		return
	}
	t.Fatalf("Bank has no walking interchange")
}

func TestResetIsIdempotent(t *testing.T) {
	g, network := newTestGraph(t)
	network.FindStation(testnet.BondStreet).ConnectionsTo(testnet.OxfordCircus, model.LineCentral)[0].SetStatus(model.MinorDelays)

	snapshot := func() ([]float64, []bool) {
		w := make([]float64, len(g.Edges()))
		a := make([]bool, len(g.Edges()))
		for i, e := range g.Edges() {
			w[i], a[i] = e.Weight(), e.Active()
		}
		return w, a
	}

	g.Reset(middayTuesday, network.StatusSnapshot())
	w1, a1 := snapshot()
	g.Reset(middayTuesday, network.StatusSnapshot())
	w2, a2 := snapshot()

	for i := range w1 {
		if w1[i] != w2[i] || a1[i] != a2[i] {
			t.Fatalf("edge %d changed across resets: (%v,%v) -> (%v,%v)", i, w1[i], a1[i], w2[i], a2[i])
		}
		if !a2[i] {
			t.Fatalf("edge %d inactive outside the night window", i)
		}
	}
}

func TestResetNightWindowDeactivatesDayOnlyConnections(t *testing.T) {
	g, _ := newTestGraph(t)
	saturdayNight := time.Date(2024, time.March, 16, 2, 0, 0, 0, time.UTC)

	g.Reset(saturdayNight, nil)
	for _, e := range g.Edges() {
		want := e.Connection.NightService || e.Connection.IsWalking()
		if e.Active() != want {
			t.Fatalf("edge %s %d->%d active = %v, want %v",
				e.Connection.Line, e.From.Station.Code, e.To.Station.Code, e.Active(), want)
		}
	}

	g.Reset(middayTuesday, nil)
	for _, e := range g.Edges() {
		if !e.Active() {
			t.Fatalf("edge %d still inactive after daytime reset", e.Index())
		}
	}
}

func TestRouteInterchanges(t *testing.T) {
	g, _ := newTestGraph(t)
	route, err := g.ShortestPath(context.Background(), g.Find(testnet.BondStreet), g.Find(testnet.WarrenStreet), Plain, Fastest)
	if err != nil || route == nil {
		t.Fatalf("ShortestPath = %v, %v", route, err)
	}
	if got := route.Interchanges(); got != 1 {
		t.Fatalf("Interchanges() = %d, want 1", got)
	}
}
