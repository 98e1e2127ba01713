package core

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/signalsfoundry/transit-planner/internal/testnet"
	"github.com/signalsfoundry/transit-planner/model"
)

func assertLoopless(t *testing.T, routes []Route) {
	t.Helper()
	for i := range routes {
		seen := make(map[int]bool)
		for _, code := range routes[i].StationCodes() {
			if seen[code] {
				t.Fatalf("route %d visits %d twice: %v", i, code, routes[i].StationCodes())
			}
			seen[code] = true
		}
	}
}

func assertDistinct(t *testing.T, routes []Route) {
	t.Helper()
	for i := range routes {
		for j := i + 1; j < len(routes); j++ {
			if routes[i].SameStations(&routes[j]) {
				t.Fatalf("routes %d and %d share stations %v", i, j, routes[i].StationCodes())
			}
		}
	}
}

func assertSorted(t *testing.T, routes []Route) {
	t.Helper()
	for i := 1; i < len(routes); i++ {
		if routes[i].Weight < routes[i-1].Weight {
			t.Fatalf("route %d weight %v below route %d weight %v", i, routes[i].Weight, i-1, routes[i-1].Weight)
		}
	}
}

func TestKShortestPathsAlternatives(t *testing.T) {
	g, _ := newTestGraph(t)
	g.Reset(middayTuesday, nil)

	routes, err := g.KShortestPaths(context.Background(), g.Find(testnet.OxfordCircus), g.Find(testnet.TottenhamCourtRoad), 5, Fastest)
	if err != nil {
		t.Fatalf("KShortestPaths error: %v", err)
	}
	if len(routes) != 3 {
		t.Fatalf("len(routes) = %d, want 3", len(routes))
	}
	assertLoopless(t, routes)
	assertDistinct(t, routes)
	assertSorted(t, routes)

	want := [][]int{
		{testnet.OxfordCircus, testnet.TottenhamCourtRoad},
		{testnet.OxfordCircus, testnet.WarrenStreet, testnet.TottenhamCourtRoad},
	}
	for i, w := range want {
		if got := routes[i].StationCodes(); !reflect.DeepEqual(got, w) {
			t.Fatalf("route %d stations = %v, want %v", i, got, w)
		}
	}
	last := routes[2].StationCodes()
	if last[0] != testnet.OxfordCircus || last[len(last)-1] != testnet.TottenhamCourtRoad {
		t.Fatalf("route 2 endpoints = %v", last)
	}
}

func TestKShortestPathsRespectsLimit(t *testing.T) {
	g, _ := newTestGraph(t)
	g.Reset(middayTuesday, nil)

	routes, err := g.KShortestPaths(context.Background(), g.Find(testnet.OxfordCircus), g.Find(testnet.TottenhamCourtRoad), 2, Fastest)
	if err != nil {
		t.Fatalf("KShortestPaths error: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("len(routes) = %d, want 2", len(routes))
	}

	routes, _ = g.KShortestPaths(context.Background(), g.Find(testnet.OxfordCircus), g.Find(testnet.TottenhamCourtRoad), 0, Fastest)
	if len(routes) != 0 {
		t.Fatalf("limit 0 returned %d routes", len(routes))
	}
}

func TestKShortestPathsSingleLineNeighbour(t *testing.T) {
	g, _ := newTestGraph(t)
	g.Reset(middayTuesday, nil)

	// Notting Hill Gate only serves the central line and Bond Street is
	// the next stop, so there is nothing to enumerate.
	routes, err := g.KShortestPaths(context.Background(), g.Find(testnet.NottingHillGate), g.Find(testnet.BondStreet), 10, FewestChanges)
	if err != nil {
		t.Fatalf("KShortestPaths error: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("len(routes) = %d, want 1", len(routes))
	}
	if routes[0].TraversalCost != 180 {
		t.Fatalf("TraversalCost = %d, want 180", routes[0].TraversalCost)
	}
}

func TestKShortestPathsPropertiesAcrossStrategies(t *testing.T) {
	g, _ := newTestGraph(t)
	g.Reset(middayTuesday, nil)

	pairs := [][2]int{
		{testnet.NottingHillGate, testnet.TowerHill},
		{testnet.Victoria, testnet.Stratford},
		{testnet.BondStreet, testnet.Euston},
		{testnet.HighburyIslington, testnet.Holborn},
	}
	for _, pair := range pairs {
		for _, strategy := range []Strategy{FewestChanges, Fastest, LowestFare} {
			routes, err := g.KShortestPaths(context.Background(), g.Find(pair[0]), g.Find(pair[1]), 10, strategy)
			if err != nil {
				t.Fatalf("%v %s: error %v", pair, strategy, err)
			}
			if len(routes) == 0 {
				t.Fatalf("%v %s: no routes", pair, strategy)
			}
			assertLoopless(t, routes)
			assertDistinct(t, routes)
			assertSorted(t, routes)
			for i := range routes {
				codes := routes[i].StationCodes()
				if codes[0] != pair[0] || codes[len(codes)-1] != pair[1] {
					t.Fatalf("%v %s: route %d endpoints %v", pair, strategy, i, codes)
				}
			}
		}
	}
}

func TestKShortestPathsIsDeterministic(t *testing.T) {
	g, _ := newTestGraph(t)
	g.Reset(middayTuesday, nil)

	run := func() [][]int {
		routes, err := g.KShortestPaths(context.Background(), g.Find(testnet.Victoria), g.Find(testnet.Stratford), 10, FewestChanges)
		if err != nil {
			t.Fatalf("KShortestPaths error: %v", err)
		}
		out := make([][]int, len(routes))
		for i := range routes {
			out[i] = hopEdges(routes[i].Hops)
		}
		return out
	}
	first := run()
	for i := 0; i < 3; i++ {
		if got := run(); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d = %v, want %v", i, got, first)
		}
	}
}

func TestKShortestPathsAvoidsSuspendedLine(t *testing.T) {
	g, network := newTestGraph(t)
	network.FindStation(testnet.OxfordCircus).
		ConnectionsTo(testnet.TottenhamCourtRoad, model.LineCentral)[0].
		SetStatus(model.Suspended)
	g.Reset(middayTuesday, network.StatusSnapshot())

	routes, err := g.KShortestPaths(context.Background(), g.Find(testnet.OxfordCircus), g.Find(testnet.TottenhamCourtRoad), 3, Fastest)
	if err != nil || len(routes) == 0 {
		t.Fatalf("KShortestPaths = %v, %v", routes, err)
	}
	want := []int{testnet.OxfordCircus, testnet.WarrenStreet, testnet.TottenhamCourtRoad}
	if got := routes[0].StationCodes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("best route = %v, want %v", got, want)
	}
	for i := 1; i < len(routes); i++ {
		if len(routes[i].Hops) == 1 && routes[i].Weight < routes[0].Weight {
			t.Fatalf("suspended hop ranked above the detour")
		}
	}
}

func TestKShortestPathsSuspendedLastResort(t *testing.T) {
	g, network := newTestGraph(t)
	network.FindStation(testnet.NottingHillGate).
		ConnectionsTo(testnet.BondStreet, model.LineCentral)[0].
		SetStatus(model.Suspended)
	g.Reset(middayTuesday, network.StatusSnapshot())

	routes, err := g.KShortestPaths(context.Background(), g.Find(testnet.NottingHillGate), g.Find(testnet.BondStreet), 10, Fastest)
	if err != nil {
		t.Fatalf("KShortestPaths error: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("len(routes) = %d, want 1", len(routes))
	}
	if !routes[0].Hops[0].Connection.Status().IsClosure() {
		t.Fatalf("expected the suspended connection to be used")
	}
}

func TestKShortestPathsSameStationAndCancel(t *testing.T) {
	g, _ := newTestGraph(t)
	n := g.Find(testnet.Bank)
	routes, err := g.KShortestPaths(context.Background(), n, n, 10, Fastest)
	if err != nil || len(routes) != 0 {
		t.Fatalf("KShortestPaths(same) = %v, %v", routes, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.KShortestPaths(ctx, g.Find(testnet.NottingHillGate), g.Find(testnet.Stratford), 10, Fastest)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("KShortestPaths error = %v, want context.Canceled", err)
	}
}

func TestKShortestPathsConcurrentStrategies(t *testing.T) {
	g, _ := newTestGraph(t)
	g.Reset(middayTuesday, nil)

	want := make(map[Strategy][]Route)
	for _, s := range []Strategy{FewestChanges, Fastest, LowestFare} {
		want[s], _ = g.KShortestPaths(context.Background(), g.Find(testnet.Victoria), g.Find(testnet.TowerHill), 10, s)
	}

	type result struct {
		strategy Strategy
		routes   []Route
	}
	results := make(chan result, 3)
	for _, s := range []Strategy{FewestChanges, Fastest, LowestFare} {
		go func(s Strategy) {
			routes, _ := g.KShortestPaths(context.Background(), g.Find(testnet.Victoria), g.Find(testnet.TowerHill), 10, s)
			results <- result{s, routes}
		}(s)
	}
	for i := 0; i < 3; i++ {
		r := <-results
		if len(r.routes) != len(want[r.strategy]) {
			t.Fatalf("%s: concurrent run found %d routes, want %d", r.strategy, len(r.routes), len(want[r.strategy]))
		}
		for j := range r.routes {
			if !reflect.DeepEqual(hopEdges(r.routes[j].Hops), hopEdges(want[r.strategy][j].Hops)) {
				t.Fatalf("%s: route %d differs under concurrency", r.strategy, j)
			}
		}
	}
}
