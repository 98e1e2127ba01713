package kb

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/signalsfoundry/transit-planner/model"
)

const smallTopology = `{
  "stations": [
    {"name": "King's Cross St. Pancras", "ic": 1, "naptan": ["940GZZLUKSX", "910GKGX"], "zone": 1,
     "lines": ["victoria", "northern"], "lat": 51.5308, "long": -0.1238,
     "doors": [{"line": "victoria", "direction": "Southbound", "side": "left"}],
     "connections": [
       {"to": 2, "line": "victoria", "direction": "Southbound", "travelTime": 90, "nightTube": true},
       {"to": 2, "line": "northern", "direction": "Southbound", "travelTime": 120}
     ]},
    {"name": "Euston", "ic": 2, "naptan": ["940GZZLUEUS"], "zone": 1,
     "lines": ["victoria", "northern"], "lat": 51.5282, "long": -0.1337,
     "connections": [
       {"to": 1, "line": "victoria", "direction": "Northbound", "travelTime": 90, "nightTube": true},
       {"to": 3, "line": "northern", "direction": "Northbound", "travelTime": 100}
     ],
     "outOfStationInterchanges": [{"to": 3, "travelTime": 300}]},
    {"name": "Euston Square", "ic": 3, "naptan": ["940GZZLUESQ"], "zone": 1,
     "lines": ["northern"], "lat": 51.5257, "long": -0.1359,
     "connections": [{"to": 2, "line": "northern", "direction": "Southbound", "travelTime": 100}],
     "outOfStationInterchanges": [{"to": 2, "travelTime": 300}]}
  ]
}`

func loadSmall(t *testing.T) *Network {
	t.Helper()
	n, err := LoadTopology(strings.NewReader(smallTopology))
	if err != nil {
		t.Fatalf("LoadTopology error: %v", err)
	}
	return n
}

func TestLoadTopology(t *testing.T) {
	n := loadSmall(t)
	if got := n.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	kx := n.FindStation(1)
	if kx == nil || kx.Name != "King's Cross St. Pancras" {
		t.Fatalf("FindStation(1) = %#v, want King's Cross", kx)
	}
	if got := len(kx.Connections); got != 2 {
		t.Fatalf("len(Connections) = %d, want 2", got)
	}
	if !kx.Connections[0].NightService || kx.Connections[1].NightService {
		t.Fatalf("night service flags not decoded: %v, %v", kx.Connections[0].NightService, kx.Connections[1].NightService)
	}
	if got := kx.DoorSide(model.LineVictoria, model.Southbound); got != model.DoorsLeft {
		t.Fatalf("DoorSide = %q, want left", got)
	}

	euston := n.FindStation(2)
	if got := len(euston.Interchanges); got != 1 {
		t.Fatalf("len(Interchanges) = %d, want 1", got)
	}
	osi := euston.Interchanges[0]
	if osi.Line != model.LineWalking || osi.Direction != model.WalkingHeading || osi.To != 3 {
		t.Fatalf("interchange = %+v, want walking to 3", osi)
	}
	if !euston.IsInterchange() {
		t.Fatalf("Euston IsInterchange() = false, want true")
	}
}

func TestLoadTopologyRejectsMalformedData(t *testing.T) {
	cases := map[string]string{
		"bad json":       `{"stations": [`,
		"empty":          `{"stations": []}`,
		"unknown target": `{"stations": [{"name": "A", "ic": 1, "naptan": ["x"], "zone": 1, "connections": [{"to": 9, "line": "central", "direction": "Eastbound", "travelTime": 10}]}]}`,
		"duplicate code": `{"stations": [{"name": "A", "ic": 1, "naptan": ["x"], "zone": 1}, {"name": "B", "ic": 1, "naptan": ["y"], "zone": 1}]}`,
		"duplicate stop": `{"stations": [{"name": "A", "ic": 1, "naptan": ["x"], "zone": 1}, {"name": "B", "ic": 2, "naptan": ["x"], "zone": 1}]}`,
		"bad zone":       `{"stations": [{"name": "A", "ic": 1, "naptan": ["x"], "zone": 13}]}`,
		"no stop codes":  `{"stations": [{"name": "A", "ic": 1, "zone": 1}]}`,
		"unknown line":   `{"stations": [{"name": "A", "ic": 1, "naptan": ["x"], "zone": 1, "lines": ["crossrail-2"]}]}`,
		"negative time":  `{"stations": [{"name": "A", "ic": 1, "naptan": ["x"], "zone": 1, "connections": [{"to": 1, "line": "central", "direction": "Eastbound", "travelTime": -1}]}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			n, err := LoadTopology(strings.NewReader(payload))
			if err == nil {
				t.Fatalf("LoadTopology succeeded with %d stations, want error", n.Len())
			}
			if !errors.Is(err, ErrMalformedTopology) {
				t.Fatalf("error = %v, want ErrMalformedTopology", err)
			}
		})
	}
}

func TestFindStationByNaptan(t *testing.T) {
	n := loadSmall(t)
	if st := n.FindStationByNaptan("910GKGX"); st == nil || st.Code != 1 {
		t.Fatalf("FindStationByNaptan(910GKGX) = %v, want station 1", st)
	}
	if st := n.FindStationByNaptan("nope"); st != nil {
		t.Fatalf("FindStationByNaptan(nope) = %v, want nil", st)
	}
	if _, err := n.Station(42); !errors.Is(err, ErrStationNotFound) {
		t.Fatalf("Station(42) error = %v, want ErrStationNotFound", err)
	}
}

func TestSearchStationsIgnoresPunctuation(t *testing.T) {
	n := loadSmall(t)

	got := n.SearchStations("kings cross st pancras")
	if len(got) != 1 || got[0].Code != 1 {
		t.Fatalf("SearchStations(kings cross) = %v, want [1]", got)
	}

	got = n.SearchStations("EUSTON")
	if len(got) != 2 || got[0].Name != "Euston" || got[1].Name != "Euston Square" {
		t.Fatalf("SearchStations(EUSTON) = %v, want Euston, Euston Square", got)
	}

	if got := n.SearchStations("  ..  "); got != nil {
		t.Fatalf("SearchStations(punctuation only) = %v, want nil", got)
	}
}

func TestApplyLineStatusMatchesPairsOnLine(t *testing.T) {
	n := loadSmall(t)

	changed := n.ApplyLineStatus(model.LineNorthern, model.Suspended, []StationPair{
		{From: "940GZZLUKSX", To: "940GZZLUEUS"},
	})
	if changed != 1 {
		t.Fatalf("changed = %d, want 1", changed)
	}

	kx := n.FindStation(1)
	for _, c := range kx.Connections {
		want := model.GoodService
		if c.Line == model.LineNorthern {
			want = model.Suspended
		}
		if got := c.Status(); got != want {
			t.Fatalf("%s status = %v, want %v", c.Line, got, want)
		}
	}
	// The reverse direction is a separate pair.
	if got := n.FindStation(2).Connections[0].Status(); got != model.GoodService {
		t.Fatalf("reverse victoria status = %v, want Good Service", got)
	}
}

func TestApplyOverlayResetsBeforeApplying(t *testing.T) {
	n := loadSmall(t)

	var mu sync.Mutex
	var events []Event
	unsubscribe := n.Subscribe(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	defer unsubscribe()

	first := Overlay{{Line: model.LineVictoria, Severity: model.SevereDelays}}
	if got := n.ApplyOverlay(first); got != 2 {
		t.Fatalf("ApplyOverlay(first) degraded = %d, want 2", got)
	}

	second := Overlay{{
		Line:     model.LineNorthern,
		Severity: model.MinorDelays,
		Pairs:    []StationPair{{From: "940GZZLUEUS", To: "940GZZLUESQ"}, {From: "940GZZLUESQ", To: "940GZZLUEUS"}},
	}}
	if got := n.ApplyOverlay(second); got != 2 {
		t.Fatalf("ApplyOverlay(second) degraded = %d, want 2", got)
	}
	for _, st := range n.Stations() {
		for _, c := range st.Connections {
			if c.Line == model.LineVictoria && c.Status() != model.GoodService {
				t.Fatalf("victoria connection %d->%d kept stale status %v", c.From, c.To, c.Status())
			}
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[1].Degraded != 2 {
		t.Fatalf("events = %+v, want two status events", events)
	}
}

func TestApplyLineStatusKeepsWorseSeverity(t *testing.T) {
	n := loadSmall(t)
	pair := []StationPair{{From: "940GZZLUKSX", To: "940GZZLUEUS"}}

	n.ApplyLineStatus(model.LineVictoria, model.PartSuspended, pair)
	n.ApplyLineStatus(model.LineVictoria, model.MinorDelays, pair)

	if got := n.FindStation(1).Connections[0].Status(); got != model.PartSuspended {
		t.Fatalf("status = %v, want Part Suspended", got)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	n := loadSmall(t)
	calls := 0
	unsubscribe := n.Subscribe(func(Event) { calls++ })
	n.ResetStatus()
	unsubscribe()
	n.ResetStatus()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestResolveOverlayLeavesNetworkUntouched(t *testing.T) {
	n := loadSmall(t)
	overlay := Overlay{
		{Line: model.LineVictoria, Severity: model.MinorDelays},
		{Line: model.LineVictoria, Severity: model.Suspended, Pairs: []StationPair{{From: "940GZZLUKSX", To: "940GZZLUEUS"}}},
		{Line: model.LineNorthern, Severity: model.GoodService},
	}

	snap := n.ResolveOverlay(overlay)
	if got := n.DegradedConnections(); got != 0 {
		t.Fatalf("DegradedConnections after resolve = %d, want 0", got)
	}
	if len(snap) != 2 {
		t.Fatalf("len(snapshot) = %d, want 2", len(snap))
	}
	kx := n.FindStation(1).Connections[0]
	if got := snap.Of(kx); got != model.Suspended {
		t.Fatalf("snapshot severity = %v, want Suspended", got)
	}
	if got := snap.Of(n.FindStation(1).Connections[1]); got != model.GoodService {
		t.Fatalf("northern severity = %v, want Good Service", got)
	}
}

func TestStatusSnapshotNeverSeesHalfAppliedOverlay(t *testing.T) {
	n := loadSmall(t)
	overlay := Overlay{{Line: model.LineVictoria, Severity: model.Suspended}}
	n.ApplyOverlay(overlay)
	target := n.FindStation(1).Connections[0]

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				n.ApplyOverlay(overlay)
			}
		}
	}()

	torn := 0
	for i := 0; i < 5000; i++ {
		if n.StatusSnapshot().Of(target) != model.Suspended {
			torn++
		}
	}
	close(done)
	wg.Wait()
	if torn != 0 {
		t.Fatalf("%d snapshots saw the suspended victoria line as running", torn)
	}
}
