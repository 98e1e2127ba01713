//go:build perf || perf_large

package perf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/signalsfoundry/transit-planner/core"
	"github.com/signalsfoundry/transit-planner/kb"
	"github.com/signalsfoundry/transit-planner/model"
	"github.com/signalsfoundry/transit-planner/planner"
	"github.com/signalsfoundry/transit-planner/timectrl"
)

type perfConfig struct {
	Rows int
	Cols int
	K    int
}

var middayTuesday = time.Date(2024, time.March, 12, 12, 0, 0, 0, time.UTC)

var rowLines = []model.Line{model.LineCentral, model.LineDistrict, model.LinePiccadilly, model.LineJubilee}
var colLines = []model.Line{model.LineVictoria, model.LineNorthern, model.LineBakerloo, model.LineMetropolitan}

// gridNetwork builds rows x cols stations. Each row is one east-west line and
// each column one north-south line, so every station is an interchange.
func gridNetwork(b *testing.B, cfg perfConfig) *kb.Network {
	b.Helper()

	type conn struct {
		To         int    `json:"to"`
		Line       string `json:"line"`
		Direction  string `json:"direction"`
		TravelTime int    `json:"travelTime"`
	}
	type station struct {
		Name        string   `json:"name"`
		Code        int      `json:"ic"`
		Naptans     []string `json:"naptan"`
		Zone        int      `json:"zone"`
		Lines       []string `json:"lines"`
		Lat         float64  `json:"lat"`
		Long        float64  `json:"long"`
		Connections []conn   `json:"connections"`
	}

	code := func(r, c int) int { return 1000 + r*cfg.Cols + c }
	var stations []station
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			row, col := rowLines[r%len(rowLines)], colLines[c%len(colLines)]
			st := station{
				Name:    fmt.Sprintf("Grid %d-%d", r, c),
				Code:    code(r, c),
				Naptans: []string{fmt.Sprintf("940GZZGRID%d", code(r, c))},
				Zone:    1 + (r+c)/4%6,
				Lines:   []string{string(row), string(col)},
				Lat:     51.4 + float64(r)*0.005,
				Long:    -0.3 + float64(c)*0.008,
			}
			if c+1 < cfg.Cols {
				st.Connections = append(st.Connections, conn{code(r, c+1), string(row), string(model.Eastbound), 90 + c%3*30})
			}
			if c > 0 {
				st.Connections = append(st.Connections, conn{code(r, c-1), string(row), string(model.Westbound), 90 + (c-1)%3*30})
			}
			if r+1 < cfg.Rows {
				st.Connections = append(st.Connections, conn{code(r+1, c), string(col), string(model.Southbound), 120 + r%2*30})
			}
			if r > 0 {
				st.Connections = append(st.Connections, conn{code(r-1, c), string(col), string(model.Northbound), 120 + (r-1)%2*30})
			}
			stations = append(stations, st)
		}
	}

	raw, err := json.Marshal(map[string]any{"stations": stations})
	if err != nil {
		b.Fatalf("marshal grid: %v", err)
	}
	network, err := kb.LoadTopology(bytes.NewReader(raw))
	if err != nil {
		b.Fatalf("LoadTopology(grid): %v", err)
	}
	return network
}

func benchmarkKShortest(b *testing.B, cfg perfConfig, strategy core.Strategy) {
	network := gridNetwork(b, cfg)
	g, err := core.NewGraph(network.Stations())
	if err != nil {
		b.Fatalf("NewGraph: %v", err)
	}
	g.Reset(middayTuesday, nil)
	last := 1000 + cfg.Rows*cfg.Cols - 1
	start, goal := g.Find(1000), g.Find(last)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		routes, err := g.KShortestPaths(context.Background(), start, goal, cfg.K, strategy)
		if err != nil {
			b.Fatalf("KShortestPaths: %v", err)
		}
		if len(routes) == 0 {
			b.Fatalf("no routes across the grid")
		}
	}
}

func benchmarkPlan(b *testing.B, cfg perfConfig) {
	network := gridNetwork(b, cfg)
	p, err := planner.NewPlanner(network, planner.WithClock(timectrl.NewManualClock(middayTuesday)))
	if err != nil {
		b.Fatalf("NewPlanner: %v", err)
	}
	q := planner.Query{
		From:    planner.StationLocation{At: network.FindStation(1000)},
		To:      planner.StationLocation{At: network.FindStation(1000 + cfg.Rows*cfg.Cols - 1)},
		Filters: planner.DefaultFilters(),
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Plan(context.Background(), q); err != nil {
			b.Fatalf("Plan: %v", err)
		}
	}
}
