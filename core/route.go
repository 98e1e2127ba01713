package core

import (
	"github.com/signalsfoundry/transit-planner/model"
)

// Hop is one traversed edge of a route.
type Hop struct {
	From       *model.Station
	To         *model.Station
	Connection *model.Connection

	edge int
}

// Edge returns the index of the graph edge the hop used.
func (h Hop) Edge() int { return h.edge }

// Route is a completed search result.
type Route struct {
	Hops []Hop

	// TraversalCost is the sum of connection travel times in seconds.
	TraversalCost int
	// Weight is the strategy cost: edge weights plus interchange or zone
	// penalties, without the search heuristic.
	Weight float64
}

// Stations returns the station sequence, start first.
func (r *Route) Stations() []*model.Station {
	if r == nil || len(r.Hops) == 0 {
		return nil
	}
	out := make([]*model.Station, 0, len(r.Hops)+1)
	out = append(out, r.Hops[0].From)
	for _, h := range r.Hops {
		out = append(out, h.To)
	}
	return out
}

// StationCodes returns the station sequence as codes.
func (r *Route) StationCodes() []int {
	stations := r.Stations()
	codes := make([]int, len(stations))
	for i, st := range stations {
		codes[i] = st.Code
	}
	return codes
}

// SameStations reports whether both routes visit the same station sequence.
func (r *Route) SameStations(other *Route) bool {
	a, b := r.StationCodes(), other.StationCodes()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Interchanges counts changes of line or direction along the route.
func (r *Route) Interchanges() int {
	count := 0
	for i := 1; i < len(r.Hops); i++ {
		if changesService(r.Hops[i-1].Connection, r.Hops[i].Connection) {
			count++
		}
	}
	return count
}

// lessRoute orders routes by weight, then travel time, then station codes.
func lessRoute(a, b *Route) bool {
	if a.Weight != b.Weight {
		return a.Weight < b.Weight
	}
	if a.TraversalCost != b.TraversalCost {
		return a.TraversalCost < b.TraversalCost
	}
	ac, bc := a.StationCodes(), b.StationCodes()
	for i := 0; i < len(ac) && i < len(bc); i++ {
		if ac[i] != bc[i] {
			return ac[i] < bc[i]
		}
	}
	return len(ac) < len(bc)
}

// routeFromEdges materialises a route and prices it under strategy.
func (g *Graph) routeFromEdges(edges []int, strategy Strategy) Route {
	r := Route{Hops: make([]Hop, 0, len(edges))}
	var prev *Edge
	for _, idx := range edges {
		e := g.edges[idx]
		r.Hops = append(r.Hops, Hop{
			From:       e.From.Station,
			To:         e.To.Station,
			Connection: e.Connection,
			edge:       idx,
		})
		r.TraversalCost += e.Connection.TravelTime
		r.Weight += e.weight + g.penalties.transition(strategy, prev, e)
		prev = e
	}
	return r
}
