package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/transit-planner/model"
	"github.com/signalsfoundry/transit-planner/timectrl"
)

// ErrUnknownStation is returned when a connection references a station that
// was not given to NewGraph.
var ErrUnknownStation = errors.New("unknown station")

// Node wraps exactly one station.
type Node struct {
	Station *model.Station

	index    int
	edges    []int // outgoing edge indices
	incoming []int
}

// Edges returns the indices of the node's outgoing edges.
func (n *Node) Edges() []int { return n.edges }

// Edge is a directed graph edge derived from one connection. Weight and
// activation are recomputed by Reset; search-time flags never live here.
type Edge struct {
	Connection *model.Connection
	From       *Node
	To         *Node

	index   int
	weight  float64
	active  bool
	reverse []int // edges from To back to From
}

// Weight is the traversal weight computed by the last Reset.
func (e *Edge) Weight() float64 { return e.weight }

// Active reports whether the edge takes part in searches.
func (e *Edge) Active() bool { return e.active }

// Index is the edge's position in the graph's edge table.
func (e *Edge) Index() int { return e.index }

// Graph is a weighted directed multigraph with one node per station and one
// edge per connection, walking interchanges included. Searches only read the
// graph; Reset is the single writer.
type Graph struct {
	mu sync.RWMutex

	nodes  []*Node
	byCode map[int]*Node
	edges  []*Edge

	penalties Penalties
}

// GraphOption customises a Graph.
type GraphOption func(*Graph)

// WithPenalties overrides the default cost penalties.
func WithPenalties(p Penalties) GraphOption {
	return func(g *Graph) {
		g.penalties = p.normalized()
	}
}

// NewGraph builds the graph in O(stations + connections). Every edge starts
// active at its base travel time; call Reset to apply status and time of day.
func NewGraph(stations []*model.Station, opts ...GraphOption) (*Graph, error) {
	g := &Graph{
		byCode:    make(map[int]*Node, len(stations)),
		penalties: DefaultPenalties(),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, st := range stations {
		if st == nil {
			continue
		}
		if _, exists := g.byCode[st.Code]; exists {
			return nil, fmt.Errorf("NewGraph: duplicate station %d", st.Code)
		}
		node := &Node{Station: st, index: len(g.nodes)}
		g.nodes = append(g.nodes, node)
		g.byCode[st.Code] = node
	}

	for _, from := range g.nodes {
		for _, conn := range from.Station.AllConnections() {
			to, ok := g.byCode[conn.To]
			if !ok {
				return nil, fmt.Errorf("NewGraph: %w: %d referenced by %d on %s", ErrUnknownStation, conn.To, from.Station.Code, conn.Line)
			}
			e := &Edge{
				Connection: conn,
				From:       from,
				To:         to,
				index:      len(g.edges),
				weight:     float64(conn.TravelTime),
				active:     true,
			}
			g.edges = append(g.edges, e)
			from.edges = append(from.edges, e.index)
			to.incoming = append(to.incoming, e.index)
		}
	}

	for _, e := range g.edges {
		for _, idx := range e.To.edges {
			if g.edges[idx].To == e.From {
				e.reverse = append(e.reverse, idx)
			}
		}
	}
	return g, nil
}

// Find returns the node for a station code, or nil.
func (g *Graph) Find(code int) *Node {
	return g.byCode[code]
}

// Edges returns the edge table. Callers must not modify the edges.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// Edge returns the edge with index i.
func (g *Graph) Edge(i int) *Edge {
	return g.edges[i]
}

// Penalties returns the penalties in effect.
func (g *Graph) Penalties() Penalties {
	return g.penalties
}

// Reset recomputes every edge's weight and activation for time at, weighting
// each connection by its severity in status. A nil status weights every line
// as if running a good service. The snapshot belongs to the caller's query, so
// later changes to the network never leak into a search already under way.
func (g *Graph) Reset(at time.Time, status model.StatusSnapshot) {
	night := timectrl.InNightServiceWindow(at)

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.edges {
		e.weight = g.penalties.weigh(e.Connection, status.Of(e.Connection))
		e.active = !night || e.Connection.RunsOvernight()
	}
}
