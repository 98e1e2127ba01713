package core

import (
	"container/heap"
	"context"
)

// label is one entry of the search arena: the node reached, the edge used to
// arrive (-1 at the start) and the parent label.
type label struct {
	node   int
	edge   int
	parent int
	cost   float64
}

type frontierItem struct {
	label int
	cost  float64
}

// frontier is a min-heap on cost; ties go to the earlier label so searches
// are deterministic.
type frontier []frontierItem

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].cost != f[j].cost {
		return f[i].cost < f[j].cost
	}
	return f[i].label < f[j].label
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x interface{}) {
	*f = append(*f, x.(frontierItem))
}

func (f *frontier) Pop() interface{} {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// scratch holds the per-search edge flags. Each search gets its own, so
// concurrent searches over one graph never see each other's state.
type scratch struct {
	visited  []bool // settled edges and the reverse edges they suppress
	disabled []bool // edges removed for this search only
}

func (g *Graph) newScratch() *scratch {
	return &scratch{
		visited:  make([]bool, len(g.edges)),
		disabled: make([]bool, len(g.edges)),
	}
}

// disableNode removes every edge into or out of n for this search.
func (s *scratch) disableNode(n *Node) {
	for _, idx := range n.edges {
		s.disabled[idx] = true
	}
	for _, idx := range n.incoming {
		s.disabled[idx] = true
	}
}

// disableEdge removes an edge and its reverse edges for this search.
func (s *scratch) disableEdge(g *Graph, idx int) {
	s.disabled[idx] = true
	for _, r := range g.edges[idx].reverse {
		s.disabled[r] = true
	}
}

// ShortestPath finds the cheapest route from start to goal under strategy.
// A nil route with a nil error means no route exists; an error is only
// returned when ctx is cancelled. start == goal needs no route.
func (g *Graph) ShortestPath(ctx context.Context, start, goal *Node, mode Mode, strategy Strategy) (*Route, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.shortestPath(ctx, start, goal, mode, strategy, g.newScratch())
}

// shortestPath is a label-setting search over arriving edges, since the
// interchange and zone penalties depend on the edge used to reach a node.
// Settling an edge also suppresses its reverse edges, which stops A->B->A
// backtracking but not longer cycles. Labels may still walk round a cycle, but
// the label that first reached the repeated station always settles the way out
// more cheaply, so returned routes are loopless while weights stay positive.
func (g *Graph) shortestPath(ctx context.Context, start, goal *Node, mode Mode, strategy Strategy, sc *scratch) (*Route, error) {
	if start == nil || goal == nil || start == goal {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	labels := []label{{node: start.index, edge: -1, parent: -1}}
	pq := &frontier{{label: 0, cost: 0}}

	for pq.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := heap.Pop(pq).(frontierItem)
		cur := labels[item.label]

		var prev *Edge
		if cur.edge >= 0 {
			if sc.visited[cur.edge] {
				continue
			}
			prev = g.edges[cur.edge]
			sc.visited[cur.edge] = true
			for _, r := range prev.reverse {
				sc.visited[r] = true
			}
			if cur.node == goal.index {
				route := g.routeFromEdges(trace(labels, item.label), strategy)
				return &route, nil
			}
		}

		for _, idx := range g.nodes[cur.node].edges {
			e := g.edges[idx]
			if !e.active || sc.disabled[idx] || sc.visited[idx] {
				continue
			}
			cost := cur.cost + e.weight + g.penalties.transition(strategy, prev, e)
			if mode == Heuristic {
				cost += ManhattanDistance(e.To.Station, goal.Station) * g.penalties.HeuristicScale
			}
			labels = append(labels, label{node: e.To.index, edge: idx, parent: item.label, cost: cost})
			heap.Push(pq, frontierItem{label: len(labels) - 1, cost: cost})
		}
	}
	return nil, nil
}

// trace walks parent indices back to the start and returns the edges in
// travel order.
func trace(labels []label, at int) []int {
	var edges []int
	for i := at; labels[i].edge >= 0; i = labels[i].parent {
		edges = append(edges, labels[i].edge)
	}
	for l, r := 0, len(edges)-1; l < r; l, r = l+1, r-1 {
		edges[l], edges[r] = edges[r], edges[l]
	}
	return edges
}
