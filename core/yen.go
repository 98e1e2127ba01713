package core

import (
	"context"
	"sort"
)

// KShortestPaths returns up to limit loopless routes with distinct station
// sequences from start to goal, cheapest first under strategy (Yen's
// algorithm). Spur searches run on their own scratch, so nothing needs
// undoing when ctx is cancelled.
func (g *Graph) KShortestPaths(ctx context.Context, start, goal *Node, limit int, strategy Strategy) ([]Route, error) {
	if start == nil || goal == nil || start == goal || limit <= 0 {
		return nil, nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	base, err := g.shortestPath(ctx, start, goal, Heuristic, strategy, g.newScratch())
	if err != nil || base == nil {
		return nil, err
	}
	accepted := []Route{*base}
	if len(base.Hops) == 1 && len(start.Station.Lines) == 1 {
		return accepted, nil
	}

	var candidates []Route
	for k := 0; k < len(accepted) && len(accepted) < limit; k++ {
		prev := accepted[k]
		for i := range prev.Hops {
			spur := g.edges[prev.Hops[i].edge].From
			if !spur.Station.IsInterchange() {
				continue
			}

			root := hopEdges(prev.Hops[:i])
			sc := g.newScratch()
			for _, idx := range root {
				sc.disableNode(g.edges[idx].From)
			}
			for _, p := range accepted {
				if len(p.Hops) <= i || !sameEdges(hopEdges(p.Hops[:i]), root) {
					continue
				}
				next := g.edges[p.Hops[i].edge].To
				for _, idx := range spur.edges {
					if g.edges[idx].To == next {
						sc.disableEdge(g, idx)
					}
				}
			}

			spurRoute, err := g.shortestPath(ctx, spur, goal, Heuristic, strategy, sc)
			if err != nil {
				return nil, err
			}
			if spurRoute == nil {
				continue
			}

			edges := make([]int, 0, len(root)+len(spurRoute.Hops))
			edges = append(edges, root...)
			edges = append(edges, hopEdges(spurRoute.Hops)...)
			candidate := g.routeFromEdges(edges, strategy)
			if containsStations(accepted, &candidate) || containsStations(candidates, &candidate) {
				continue
			}
			candidates = append(candidates, candidate)
		}

		if len(candidates) == 0 {
			break
		}
		sort.SliceStable(candidates, func(a, b int) bool { return lessRoute(&candidates[a], &candidates[b]) })
		accepted = append(accepted, candidates[0])
		candidates = candidates[1:]
	}

	sort.SliceStable(accepted, func(a, b int) bool { return lessRoute(&accepted[a], &accepted[b]) })
	return accepted, nil
}

func hopEdges(hops []Hop) []int {
	out := make([]int, len(hops))
	for i, h := range hops {
		out[i] = h.edge
	}
	return out
}

func sameEdges(a, b []int) bool {
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

func containsStations(routes []Route, r *Route) bool {
	for i := range routes {
		if routes[i].SameStations(r) {
			return true
		}
	}
	return false
}
