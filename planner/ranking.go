package planner

import (
	"fmt"
	"sort"
	"strings"
)

// SortKey selects the built-in ranking of results.
type SortKey int

const (
	SortFastest SortKey = iota
	SortFewestChanges
	SortLowestFare
	SortLeastWalking
)

func (k SortKey) String() string {
	switch k {
	case SortFastest:
		return "fastest"
	case SortFewestChanges:
		return "fewest_changes"
	case SortLowestFare:
		return "lowest_fare"
	case SortLeastWalking:
		return "least_walking"
	}
	return fmt.Sprintf("SortKey(%d)", int(k))
}

// ParseSortKey accepts the String form of a key.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fastest":
		return SortFastest, nil
	case "fewest_changes", "fewestchanges":
		return SortFewestChanges, nil
	case "lowest_fare", "lowestfare":
		return SortLowestFare, nil
	case "least_walking", "leastwalking":
		return SortLeastWalking, nil
	}
	return SortFastest, fmt.Errorf("%w: unknown sort key %q", ErrInvalidQuery, s)
}

// Ranking compares two journeys like strings.Compare.
type Ranking func(a, b *Journey) int

// RankingFor returns the ranking for a built-in key. Ties fall back to
// journey time, then interchanges.
func RankingFor(key SortKey) Ranking {
	var primary Ranking
	switch key {
	case SortFewestChanges:
		primary = func(a, b *Journey) int { return compareInts(a.Interchanges(), b.Interchanges()) }
	case SortLowestFare:
		primary = compareFares
	case SortLeastWalking:
		primary = func(a, b *Journey) int { return compareInts(a.WalkingSeconds(), b.WalkingSeconds()) }
	default:
		primary = func(a, b *Journey) int { return compareInts(a.Seconds, b.Seconds) }
	}
	return func(a, b *Journey) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		if c := compareInts(a.Seconds, b.Seconds); c != 0 {
			return c
		}
		return compareInts(a.Interchanges(), b.Interchanges())
	}
}

// compareFares orders by cost; journeys without a fare go last.
func compareFares(a, b *Journey) int {
	fa, _ := a.FareIfReady()
	fb, _ := b.FareIfReady()
	switch {
	case fa == nil && fb == nil:
		return 0
	case fa == nil:
		return 1
	case fb == nil:
		return -1
	case fa.Cost < fb.Cost:
		return -1
	case fa.Cost > fb.Cost:
		return 1
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Sort orders journeys in place; equal journeys keep their order.
func Sort(journeys []*Journey, rank Ranking) {
	sort.SliceStable(journeys, func(i, j int) bool { return rank(journeys[i], journeys[j]) < 0 })
}
