package core

import (
	"math"

	"github.com/signalsfoundry/transit-planner/model"
)

// Strategy selects how interchanges and zone changes are priced.
type Strategy int

const (
	FewestChanges Strategy = iota
	Fastest
	LowestFare
)

func (s Strategy) String() string {
	switch s {
	case FewestChanges:
		return "fewest_changes"
	case Fastest:
		return "fastest"
	case LowestFare:
		return "lowest_fare"
	}
	return "unknown"
}

// Mode selects plain Dijkstra or goal-biased search.
type Mode int

const (
	Plain Mode = iota
	Heuristic
)

// Penalties tunes edge weighting. Multipliers scale a connection's travel
// time; the remaining values are added per traversal. Keep the ordering
// closure > interchange > walking > heuristic scale or routes degrade.
type Penalties struct {
	Closure        float64
	SevereDelays   float64
	MinorDelays    float64
	ReducedService float64
	Walking        float64

	Interchange        float64 // fewest-changes strategy
	FastestInterchange float64 // fastest strategy
	ZoneReentry        float64 // lowest-fare strategy

	HeuristicScale float64
}

// DefaultPenalties returns the tuned production values.
func DefaultPenalties() Penalties {
	return Penalties{
		Closure:            1000,
		SevereDelays:       5,
		MinorDelays:        3,
		ReducedService:     2,
		Walking:            10,
		Interchange:        10000,
		FastestInterchange: 10000,
		ZoneReentry:        10000,
		HeuristicScale:     100,
	}
}

// normalized clamps multipliers to at least 1 and additive terms to at least
// 0 so weights never fall below travel time.
func (p Penalties) normalized() Penalties {
	atLeastOne := func(v float64) float64 {
		if v < 1 || math.IsNaN(v) {
			return 1
		}
		return v
	}
	nonNegative := func(v float64) float64 {
		if v < 0 || math.IsNaN(v) {
			return 0
		}
		return v
	}
	p.Closure = atLeastOne(p.Closure)
	p.SevereDelays = atLeastOne(p.SevereDelays)
	p.MinorDelays = atLeastOne(p.MinorDelays)
	p.ReducedService = atLeastOne(p.ReducedService)
	p.Walking = atLeastOne(p.Walking)
	p.Interchange = nonNegative(p.Interchange)
	p.FastestInterchange = nonNegative(p.FastestInterchange)
	p.ZoneReentry = nonNegative(p.ZoneReentry)
	p.HeuristicScale = nonNegative(p.HeuristicScale)
	return p
}

// weigh applies the severity multiplier and then the walking multiplier.
func (p Penalties) weigh(c *model.Connection, severity model.Severity) float64 {
	w := float64(c.TravelTime)
	switch {
	case severity.IsClosure():
		w *= p.Closure
	case severity == model.SevereDelays:
		w *= p.SevereDelays
	case severity == model.MinorDelays:
		w *= p.MinorDelays
	case severity == model.ReducedService:
		w *= p.ReducedService
	}
	if c.IsWalking() {
		w *= p.Walking
	}
	return w
}

// transition is the strategy-dependent cost of taking next straight after prev.
func (p Penalties) transition(strategy Strategy, prev, next *Edge) float64 {
	if prev == nil {
		return 0
	}
	switch strategy {
	case FewestChanges, Fastest:
		if changesService(prev.Connection, next.Connection) {
			if strategy == Fastest {
				return p.FastestInterchange
			}
			return p.Interchange
		}
	case LowestFare:
		if prev.From.Station.Zone.Rank() > next.To.Station.Zone.Rank() {
			return p.ZoneReentry
		}
	}
	return 0
}

func changesService(a, b *model.Connection) bool {
	return a.Line != b.Line || a.Direction != b.Direction
}

// ManhattanDistance is |Δlat| + |Δlong| in degrees. It only guides search.
func ManhattanDistance(a, b *model.Station) float64 {
	return math.Abs(a.Location.Lat-b.Location.Lat) + math.Abs(a.Location.Long-b.Location.Long)
}
