package planner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/transit-planner/core"
	"github.com/signalsfoundry/transit-planner/model"
)

// FareEstimator prices a journey. A nil fare with a nil error means no fare
// applies, for example when lookups are disabled.
type FareEstimator interface {
	Estimate(ctx context.Context, q model.FareQuery) (*model.Fare, error)
}

// Journey is one candidate the planner returns.
type Journey struct {
	ID   string
	From *model.Station
	To   *model.Station

	// Seconds is the door-to-door time: ride and interchange time plus any
	// walking legs at either end.
	Seconds      int
	Stations     []*model.Station
	Instructions []Instruction
	Route        core.Route

	departAt time.Time
	status   model.StatusSnapshot
	fareReq  model.FareQuery
	fares    FareEstimator
	fare     fareState
}

type fareState struct {
	once  sync.Once
	done  chan struct{}
	value *model.Fare
	err   error
}

func newJourney(route core.Route, from, to Location, travelcard model.Travelcard, tp TimePlanning, now time.Time, fares FareEstimator) *Journey {
	walkStart := walkingLeg(from, true)
	walkEnd := walkingLeg(to, false)

	j := &Journey{
		ID:           uuid.NewString(),
		From:         from.Station(),
		To:           to.Station(),
		Seconds:      route.TraversalCost,
		Stations:     route.Stations(),
		Instructions: GenerateInstructions(&route, walkStart, walkEnd),
		Route:        route,
		fares:        fares,
	}
	if walkStart != nil {
		j.Seconds += walkStart.Seconds
	}
	if walkEnd != nil {
		j.Seconds += walkEnd.Seconds
	}
	switch {
	case !tp.LeaveAt.IsZero():
		j.departAt = tp.LeaveAt
	case !tp.ArriveBy.IsZero():
		j.departAt = tp.ArriveBy.Add(-j.Duration())
	default:
		j.departAt = now
	}
	j.fare.done = make(chan struct{})
	j.fareReq = j.fareQuery(travelcard)
	return j
}

// Duration is Seconds as a time.Duration.
func (j *Journey) Duration() time.Duration {
	return time.Duration(j.Seconds) * time.Second
}

// Rides returns the ride steps in order.
func (j *Journey) Rides() []Instruction {
	var out []Instruction
	for _, in := range j.Instructions {
		if in.Kind == KindRide {
			out = append(out, in)
		}
	}
	return out
}

// Interchanges is the number of rides minus one, never negative.
func (j *Journey) Interchanges() int {
	n := len(j.Rides()) - 1
	if n < 0 {
		return 0
	}
	return n
}

// RideSeconds sums the time spent on board.
func (j *Journey) RideSeconds() int {
	total := 0
	for _, in := range j.Rides() {
		total += in.Seconds
	}
	return total
}

// WalkingSeconds is everything that is not riding.
func (j *Journey) WalkingSeconds() int {
	return j.Seconds - j.RideSeconds()
}

// WorstSeverity is the worst status among the connections ridden, in the
// feed's ordering, as it stood when the journey was planned.
func (j *Journey) WorstSeverity() model.Severity {
	worst := model.GoodService
	for _, in := range j.Rides() {
		for _, c := range in.Connections {
			if s := j.status.Of(c); s > worst {
				worst = s
			}
		}
	}
	return worst
}

// Zones lists the distinct zones visited, in order of first visit.
func (j *Journey) Zones() []model.Zone {
	seen := make(map[model.Zone]bool)
	var out []model.Zone
	for _, st := range j.Stations {
		if !seen[st.Zone] {
			seen[st.Zone] = true
			out = append(out, st.Zone)
		}
	}
	return out
}

// Equal reports whether both journeys run between the same stations through
// the same station sequence.
func (j *Journey) Equal(other *Journey) bool {
	if j.From != other.From || j.To != other.To || len(j.Stations) != len(other.Stations) {
		return false
	}
	for i := range j.Stations {
		if j.Stations[i] != other.Stations[i] {
			return false
		}
	}
	return true
}

// DepartAt is when the journey starts: the leave-at time, the latest start
// that meets an arrive-by deadline, or the planning time.
func (j *Journey) DepartAt() time.Time {
	return j.departAt
}

// FareQuery is the request the journey sends to the fare estimator.
func (j *Journey) FareQuery() model.FareQuery {
	return j.fareReq
}

func (j *Journey) fareQuery(travelcard model.Travelcard) model.FareQuery {
	q := model.FareQuery{
		Zones:      j.Zones(),
		Travelcard: travelcard,
		DepartAt:   j.departAt,
	}
	rides := j.Rides()
	if j.From != nil {
		line := model.LineWalking
		if len(rides) > 0 {
			line = rides[0].Line
		}
		q.FromNaptan = j.From.NaptanFor(line)
	}
	if j.To != nil {
		line := model.LineWalking
		if len(rides) > 0 {
			line = rides[len(rides)-1].Line
		}
		q.ToNaptan = j.To.NaptanFor(line)
	}
	return q
}

// Fare looks the fare up once and caches the outcome. Concurrent callers
// wait for the same lookup; the first caller's context governs it.
func (j *Journey) Fare(ctx context.Context) (*model.Fare, error) {
	j.fare.once.Do(func() {
		defer close(j.fare.done)
		if j.fares == nil {
			return
		}
		j.fare.value, j.fare.err = j.fares.Estimate(ctx, j.fareReq)
	})
	return j.fare.value, j.fare.err
}

// FareIfReady returns the fare without blocking. ok is false until a lookup
// has finished.
func (j *Journey) FareIfReady() (fare *model.Fare, ok bool) {
	select {
	case <-j.fare.done:
		return j.fare.value, true
	default:
		return nil, false
	}
}

// Satisfies applies the user filters. now is the planning time used for
// arrive-by deadlines.
func (j *Journey) Satisfies(f Filters, hidePoorStatus bool, now time.Time) bool {
	if f.AvoidZoneOne {
		for _, st := range j.Stations {
			if st.Zone.IsZoneOne() {
				return false
			}
		}
	}

	maxChanges := f.MaxChanges
	if maxChanges < 0 {
		maxChanges = 0
	}
	if j.Interchanges() > maxChanges {
		return false
	}

	if hidePoorStatus && j.WorstSeverity() != model.GoodService {
		return false
	}

	if !f.TimePlanning.ArriveBy.IsZero() {
		return f.TimePlanning.ArriveBy.Add(-j.Duration()).After(now)
	}
	return true
}
