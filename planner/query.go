package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/transit-planner/model"
)

// ErrInvalidQuery is returned when a query cannot be planned at all.
var ErrInvalidQuery = errors.New("invalid query")

// DefaultMaxChanges is the interchange limit used by DefaultFilters.
const DefaultMaxChanges = 3

// TimePlanning carries the optional departure or arrival constraint. Zero
// values mean unset. LeaveAt only sets the fare departure time; ArriveBy
// also filters journeys that cannot make it.
type TimePlanning struct {
	LeaveAt  time.Time
	ArriveBy time.Time
}

// Filters restrict which journeys are returned.
type Filters struct {
	AvoidZoneOne bool
	MaxChanges   int
	TimePlanning TimePlanning
}

// DefaultFilters allows zone 1 and up to three changes.
func DefaultFilters() Filters {
	return Filters{MaxChanges: DefaultMaxChanges}
}

// Preferences are per-user settings that shape a query.
type Preferences struct {
	// StatusAware applies the current line status to edge weights.
	StatusAware bool
	// HidePoorStatus drops journeys riding any line without good service.
	HidePoorStatus bool
	SortKey        SortKey
	Travelcard     model.Travelcard
}

// Query is a single planning request.
type Query struct {
	From        Location
	To          Location
	Filters     Filters
	Preferences Preferences

	// Progress, if set, is called as planning moves through its phases. It
	// is never called concurrently.
	Progress func(Phase)
}

func (q Query) validate() error {
	if q.From == nil || q.From.Station() == nil {
		return fmt.Errorf("%w: origin has no station", ErrInvalidQuery)
	}
	if q.To == nil || q.To.Station() == nil {
		return fmt.Errorf("%w: destination has no station", ErrInvalidQuery)
	}
	tp := q.Filters.TimePlanning
	if !tp.LeaveAt.IsZero() && !tp.ArriveBy.IsZero() {
		return fmt.Errorf("%w: leave-at and arrive-by are exclusive", ErrInvalidQuery)
	}
	return nil
}

// Phase is a step of planning reported through Query.Progress.
type Phase int

const (
	PhaseStarted Phase = iota
	PhaseStatusApplied
	PhaseFewestChangesFound
	PhaseFastestFound
	PhaseLowestFareFound
	PhaseApplyingFilters
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseStarted:
		return "started"
	case PhaseStatusApplied:
		return "status_applied"
	case PhaseFewestChangesFound:
		return "fewest_changes_found"
	case PhaseFastestFound:
		return "fastest_found"
	case PhaseLowestFareFound:
		return "lowest_fare_found"
	case PhaseApplyingFilters:
		return "applying_filters"
	case PhaseCompleted:
		return "completed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}
