package planner

import (
	"github.com/signalsfoundry/transit-planner/core"
	"github.com/signalsfoundry/transit-planner/model"
)

// InstructionKind identifies the step a passenger takes.
type InstructionKind int

const (
	KindWalking InstructionKind = iota
	KindPlatform
	KindRide
	KindExit
)

func (k InstructionKind) String() string {
	switch k {
	case KindWalking:
		return "walking"
	case KindPlatform:
		return "platform"
	case KindRide:
		return "ride"
	case KindExit:
		return "exit"
	}
	return "unknown"
}

// Instruction is one itinerary step.
//
// Platform and exit steps name a single station. A ride lists every station
// it calls at, start first, with the connections used between them. A walking
// step covers either an interchange between two stations or the leg between
// a place and its station.
type Instruction struct {
	Kind        InstructionKind
	Line        model.Line
	Direction   model.Direction
	Stations    []*model.Station
	Connections []*model.Connection
	Seconds     int

	// Exit only: the side the doors open on arrival.
	DoorSide model.DoorSide

	// Walking legs to or from a place.
	FromPlace string
	ToPlace   string
}

// From returns the first station of the step.
func (in *Instruction) From() *model.Station {
	if len(in.Stations) == 0 {
		return nil
	}
	return in.Stations[0]
}

// To returns the last station of the step.
func (in *Instruction) To() *model.Station {
	if len(in.Stations) == 0 {
		return nil
	}
	return in.Stations[len(in.Stations)-1]
}

// run is a maximal stretch of hops on the same line and direction.
type run struct {
	hops []core.Hop
}

func (r run) connection() *model.Connection { return r.hops[0].Connection }
func (r run) walking() bool                 { return r.connection().IsWalking() }

func (r run) stations() []*model.Station {
	out := make([]*model.Station, 0, len(r.hops)+1)
	out = append(out, r.hops[0].From)
	for _, h := range r.hops {
		out = append(out, h.To)
	}
	return out
}

func (r run) connections() []*model.Connection {
	out := make([]*model.Connection, len(r.hops))
	for i, h := range r.hops {
		out[i] = h.Connection
	}
	return out
}

func (r run) seconds() int {
	total := 0
	for _, h := range r.hops {
		total += h.Connection.TravelTime
	}
	return total
}

func splitRuns(hops []core.Hop) []run {
	var runs []run
	for _, h := range hops {
		if n := len(runs); n > 0 {
			last := runs[n-1].connection()
			if last.Line == h.Connection.Line && last.Direction == h.Connection.Direction {
				runs[n-1].hops = append(runs[n-1].hops, h)
				continue
			}
		}
		runs = append(runs, run{hops: []core.Hop{h}})
	}
	return runs
}

// GenerateInstructions turns a route into the passenger itinerary:
// [walk] platform, ride, (platform, ride)*, exit [walk]. A walking
// interchange becomes an exit followed by a walk, and the next ride gets its
// own platform step. Either walking leg may be nil.
func GenerateInstructions(route *core.Route, walkStart, walkEnd *Instruction) []Instruction {
	var out []Instruction
	if walkStart != nil {
		out = append(out, *walkStart)
	}
	if route == nil || len(route.Hops) == 0 {
		if walkEnd != nil {
			out = append(out, *walkEnd)
		}
		return out
	}

	runs := splitRuns(route.Hops)
	for i, r := range runs {
		conn := r.connection()
		stations := r.stations()
		if r.walking() {
			doors := model.DoorsNone
			if i > 0 && !runs[i-1].walking() {
				prev := runs[i-1].hops[len(runs[i-1].hops)-1].Connection
				doors = stations[0].DoorSide(prev.Line, prev.Direction)
			}
			out = append(out,
				Instruction{
					Kind:      KindExit,
					Line:      conn.Line,
					Direction: conn.Direction,
					Stations:  stations[:1],
					DoorSide:  doors,
				},
				Instruction{
					Kind:        KindWalking,
					Line:        conn.Line,
					Direction:   conn.Direction,
					Stations:    stations,
					Connections: r.connections(),
					Seconds:     r.seconds(),
					FromPlace:   stations[0].Name,
					ToPlace:     stations[len(stations)-1].Name,
				},
			)
			continue
		}
		out = append(out,
			Instruction{
				Kind:      KindPlatform,
				Line:      conn.Line,
				Direction: conn.Direction,
				Stations:  stations[:1],
			},
			Instruction{
				Kind:        KindRide,
				Line:        conn.Line,
				Direction:   conn.Direction,
				Stations:    stations,
				Connections: r.connections(),
				Seconds:     r.seconds(),
			},
		)
	}

	if last := runs[len(runs)-1]; !last.walking() {
		conn := last.hops[len(last.hops)-1].Connection
		end := last.hops[len(last.hops)-1].To
		out = append(out, Instruction{
			Kind:      KindExit,
			Line:      conn.Line,
			Direction: conn.Direction,
			Stations:  []*model.Station{end},
			DoorSide:  end.DoorSide(conn.Line, conn.Direction),
		})
	}

	if walkEnd != nil {
		out = append(out, *walkEnd)
	}
	return out
}
