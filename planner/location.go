package planner

import (
	"github.com/signalsfoundry/transit-planner/model"
)

// Location is one end of a journey. It is resolved to a station before any
// routing happens; the variants differ only in whether a walk is needed to
// reach that station.
type Location interface {
	// Name is the label shown for this end of the journey.
	Name() string
	// Station is the station the journey starts or ends at.
	Station() *model.Station
	// Walk returns the walking time in seconds between the location and its
	// station, and whether a walking leg applies at all.
	Walk() (seconds int, ok bool)

	isLocation()
}

// StationLocation is a journey end at a station itself.
type StationLocation struct {
	At *model.Station
}

func (l StationLocation) Name() string {
	if l.At == nil {
		return ""
	}
	return l.At.Name
}

func (l StationLocation) Station() *model.Station { return l.At }
func (StationLocation) Walk() (int, bool)         { return 0, false }
func (StationLocation) isLocation()               {}

// PointOfInterest is a named place served by a nearby station.
type PointOfInterest struct {
	Title       string
	Coordinate  model.Coordinate
	Nearest     *model.Station
	WalkSeconds int
}

func (l PointOfInterest) Name() string            { return l.Title }
func (l PointOfInterest) Station() *model.Station { return l.Nearest }
func (l PointOfInterest) Walk() (int, bool)       { return l.WalkSeconds, true }
func (PointOfInterest) isLocation()               {}

// StreetAddress is an arbitrary address resolved to its nearest station.
type StreetAddress struct {
	Address     string
	Coordinate  model.Coordinate
	Nearest     *model.Station
	WalkSeconds int
}

func (l StreetAddress) Name() string            { return l.Address }
func (l StreetAddress) Station() *model.Station { return l.Nearest }
func (l StreetAddress) Walk() (int, bool)       { return l.WalkSeconds, true }
func (StreetAddress) isLocation()               {}

// walkingLeg builds the optional walking instruction between a location and
// its station. toStation is true for the walk at the start of a journey.
func walkingLeg(loc Location, toStation bool) *Instruction {
	seconds, ok := loc.Walk()
	if !ok || loc.Station() == nil {
		return nil
	}
	if seconds < 0 {
		seconds = 0
	}
	in := &Instruction{
		Kind:     KindWalking,
		Stations: []*model.Station{loc.Station()},
		Seconds:  seconds,
	}
	if toStation {
		in.FromPlace = loc.Name()
		in.ToPlace = loc.Station().Name
	} else {
		in.FromPlace = loc.Station().Name
		in.ToPlace = loc.Name()
	}
	return in
}
