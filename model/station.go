package model

import (
	"strings"
	"sync/atomic"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat  float64
	Long float64
}

// MapPoint is a position on the schematic network map canvas.
type MapPoint struct {
	X float64
	Y float64
}

// DoorInfo records the door side for arrivals on a line in a direction.
type DoorInfo struct {
	Line      Line
	Direction Direction
	Side      DoorSide
}

// Connection is a directed link owned by its origin station. Out-of-station
// interchanges are connections on LineWalking with the WalkingHeading
// direction.
type Connection struct {
	From       int
	To         int
	Line       Line
	Direction  Direction
	TravelTime int // seconds

	// NightService marks connections that keep running during the overnight
	// window. Walking interchanges are always available.
	NightService bool

	status atomic.Int32
}

// Status returns the severity currently applied to the connection.
func (c *Connection) Status() Severity {
	return Severity(c.status.Load())
}

// SetStatus replaces the severity applied to the connection.
func (c *Connection) SetStatus(s Severity) {
	c.status.Store(int32(s))
}

// IsWalking reports whether this is an out-of-station interchange.
func (c *Connection) IsWalking() bool { return c.Line.IsWalking() }

// RunsOvernight reports whether the connection is usable in the night window.
func (c *Connection) RunsOvernight() bool {
	return c.NightService || c.IsWalking()
}

// Station is a node of the transit network. Everything but connection
// status is fixed after load.
type Station struct {
	Code        int
	Name        string
	Naptans     []string
	Zone        Zone
	Lines       []Line
	Location    Coordinate
	MapPosition MapPoint
	Doors       []DoorInfo

	Connections  []*Connection
	Interchanges []*Connection
}

// ServesLine reports whether the station is on line l.
func (s *Station) ServesLine(l Line) bool {
	for _, line := range s.Lines {
		if line == l {
			return true
		}
	}
	return false
}

// IsInterchange reports whether passengers can change service here, either
// between lines or by walking to another station.
func (s *Station) IsInterchange() bool {
	return len(s.Lines)+len(s.Interchanges) > 1
}

// AllConnections returns direct connections followed by walking interchanges.
func (s *Station) AllConnections() []*Connection {
	out := make([]*Connection, 0, len(s.Connections)+len(s.Interchanges))
	out = append(out, s.Connections...)
	return append(out, s.Interchanges...)
}

// ConnectionsTo returns every connection from s to the station with code on
// line l. Parallel services in different directions are all returned.
func (s *Station) ConnectionsTo(code int, l Line) []*Connection {
	var out []*Connection
	for _, c := range s.AllConnections() {
		if c.To == code && c.Line == l {
			out = append(out, c)
		}
	}
	return out
}

// DoorSide reports which side doors open for arrivals on line in direction.
func (s *Station) DoorSide(line Line, direction Direction) DoorSide {
	for _, d := range s.Doors {
		if d.Line == line && d.Direction == direction {
			return d.Side
		}
	}
	return DoorsNone
}

// HasNaptan reports whether code is one of the station's physical-stop codes.
func (s *Station) HasNaptan(code string) bool {
	for _, n := range s.Naptans {
		if n == code {
			return true
		}
	}
	return false
}

// NaptanFor picks the physical-stop code used for fare lookups when boarding
// or alighting line l: rail lines prefer a "910" code, everything else a "940"
// code, falling back to the first code.
func (s *Station) NaptanFor(l Line) string {
	if len(s.Naptans) == 0 {
		return ""
	}
	prefix := "940"
	if l.IsRail() {
		prefix = "910"
	}
	for _, n := range s.Naptans {
		if strings.Contains(n, prefix) {
			return n
		}
	}
	return s.Naptans[0]
}

// StatusSnapshot holds the severity of every degraded connection at one
// instant. Connections missing from it run a good service, and so does every
// connection of a nil snapshot.
type StatusSnapshot map[*Connection]Severity

// Of returns the severity recorded for c.
func (s StatusSnapshot) Of(c *Connection) Severity {
	if sev, ok := s[c]; ok {
		return sev
	}
	return GoodService
}
