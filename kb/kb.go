package kb

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/signalsfoundry/transit-planner/model"
)

var (
	// ErrStationNotFound is returned when a station code or physical-stop code is unknown.
	ErrStationNotFound = errors.New("station not found")
	// ErrMalformedTopology wraps every topology validation failure.
	ErrMalformedTopology = errors.New("malformed topology")
)

// EventType indicates what kind of change happened in the network.
type EventType int

const (
	EventStatusApplied EventType = iota
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type     EventType
	Degraded int // connections not at good service after the change
}

type subscription struct {
	id int
	fn func(Event)
}

// Network is the in-memory, thread-safe store of stations. Topology is fixed
// once constructed; only connection status changes afterwards.
type Network struct {
	mu sync.RWMutex
	// statusMu serialises overlay application so two overlays never interleave.
	statusMu sync.Mutex

	stations map[int]*model.Station
	ordered  []*model.Station
	byNaptan map[string]*model.Station

	subs   []subscription
	nextID int
}

// NewNetwork indexes the given stations. Codes and physical-stop codes must be
// unique and every connection must target a known station.
func NewNetwork(stations []*model.Station) (*Network, error) {
	n := &Network{
		stations: make(map[int]*model.Station, len(stations)),
		byNaptan: make(map[string]*model.Station),
	}
	for _, st := range stations {
		if st == nil {
			continue
		}
		if _, exists := n.stations[st.Code]; exists {
			return nil, fmt.Errorf("%w: station with code %d already exists", ErrMalformedTopology, st.Code)
		}
		n.stations[st.Code] = st
		n.ordered = append(n.ordered, st)
		for _, code := range st.Naptans {
			if other, exists := n.byNaptan[code]; exists {
				return nil, fmt.Errorf("%w: physical-stop code %q used by %d and %d", ErrMalformedTopology, code, other.Code, st.Code)
			}
			n.byNaptan[code] = st
		}
	}
	for _, st := range n.ordered {
		for _, c := range st.AllConnections() {
			if _, ok := n.stations[c.To]; !ok {
				return nil, fmt.Errorf("%w: station %d connects to unknown station %d on %s", ErrMalformedTopology, st.Code, c.To, c.Line)
			}
		}
	}
	sort.Slice(n.ordered, func(i, j int) bool { return n.ordered[i].Code < n.ordered[j].Code })
	return n, nil
}

// FindStation returns the station with the given code, or nil if not found.
func (n *Network) FindStation(code int) *model.Station {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stations[code]
}

// FindStationByNaptan returns the station owning the physical-stop code, or nil.
func (n *Network) FindStationByNaptan(code string) *model.Station {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.byNaptan[code]
}

// Station is like FindStation but reports a missing code as ErrStationNotFound.
func (n *Network) Station(code int) (*model.Station, error) {
	if st := n.FindStation(code); st != nil {
		return st, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrStationNotFound, code)
}

// Stations returns a snapshot slice of all stations ordered by code.
func (n *Network) Stations() []*model.Station {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]*model.Station(nil), n.ordered...)
}

// Len returns the number of stations.
func (n *Network) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.ordered)
}

// SearchStations returns stations whose name contains text, ignoring case and
// punctuation. Results are ordered by name.
func (n *Network) SearchStations(text string) []*model.Station {
	needle := normalizeName(text)
	if needle == "" {
		return nil
	}
	n.mu.RLock()
	var res []*model.Station
	for _, st := range n.ordered {
		if strings.Contains(normalizeName(st.Name), needle) {
			res = append(res, st)
		}
	}
	n.mu.RUnlock()

	sort.SliceStable(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Subscribe registers a callback for network events. It returns an unsubscribe function.
func (n *Network) Subscribe(fn func(Event)) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.subs = append(n.subs, subscription{id: id, fn: fn})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, s := range n.subs {
			if s.id == id {
				n.subs = append(n.subs[:i], n.subs[i+1:]...)
				return
			}
		}
	}
}

func (n *Network) notify(ev Event) {
	n.mu.RLock()
	subs := make([]func(Event), 0, len(n.subs))
	for _, s := range n.subs {
		subs = append(subs, s.fn)
	}
	n.mu.RUnlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, fn := range subs {
		fn(ev)
	}
}
