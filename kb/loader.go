package kb

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/signalsfoundry/transit-planner/model"
)

// internal JSON shapes – keep them unexported so we're free to evolve them.
type topologyJSON struct {
	Stations []stationJSON `json:"stations"`
}

type stationJSON struct {
	Name         string           `json:"name"`
	Code         int              `json:"ic"`
	Naptans      []string         `json:"naptan"`
	Zone         int              `json:"zone"`
	Lines        []string         `json:"lines"`
	Lat          float64          `json:"lat"`
	Long         float64          `json:"long"`
	MapX         float64          `json:"mapX"`
	MapY         float64          `json:"mapY"`
	Doors        []doorJSON       `json:"doors"`
	Connections  []connectionJSON `json:"connections"`
	Interchanges []osiJSON        `json:"outOfStationInterchanges"`
}

type connectionJSON struct {
	To         int    `json:"to"`
	Line       string `json:"line"`
	Direction  string `json:"direction"`
	TravelTime int    `json:"travelTime"`
	NightTube  bool   `json:"nightTube"`
}

type osiJSON struct {
	To         int `json:"to"`
	TravelTime int `json:"travelTime"`
}

type doorJSON struct {
	Line      string `json:"line"`
	Direction string `json:"direction"`
	Side      string `json:"side"`
}

// LoadTopology reads the station dataset from r and returns an indexed
// Network. Any structural problem is reported as ErrMalformedTopology; the
// caller gets either the whole network or nothing.
func LoadTopology(r io.Reader) (*Network, error) {
	if r == nil {
		return nil, fmt.Errorf("LoadTopology: %w: nil reader", ErrMalformedTopology)
	}

	var payload topologyJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadTopology: %w: decode failed: %v", ErrMalformedTopology, err)
	}
	if len(payload.Stations) == 0 {
		return nil, fmt.Errorf("LoadTopology: %w: no stations", ErrMalformedTopology)
	}

	stations := make([]*model.Station, 0, len(payload.Stations))
	for i, js := range payload.Stations {
		st, err := stationFromJSON(js)
		if err != nil {
			return nil, fmt.Errorf("LoadTopology: station #%d: %w", i, err)
		}
		stations = append(stations, st)
	}

	n, err := NewNetwork(stations)
	if err != nil {
		return nil, fmt.Errorf("LoadTopology: %w", err)
	}
	return n, nil
}

func stationFromJSON(js stationJSON) (*model.Station, error) {
	name := strings.TrimSpace(js.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: station %d has empty name", ErrMalformedTopology, js.Code)
	}
	if len(js.Naptans) == 0 {
		return nil, fmt.Errorf("%w: station %q has no physical-stop codes", ErrMalformedTopology, name)
	}
	zone := model.Zone(js.Zone)
	if !zone.Valid() {
		return nil, fmt.Errorf("%w: station %q has invalid zone %d", ErrMalformedTopology, name, js.Zone)
	}

	st := &model.Station{
		Code:        js.Code,
		Name:        name,
		Naptans:     append([]string(nil), js.Naptans...),
		Zone:        zone,
		Location:    model.Coordinate{Lat: js.Lat, Long: js.Long},
		MapPosition: model.MapPoint{X: js.MapX, Y: js.MapY},
	}

	for _, l := range js.Lines {
		line, err := lineFromString(l)
		if err != nil {
			return nil, fmt.Errorf("station %q: %w", name, err)
		}
		st.Lines = append(st.Lines, line)
	}

	for _, d := range js.Doors {
		side := model.DoorSide(strings.ToLower(d.Side))
		if !side.Valid() {
			return nil, fmt.Errorf("%w: station %q has invalid door side %q", ErrMalformedTopology, name, d.Side)
		}
		st.Doors = append(st.Doors, model.DoorInfo{
			Line:      model.Line(d.Line),
			Direction: model.Direction(d.Direction),
			Side:      side,
		})
	}

	for _, c := range js.Connections {
		line, err := lineFromString(c.Line)
		if err != nil {
			return nil, fmt.Errorf("station %q: %w", name, err)
		}
		if line.IsWalking() {
			return nil, fmt.Errorf("%w: station %q lists a walking interchange as a connection", ErrMalformedTopology, name)
		}
		if c.TravelTime < 0 {
			return nil, fmt.Errorf("%w: station %q has negative travel time to %d", ErrMalformedTopology, name, c.To)
		}
		if c.Direction == "" {
			return nil, fmt.Errorf("%w: station %q has connection to %d without direction", ErrMalformedTopology, name, c.To)
		}
		st.Connections = append(st.Connections, &model.Connection{
			From:         js.Code,
			To:           c.To,
			Line:         line,
			Direction:    model.Direction(c.Direction),
			TravelTime:   c.TravelTime,
			NightService: c.NightTube,
		})
	}

	for _, o := range js.Interchanges {
		if o.TravelTime < 0 {
			return nil, fmt.Errorf("%w: station %q has negative interchange time to %d", ErrMalformedTopology, name, o.To)
		}
		st.Interchanges = append(st.Interchanges, &model.Connection{
			From:         js.Code,
			To:           o.To,
			Line:         model.LineWalking,
			Direction:    model.WalkingHeading,
			TravelTime:   o.TravelTime,
			NightService: true,
		})
	}
	return st, nil
}

func lineFromString(s string) (model.Line, error) {
	line := model.Line(strings.ToLower(strings.TrimSpace(s)))
	if !line.Known() {
		return "", fmt.Errorf("%w: unknown line %q", ErrMalformedTopology, s)
	}
	return line, nil
}
