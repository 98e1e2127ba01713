package api

import (
	"time"

	"github.com/signalsfoundry/transit-planner/model"
	"github.com/signalsfoundry/transit-planner/planner"
)

// Endpoint kinds accepted in a plan request.
const (
	EndpointStation = "station"
	EndpointPlace   = "place"
	EndpointAddress = "address"
)

// EndpointRequest names one end of a journey. The station is given by code or
// physical-stop code; place and address endpoints add a name and the walk
// to that station.
type EndpointRequest struct {
	Kind        string  `json:"kind,omitempty"`
	Station     int     `json:"station,omitempty"`
	Naptan      string  `json:"naptan,omitempty"`
	Name        string  `json:"name,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	WalkSeconds int     `json:"walk_seconds,omitempty"`
}

// PlanRequest is the body of a journey planning call.
type PlanRequest struct {
	From EndpointRequest `json:"from"`
	To   EndpointRequest `json:"to"`

	AvoidZoneOne bool       `json:"avoid_zone_one,omitempty"`
	MaxChanges   *int       `json:"max_changes,omitempty"`
	LeaveAt      *time.Time `json:"leave_at,omitempty"`
	ArriveBy     *time.Time `json:"arrive_by,omitempty"`

	StatusAware    bool   `json:"status_aware,omitempty"`
	HidePoorStatus bool   `json:"hide_poor_status,omitempty"`
	SortBy         string `json:"sort_by,omitempty"`
	Travelcard     string `json:"travelcard,omitempty"`

	// WaitForFares holds the response until every journey's fare lookup
	// has finished.
	WaitForFares bool `json:"wait_for_fares,omitempty"`
}

// PlanResponse lists the ranked journeys.
type PlanResponse struct {
	PlannedAt      time.Time     `json:"planned_at"`
	Strategies     []string      `json:"strategies"`
	StatusDegraded bool          `json:"status_degraded"`
	Journeys       []JourneyView `json:"journeys"`
}

// StationView is the public form of a station.
type StationView struct {
	Code      int      `json:"code"`
	Name      string   `json:"name"`
	Zone      string   `json:"zone"`
	Lines     []string `json:"lines"`
	Naptans   []string `json:"naptans"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
}

// FareView is the public form of a fare estimate.
type FareView struct {
	Cost          float64 `json:"cost"`
	Type          string  `json:"type"`
	Peak          bool    `json:"peak"`
	AvoidsZoneOne bool    `json:"avoids_zone_one"`
}

// InstructionView is one step of a journey.
type InstructionView struct {
	Kind      string `json:"kind"`
	Line      string `json:"line,omitempty"`
	LineName  string `json:"line_name,omitempty"`
	Direction string `json:"direction,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
	Stations  []int  `json:"stations,omitempty"`
	Seconds   int    `json:"seconds"`
	DoorSide  string `json:"door_side,omitempty"`
}

// JourneyView is one ranked journey.
type JourneyView struct {
	ID             string            `json:"id"`
	From           string            `json:"from"`
	To             string            `json:"to"`
	Seconds        int               `json:"seconds"`
	DepartAt       time.Time         `json:"depart_at"`
	Interchanges   int               `json:"interchanges"`
	WalkingSeconds int               `json:"walking_seconds"`
	WorstStatus    string            `json:"worst_status"`
	Zones          []string          `json:"zones"`
	Stations       []int             `json:"stations"`
	Instructions   []InstructionView `json:"instructions"`
	Fare           *FareView         `json:"fare,omitempty"`
}

// StationSearchRequest looks stations up by name, code or physical-stop code.
type StationSearchRequest struct {
	Query  string `json:"query,omitempty"`
	Naptan string `json:"naptan,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// StationSearchResponse lists matching stations ordered by name.
type StationSearchResponse struct {
	Stations []StationView `json:"stations"`
}

// StatusDetailView is one status entry on a line.
type StatusDetailView struct {
	Severity string   `json:"severity"`
	Reason   string   `json:"reason,omitempty"`
	Stations []string `json:"stations,omitempty"`
}

// LineStatusView is the status of one line.
type LineStatusView struct {
	Line     string             `json:"line"`
	Name     string             `json:"name"`
	Severity string             `json:"severity"`
	Details  []StatusDetailView `json:"details,omitempty"`
}

// LineStatusResponse is the current status board.
type LineStatusResponse struct {
	FetchedAt           time.Time        `json:"fetched_at"`
	Stale               bool             `json:"stale"`
	DegradedConnections int              `json:"degraded_connections"`
	Lines               []LineStatusView `json:"lines"`
}

func stationView(st *model.Station) StationView {
	v := StationView{
		Code:      st.Code,
		Name:      st.Name,
		Zone:      st.Zone.String(),
		Naptans:   append([]string(nil), st.Naptans...),
		Latitude:  st.Location.Lat,
		Longitude: st.Location.Long,
	}
	for _, l := range st.Lines {
		v.Lines = append(v.Lines, string(l))
	}
	return v
}

func journeyView(j *planner.Journey) JourneyView {
	v := JourneyView{
		ID:             j.ID,
		From:           j.From.Name,
		To:             j.To.Name,
		Seconds:        j.Seconds,
		DepartAt:       j.DepartAt(),
		Interchanges:   j.Interchanges(),
		WalkingSeconds: j.WalkingSeconds(),
		WorstStatus:    j.WorstSeverity().String(),
	}
	for _, z := range j.Zones() {
		v.Zones = append(v.Zones, z.String())
	}
	for _, st := range j.Stations {
		v.Stations = append(v.Stations, st.Code)
	}
	for i := range j.Instructions {
		v.Instructions = append(v.Instructions, instructionView(&j.Instructions[i]))
	}
	if fare, ok := j.FareIfReady(); ok && fare != nil {
		v.Fare = &FareView{
			Cost:          fare.Cost,
			Type:          string(fare.Type),
			Peak:          fare.Peak,
			AvoidsZoneOne: fare.AvoidsZoneOne,
		}
	}
	return v
}

func instructionView(in *planner.Instruction) InstructionView {
	v := InstructionView{
		Kind:     in.Kind.String(),
		Seconds:  in.Seconds,
		DoorSide: string(in.DoorSide),
	}
	if in.Kind == planner.KindRide || in.Kind == planner.KindPlatform {
		v.Line = string(in.Line)
		v.LineName = in.Line.DisplayName()
		v.Direction = string(in.Direction)
	}
	if from := in.From(); from != nil {
		v.From = from.Name
	}
	if to := in.To(); to != nil {
		v.To = to.Name
	}
	if in.FromPlace != "" {
		v.From = in.FromPlace
	}
	if in.ToPlace != "" {
		v.To = in.ToPlace
	}
	for _, st := range in.Stations {
		v.Stations = append(v.Stations, st.Code)
	}
	return v
}
