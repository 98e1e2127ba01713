package model

// Line identifies a service line. Values match the identifiers used in the
// topology dataset and the line-status feed.
type Line string

const (
	LineBakerloo         Line = "bakerloo"
	LineCentral          Line = "central"
	LineCircle           Line = "circle"
	LineDistrict         Line = "district"
	LineHammersmithCity  Line = "hammersmith-city"
	LineJubilee          Line = "jubilee"
	LineMetropolitan     Line = "metropolitan"
	LineNorthern         Line = "northern"
	LinePiccadilly       Line = "piccadilly"
	LineVictoria         Line = "victoria"
	LineWaterlooCity     Line = "waterloo-city"
	LineDLR              Line = "dlr"
	LineLondonOverground Line = "london-overground"
	LineTfLRail          Line = "tfl-rail"

	// LineWalking is the sentinel line carried by out-of-station interchanges.
	LineWalking Line = "osi"
)

// StatusLines lists the lines reported by the line-status feed, in feed order.
var StatusLines = []Line{
	LineBakerloo, LineCentral, LineCircle, LineDistrict, LineHammersmithCity,
	LineJubilee, LineMetropolitan, LineNorthern, LinePiccadilly, LineVictoria,
	LineWaterlooCity, LineDLR, LineLondonOverground, LineTfLRail,
}

var lineNames = map[Line]string{
	LineBakerloo:         "Bakerloo",
	LineCentral:          "Central",
	LineCircle:           "Circle",
	LineDistrict:         "District",
	LineHammersmithCity:  "Hammersmith & City",
	LineJubilee:          "Jubilee",
	LineMetropolitan:     "Metropolitan",
	LineNorthern:         "Northern",
	LinePiccadilly:       "Piccadilly",
	LineVictoria:         "Victoria",
	LineWaterlooCity:     "Waterloo & City",
	LineDLR:              "DLR",
	LineLondonOverground: "London Overground",
	LineTfLRail:          "TfL Rail",
	LineWalking:          "Out of Station Interchange",
}

var lineAbbreviations = map[Line]string{
	LineBakerloo:         "BAK",
	LineCentral:          "CEN",
	LineCircle:           "CIR",
	LineDistrict:         "DIS",
	LineHammersmithCity:  "H&C",
	LineJubilee:          "JUB",
	LineMetropolitan:     "MET",
	LineNorthern:         "NOR",
	LinePiccadilly:       "PIC",
	LineVictoria:         "VIC",
	LineWaterlooCity:     "W&C",
	LineDLR:              "DLR",
	LineLondonOverground: "LO",
	LineTfLRail:          "TFL",
	LineWalking:          "OSI",
}

// Known reports whether l is one of the lines the network defines.
func (l Line) Known() bool {
	_, ok := lineNames[l]
	return ok
}

// DisplayName returns the human-facing name, falling back to the raw identifier.
func (l Line) DisplayName() string {
	if name, ok := lineNames[l]; ok {
		return name
	}
	return string(l)
}

// Abbreviation returns a short code for compact itineraries.
func (l Line) Abbreviation() string {
	if abbr, ok := lineAbbreviations[l]; ok {
		return abbr
	}
	return string(l)
}

// IsWalking reports whether l is the out-of-station interchange sentinel.
func (l Line) IsWalking() bool { return l == LineWalking }

// IsRail reports whether the line is operated as national rail, whose stops
// use "910" physical-stop codes rather than the "940" codes of the metro.
func (l Line) IsRail() bool {
	return l == LineLondonOverground || l == LineTfLRail
}

// Direction is the heading of a service, e.g. "Northbound" or "Clockwise".
type Direction string

const (
	Northbound     Direction = "Northbound"
	Southbound     Direction = "Southbound"
	Eastbound      Direction = "Eastbound"
	Westbound      Direction = "Westbound"
	Clockwise      Direction = "Clockwise"
	AntiClockwise  Direction = "Anticlockwise"
	InboundDir     Direction = "Inbound"
	OutboundDir    Direction = "Outbound"
	WalkingHeading Direction = "Direction"
)

// DoorSide records which side the doors open on arrival.
type DoorSide string

const (
	DoorsLeft   DoorSide = "left"
	DoorsRight  DoorSide = "right"
	DoorsBoth   DoorSide = "both"
	DoorsEither DoorSide = "either"
	DoorsNone   DoorSide = "none"
)

// Valid reports whether d is one of the known door sides.
func (d DoorSide) Valid() bool {
	switch d {
	case DoorsLeft, DoorsRight, DoorsBoth, DoorsEither, DoorsNone:
		return true
	}
	return false
}
