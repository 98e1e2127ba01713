package model

import (
	"fmt"
	"time"
)

// Travelcard is the passenger category used for fare lookups. Values are the
// passengerType identifiers of the fare service.
type Travelcard string

const (
	TravelcardAdult         Travelcard = "Adult"
	TravelcardApprentice    Travelcard = "Apprentice"
	TravelcardRailcard      Travelcard = "Railcard"
	TravelcardJobcentrePlus Travelcard = "JobcentrePlus"
	TravelcardStudent18Plus Travelcard = "Student 18+"
	TravelcardAge16To18     Travelcard = "Age16To18"
	TravelcardAge11To15     Travelcard = "Age11To15"
	TravelcardAge5To10      Travelcard = "Age5To10"
)

// ParseTravelcard validates a passenger category name.
func ParseTravelcard(s string) (Travelcard, error) {
	switch t := Travelcard(s); t {
	case TravelcardAdult, TravelcardApprentice, TravelcardRailcard, TravelcardJobcentrePlus,
		TravelcardStudent18Plus, TravelcardAge16To18, TravelcardAge11To15, TravelcardAge5To10:
		return t, nil
	}
	return "", fmt.Errorf("unknown travelcard %q", s)
}

// FareType is the ticket type of a fare row.
type FareType string

const (
	FarePayAsYouGo FareType = "Pay as you go"
	FareCashSingle FareType = "CashSingle"
)

// Fare is a single priced fare for a journey.
type Fare struct {
	Cost          float64
	Type          FareType
	Peak          bool
	AvoidsZoneOne bool
}

// FareQuery is what the routing side knows when it asks for a fare.
type FareQuery struct {
	FromNaptan string
	ToNaptan   string
	Zones      []Zone
	Travelcard Travelcard
	DepartAt   time.Time
}

// IncludesZoneOne reports whether any traversed zone is zone 1.
func (q FareQuery) IncludesZoneOne() bool {
	for _, z := range q.Zones {
		if z.IsZoneOne() {
			return true
		}
	}
	return false
}
