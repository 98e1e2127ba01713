package model

import (
	"fmt"
	"strconv"
)

// Zone is a fare zone. Whole zones use their number; boundary stations use
// the two adjacent digits (12 is the zone 1/2 boundary, 23 the 2/3 boundary and
// so on). Out-of-area zones A, C and F are 100, 102 and 105.
type Zone int

const (
	ZoneOne        Zone = 1
	ZoneOneTwo     Zone = 12
	ZoneTwo        Zone = 2
	ZoneTwoThree   Zone = 23
	ZoneThree      Zone = 3
	ZoneThreeFour  Zone = 34
	ZoneFour       Zone = 4
	ZoneFourFive   Zone = 45
	ZoneFive       Zone = 5
	ZoneFiveSix    Zone = 56
	ZoneSix        Zone = 6
	ZoneSixSeven   Zone = 67
	ZoneSeven      Zone = 7
	ZoneSevenEight Zone = 78
	ZoneEight      Zone = 8
	ZoneEightNine  Zone = 89
	ZoneNine       Zone = 9
	ZoneA          Zone = 100
	ZoneC          Zone = 102
	ZoneF          Zone = 105
)

// Valid reports whether z is one of the defined zones.
func (z Zone) Valid() bool {
	switch {
	case z >= 1 && z <= 9:
		return true
	case z >= 12 && z <= 89:
		return z%11 == 1 && z/10 >= 1 && z/10 <= 8
	case z == ZoneA || z == ZoneC || z == ZoneF:
		return true
	}
	return false
}

// IsZoneOne reports whether the station is charged as central zone 1. The 1/2
// boundary is not.
func (z Zone) IsZoneOne() bool { return z == ZoneOne }

// Rank orders zones outward from the centre: whole zones rank at their
// number, boundaries halfway between, out-of-area zones beyond zone 9.
func (z Zone) Rank() float64 {
	switch {
	case z >= 1 && z <= 9:
		return float64(z)
	case z >= 12 && z <= 89:
		return float64(z/10) + 0.5
	case z >= 100:
		return 10 + float64(z-100)
	}
	return 0
}

func (z Zone) String() string {
	switch {
	case z == ZoneA:
		return "A"
	case z == ZoneC:
		return "C"
	case z == ZoneF:
		return "F"
	case z >= 12 && z <= 89:
		return fmt.Sprintf("%d/%d", z/10, z%10)
	}
	return strconv.Itoa(int(z))
}
