package model

import (
	"encoding/json"
	"fmt"
)

// Severity is the service status reported for a line, ordered from best to
// worst as the status feed ranks them.
type Severity int

const (
	GoodService Severity = iota
	ReducedService
	MinorDelays
	SevereDelays
	PartSuspended
	Suspended
	PlannedClosure
	PartClosure
	SpecialService
	ServiceClosed
)

var severityNames = [...]string{
	GoodService:    "Good Service",
	ReducedService: "Reduced Service",
	MinorDelays:    "Minor Delays",
	SevereDelays:   "Severe Delays",
	PartSuspended:  "Part Suspended",
	Suspended:      "Suspended",
	PlannedClosure: "Planned Closure",
	PartClosure:    "Part Closure",
	SpecialService: "Special Service",
	ServiceClosed:  "Service Closed",
}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity maps a status-feed description onto a Severity.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return GoodService, fmt.Errorf("unknown status severity %q", name)
}

// IsClosure reports whether the severity means trains are not running on the
// affected section.
func (s Severity) IsClosure() bool {
	switch s {
	case PartSuspended, Suspended, PlannedClosure, PartClosure, ServiceClosed:
		return true
	}
	return false
}

// MarshalJSON encodes the severity as its feed description.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the feed description.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Impact ranks how much a severity disrupts travel, for picking the worse of
// two statuses. Special service is treated as running normally.
func (s Severity) Impact() int {
	switch {
	case s.IsClosure():
		return 4
	case s == SevereDelays:
		return 3
	case s == MinorDelays:
		return 2
	case s == ReducedService:
		return 1
	}
	return 0
}
