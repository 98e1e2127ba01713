package status

import (
	"time"

	"github.com/signalsfoundry/transit-planner/kb"
)

// Flatten reduces the feed to the entries in force at now. Each entry's
// affected stops become every ordered pair of distinct stops; an entry with
// no affected stops covers the whole line.
func Flatten(reports []LineReport, now time.Time) kb.Overlay {
	var overlay kb.Overlay
	for _, r := range reports {
		for _, d := range r.Details {
			if !d.CurrentAt(now) {
				continue
			}
			overlay = append(overlay, kb.LineStatus{
				Line:     r.Line,
				Severity: d.Severity,
				Reason:   d.Reason,
				Pairs:    affectedPairs(d.AffectedNaptans),
			})
		}
	}
	return overlay
}

func affectedPairs(naptans []string) []kb.StationPair {
	var pairs []kb.StationPair
	for _, from := range naptans {
		for _, to := range naptans {
			if from == to {
				continue
			}
			pairs = append(pairs, kb.StationPair{From: from, To: to})
		}
	}
	return pairs
}
