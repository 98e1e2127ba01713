package kb

import (
	"github.com/signalsfoundry/transit-planner/model"
)

// StationPair is an ordered pair of physical-stop codes affected by a
// disruption.
type StationPair struct {
	From string
	To   string
}

// LineStatus is one severity reported for a line. An empty Pairs list means
// the whole line is affected.
type LineStatus struct {
	Line     model.Line
	Severity model.Severity
	Reason   string
	Pairs    []StationPair
}

// Overlay is the flattened status feed applied to the network in one step.
type Overlay []LineStatus

// ApplyLineStatus sets severity on every connection of line running between
// the stations of an affected pair. When a connection is hit twice the worse
// severity wins. It returns the number of connections changed.
func (n *Network) ApplyLineStatus(line model.Line, severity model.Severity, pairs []StationPair) int {
	n.statusMu.Lock()
	defer n.statusMu.Unlock()
	changed := 0
	n.eachAffected(line, pairs, func(c *model.Connection) {
		if c.Status().Impact() > severity.Impact() {
			return
		}
		c.SetStatus(severity)
		changed++
	})
	return changed
}

// ResolveOverlay works out the severity each connection gets from overlay
// without touching the network. When a connection is hit twice the worse
// severity wins.
func (n *Network) ResolveOverlay(overlay Overlay) model.StatusSnapshot {
	snap := make(model.StatusSnapshot)
	for _, ls := range overlay {
		if ls.Severity == model.GoodService {
			continue
		}
		n.eachAffected(ls.Line, ls.Pairs, func(c *model.Connection) {
			if cur, ok := snap[c]; ok && cur.Impact() > ls.Severity.Impact() {
				return
			}
			snap[c] = ls.Severity
		})
	}
	return snap
}

// ApplyOverlay resets every connection to good service and then applies each
// entry of overlay, so statuses never accumulate across refreshes. It returns
// the number of connections left degraded.
func (n *Network) ApplyOverlay(overlay Overlay) int {
	return n.ApplyStatus(n.ResolveOverlay(overlay))
}

// ApplyStatus replaces the status of every connection with snap in one step.
// It returns the number of connections left degraded.
func (n *Network) ApplyStatus(snap model.StatusSnapshot) int {
	n.statusMu.Lock()
	n.resetStatusLocked()
	for c, sev := range snap {
		c.SetStatus(sev)
	}
	degraded := n.degradedCount()
	n.statusMu.Unlock()

	n.notify(Event{Type: EventStatusApplied, Degraded: degraded})
	return degraded
}

// StatusSnapshot copies the status last applied to the network. It never
// observes an overlay half applied.
func (n *Network) StatusSnapshot() model.StatusSnapshot {
	n.statusMu.Lock()
	defer n.statusMu.Unlock()
	snap := make(model.StatusSnapshot)
	for _, st := range n.Stations() {
		for _, c := range st.AllConnections() {
			if sev := c.Status(); sev != model.GoodService {
				snap[c] = sev
			}
		}
	}
	return snap
}

// ResetStatus puts every connection back to good service.
func (n *Network) ResetStatus() {
	n.statusMu.Lock()
	n.resetStatusLocked()
	n.statusMu.Unlock()
	n.notify(Event{Type: EventStatusApplied})
}

// DegradedConnections counts connections not at good service.
func (n *Network) DegradedConnections() int {
	n.statusMu.Lock()
	defer n.statusMu.Unlock()
	return n.degradedCount()
}

func (n *Network) resetStatusLocked() {
	for _, st := range n.Stations() {
		for _, c := range st.AllConnections() {
			c.SetStatus(model.GoodService)
		}
	}
}

// eachAffected calls fn for every connection of line between the stations of
// pairs, or for every connection of line when pairs is empty. Interchange
// walks are never part of a line.
func (n *Network) eachAffected(line model.Line, pairs []StationPair, fn func(*model.Connection)) {
	if len(pairs) == 0 {
		for _, st := range n.Stations() {
			for _, c := range st.Connections {
				if c.Line == line {
					fn(c)
				}
			}
		}
		return
	}

	for _, p := range pairs {
		from := n.FindStationByNaptan(p.From)
		to := n.FindStationByNaptan(p.To)
		if from == nil || to == nil || from == to {
			continue
		}
		for _, c := range from.ConnectionsTo(to.Code, line) {
			fn(c)
		}
	}
}

func (n *Network) degradedCount() int {
	count := 0
	for _, st := range n.Stations() {
		for _, c := range st.AllConnections() {
			if c.Status() != model.GoodService {
				count++
			}
		}
	}
	return count
}
