// Package testnet provides a small central-London network used by tests
// across the module.
package testnet

import (
	"bytes"
	_ "embed"
	"testing"

	"github.com/signalsfoundry/transit-planner/kb"
)

//go:embed network.json
var topology []byte

// Station codes in the fixture.
const (
	NottingHillGate    = 100
	BondStreet         = 101
	OxfordCircus       = 102
	TottenhamCourtRoad = 103
	Holborn            = 104
	Victoria           = 110
	GreenPark          = 111
	WarrenStreet       = 112
	Euston             = 113
	HighburyIslington  = 121
	Stratford          = 122
	Bank               = 130
	Monument           = 131
	TowerHill          = 132
)

// Topology returns a copy of the fixture JSON.
func Topology() []byte {
	return append([]byte(nil), topology...)
}

// Network loads a fresh copy of the fixture. Each call returns independent
// connection status.
func Network(tb testing.TB) *kb.Network {
	tb.Helper()
	n, err := kb.LoadTopology(bytes.NewReader(topology))
	if err != nil {
		tb.Fatalf("LoadTopology(fixture) error: %v", err)
	}
	return n
}
