package actors

import (
	"sync"

	"github.com/nerrad567/khome-core/internal/inventory"
)

// Mapping is the value translation table actors carry under data "map":
// a list of units keyed by their "in" value. A signal matching a unit's
// "in" may be rewritten to the unit's "out" and redirected to the
// unit's target.
//
// A Mapping is immutable once built. Config edits build a fresh table
// and swap the actor's pointer, so in-flight lookups keep reading a
// consistent one.
type Mapping struct {
	units map[string]inventory.Config
}

// NewMapping builds the table from an actor's data section.
func NewMapping(data inventory.Config) *Mapping {
	m := &Mapping{units: make(map[string]inventory.Config)}
	for _, raw := range data.List("map") {
		unit, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cfg := inventory.Config(unit)
		if !cfg.Has("in") {
			continue
		}
		m.units[cfg.Str("in")] = cfg
	}
	return m
}

// Lookup finds the unit whose "in" matches the signal's string form.
func (m *Mapping) Lookup(signal any) (inventory.Config, bool) {
	unit, ok := m.units[inventory.Stringify(signal)]
	return unit, ok
}

// Len returns the number of mapping units.
func (m *Mapping) Len() int {
	return len(m.units)
}

// PeriodicGate passes one signal out of every period, the tick-counting
// throttle the logging actors share. The zero period is treated as 1:
// every signal passes. Safe for concurrent use; overlapping dispatches
// count through the same gate.
type PeriodicGate struct {
	period int

	mu    sync.Mutex
	count int
}

// NewPeriodicGate reads the period from an actor's data section,
// defaulting to 1.
func NewPeriodicGate(data inventory.Config) *PeriodicGate {
	period := data.Int("period", 1)
	if period < 1 {
		period = 1
	}
	return &PeriodicGate{period: period}
}

// Pass counts one signal and reports whether it should go through.
func (g *PeriodicGate) Pass() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count++
	if g.count >= g.period {
		g.count = 0
		return true
	}
	return false
}
