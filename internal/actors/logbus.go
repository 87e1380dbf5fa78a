package actors

import (
	"sync"

	"github.com/nerrad567/khome-core/internal/inventory"
)

// LogBus republishes its source's signals to an arbitrary bus topic,
// throttled by the periodic gate and translated through the mapping
// table. Used to expose internal values to other systems listening on
// the broker.
type LogBus struct {
	inventory.HandlerBase
	bus    BusPublisher
	logger Logger

	mu      sync.RWMutex
	mapping *Mapping
	gate    *PeriodicGate
}

// NewLogBus builds a bus logging actor.
func NewLogBus(cfg inventory.Config, id string, deps Deps) (inventory.Actor, error) {
	base, err := inventory.NewHandlerBase(cfg, id)
	if err != nil {
		return nil, err
	}
	return &LogBus{
		HandlerBase: base,
		mapping:     NewMapping(base.Data()),
		gate:        NewPeriodicGate(base.Data()),
		bus:         deps.Bus,
		logger:      deps.logger(),
	}, nil
}

// ProcessSignal resolves the outgoing value and topic, defaults from the
// data section overridden by a matching mapping unit, and publishes.
// Without a target topic the signal is dropped.
func (a *LogBus) ProcessSignal(signal any) {
	a.mu.RLock()
	mapping, gate := a.mapping, a.gate
	a.mu.RUnlock()

	if !gate.Pass() {
		return
	}

	data := a.Data()
	out := signal
	if data.Has("out") {
		out = data["out"]
	}
	target := data.Str("trg")

	if unit, ok := mapping.Lookup(signal); ok {
		if unit.Has("out") {
			out = unit["out"]
		}
		if unit.Has("trg") {
			target = unit.Str("trg")
		}
	}

	if target == "" {
		return
	}
	if a.bus == nil {
		a.logger.Warn("logbus actor has no bus", "aid", a.ID())
		return
	}
	if err := a.bus.PublishTo(target, out); err != nil {
		a.logger.Warn("cannot republish signal", "aid", a.ID(), "trg", target, "error", err)
	}
}

// ApplyChanges rebuilds the mapping table and re-reads the period.
func (a *LogBus) ApplyChanges() {
	data := a.Data()
	mapping, gate := NewMapping(data), NewPeriodicGate(data)
	a.mu.Lock()
	a.mapping, a.gate = mapping, gate
	a.mu.Unlock()
}
