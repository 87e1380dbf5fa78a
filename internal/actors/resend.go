package actors

import (
	"sync"

	"github.com/nerrad567/khome-core/internal/inventory"
)

// Resend forwards incoming signals to another module, optionally
// rewriting the value and redirecting the target through its mapping
// table. The classic use is wiring a trigger sensor on one node to a
// switch on another.
type Resend struct {
	inventory.HandlerBase
	signals SignalSender
	logger  Logger

	mu      sync.RWMutex
	mapping *Mapping
}

// NewResend builds a resend actor. Requires the signal sender.
func NewResend(cfg inventory.Config, id string, deps Deps) (inventory.Actor, error) {
	base, err := inventory.NewHandlerBase(cfg, id)
	if err != nil {
		return nil, err
	}
	return &Resend{
		HandlerBase: base,
		mapping:     NewMapping(base.Data()),
		signals:     deps.Signals,
		logger:      deps.logger(),
	}, nil
}

// ProcessSignal resolves the outgoing value and target. The data
// section's "out" (if any) and "trg"/"trg_mdl" are the defaults; a
// mapping unit matching the signal overrides either. Without a complete
// target the signal is dropped.
func (a *Resend) ProcessSignal(signal any) {
	a.mu.RLock()
	mapping := a.mapping
	a.mu.RUnlock()

	data := a.Data()
	out := signal
	if data.Has("out") {
		out = data["out"]
	}
	target, targetModule := data.Str("trg"), data.Str("trg_mdl")

	if unit, ok := mapping.Lookup(signal); ok {
		if unit.Has("out") {
			out = unit["out"]
		}
		if unit.Has("trg") && unit.Has("trg_mdl") {
			target, targetModule = unit.Str("trg"), unit.Str("trg_mdl")
		}
	}

	if target == "" || targetModule == "" {
		return
	}
	if a.signals == nil {
		a.logger.Warn("resend actor has no signal sender", "aid", a.ID())
		return
	}
	if err := a.signals.SendSignal(target, targetModule, out); err != nil {
		a.logger.Warn("cannot resend signal",
			"aid", a.ID(), "trg", target, "trg_mdl", targetModule, "error", err)
	}
}

// ApplyChanges rebuilds the mapping table after a config edit.
func (a *Resend) ApplyChanges() {
	mapping := NewMapping(a.Data())
	a.mu.Lock()
	a.mapping = mapping
	a.mu.Unlock()
}
