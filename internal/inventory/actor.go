package inventory

import (
	"fmt"
	"sync"
)

// Role is the behavioral role of an actor: where its input comes from.
type Role int

const (
	// RoleHandler consumes a declared upstream source (a module or
	// another actor).
	RoleHandler Role = iota

	// RoleGenerator has no upstream source; it is fed only by the
	// scheduler under the system key.
	RoleGenerator
)

// Actor is a configured unit of signal processing chained off a module or
// another actor. Implementations live in the actors package; the registry
// only needs identity, configuration and the processing entry point.
type Actor interface {
	// ID returns the actor's identity: the persistence row id, or a
	// negative sentinel while the actor is transiently unsaved.
	ID() string

	// SetID rebinds the identity, replicated into the config.
	SetID(id string)

	// Cfg returns a copy of the actor's configuration.
	Cfg() Config

	// Data returns a copy of the configuration's "data" section.
	Data() Config

	// UpdateData merges the given fields into the "data" section.
	UpdateData(values Config)

	// Active reports whether the actor processes signals.
	Active() bool

	// SetActive toggles processing, replicated into the config.
	SetActive(active bool)

	// Box returns the actor's owned value cell, or nil.
	Box() *Box

	// Role returns the actor's behavioral role.
	Role() Role

	// Source returns the declared upstream reference: src is a node or
	// actor ID, srcModule the module alias when the source is a module.
	// Both empty for generators.
	Source() (src, srcModule string)

	// ProcessSignal handles one value arriving at the actor.
	ProcessSignal(value any)

	// ApplyChanges re-derives internal state after a config edit.
	ApplyChanges()
}

// Base carries the state shared by every actor: identity, config, the
// active flag and the optional box. Embed it and implement the rest.
//
// Config edits arrive from the management surface while dispatch
// goroutines are reading, so every config access goes through the
// mutex and readers only ever see copies. The mutex is a pointer so
// the embedding copies made during construction share one lock.
type Base struct {
	mu     *sync.RWMutex
	id     string
	config Config
	active bool
	box    *Box
}

// NewBase initialises the shared actor state from a parsed config.
// The box is created only when the config's data section names one.
func NewBase(cfg Config, id string) Base {
	b := Base{
		mu:     &sync.RWMutex{},
		id:     id,
		config: cfg,
		active: cfg.Bool("active", true),
	}
	b.config["id"] = id
	if data := cfg.Sub("data"); data != nil && data.Has("box") {
		b.box = NewBox(data.Str("box"))
	}
	return b
}

// ID returns the actor identity.
func (b *Base) ID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.id
}

// SetID rebinds the identity and replicates it into the config.
func (b *Base) SetID(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.id = id
	b.config["id"] = id
}

// Cfg returns a copy of the configuration.
func (b *Base) Cfg() Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.Clone()
}

// Data returns a copy of the configuration's "data" section, nil when
// the config has none.
func (b *Base) Data() Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.Sub("data").Clone()
}

// UpdateData merges the given fields into the config's data section,
// creating it when absent. Values are copied in, so the caller keeps
// no handle on the stored config.
func (b *Base) UpdateData(values Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.config["data"].(map[string]any)
	if !ok {
		data = make(map[string]any, len(values))
		b.config["data"] = data
	}
	for k, v := range values {
		data[k] = cloneValue(v)
	}
}

// Active reports whether the actor processes signals.
func (b *Base) Active() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active
}

// SetActive toggles processing and replicates it into the config.
func (b *Base) SetActive(active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = active
	b.config["active"] = active
}

// Box returns the actor's value cell, or nil.
func (b *Base) Box() *Box { return b.box }

// ApplyChanges is a no-op by default.
func (b *Base) ApplyChanges() {}

// HandlerBase is the base of actors whose data source is a module or
// another actor. The "src" field is mandatory; construction fails
// without it.
type HandlerBase struct {
	Base
	src       string
	srcModule string
}

// NewHandlerBase initialises handler state, failing when the config's
// data section lacks "src".
func NewHandlerBase(cfg Config, id string) (HandlerBase, error) {
	data := cfg.Sub("data")
	if data == nil || !data.Has("src") {
		return HandlerBase{}, fmt.Errorf("%w: %s#%s lacks %q",
			ErrMissingField, cfg.Str("type"), id, "src")
	}
	return HandlerBase{
		Base:      NewBase(cfg, id),
		src:       data.Str("src"),
		srcModule: data.Str("src_mdl"),
	}, nil
}

// Role returns RoleHandler.
func (h *HandlerBase) Role() Role { return RoleHandler }

// Source returns the declared upstream reference.
func (h *HandlerBase) Source() (string, string) { return h.src, h.srcModule }

// HandlerKey returns the key the actor is indexed under for dispatch:
// its declared source, not the resolved one.
func (h *HandlerBase) HandlerKey() string {
	return BoxKey(h.src, h.srcModule)
}

// GeneratorBase is the base of actors with no upstream source. Their
// source key is the fixed system key.
type GeneratorBase struct {
	Base
}

// NewGeneratorBase initialises generator state.
func NewGeneratorBase(cfg Config, id string) GeneratorBase {
	return GeneratorBase{Base: NewBase(cfg, id)}
}

// Role returns RoleGenerator.
func (g *GeneratorBase) Role() Role { return RoleGenerator }

// Source returns empty references; generators have no upstream.
func (g *GeneratorBase) Source() (string, string) { return "", "" }
