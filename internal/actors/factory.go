package actors

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/khome-core/internal/inventory"
)

// ErrUnknownType indicates an actor config names a type no constructor
// is registered for.
var ErrUnknownType = errors.New("actors: unknown actor type")

// Constructor builds one actor from its parsed config and identity.
type Constructor func(cfg inventory.Config, id string, deps Deps) (inventory.Actor, error)

// Factory maps actor type tags to constructors. The builtin types are
// registered by New; Register adds custom ones.
type Factory struct {
	deps Deps

	mu           sync.RWMutex
	constructors map[string]Constructor
}

// New creates a factory with every builtin actor type registered.
func New(deps Deps) *Factory {
	f := &Factory{
		deps:         deps,
		constructors: make(map[string]Constructor),
	}
	f.Register("resend", NewResend)
	f.Register("average", NewAverage)
	f.Register("logdb", NewLogDB)
	f.Register("logbus", NewLogBus)
	f.Register("logthingspeak", NewLogThingSpeak)
	f.Register("loginflux", NewLogInflux)
	f.Register("schedule", NewSchedule)
	return f
}

// Register binds a constructor to a type tag. Tags are case-insensitive.
func (f *Factory) Register(typeTag string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[strings.ToLower(typeTag)] = ctor
}

// Create builds an actor from its config. The config's "type" field
// selects the constructor; an unregistered type or a config violating
// the type's requirements yields an error and no actor.
func (f *Factory) Create(cfg inventory.Config, id string) (inventory.Actor, error) {
	typeTag := strings.ToLower(cfg.Str("type"))

	f.mu.RLock()
	ctor, ok := f.constructors[typeTag]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeTag)
	}
	return ctor(cfg, id, f.deps)
}

// CreateFromJSON parses a persisted config row and builds the actor.
func (f *Factory) CreateFromJSON(raw, id string) (inventory.Actor, error) {
	cfg, err := inventory.ParseConfig(raw)
	if err != nil {
		return nil, err
	}
	return f.Create(cfg, id)
}
