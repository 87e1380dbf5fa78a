package inventory

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
)

// Logger defines the logging interface used by the Inventory.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// maxSourceDepth bounds recursive source-key resolution so a cyclic actor
// configuration degrades to the no-source placeholder instead of looping.
const maxSourceDepth = 16

// Inventory is the single authoritative store of nodes, modules, actors
// and boxes, plus the cross-indices dispatch depends on. It is the only
// component allowed to mutate them.
//
// Every successful structural mutation bumps the revision counter under
// the same lock, so a reader observing the mutation also observes the
// bump. Persistence is best-effort: failures are logged, the in-memory
// state is kept, and Dirty() reports the divergence.
//
// All public methods are thread-safe.
type Inventory struct {
	mu       sync.RWMutex
	revision uint64
	nodes    map[string]*Node
	actors   map[string]Actor
	handlers map[string][]Actor // handler key -> actors, registration order
	boxes    map[string][]*Box  // resolved source key -> boxes
	deferred map[string]Actor   // actors parked on the no-source key

	repo   Repository
	logger Logger
	dirty  bool

	// tempID numbers transiently unsaved actors (negative sentinel ids).
	tempID int
}

// New creates an empty inventory. The repository may be nil; persistence
// is then skipped entirely and actors get negative transient ids.
func New(repo Repository) *Inventory {
	return &Inventory{
		nodes:    make(map[string]*Node),
		actors:   make(map[string]Actor),
		handlers: make(map[string][]Actor),
		boxes:    make(map[string][]*Box),
		deferred: make(map[string]Actor),
		repo:     repo,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the inventory.
func (inv *Inventory) SetLogger(logger Logger) {
	inv.logger = logger
}

// Revision returns the current structure revision. It only increases
// while the process runs.
func (inv *Inventory) Revision() uint64 {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.revision
}

// Dirty reports whether any best-effort persistence write has failed
// since startup, i.e. the in-memory structure may be ahead of storage.
func (inv *Inventory) Dirty() bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.dirty
}

// changed bumps the revision. Callers must hold the write lock.
func (inv *Inventory) changed() {
	inv.revision++
}

// markDirty records a failed persistence write. Callers must hold the
// write lock.
func (inv *Inventory) markDirty() {
	inv.dirty = true
}

// RegisterNode creates a node from its hello config and inserts it.
// Registration is creation-only: if a node with that ID already exists,
// nil is returned and nothing changes — a re-hello of a known node is an
// update the caller handles via Node.UpdateConfig.
func (inv *Inventory) RegisterNode(cfg Config) *Node {
	node, err := NewNode(cfg)
	if err != nil {
		inv.logger.Warn("node config rejected", "error", err)
		return nil
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if _, exists := inv.nodes[node.ID]; exists {
		return nil
	}
	inv.nodes[node.ID] = node
	inv.changed()

	inv.logger.Info("node registered", "nid", node.ID)
	return node
}

// Node returns the node with the given ID, or nil.
func (inv *Inventory) Node(nid string) *Node {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.nodes[nid]
}

// FindModule returns the module addressed by node ID and alias.
func (inv *Inventory) FindModule(nid, mal string) (*Module, error) {
	inv.mu.RLock()
	node := inv.nodes[nid]
	inv.mu.RUnlock()
	if node == nil {
		return nil, ErrNodeNotFound
	}
	m := node.Module(mal)
	if m == nil {
		return nil, ErrModuleNotFound
	}
	return m, nil
}

// RegisterModule creates a module from its config and attaches it to the
// node, indexing its box under the module's source key. Returns nil with
// no mutation when the alias is already taken. With persist set, the
// module's name is written to storage (operator-added modules); modules
// reported by the device itself are not re-persisted.
func (inv *Inventory) RegisterModule(node *Node, cfg Config, persist bool) *Module {
	module, err := NewModule(cfg, node.ID)
	if err != nil {
		inv.logger.Warn("module config rejected", "nid", node.ID, "error", err)
		return nil
	}

	// Load the stored operator name unless the device supplied one.
	if !module.Config.Has("name") {
		module.Config["name"] = module.Alias
		if inv.repo != nil {
			if name, err := inv.repo.GetModuleName(context.Background(), node.ID, module.Alias); err == nil && name != "" {
				module.Config["name"] = name
			}
		}
	}

	if !node.addModule(module) {
		return nil
	}

	inv.mu.Lock()
	inv.addBox(module.Key(), module.Box)
	inv.changed()
	if persist && inv.repo != nil {
		if err := inv.repo.SaveModuleName(context.Background(), node.ID, module.Alias, module.Name()); err != nil {
			inv.logger.Warn("cannot persist module", "key", module.Key(), "error", err)
			inv.markDirty()
		}
	}
	inv.mu.Unlock()

	inv.logger.Info("module registered", "key", module.Key(), "name", module.Name())
	return module
}

// WipeModule removes the module from the node, its box index entry and
// its persisted name. Returns false with no mutation when the alias is
// absent.
func (inv *Inventory) WipeModule(node *Node, mal string) bool {
	if !node.removeModule(mal) {
		return false
	}

	inv.mu.Lock()
	delete(inv.boxes, BoxKey(node.ID, mal))
	inv.changed()
	if inv.repo != nil {
		if err := inv.repo.DeleteModule(context.Background(), node.ID, mal); err != nil {
			inv.logger.Warn("cannot forget module", "nid", node.ID, "mal", mal, "error", err)
			inv.markDirty()
		}
	}
	inv.mu.Unlock()

	inv.logger.Info("module wiped", "nid", node.ID, "mal", mal)
	return true
}

// RegisterActor inserts the actor into the registry: the actor map, the
// handler index (handlers only, under the declared source) and the box
// index (under the resolved source key). A nil actor is passed through
// unchanged so construction failures propagate without a check at every
// call site.
func (inv *Inventory) RegisterActor(actor Actor) Actor {
	if actor == nil {
		return nil
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	inv.actors[actor.ID()] = actor
	if actor.Role() == RoleHandler {
		key := handlerKey(actor)
		inv.handlers[key] = append(inv.handlers[key], actor)
	}
	resolved := inv.sourceKeyLocked(actor, 0)
	if box := actor.Box(); box != nil {
		inv.addBox(resolved, box)
	}
	if resolved == NoSourceKey {
		// Upstream actor not loaded yet; ResolveDeferred retries.
		inv.deferred[actor.ID()] = actor
	}
	inv.changed()

	inv.logger.Info("actor registered", "actor", actor.Cfg().Str("type"), "aid", actor.ID())
	return actor
}

// RenameModule updates the module's operator-visible name, bumping the
// revision and persisting the new name. A no-op when the name is
// unchanged.
func (inv *Inventory) RenameModule(module *Module, name string) bool {
	if module.Name() == name {
		return false
	}
	module.Config["name"] = name

	inv.mu.Lock()
	inv.changed()
	if inv.repo != nil {
		if err := inv.repo.SaveModuleName(context.Background(), module.NodeID, module.Alias, name); err != nil {
			inv.logger.Warn("cannot persist module name", "key", module.Key(), "error", err)
			inv.markDirty()
		}
	}
	inv.mu.Unlock()
	return true
}

// Touch bumps the revision for an in-place config edit that does not go
// through a register or wipe call, such as an actor edit.
func (inv *Inventory) Touch() {
	inv.mu.Lock()
	inv.changed()
	inv.mu.Unlock()
}

// WipeActor removes the actor from every index, the actor map and
// storage.
func (inv *Inventory) WipeActor(actor Actor) {
	inv.mu.Lock()
	inv.wipeActorLocked(actor)
	inv.mu.Unlock()
}

func (inv *Inventory) wipeActorLocked(actor Actor) {
	if box := actor.Box(); box != nil {
		inv.removeBox(inv.sourceKeyLocked(actor, 0), box)
	}
	if actor.Role() == RoleHandler {
		key := handlerKey(actor)
		inv.handlers[key] = removeActor(inv.handlers[key], actor)
		if len(inv.handlers[key]) == 0 {
			delete(inv.handlers, key)
		}
	}
	delete(inv.actors, actor.ID())
	delete(inv.deferred, actor.ID())
	if inv.repo != nil {
		if err := inv.repo.DeleteActor(context.Background(), actor.ID()); err != nil {
			inv.logger.Warn("cannot delete actor from storage", "aid", actor.ID(), "error", err)
			inv.markDirty()
		}
	}
	inv.changed()

	inv.logger.Info("actor wiped", "aid", actor.ID())
}

// Actor returns the actor with the given ID, or nil.
func (inv *Inventory) Actor(aid string) Actor {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.actors[aid]
}

// SaveActor persists the actor's config. On first save the storage
// assigns the id; without storage (or on failure) the actor keeps a
// negative transient id so it stays addressable in memory.
func (inv *Inventory) SaveActor(actor Actor) {
	cfg := actor.Cfg()
	delete(cfg, "id")
	raw, err := json.Marshal(cfg)
	if err != nil {
		inv.logger.Error("cannot encode actor config", "aid", actor.ID(), "error", err)
		return
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.repo != nil {
		id, err := inv.repo.SaveActor(context.Background(), actor.ID(), string(raw))
		if err == nil {
			if id != actor.ID() {
				actor.SetID(id)
			}
			return
		}
		inv.logger.Warn("cannot store actor", "aid", actor.ID(), "error", err)
		inv.markDirty()
	}
	if actor.ID() == "" {
		inv.tempID--
		actor.SetID(strconv.Itoa(inv.tempID))
	}
}

// ResolveDeferred re-resolves every actor parked on the no-source
// placeholder, re-indexing its box under the true key. Run once after
// bulk-loading persisted actors: configs load in id order, so an actor
// may reference a later-loaded actor as its source. Actors whose source
// never materialised are deleted as dangling configuration.
func (inv *Inventory) ResolveDeferred() {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	for aid, actor := range inv.deferred {
		resolved := inv.sourceKeyLocked(actor, 0)
		if resolved == NoSourceKey {
			inv.logger.Warn("actor has no source, deleting",
				"actor", actor.Cfg().Str("type"), "aid", aid)
			inv.wipeActorLocked(actor)
			continue
		}
		if box := actor.Box(); box != nil {
			inv.removeBox(NoSourceKey, box)
			inv.addBox(resolved, box)
		}
		delete(inv.deferred, aid)
	}
	if boxes, ok := inv.boxes[NoSourceKey]; ok && len(boxes) == 0 {
		delete(inv.boxes, NoSourceKey)
	}
}

// SourceKey resolves the actor's source key: the module key it chains
// from (possibly through upstream actors), the system key for
// generators, or the no-source placeholder while unresolved.
func (inv *Inventory) SourceKey(actor Actor) string {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.sourceKeyLocked(actor, 0)
}

func (inv *Inventory) sourceKeyLocked(actor Actor, depth int) string {
	if depth > maxSourceDepth {
		inv.logger.Error("source chain too deep, treating as unresolved", "aid", actor.ID())
		return NoSourceKey
	}
	if actor.Role() == RoleGenerator {
		return SystemKey
	}
	src, srcModule := actor.Source()
	if srcModule != "" {
		return BoxKey(src, srcModule)
	}
	if upstream, ok := inv.actors[src]; ok {
		return inv.sourceKeyLocked(upstream, depth+1)
	}
	return NoSourceKey
}

// Nodes returns a snapshot of all nodes.
func (inv *Inventory) Nodes() []*Node {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	out := make([]*Node, 0, len(inv.nodes))
	for _, n := range inv.nodes {
		out = append(out, n)
	}
	return out
}

// Actors returns a snapshot of all actors.
func (inv *Inventory) Actors() []Actor {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	out := make([]Actor, 0, len(inv.actors))
	for _, a := range inv.actors {
		out = append(out, a)
	}
	return out
}

// BoxKeys returns every key currently carrying boxes.
func (inv *Inventory) BoxKeys() []string {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	keys := make([]string, 0, len(inv.boxes))
	for k := range inv.boxes {
		keys = append(keys, k)
	}
	return keys
}

// BoxesByKey returns the current name/value pairs of the boxes filed
// under a source key.
func (inv *Inventory) BoxesByKey(key string) map[string]any {
	inv.mu.RLock()
	boxes := inv.boxes[key]
	inv.mu.RUnlock()
	out := make(map[string]any, len(boxes))
	for _, b := range boxes {
		out[b.Name] = b.Value()
	}
	return out
}

func (inv *Inventory) addBox(key string, box *Box) {
	inv.boxes[key] = append(inv.boxes[key], box)
}

func (inv *Inventory) removeBox(key string, box *Box) {
	list := inv.boxes[key]
	for i, b := range list {
		if b == box {
			inv.boxes[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(inv.boxes[key]) == 0 {
		delete(inv.boxes, key)
	}
}

// handlerKey is the key an actor is dispatched under: its declared
// source, which differs from the resolved source key when the upstream
// is another actor.
func handlerKey(actor Actor) string {
	src, srcModule := actor.Source()
	return BoxKey(src, srcModule)
}

func removeActor(list []Actor, actor Actor) []Actor {
	for i, a := range list {
		if a == actor {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
