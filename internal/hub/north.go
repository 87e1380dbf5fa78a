package hub

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/nerrad567/khome-core/internal/inventory"
)

// onManager handles /manager: one operator request per message, shaped
// {"session": <sid>, "request": <command>, "params": {...}}. The answer
// goes back on /manager/<sid>.
func (h *Hub) onManager(topic string, payload []byte) error {
	req, err := inventory.ParseConfig(string(payload))
	if err != nil {
		h.logger.Warn("unreadable operator request", "error", err)
		return err
	}
	sid := req.Str("session")
	if sid == "" {
		h.logger.Warn("operator request without session id", "request", req.Str("request"))
		return nil
	}
	// Off the bus goroutine: south-bound commands block on node sessions.
	go h.processRequest(sid, req)
	return nil
}

func (h *Hub) processRequest(sid string, req inventory.Config) {
	answer, err := h.dispatchRequest(sid, req)
	if err != nil {
		answer = nack(err.Error())
	}
	h.answerNorth(sid, answer)
}

func (h *Hub) dispatchRequest(sid string, req inventory.Config) (any, error) {
	params := req.Sub("params")

	switch request := req.Str("request"); request {
	case "get-structure":
		return h.requestStructure(params), nil
	case "get-data":
		return h.requestData(req["params"]), nil
	case "get-timetable":
		return map[string]any{"timetable": h.sch.Snapshot()}, nil
	case "ping":
		return h.requestPing(sid, params)
	case "signal":
		return h.requestSignal(sid, params)
	case "add-module":
		return h.ackCount(h.requestAddModules(sid, params))
	case "del-module":
		return h.ackCount(h.requestDelModules(sid, params))
	case "edit-module":
		return h.ackCount(h.requestEditModule(params))
	case "add-actor":
		return h.ackCount(h.requestAddActor(params))
	case "del-actor":
		return h.ackCount(h.requestDelActors(params))
	case "edit-actor":
		return h.ackCount(h.requestEditActor(params))
	default:
		return nil, errors.New("unknown request " + strconv.Quote(request))
	}
}

func nack(reason string) map[string]any {
	return map[string]any{inventory.DefaultAgentProfile.Negative: reason}
}

func (h *Hub) ackCount(count int, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return map[string]any{inventory.DefaultAgentProfile.Positive: strconv.Itoa(count)}, nil
}

// answerNorth publishes the answer to the operator session's topic.
func (h *Hub) answerNorth(sid string, answer any) {
	if answer == nil {
		answer = inventory.TimeoutResponse()
	}
	raw, err := json.Marshal(answer)
	if err != nil {
		h.logger.Error("cannot encode operator answer", "sid", sid, "error", err)
		return
	}
	if err := h.bus.Publish(h.topics.ManagerAnswer(sid), raw, 0, false); err != nil {
		h.logger.Warn("cannot answer operator", "sid", sid, "error", err)
	}
}

// requestStructure exports the full registry, short-circuiting to the
// bare revision number when the caller's copy is current.
func (h *Hub) requestStructure(params inventory.Config) map[string]any {
	revision := h.inv.Revision()
	if params != nil && params.Has("revision") &&
		params.Int("revision", -1) == int(revision) {
		return map[string]any{"revision": revision}
	}

	nodes := make([]any, 0)
	for _, node := range h.inv.Nodes() {
		nodes = append(nodes, map[string]any(node.Cfg()))
	}
	actors := make([]any, 0)
	for _, actor := range h.inv.Actors() {
		actors = append(actors, map[string]any(actor.Cfg()))
	}
	return map[string]any{
		"revision":     revision,
		"module-types": inventory.DefaultAgentProfile.ModuleTypes,
		"nodes":        nodes,
		"actors":       actors,
	}
}

// requestData reports current box values: for the keys listed in params,
// or every key when params is absent.
func (h *Hub) requestData(params any) map[string]any {
	var keys []string
	if list, ok := params.([]any); ok {
		for _, k := range list {
			keys = append(keys, inventory.Stringify(k))
		}
	} else {
		keys = h.inv.BoxKeys()
	}

	data := make([]any, 0, len(keys))
	for _, key := range keys {
		data = append(data, map[string]any{
			"key":   key,
			"boxes": h.inv.BoxesByKey(key),
		})
	}
	return map[string]any{"modules-data": data}
}

func (h *Hub) requestPing(sid string, params inventory.Config) (any, error) {
	node := h.inv.Node(params.Str("node"))
	if node == nil {
		return nil, inventory.ErrNodeNotFound
	}
	return h.sendConfigToNode(node, map[string]any{"ping": ""}, sid)
}

func (h *Hub) requestSignal(sid string, params inventory.Config) (any, error) {
	module, err := h.inv.FindModule(params.Str("node"), params.Str("module"))
	if err != nil {
		return nil, err
	}
	return h.sendToModule(module, params["value"], sid)
}

// requestAddModules validates the requested module configs against the
// agent profile and the node's current layout, pushes the merged layout
// to the hardware, and registers what the node accepted.
func (h *Hub) requestAddModules(sid string, params inventory.Config) (int, error) {
	node := h.inv.Node(params.Str("node"))
	if node == nil {
		return 0, inventory.ErrNodeNotFound
	}

	profile := inventory.DefaultAgentProfile
	pins := profile.Pins[node.Type]
	used := node.PinsUsed()

	var toAdd []inventory.Config
	for _, raw := range params.List("gpio") {
		unit, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cfg := inventory.Config(unit)
		if !contains(pins, cfg.Str("p")) {
			continue
		}
		if _, known := profile.ModuleTypes[cfg.Str("t")]; !known {
			continue
		}
		if contains(used, cfg.Str("p")) {
			continue
		}
		if node.Module(cfg.Str("a")) != nil {
			continue
		}
		toAdd = append(toAdd, cfg)
		used = append(used, cfg.Str("p"))
	}
	if len(toAdd) == 0 {
		return 0, nil
	}

	layout := append(node.ModuleConfigs(), toAdd...)
	response, err := h.sendConfigToNode(node, inventory.GPIOPayload(layout), sid)
	if err != nil {
		return 0, err
	}
	if !responseOK(response) {
		return 0, nil
	}

	count := 0
	for _, cfg := range toAdd {
		if h.inv.RegisterModule(node, cfg, true) != nil {
			count++
		}
	}
	return count, nil
}

// requestDelModules pushes the layout without the named modules to the
// hardware and forgets them on success.
func (h *Hub) requestDelModules(sid string, params inventory.Config) (int, error) {
	node := h.inv.Node(params.Str("node"))
	if node == nil {
		return 0, inventory.ErrNodeNotFound
	}

	doomed := make(map[string]bool)
	for _, raw := range params.List("modules") {
		doomed[inventory.Stringify(raw)] = true
	}

	var keep []inventory.Config
	var drop []string
	for _, cfg := range node.ModuleConfigs() {
		if doomed[cfg.Str("a")] {
			drop = append(drop, cfg.Str("a"))
		} else {
			keep = append(keep, cfg)
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}

	response, err := h.sendConfigToNode(node, inventory.GPIOPayload(keep), sid)
	if err != nil {
		return 0, err
	}
	if !responseOK(response) {
		return 0, nil
	}

	count := 0
	for _, mal := range drop {
		if h.inv.WipeModule(node, mal) {
			count++
		}
	}
	return count, nil
}

// requestEditModule updates a module's operator name, the only editable
// field.
func (h *Hub) requestEditModule(params inventory.Config) (int, error) {
	node := h.inv.Node(params.Str("node"))
	if node == nil {
		return 0, inventory.ErrNodeNotFound
	}
	gpio := params.Sub("gpio")
	if gpio == nil || !gpio.Has("name") {
		return 0, inventory.ErrMissingField
	}
	module := node.Module(params.Str("module"))
	if module == nil {
		return 0, inventory.ErrModuleNotFound
	}
	if h.inv.RenameModule(module, gpio.Str("name")) {
		return 1, nil
	}
	return 0, nil
}

// requestAddActor builds an actor from the supplied config, persists it
// to get its identity and registers it live.
func (h *Hub) requestAddActor(params inventory.Config) (int, error) {
	cfg := params.Sub("actor")
	if cfg == nil {
		return 0, inventory.ErrMissingField
	}
	actor, err := h.factory.Create(cfg.Clone(), "")
	if err != nil {
		return 0, err
	}
	h.inv.SaveActor(actor)
	h.inv.RegisterActor(actor)
	return 1, nil
}

func (h *Hub) requestDelActors(params inventory.Config) (int, error) {
	count := 0
	for _, raw := range params.List("actors") {
		actor := h.inv.Actor(inventory.Stringify(raw))
		if actor == nil {
			continue
		}
		h.inv.WipeActor(actor)
		count++
	}
	return count, nil
}

// requestEditActor applies the editable actor fields: the active flag
// and the type-specific data knobs. The actor re-derives its state and
// the edit is persisted.
func (h *Hub) requestEditActor(params inventory.Config) (int, error) {
	actor := h.inv.Actor(params.Str("actor"))
	if actor == nil {
		return 0, inventory.ErrActorNotFound
	}

	count := 0
	if params.Has("active") {
		actor.SetActive(params.Bool("active", true))
		count++
	}
	knobs := inventory.Config{}
	for _, knob := range []string{"period", "depth", "jobs", "map"} {
		if params.Has(knob) {
			knobs[knob] = params[knob]
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	if len(knobs) > 0 {
		actor.UpdateData(knobs)
	}

	actor.ApplyChanges()
	h.inv.SaveActor(actor)
	h.inv.Touch()
	return count, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
