package hub

import (
	"fmt"
	"strings"

	"github.com/nerrad567/khome-core/internal/inventory"
)

// PrepareModulePayload repairs the compact quote-free JSON the node
// firmware emits ({a:dht22,t:4}) into parseable JSON. Payloads already
// carrying quotes pass through untouched.
func PrepareModulePayload(raw string) string {
	if strings.Contains(raw, `"`) {
		return raw
	}
	r := strings.NewReplacer(
		"{", `{"`,
		"}", `"}`,
		":", `":"`,
		",", `","`,
	)
	repaired := r.Replace(raw)
	repaired = strings.ReplaceAll(repaired, `"[`, "[")
	repaired = strings.ReplaceAll(repaired, `]"`, "]")
	return strings.ReplaceAll(repaired, `}","{`, "},{")
}

// onNodeReport handles /nodes/<nid>. Processing moves off the bus
// goroutine: a hello triggers a blocking config exchange whose answer
// arrives on this same topic.
func (h *Hub) onNodeReport(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[2] == "" {
		return fmt.Errorf("hub: malformed node topic %q", topic)
	}
	go h.processNodeReport(parts[2], string(payload))
	return nil
}

func (h *Hub) processNodeReport(nid, raw string) {
	msg, err := inventory.ParseConfig(PrepareModulePayload(raw))
	if err != nil {
		h.logger.Warn("unreadable node report", "nid", nid, "error", err)
		return
	}
	if h.correlate(nid, msg) {
		return
	}
	if msg.Has("id") {
		h.handleHello(nid, msg)
	}
}

// correlate refreshes the node's liveness and completes its pending
// session with the inbound message. Reports true when the message was a
// session answer and needs no further routing.
func (h *Hub) correlate(nid string, msg inventory.Config) bool {
	node := h.inv.Node(nid)
	if node == nil {
		return false
	}
	node.Alive(true)
	if node.Session.Active() {
		node.Session.Stop(map[string]any(msg))
		return true
	}
	return false
}

// handleHello registers a new node (or refreshes a known one) and asks
// it for its module configuration, registering what it reports.
func (h *Hub) handleHello(nid string, msg inventory.Config) {
	node := h.inv.RegisterNode(msg)
	if node == nil {
		// Known node re-announcing itself after a restart.
		node = h.inv.Node(nid)
		if node == nil {
			return
		}
		node.UpdateConfig(msg)
	}
	node.Alive(true)

	response, err := h.sendConfigToNode(node, map[string]any{"get": "gpio"}, "")
	if err != nil {
		h.logger.Warn("cannot query node modules", "nid", nid, "error", err)
		return
	}
	if !responseOK(response) {
		h.logger.Warn("node did not report modules", "nid", nid, "response", response)
		return
	}
	answer, ok := response.(map[string]any)
	if !ok {
		return
	}
	for _, raw := range inventory.Config(answer).List("gpio") {
		unit, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		h.inv.RegisterModule(node, inventory.Config(unit), false)
	}
	h.logger.Info("node modules uploaded", "nid", nid, "count", len(node.Modules()))
}

// onModuleData handles /data/<nid>/<mal>.
func (h *Hub) onModuleData(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 || parts[2] == "" || parts[3] == "" {
		return fmt.Errorf("hub: malformed data topic %q", topic)
	}
	go h.processModuleData(parts[2], parts[3], string(payload))
	return nil
}

func (h *Hub) processModuleData(nid, mal, raw string) {
	msg, err := inventory.ParseConfig(PrepareModulePayload(raw))
	if err != nil {
		h.logger.Warn("unreadable module data", "nid", nid, "mal", mal, "error", err)
		return
	}

	// A module report doubles as the answer to a pending session, and
	// unlike a node report it still feeds the dispatch below.
	h.correlate(nid, msg)

	module, err := h.inv.FindModule(nid, mal)
	if err != nil {
		h.logger.Debug("data from unknown module", "nid", nid, "mal", mal)
		return
	}
	if msg.Has(inventory.DefaultAgentProfile.Negative) {
		return
	}

	var value any = map[string]any(msg)
	if msg.Has(inventory.DefaultAgentProfile.Positive) {
		value = msg[inventory.DefaultAgentProfile.Positive]
	}
	module.Box.SetValue(value)
	h.inv.HandleValue(module.Key(), value)
}
