package hub

import (
	"encoding/json"
	"strings"

	"github.com/nerrad567/khome-core/internal/inventory"
)

// PackForAgent renders a payload in the compact quote-free form the
// node firmware parses: strings go out as-is, structured values as JSON
// with quotes and spaces stripped.
func PackForAgent(payload any) string {
	if s, ok := payload.(string); ok {
		return s
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	packed := strings.ReplaceAll(string(raw), `"`, "")
	return strings.ReplaceAll(packed, " ", "")
}

// sendToModule publishes a signal to a module and blocks on the node's
// session until the module answers or the session times out. northSID
// tags the exchange with the operator session it services, if any.
func (h *Hub) sendToModule(module *inventory.Module, value any, northSID string) (any, error) {
	node := h.inv.Node(module.NodeID)
	if node == nil {
		return nil, inventory.ErrNodeNotFound
	}
	packed := PackForAgent(value)
	if err := h.bus.PublishString(h.topics.SignalModule(module.NodeID, module.Alias), packed, 0, false); err != nil {
		return nil, err
	}
	return node.Session.Start(packed, northSID)
}

// sendConfigToNode publishes a config command to a node and blocks on
// its session for the answer.
func (h *Hub) sendConfigToNode(node *inventory.Node, cfg any, northSID string) (any, error) {
	packed := PackForAgent(cfg)
	if err := h.bus.PublishString(h.topics.ConfigNode(node.ID), packed, 0, false); err != nil {
		return nil, err
	}
	return node.Session.Start(packed, northSID)
}

// SendSignal delivers a value to an actuator module, the courier resend
// actors publish through. The module's answer is discarded; a timeout
// already marks the node not alive.
func (h *Hub) SendSignal(nid, mal string, value any) error {
	module, err := h.inv.FindModule(nid, mal)
	if err != nil {
		return err
	}
	_, err = h.sendToModule(module, value, "")
	return err
}

// PublishTo broadcasts a value on an arbitrary topic without waiting
// for anyone to answer. Fire-and-forget side channel for logbus actors.
func (h *Hub) PublishTo(topic string, payload any) error {
	if s, ok := payload.(string); ok {
		return h.bus.PublishString(topic, s, 0, false)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.bus.Publish(topic, raw, 0, false)
}

// responseOK reports whether a south response is a success: present and
// not a negative acknowledgement.
func responseOK(response any) bool {
	if response == nil {
		return false
	}
	if m, ok := response.(map[string]any); ok {
		if _, nack := m[inventory.DefaultAgentProfile.Negative]; nack {
			return false
		}
	}
	return true
}
