package mqtt

import "fmt"

// Topic prefixes for the KHome MQTT namespace.
//
// Southbound topics (core to devices and back) live under /config, /signal,
// /nodes and /data. Northbound operator traffic lives under /manager.
const (
	// TopicPrefixConfig carries configuration requests to nodes.
	TopicPrefixConfig = "/config"

	// TopicPrefixSignal carries signals to individual device modules.
	TopicPrefixSignal = "/signal"

	// TopicPrefixNodes carries node-level reports (hello, config responses).
	TopicPrefixNodes = "/nodes"

	// TopicPrefixData carries module-level data reports.
	TopicPrefixData = "/data"

	// TopicManager is the inbound operator request topic.
	TopicManager = "/manager"

	// TopicPrefixSystem is the base for core lifecycle topics.
	TopicPrefixSystem = "/khome/system"
)

// Topics provides builders for KHome MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.SignalModule("a1b2c3", "relay0")
//	// Returns: "/signal/a1b2c3/relay0"
type Topics struct{}

// =============================================================================
// Southbound Topics (core to devices)
// =============================================================================

// ConfigNode returns the topic for configuration requests to a node.
// Pass the broadcast node ID to address every node on the bus.
//
// Example: /config/a1b2c3
func (Topics) ConfigNode(nodeID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixConfig, nodeID)
}

// SignalModule returns the topic for signals to a specific module.
//
// Example: /signal/a1b2c3/relay0
func (Topics) SignalModule(nodeID, moduleAlias string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixSignal, nodeID, moduleAlias)
}

// =============================================================================
// Northbound Topics (devices to core)
// =============================================================================

// NodeReport returns the topic a node publishes hello and config responses on.
//
// Example: /nodes/a1b2c3
func (Topics) NodeReport(nodeID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixNodes, nodeID)
}

// ModuleData returns the topic a module publishes data on.
//
// Example: /data/a1b2c3/dht22
func (Topics) ModuleData(nodeID, moduleAlias string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixData, nodeID, moduleAlias)
}

// =============================================================================
// Operator Topics
// =============================================================================

// Manager returns the inbound operator request topic.
//
// Example: /manager
func (Topics) Manager() string {
	return TopicManager
}

// ManagerAnswer returns the response topic for an operator session.
//
// Example: /manager/web-7f3a
func (Topics) ManagerAnswer(sessionID string) string {
	return fmt.Sprintf("%s/%s", TopicManager, sessionID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the core lifecycle status topic.
// Used for the online announcement and the LWT payload.
//
// Example: /khome/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllNodeReports returns a pattern matching every node report topic.
//
// Pattern: /nodes/#
func (Topics) AllNodeReports() string {
	return fmt.Sprintf("%s/#", TopicPrefixNodes)
}

// AllModuleData returns a pattern matching every module data topic.
//
// Pattern: /data/#
func (Topics) AllModuleData() string {
	return fmt.Sprintf("%s/#", TopicPrefixData)
}
