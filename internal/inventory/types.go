package inventory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Reserved key constants.
const (
	// NoSourceKey is the placeholder source key assigned to a handler whose
	// upstream actor has not been loaded yet. Resolved by ResolveDeferred.
	NoSourceKey = "~"

	// SystemKey is the source key of generator actors. Values arrive there
	// only from the scheduler, never from a device.
	SystemKey = "#"

	// AllNodes is the broadcast node ID: a config published to
	// /config/~ is picked up by every node on the bus.
	AllNodes = "~"

	// actuatorTypeThreshold separates sensor module types from actuators.
	// Types above it accept signals; types at or below it only report.
	actuatorTypeThreshold = 50
)

// AgentProfile describes the device firmware interface: which commands,
// module types and pins a node understands, and the error codes it may
// report. Used to validate operator module requests before they are
// pushed to hardware.
type AgentProfile struct {
	Version     string
	Positive    string
	Negative    string
	Commands    []string
	GPIOTags    []string
	ModuleTypes map[string]string
	Pins        map[string][]string
	ErrorCodes  map[string]string
}

// DefaultAgentProfile is the profile of the ESP8266 agent firmware.
var DefaultAgentProfile = AgentProfile{
	Version:  "1",
	Positive: "ack",
	Negative: "nack",
	Commands: []string{"get", "ping", "clean", "gpio", "brdg"},
	GPIOTags: []string{"p", "t", "a", "prd"},
	ModuleTypes: map[string]string{
		// Sensors
		"1": "Generic Sensor Timer",
		"2": "Generic Trigger Sensor",
		"3": "IR Sensor",
		"4": "DHT Sensor",
		"5": "Obstacle Sensor",
		"6": "PIR Sensor",
		// Actuators
		"51": "Switch",
	},
	Pins: map[string][]string{
		"esp8266": {"0", "2", "4", "5", "9", "10", "12", "13", "14", "15", "16"},
	},
	ErrorCodes: map[string]string{
		"1":   "Agent does not have such Module",
		"2":   "Target Module is not Actuator",
		"3":   "Unknown signal",
		"10":  "Wrong message format - not JSON",
		"11":  "Wrong GPIO configuration",
		"12":  "Modules maximum is reached",
		"100": "GPIO storage failure",
		"101": "Bridge storage failure",
	},
}

// Config is a parsed JSON configuration object. Nodes, modules and actors
// all carry one; typed accessors tolerate missing keys (absence means
// "use the default"), matching the opaque device payloads they come from.
type Config map[string]any

// ParseConfig decodes a JSON configuration string.
func ParseConfig(raw string) (Config, error) {
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Has reports whether the key is present.
func (c Config) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Str returns the value under key rendered as a string, or "" if absent.
// Numeric JSON values are formatted without a trailing fraction where
// possible, so a device sending p:13 and one sending p:"13" read the same.
func (c Config) Str(key string) string {
	v, ok := c[key]
	if !ok {
		return ""
	}
	return Stringify(v)
}

// Int returns the value under key as an integer. Absent or unparseable
// values yield the fallback.
func (c Config) Int(key string, fallback int) int {
	v, ok := c[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return fallback
}

// Bool returns the value under key as a boolean, or the fallback if absent.
func (c Config) Bool(key string, fallback bool) bool {
	v, ok := c[key]
	if !ok {
		return fallback
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != "" && b != "0" && b != "false"
	case float64:
		return b != 0
	}
	return fallback
}

// Sub returns the nested object under key, or nil if absent or not an object.
func (c Config) Sub(key string) Config {
	if v, ok := c[key].(map[string]any); ok {
		return Config(v)
	}
	return nil
}

// List returns the nested array under key, or nil if absent.
func (c Config) List(key string) []any {
	if v, ok := c[key].([]any); ok {
		return v
	}
	return nil
}

// Clone returns a deep copy of the config.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Config(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Stringify renders an arbitrary signal value as a string.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// BoxKey builds the source key for a node/module pair. A module-less key
// is the bare node or actor ID.
func BoxKey(nid, mal string) string {
	if mal == "" {
		return nid
	}
	return nid + "/" + mal
}

// Box is a named value cell owned by a Module or an Actor. It holds the
// last value written; there is no history.
type Box struct {
	Name string

	mu    sync.Mutex
	value any
}

// NewBox creates an empty named box.
func NewBox(name string) *Box {
	return &Box{Name: name, value: ""}
}

// Value returns the last value written to the box.
func (b *Box) Value() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// SetValue stores a new value in the box.
func (b *Box) SetValue(v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = v
}

// Module is a sensor or actuator endpoint on a Node, identified by an
// alias unique within the node. It owns exactly one Box holding its last
// reported value.
type Module struct {
	Alias  string
	NodeID string
	Config Config
	Box    *Box
}

// NewModule builds a module from its device-reported config. The alias is
// the "a" field of the config.
func NewModule(cfg Config, nid string) (*Module, error) {
	alias := cfg.Str("a")
	if alias == "" {
		return nil, fmt.Errorf("%w: module config lacks %q", ErrMissingField, "a")
	}
	return &Module{
		Alias:  alias,
		NodeID: nid,
		Config: cfg,
		Box:    NewBox(alias),
	}, nil
}

// Key returns the module's process-wide source key ("<nid>/<alias>").
func (m *Module) Key() string {
	return BoxKey(m.NodeID, m.Alias)
}

// IsActuator reports whether the module accepts signals.
func (m *Module) IsActuator() bool {
	return m.Config.Int("t", 0) > actuatorTypeThreshold
}

// Name returns the operator-visible module name, defaulting to the alias.
func (m *Module) Name() string {
	if n := m.Config.Str("name"); n != "" {
		return n
	}
	return m.Alias
}

// Node is a networked hardware unit hosting modules. Created on the first
// hello message from a device and updated in place on every later hello.
type Node struct {
	ID      string
	Type    string
	Session *Session

	mu      sync.Mutex
	config  Config
	modules map[string]*Module
	isAlive bool
}

// NewNode builds a node from its hello config. The config must carry an
// "id" field.
func NewNode(cfg Config) (*Node, error) {
	id := cfg.Str("id")
	if id == "" {
		return nil, fmt.Errorf("%w: node config lacks %q", ErrMissingField, "id")
	}
	n := &Node{
		ID:      id,
		Type:    "esp8266",
		config:  cfg,
		modules: make(map[string]*Module),
	}
	n.Session = newSession(n)
	return n, nil
}

// Alive records the node's liveness. A true transition also stamps the
// last-time-alive field.
func (n *Node) Alive(isAlive bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.isAlive = isAlive
	n.config["alive"] = isAlive
	if isAlive {
		n.config["LTA"] = float64(time.Now().Unix())
	}
}

// IsAlive reports whether the node is believed to be on the network.
func (n *Node) IsAlive() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.isAlive
}

// UpdateConfig replaces the node's hello config in place. Used when a
// known node re-sends its hello.
func (n *Node) UpdateConfig(cfg Config) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for k, v := range cfg {
		n.config[k] = v
	}
}

// Module returns the module with the given alias, or nil.
func (n *Node) Module(alias string) *Module {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.modules[alias]
}

// Modules returns a snapshot of the node's modules keyed by alias.
func (n *Node) Modules() map[string]*Module {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]*Module, len(n.modules))
	for k, v := range n.modules {
		out[k] = v
	}
	return out
}

// addModule inserts the module if its alias is free. Returns false when
// the alias is already taken.
func (n *Node) addModule(m *Module) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.modules[m.Alias]; exists {
		return false
	}
	n.modules[m.Alias] = m
	return true
}

// removeModule deletes the module by alias, reporting whether it existed.
func (n *Node) removeModule(alias string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.modules[alias]; !exists {
		return false
	}
	delete(n.modules, alias)
	return true
}

// PinsUsed returns the pins occupied by the node's current modules.
func (n *Node) PinsUsed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	pins := make([]string, 0, len(n.modules))
	for _, m := range n.modules {
		pins = append(pins, m.Config.Str("p"))
	}
	return pins
}

// ModuleConfigs returns a copy of every module's config.
func (n *Node) ModuleConfigs() []Config {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Config, 0, len(n.modules))
	for _, m := range n.modules {
		out = append(out, m.Config.Clone())
	}
	return out
}

// Cfg returns a copy of the node's config with the module configs injected
// under "gpio", the shape the operator structure export uses.
func (n *Node) Cfg() Config {
	n.mu.Lock()
	defer n.mu.Unlock()
	cfg := n.config.Clone()
	gpio := make([]any, 0, len(n.modules))
	for _, m := range n.modules {
		gpio = append(gpio, map[string]any(m.Config.Clone()))
	}
	cfg["gpio"] = gpio
	return cfg
}

// GPIOPayload filters module configs down to the tags the agent firmware
// accepts, the shape pushed to a node when its module set changes.
func GPIOPayload(configs []Config) Config {
	units := make([]any, 0, len(configs))
	for _, cfg := range configs {
		unit := make(map[string]any, len(DefaultAgentProfile.GPIOTags))
		for _, tag := range DefaultAgentProfile.GPIOTags {
			if v, ok := cfg[tag]; ok {
				unit[tag] = v
			}
		}
		units = append(units, unit)
	}
	return Config{"gpio": units}
}
