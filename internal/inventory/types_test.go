package inventory

import (
	"errors"
	"testing"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(`{"id":"a1b2c3","t":51,"p":"13"}`)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.Str("id") != "a1b2c3" {
		t.Errorf("Str(id) = %q, want a1b2c3", cfg.Str("id"))
	}

	if _, err := ParseConfig(`{broken`); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestConfigStr(t *testing.T) {
	cfg := Config{"s": "13", "n": float64(13), "f": 21.5, "b": true}

	tests := []struct {
		key  string
		want string
	}{
		{"s", "13"},
		{"n", "13"}, // numeric and string pin fields read the same
		{"f", "21.5"},
		{"b", "true"},
		{"missing", ""},
	}
	for _, tt := range tests {
		if got := cfg.Str(tt.key); got != tt.want {
			t.Errorf("Str(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestConfigInt(t *testing.T) {
	cfg := Config{"f": float64(51), "s": "42", "junk": "abc"}
	if got := cfg.Int("f", 0); got != 51 {
		t.Errorf("Int(f) = %d, want 51", got)
	}
	if got := cfg.Int("s", 0); got != 42 {
		t.Errorf("Int(s) = %d, want 42", got)
	}
	if got := cfg.Int("junk", 7); got != 7 {
		t.Errorf("Int(junk) = %d, want fallback 7", got)
	}
	if got := cfg.Int("missing", 7); got != 7 {
		t.Errorf("Int(missing) = %d, want fallback 7", got)
	}
}

func TestConfigBool(t *testing.T) {
	cfg := Config{"t": true, "zero": float64(0), "no": "0"}
	if !cfg.Bool("t", false) {
		t.Error("Bool(t) = false")
	}
	if cfg.Bool("zero", true) {
		t.Error("Bool(zero) = true")
	}
	if cfg.Bool("no", true) {
		t.Error("Bool(no) = true")
	}
	if !cfg.Bool("missing", true) {
		t.Error("Bool(missing) ignored fallback")
	}
}

func TestConfigClone(t *testing.T) {
	cfg := Config{"data": map[string]any{"src": "a1b2c3"}, "list": []any{"x"}}
	clone := cfg.Clone()
	clone.Sub("data")["src"] = "changed"
	clone.List("list")[0] = "changed"

	if cfg.Sub("data").Str("src") != "a1b2c3" {
		t.Error("clone shares nested map with original")
	}
	if cfg.List("list")[0] != "x" {
		t.Error("clone shares nested slice with original")
	}
}

func TestBoxKey(t *testing.T) {
	if got := BoxKey("a1b2c3", "relay0"); got != "a1b2c3/relay0" {
		t.Errorf("BoxKey = %q, want a1b2c3/relay0", got)
	}
	if got := BoxKey("42", ""); got != "42" {
		t.Errorf("module-less BoxKey = %q, want 42", got)
	}
}

func TestNewModule(t *testing.T) {
	m, err := NewModule(Config{"a": "relay0", "t": float64(51), "p": "13"}, "a1b2c3")
	if err != nil {
		t.Fatalf("NewModule failed: %v", err)
	}
	if m.Key() != "a1b2c3/relay0" {
		t.Errorf("Key = %q", m.Key())
	}
	if !m.IsActuator() {
		t.Error("type 51 should be an actuator")
	}
	if m.Name() != "relay0" {
		t.Errorf("Name = %q, want alias fallback", m.Name())
	}

	if _, err := NewModule(Config{"t": float64(4)}, "a1b2c3"); !errors.Is(err, ErrMissingField) {
		t.Errorf("alias-less module: expected ErrMissingField, got %v", err)
	}
}

func TestModuleIsActuator(t *testing.T) {
	sensor, _ := NewModule(Config{"a": "dht22", "t": float64(4)}, "n")
	if sensor.IsActuator() {
		t.Error("type 4 should be a sensor")
	}
}

func TestNewNode(t *testing.T) {
	n, err := NewNode(Config{"id": "a1b2c3", "v": "1"})
	if err != nil {
		t.Fatalf("NewNode failed: %v", err)
	}
	if n.ID != "a1b2c3" {
		t.Errorf("ID = %q", n.ID)
	}
	if n.Session == nil {
		t.Error("node created without session")
	}

	if _, err := NewNode(Config{"v": "1"}); !errors.Is(err, ErrMissingField) {
		t.Errorf("id-less node: expected ErrMissingField, got %v", err)
	}
}

func TestNodeAlive(t *testing.T) {
	n, _ := NewNode(Config{"id": "a1b2c3"})

	n.Alive(true)
	if !n.IsAlive() {
		t.Error("node not alive after Alive(true)")
	}
	cfg := n.Cfg()
	if cfg["alive"] != true {
		t.Error("alive flag not replicated into config")
	}
	if _, ok := cfg["LTA"]; !ok {
		t.Error("last-time-alive not stamped")
	}

	n.Alive(false)
	if n.IsAlive() {
		t.Error("node still alive after Alive(false)")
	}
}

func TestNodeCfgInjectsGPIO(t *testing.T) {
	n, _ := NewNode(Config{"id": "a1b2c3"})
	m, _ := NewModule(Config{"a": "relay0", "t": float64(51)}, n.ID)
	n.addModule(m)

	cfg := n.Cfg()
	gpio, ok := cfg["gpio"].([]any)
	if !ok || len(gpio) != 1 {
		t.Fatalf("Cfg gpio = %v, want one module config", cfg["gpio"])
	}
}

func TestGPIOPayload(t *testing.T) {
	payload := GPIOPayload([]Config{
		{"a": "relay0", "t": float64(51), "p": "13", "name": "porch light"},
	})
	units := payload.List("gpio")
	if len(units) != 1 {
		t.Fatalf("expected 1 gpio unit, got %d", len(units))
	}
	unit := units[0].(map[string]any)
	if _, ok := unit["name"]; ok {
		t.Error("operator-only field leaked into agent payload")
	}
	for _, tag := range []string{"p", "t", "a"} {
		if _, ok := unit[tag]; !ok {
			t.Errorf("agent tag %q missing from payload", tag)
		}
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"on", "on"},
		{float64(1), "1"},
		{21.5, "21.5"},
		{true, "true"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
