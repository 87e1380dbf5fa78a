package actors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nerrad567/khome-core/internal/inventory"
)

// LogDB appends its source's signals to the local sensor history table,
// throttled by the periodic gate.
type LogDB struct {
	inventory.HandlerBase
	sensors SensorLog
	logger  Logger

	mu   sync.RWMutex
	gate *PeriodicGate
}

// NewLogDB builds a database logging actor.
func NewLogDB(cfg inventory.Config, id string, deps Deps) (inventory.Actor, error) {
	base, err := inventory.NewHandlerBase(cfg, id)
	if err != nil {
		return nil, err
	}
	return &LogDB{
		HandlerBase: base,
		gate:        NewPeriodicGate(base.Data()),
		sensors:     deps.Sensors,
		logger:      deps.logger(),
	}, nil
}

func (a *LogDB) ProcessSignal(signal any) {
	a.mu.RLock()
	gate := a.gate
	a.mu.RUnlock()

	if !gate.Pass() {
		return
	}
	if a.sensors == nil {
		a.logger.Warn("logdb actor has no storage", "aid", a.ID())
		return
	}
	if err := a.sensors.LogSensorData(context.Background(), a.HandlerKey(), FlattenSignal(signal)); err != nil {
		a.logger.Warn("cannot log sensor data", "aid", a.ID(), "error", err)
	}
}

// ApplyChanges re-reads the logging period.
func (a *LogDB) ApplyChanges() {
	gate := NewPeriodicGate(a.Data())
	a.mu.Lock()
	a.gate = gate
	a.mu.Unlock()
}

// FlattenSignal renders a signal for storage. Composite signals become
// a JSON-like object with keys in sorted order so identical readings
// produce identical rows; plain strings pass through; anything else is
// marked unreadable.
func FlattenSignal(signal any) string {
	switch sig := signal.(type) {
	case map[string]any:
		keys := make([]string, 0, len(sig))
		for k := range sig {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%q:%q", k, inventory.Stringify(sig[k]))
		}
		b.WriteByte('}')
		return b.String()
	case string:
		return sig
	default:
		return `{"unknown-value-type":}`
	}
}
