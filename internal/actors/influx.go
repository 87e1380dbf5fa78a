package actors

import (
	"strconv"
	"sync"

	"github.com/nerrad567/khome-core/internal/inventory"
)

// LogInflux pushes its source's numeric signals to the time-series
// backend, throttled by the periodic gate. Composite signals write one
// field per numeric key; scalar signals write under "value".
// Non-numeric content is skipped, the backend only takes numbers.
type LogInflux struct {
	inventory.HandlerBase
	metrics MetricWriter
	logger  Logger

	mu   sync.RWMutex
	gate *PeriodicGate
}

// NewLogInflux builds a time-series logging actor. Construction
// succeeds without a configured backend; signals are then dropped with
// a warning so a disabled InfluxDB does not invalidate stored actors.
func NewLogInflux(cfg inventory.Config, id string, deps Deps) (inventory.Actor, error) {
	base, err := inventory.NewHandlerBase(cfg, id)
	if err != nil {
		return nil, err
	}
	return &LogInflux{
		HandlerBase: base,
		gate:        NewPeriodicGate(base.Data()),
		metrics:     deps.Metrics,
		logger:      deps.logger(),
	}, nil
}

func (a *LogInflux) ProcessSignal(signal any) {
	a.mu.RLock()
	gate := a.gate
	a.mu.RUnlock()

	if !gate.Pass() {
		return
	}
	if a.metrics == nil {
		a.logger.Debug("no metrics backend, dropping reading", "aid", a.ID())
		return
	}

	key := a.HandlerKey()
	switch sig := signal.(type) {
	case map[string]any:
		for field, raw := range sig {
			v, err := strconv.ParseFloat(inventory.Stringify(raw), 64)
			if err != nil {
				continue
			}
			a.metrics.WriteSensorMetric(key, field, v)
		}
	default:
		v, err := strconv.ParseFloat(inventory.Stringify(signal), 64)
		if err != nil {
			return
		}
		a.metrics.WriteSensorMetric(key, "value", v)
	}
}

// ApplyChanges re-reads the logging period.
func (a *LogInflux) ApplyChanges() {
	gate := NewPeriodicGate(a.Data())
	a.mu.Lock()
	a.gate = gate
	a.mu.Unlock()
}
