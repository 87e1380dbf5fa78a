package actors

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/nerrad567/khome-core/internal/inventory"
)

const defaultAverageDepth = 5

// Average smooths numeric signals over a sliding window of the last
// "depth" values and stores the result in its box, one decimal place.
// Composite signals are averaged per key; scalar signals share a single
// series. The box is mandatory: an average nobody can read is dead
// configuration.
type Average struct {
	inventory.HandlerBase

	depth int

	mu      sync.Mutex
	history map[string][]float64
}

// NewAverage builds an averaging actor, failing when the config names
// no box.
func NewAverage(cfg inventory.Config, id string, deps Deps) (inventory.Actor, error) {
	base, err := inventory.NewHandlerBase(cfg, id)
	if err != nil {
		return nil, err
	}
	if base.Box() == nil {
		return nil, fmt.Errorf("%w: average#%s lacks %q", inventory.ErrMissingField, id, "box")
	}
	return &Average{
		HandlerBase: base,
		depth:       windowDepth(base.Data()),
		history:     make(map[string][]float64),
	}, nil
}

// windowDepth reads the configured window size, clamping it to at
// least 1 so the window can never trim itself empty.
func windowDepth(data inventory.Config) int {
	depth := data.Int("depth", defaultAverageDepth)
	if depth < 1 {
		depth = 1
	}
	return depth
}

// calc appends one value to the keyed series, trims it to depth and
// returns the mean formatted to one decimal.
func (a *Average) calc(key string, value float64) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	series := append(a.history[key], value)
	if len(series) > a.depth {
		series = series[1:]
	}
	a.history[key] = series

	var sum float64
	for _, v := range series {
		sum += v
	}
	return fmt.Sprintf("%.1f", sum/float64(len(series)))
}

// ProcessSignal averages the signal into the box. Composite values keep
// their shape with each numeric field replaced by its running average;
// non-numeric fields pass through untouched.
func (a *Average) ProcessSignal(signal any) {
	switch sig := signal.(type) {
	case map[string]any:
		averaged := make(map[string]any, len(sig))
		for key, raw := range sig {
			v, err := strconv.ParseFloat(inventory.Stringify(raw), 64)
			if err != nil {
				averaged[key] = raw
				continue
			}
			averaged[key] = a.calc(key, v)
		}
		a.Box().SetValue(averaged)
	default:
		v, err := strconv.ParseFloat(inventory.Stringify(signal), 64)
		if err != nil {
			return
		}
		a.Box().SetValue(a.calc(".", v))
	}
}

// ApplyChanges re-reads the window depth and drops accumulated history.
func (a *Average) ApplyChanges() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.depth = windowDepth(a.Data())
	a.history = make(map[string][]float64)
}
