package actors

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/nerrad567/khome-core/internal/inventory"
)

// DefaultThingSpeakURL is the public ThingSpeak update endpoint.
const DefaultThingSpeakURL = "https://api.thingspeak.com/update"

// LogThingSpeak uploads its source's signals to a ThingSpeak channel.
// The channel write key is mandatory. Composite signals map their
// fields to channel fields through the mapping table (unit "in" is the
// signal key, unit "out" the channel field); scalar signals go to the
// data section's "out" field, defaulting to field1.
type LogThingSpeak struct {
	inventory.HandlerBase
	client   *http.Client
	endpoint string
	logger   Logger

	mu       sync.RWMutex
	mapping  *Mapping
	gate     *PeriodicGate
	writeKey string
}

// NewLogThingSpeak builds an uploader, failing when the config names no
// channel write key.
func NewLogThingSpeak(cfg inventory.Config, id string, deps Deps) (inventory.Actor, error) {
	base, err := inventory.NewHandlerBase(cfg, id)
	if err != nil {
		return nil, err
	}
	writeKey := base.Data().Str("key")
	if writeKey == "" {
		return nil, fmt.Errorf("%w: logthingspeak#%s lacks %q", inventory.ErrMissingField, id, "key")
	}

	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	endpoint := deps.ThingSpeakURL
	if endpoint == "" {
		endpoint = DefaultThingSpeakURL
	}

	return &LogThingSpeak{
		HandlerBase: base,
		mapping:     NewMapping(base.Data()),
		gate:        NewPeriodicGate(base.Data()),
		client:      client,
		endpoint:    endpoint,
		writeKey:    writeKey,
		logger:      deps.logger(),
	}, nil
}

func (a *LogThingSpeak) ProcessSignal(signal any) {
	a.mu.RLock()
	mapping, gate, writeKey := a.mapping, a.gate, a.writeKey
	a.mu.RUnlock()

	if !gate.Pass() {
		return
	}

	form := url.Values{"key": {writeKey}}
	switch sig := signal.(type) {
	case map[string]any:
		for alias, value := range sig {
			unit, ok := mapping.Lookup(alias)
			if !ok || !unit.Has("out") {
				continue
			}
			form.Set(unit.Str("out"), inventory.Stringify(value))
		}
	default:
		field := a.Data().Str("out")
		if field == "" {
			field = "field1"
		}
		form.Set(field, inventory.Stringify(signal))
	}

	resp, err := a.client.PostForm(a.endpoint, form)
	if err != nil {
		a.logger.Warn("cannot upload to thingspeak", "aid", a.ID(), "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("thingspeak rejected upload",
			"aid", a.ID(), "status", resp.StatusCode)
	}
}

// ApplyChanges rebuilds the mapping table and re-reads the period and
// write key.
func (a *LogThingSpeak) ApplyChanges() {
	data := a.Data()
	mapping, gate := NewMapping(data), NewPeriodicGate(data)

	a.mu.Lock()
	a.mapping, a.gate = mapping, gate
	if key := data.Str("key"); key != "" {
		a.writeKey = key
	}
	a.mu.Unlock()
}
