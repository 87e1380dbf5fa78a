package hub

import (
	"github.com/nerrad567/khome-core/internal/actors"
	"github.com/nerrad567/khome-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/khome-core/internal/inventory"
	"github.com/nerrad567/khome-core/internal/scheduler"
)

// Logger is the minimal logging interface the hub needs.
// Satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Bus is the slice of the MQTT client the hub uses. Narrowed to an
// interface so the message flows can be tested against a fake broker.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishString(topic, payload string, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	SetOnConnect(callback func())
}

// Hub glues the transport to the inventory: it routes south traffic
// (device reports and data) into the registry and dispatch, exposes the
// north management API to operator frontends, and runs the persisted
// actor bootstrap.
type Hub struct {
	inv     *inventory.Inventory
	bus     Bus
	sch     *scheduler.Scheduler
	factory *actors.Factory
	repo    inventory.Repository
	topics  mqtt.Topics
	logger  Logger
}

// Options carries the hub's collaborators. Repo may be nil, disabling
// the persisted actor bootstrap.
type Options struct {
	Inventory *inventory.Inventory
	Bus       Bus
	Scheduler *scheduler.Scheduler
	Factory   *actors.Factory
	Repo      inventory.Repository
	Logger    Logger
}

// New creates a hub. It subscribes nothing until Start.
func New(opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Hub{
		inv:     opts.Inventory,
		bus:     opts.Bus,
		sch:     opts.Scheduler,
		factory: opts.Factory,
		repo:    opts.Repo,
		logger:  logger,
	}
}

// SetFactory installs the actor factory. Separate from New because the
// factory's dependencies include the hub itself (it is the signal
// sender resend actors use).
func (h *Hub) SetFactory(f *actors.Factory) {
	h.factory = f
}
