package hub

import (
	"context"
	"fmt"

	"github.com/nerrad567/khome-core/internal/inventory"
)

// helloRequest is the broadcast command asking every agent on the bus
// to re-announce itself.
const helloRequest = "i!"

// Start brings the hub online: persisted actors are loaded and
// resolved, the south and north topics subscribed, every agent asked to
// re-announce itself, and the scheduler's minute tick armed.
func (h *Hub) Start(ctx context.Context) error {
	h.loadActors(ctx)

	if err := h.bus.Subscribe(h.topics.Manager(), 0, h.onManager); err != nil {
		return fmt.Errorf("subscribing to operator requests: %w", err)
	}
	if err := h.bus.Subscribe(h.topics.AllNodeReports(), 0, h.onNodeReport); err != nil {
		return fmt.Errorf("subscribing to node reports: %w", err)
	}
	if err := h.bus.Subscribe(h.topics.AllModuleData(), 0, h.onModuleData); err != nil {
		return fmt.Errorf("subscribing to module data: %w", err)
	}

	// Re-announce on every reconnect, and once now for the session that
	// is already up.
	h.bus.SetOnConnect(h.askAgentsForConfigs)
	h.askAgentsForConfigs()

	h.sch.Start()
	h.logger.Info("hub started")
	return nil
}

// Stop disarms the scheduler. The bus connection is owned by the caller.
func (h *Hub) Stop() {
	h.sch.Stop()
}

// loadActors rebuilds the actor population from storage. Configs load
// in id order, so forward references between actors park on the
// placeholder key until ResolveDeferred runs; actors whose type or
// config is no longer valid are skipped.
func (h *Hub) loadActors(ctx context.Context) {
	if h.repo == nil || h.factory == nil {
		return
	}

	records, err := h.repo.LoadActors(ctx)
	if err != nil {
		h.logger.Error("cannot load persisted actors", "error", err)
		return
	}
	loaded := 0
	for _, record := range records {
		actor, err := h.factory.CreateFromJSON(record.Config, record.ID)
		if err != nil {
			h.logger.Warn("skipping stored actor", "aid", record.ID, "error", err)
			continue
		}
		h.inv.RegisterActor(actor)
		loaded++
	}
	h.inv.ResolveDeferred()
	h.logger.Info("actors loaded", "count", loaded, "stored", len(records))
}

// askAgentsForConfigs broadcasts the hello request to every node.
func (h *Hub) askAgentsForConfigs() {
	if err := h.bus.PublishString(h.topics.ConfigNode(inventory.AllNodes), helloRequest, 0, false); err != nil {
		h.logger.Warn("cannot broadcast hello request", "error", err)
	}
}
