package actors

import (
	"fmt"

	"github.com/nerrad567/khome-core/internal/inventory"
	"github.com/nerrad567/khome-core/internal/scheduler"
)

// Schedule is a generator: it files jobs into the scheduler from its
// config and acts as the data source for handlers chained on its id.
// When a job fires, the dispatched value flows to those handlers the
// same way a module reading would.
//
// Each entry of the data section's "jobs" list is either a one-shot or
// recurring event ({"event": <time template>, "value": ...}) or a
// periodic window ({"start": ..., "stop": ..., "period": ..., "value":
// ...}). Malformed entries are skipped.
type Schedule struct {
	inventory.GeneratorBase
	sch    *scheduler.Scheduler
	logger Logger
}

// NewSchedule builds a schedule actor and files its jobs. The scheduler
// is mandatory.
func NewSchedule(cfg inventory.Config, id string, deps Deps) (inventory.Actor, error) {
	if deps.Scheduler == nil {
		return nil, fmt.Errorf("actors: schedule#%s needs a scheduler", id)
	}
	a := &Schedule{
		GeneratorBase: inventory.NewGeneratorBase(cfg, id),
		sch:           deps.Scheduler,
		logger:        deps.logger(),
	}
	a.schedule()
	return a, nil
}

func (a *Schedule) schedule() {
	for _, raw := range a.Data().List("jobs") {
		job, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cfg := inventory.Config(job)
		switch {
		case cfg.Has("event") && cfg.Has("value"):
			scheduler.NewEventJob(a.ID(), cfg["value"], cfg.Str("event")).Schedule(a.sch)
		case cfg.Has("period") && cfg.Has("start") && cfg.Has("stop") && cfg.Has("value"):
			scheduler.NewIntervalEventJob(
				a.ID(), cfg["value"],
				cfg.Str("start"), cfg.Str("stop"), cfg.Str("period"),
			).Schedule(a.sch)
		default:
			a.logger.Warn("skipping malformed job config", "aid", a.ID(), "job", job)
		}
	}
}

// ProcessSignal is a no-op: the scheduler dispatches fired values
// directly to the handlers chained on this actor's id.
func (a *Schedule) ProcessSignal(any) {}

// ApplyChanges drops this actor's jobs from the timetable and refiles
// them from the edited config.
func (a *Schedule) ApplyChanges() {
	a.sch.Clear(a.ID())
	a.schedule()
}
