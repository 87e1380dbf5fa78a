package scheduler

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Logger is the minimal logging interface the scheduler needs.
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

// DispatchFunc delivers a fired job's value to its handler key.
type DispatchFunc func(handler string, value any)

// Scheduler keeps a timetable of jobs keyed by their start template and
// processes it once per minute. Keys are matched by suffix against the
// current minute rendered as "YYYY:MM:DD:hh:mm", so the key of an open
// template ("09:30") matches every day while a concrete key matches a
// single minute. Jobs with a nonzero second are deferred within the
// minute by a sub-timer.
type Scheduler struct {
	mu          sync.Mutex
	timetable   map[string][]Job
	toSchedule  []Job
	cleanNeeded bool
	timer       *time.Timer
	running     bool

	dispatch DispatchFunc
	logger   Logger
	now      func() time.Time
}

// New creates a scheduler delivering fired jobs through dispatch.
func New(dispatch DispatchFunc) *Scheduler {
	return &Scheduler{
		timetable: make(map[string][]Job),
		dispatch:  dispatch,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger installs a logger. Pass nil to silence.
func (s *Scheduler) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Start processes the timetable immediately and arms the minute tick.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	s.tick()
}

// Stop cancels the minute tick. Jobs already handed to sub-timers for
// the current minute still fire.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// tick processes the current minute and re-arms for the next minute
// boundary.
func (s *Scheduler) tick() {
	now := s.now()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.timer = time.AfterFunc(time.Duration(60-now.Second())*time.Second, s.tick)
	s.mu.Unlock()

	s.Process(TickKey(now), now.Second())
}

// TickKey renders an instant as the suffix-matchable minute key.
func TickKey(t time.Time) string {
	return fmt.Sprintf("%d:%02d:%02d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

// AddJob files a job into the timetable under its start key.
func (s *Scheduler) AddJob(job Job) {
	key := job.Start().Key()
	s.mu.Lock()
	s.timetable[key] = append(s.timetable[key], job)
	s.mu.Unlock()
	s.logger.Debug("job scheduled", "key", key, "handler", job.Handler())
}

// Process runs every job whose timetable key is a suffix of nowKey.
// correctionSec is how far into the minute the tick fired: a job with a
// target second later in the minute is deferred by a sub-timer for the
// remainder, others run inline. Afterwards any clean or reschedule
// requests queued by the jobs themselves are honored.
func (s *Scheduler) Process(nowKey string, correctionSec int) {
	s.mu.Lock()
	var due []Job
	for key, jobs := range s.timetable {
		if strings.HasSuffix(nowKey, key) {
			due = append(due, jobs...)
		}
	}
	s.mu.Unlock()

	for _, job := range due {
		if sec := job.Start().Second; sec > correctionSec {
			job := job
			time.AfterFunc(time.Duration(sec-correctionSec)*time.Second, func() {
				job.Process(s)
			})
		} else {
			job.Process(s)
		}
	}

	s.mu.Lock()
	cleanNeeded := s.cleanNeeded
	s.cleanNeeded = false
	pending := s.toSchedule
	s.toSchedule = nil
	s.mu.Unlock()

	if cleanNeeded {
		s.Clean()
	}
	for _, job := range pending {
		job.Schedule(s)
	}
}

// Clean drops spent timetable entries: keys that are fully concrete and
// no longer in the future, and keys whose job list has emptied. Open
// template keys always survive.
func (s *Scheduler) Clean() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, jobs := range s.timetable {
		t := Parse(key)
		if len(jobs) == 0 || (!t.IsTemplate() && t.CompareTime(now) <= 0) {
			delete(s.timetable, key)
		}
	}
}

// Clear removes every job belonging to handler, then cleans. An empty
// handler wipes the whole timetable.
func (s *Scheduler) Clear(handler string) {
	s.mu.Lock()
	if handler == "" {
		s.timetable = make(map[string][]Job)
		s.toSchedule = nil
		s.mu.Unlock()
		return
	}
	for key, jobs := range s.timetable {
		kept := jobs[:0]
		for _, job := range jobs {
			if job.Handler() != handler {
				kept = append(kept, job)
			}
		}
		s.timetable[key] = kept
	}
	kept := s.toSchedule[:0]
	for _, job := range s.toSchedule {
		if job.Handler() != handler {
			kept = append(kept, job)
		}
	}
	s.toSchedule = kept
	s.mu.Unlock()

	s.Clean()
}

// Snapshot reports the timetable's event jobs as start-time strings
// mapped to the value each will dispatch. Interval jobs appear under
// their next expansion time with a nil value.
func (s *Scheduler) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any)
	for _, jobs := range s.timetable {
		for _, job := range jobs {
			if ev, ok := job.(*EventJob); ok {
				out[ev.start.String()] = ev.value
			} else {
				out[job.Start().String()] = nil
			}
		}
	}
	return out
}

// Jobs returns the jobs filed under a timetable key. Intended for
// diagnostics.
func (s *Scheduler) Jobs(key string) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.timetable[key]...)
}
