package scheduler

import "time"

// Job is a timetable entry. Schedule files the job into the scheduler's
// timetable; Process runs when the job's key matches the current minute.
type Job interface {
	// Handler is the actor or signal key the job fires for.
	Handler() string
	// Start is the template the job is filed under.
	Start() JobTime
	// Schedule files the job into the timetable.
	Schedule(s *Scheduler)
	// Process performs the job's action for the current tick.
	Process(s *Scheduler)
}

// EventJob dispatches a value to its handler when its start template
// matches. Open templates recur; concrete ones fire once and are swept
// by the next clean pass.
type EventJob struct {
	handler string
	value   any
	start   JobTime
}

// NewEventJob builds a one-shot or recurring event from a start
// template string.
func NewEventJob(handler string, value any, start string) *EventJob {
	return &EventJob{handler: handler, value: value, start: Parse(start)}
}

// newEventAt builds an event pinned to a concrete instant.
func newEventAt(handler string, value any, at time.Time) *EventJob {
	return &EventJob{handler: handler, value: value, start: FromTime(at)}
}

func (j *EventJob) Handler() string { return j.handler }
func (j *EventJob) Start() JobTime  { return j.start }

// Value is the payload dispatched when the job fires.
func (j *EventJob) Value() any { return j.value }

func (j *EventJob) Schedule(s *Scheduler) {
	s.AddJob(j)
}

func (j *EventJob) Process(s *Scheduler) {
	s.dispatch(j.handler, j.value)
}

// IntervalEventJob expands a start/stop/period triple into concrete
// EventJobs covering the next matching window, then files itself at the
// window's stop time so the tick that ends the window re-expands the
// following one.
type IntervalEventJob struct {
	handler string
	start   string
	stop    string
	period  string
	value   any
	filedAt JobTime
}

// NewIntervalEventJob builds a periodic window job. start and stop are
// time templates bounding the window; period is a duration template
// giving the spacing of events inside it.
func NewIntervalEventJob(handler string, value any, start, stop, period string) *IntervalEventJob {
	return &IntervalEventJob{handler: handler, start: start, stop: stop, period: period, value: value}
}

func (j *IntervalEventJob) Handler() string { return j.handler }
func (j *IntervalEventJob) Start() JobTime  { return j.filedAt }

// Schedule materializes the window against the scheduler's clock. When
// the current window's stop has already passed, the start template is
// shifted to the next window. Every period-spaced instant from start
// through stop gets an EventJob, and the interval job itself is filed
// at the stop instant to trigger re-expansion.
func (j *IntervalEventJob) Schedule(s *Scheduler) {
	startTemplate := Parse(j.start)
	stopTemplate := Parse(j.stop)
	period := Parse(j.period).Duration()
	if period <= 0 {
		s.logger.Error("interval job has no period, not scheduling",
			"handler", j.handler, "period", j.period)
		return
	}

	now := s.now()
	shift := 0
	if stopTemplate.CompareTime(now) <= 0 {
		shift = 1
	}
	startTime := startTemplate.Materialize(shift, now)

	shift = 0
	if stopTemplate.CompareTime(startTime) < 0 {
		shift = 1
	}
	stopTime := stopTemplate.Materialize(shift, startTime)

	for !stopTime.Before(startTime) {
		newEventAt(j.handler, j.value, startTime).Schedule(s)
		startTime = startTime.Add(period)
	}

	j.filedAt = FromTime(stopTime)
	s.AddJob(j)
}

// Process marks the spent window for cleaning and queues the job for
// rescheduling once the current tick finishes.
func (j *IntervalEventJob) Process(s *Scheduler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanNeeded = true
	s.toSchedule = append(s.toSchedule, j)
}
