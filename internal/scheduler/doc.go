// Package scheduler provides the minute-resolution timetable that
// drives time-based automation.
//
// Jobs are filed under keys derived from partially-specified time
// templates ("[[[[YYYY:]MM:]DD:]hh:]mm[.ss]"). Once per minute the
// scheduler renders the wall clock as a key and fires every job whose
// timetable key is a suffix of it, so open templates recur naturally
// while fully concrete entries fire once and are swept away.
//
// Two job kinds exist: EventJob dispatches a value to a handler, and
// IntervalEventJob expands a start/stop/period window into concrete
// EventJobs, refiling itself at the window's stop time so the next
// window is expanded when the current one ends.
//
// The scheduler does not interpret handler keys. Fired values are
// handed to the DispatchFunc supplied at construction, which in the hub
// routes them through the inventory's signal dispatch.
package scheduler
