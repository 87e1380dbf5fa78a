// Package actors implements the configurable signal processing units
// chained off modules and off each other.
//
// An actor is built by the Factory from a persisted JSON config whose
// "type" field selects the constructor. Handlers (resend, average and
// the log family) consume a declared source; the schedule generator has
// none and is fed by the scheduler instead. Construction is fallible:
// a config missing a field its type requires yields an error, and the
// bootstrap drops that actor rather than running it half-configured.
//
// Collaborators arrive through Deps as narrow interfaces, so actors can
// be exercised in tests without a broker, database or metrics backend.
package actors
