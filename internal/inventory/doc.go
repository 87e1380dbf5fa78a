// Package inventory is the authoritative registry of the KHome topology:
// nodes, their modules, the actors chained off them, and the boxes
// holding their last values.
//
// # Structure
//
// An Inventory owns four maps and two cross-indices:
//   - nodes by node ID, each node owning its modules and one Session
//   - actors by actor ID
//   - the handler index: handler key -> actors, in registration order
//   - the box index: resolved source key -> boxes
//
// Every structural mutation (node/module/actor add or remove) bumps a
// process-wide revision counter under the same lock, letting operator
// clients skip re-fetching an unchanged topology.
//
// # Dispatch
//
// HandleValue fans a value out through the handler index: each actor
// under the key runs synchronously in registration order, then its own
// id becomes the next key and its box value propagates. A bounded depth
// guard turns a cyclic configuration into a logged error. See dispatch.go.
//
// # Sessions
//
// Session converts the asynchronous publish/response exchange with a
// node into a blocking call with a fixed timeout. One request per node
// at a time; a concurrent Start is rejected with ErrSessionBusy.
//
// # Persistence
//
// The Repository interface persists actor configs, module names and
// sensor readings. Writes are best-effort: failures are logged, the
// in-memory state stands, and Dirty() reports the divergence.
package inventory
