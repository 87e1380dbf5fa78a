package inventory

import "errors"

// Sentinel errors for inventory operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, inventory.ErrNodeNotFound) {
//	    // Answer the operator with a named condition
//	}
var (
	// ErrNodeNotFound indicates a request addressed an unknown node.
	ErrNodeNotFound = errors.New("inventory: node not found")

	// ErrNodeExists indicates a node with the same ID is already registered.
	ErrNodeExists = errors.New("inventory: node already exists")

	// ErrModuleNotFound indicates a request addressed an unknown module.
	ErrModuleNotFound = errors.New("inventory: module not found")

	// ErrModuleExists indicates a module alias is already taken on the node.
	ErrModuleExists = errors.New("inventory: module already exists")

	// ErrActorNotFound indicates a request addressed an unknown actor.
	ErrActorNotFound = errors.New("inventory: actor not found")

	// ErrMissingField indicates an actor or module configuration lacks a
	// field mandatory for its declared type.
	ErrMissingField = errors.New("inventory: missing config field")

	// ErrSessionBusy indicates a node session already has a request in flight.
	ErrSessionBusy = errors.New("inventory: session busy")

	// ErrInvalidConfig indicates a configuration payload could not be parsed.
	ErrInvalidConfig = errors.New("inventory: invalid config")
)
