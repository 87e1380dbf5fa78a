package inventory

// maxChainDepth bounds box-propagation recursion. A chain this long only
// occurs when an actor configuration references an ancestor of itself;
// the dispatcher reports the cycle instead of recursing unbounded.
const maxChainDepth = 16

// HandleValue fans a value out to every actor indexed under the key, in
// registration order, synchronously on the calling goroutine. After an
// actor runs, its own id becomes the next handler key and its box value
// is what propagates — the whole chain completes before HandleValue
// returns.
//
// A key with no consumers is a no-op, not an error. A failing actor does
// not prevent its siblings under the same key from running.
func (inv *Inventory) HandleValue(key string, value any) {
	inv.handleValue(key, value, 0)
}

func (inv *Inventory) handleValue(key string, value any, depth int) {
	if depth > maxChainDepth {
		inv.logger.Error("actor chain exceeds depth limit, possible cycle", "key", key)
		return
	}

	inv.mu.RLock()
	chain := inv.handlers[key]
	actors := make([]Actor, len(chain))
	copy(actors, chain)
	inv.mu.RUnlock()

	for _, actor := range actors {
		if actor.Active() {
			inv.invoke(actor, value)
		}
		if box := actor.Box(); box != nil {
			inv.handleValue(actor.ID(), box.Value(), depth+1)
		}
	}
}

// invoke runs one actor's signal processing, converting a panic into a
// logged error so the rest of the chain keeps running.
func (inv *Inventory) invoke(actor Actor, value any) {
	defer func() {
		if r := recover(); r != nil {
			inv.logger.Error("actor panicked on signal",
				"aid", actor.ID(), "panic", r)
		}
	}()
	actor.ProcessSignal(value)
}
