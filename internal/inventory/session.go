package inventory

import (
	"sync"
	"time"
)

// sessionTimeout is how long a caller blocks waiting for a node to
// answer before the request is written off. A variable so tests can
// shorten it.
var sessionTimeout = 3 * time.Second

// TimeoutResponse returns the fixed negative-acknowledgement payload a
// timed-out session yields. To the caller it is indistinguishable from
// a device-reported failure.
func TimeoutResponse() map[string]any {
	return map[string]any{DefaultAgentProfile.Negative: "timeout"}
}

// Session turns one asynchronous publish/response exchange with a node
// into a blocking call with timeout. Each node owns exactly one; at most
// one request is in flight at a time, a second Start is rejected with
// ErrSessionBusy while one is outstanding.
type Session struct {
	node *Node

	mu       sync.Mutex
	active   bool
	request  any
	northSID string
	done     chan any
}

func newSession(node *Node) *Session {
	return &Session{node: node}
}

// Start publishes nothing itself: the caller sends the request on the
// bus first, then parks here until Stop delivers the node's answer or
// the timeout elapses. northSID carries the operator session id when
// this exchange services an external request.
//
// On timeout the node is marked not alive and the fixed
// negative-acknowledgement payload is returned in place of a response.
func (s *Session) Start(request any, northSID string) (any, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}
	s.active = true
	s.request = request
	s.northSID = northSID
	done := make(chan any, 1)
	s.done = done
	s.mu.Unlock()

	select {
	case response := <-done:
		return response, nil
	case <-time.After(sessionTimeout):
		if !s.expire(done) {
			// Stop won the race; its response is already buffered.
			return <-done, nil
		}
		s.node.Alive(false)
		return TimeoutResponse(), nil
	}
}

// Stop completes the session with the node's response, releasing the
// blocked caller. Idempotent: a response arriving when no request is
// outstanding (including after a timeout) is silently dropped.
func (s *Session) Stop(response any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	s.northSID = ""
	s.done <- response
	s.done = nil
}

// expire deactivates the session if the pending exchange is still the
// one identified by done. Returns false when Stop already completed it.
func (s *Session) expire(done chan any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.done != done {
		return false
	}
	s.active = false
	s.northSID = ""
	s.done = nil
	return true
}

// Active reports whether a request is in flight.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Request returns the last outbound request, kept for diagnostics.
func (s *Session) Request() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

// NorthSID returns the operator session id the in-flight exchange
// services, or "".
func (s *Session) NorthSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.northSID
}
