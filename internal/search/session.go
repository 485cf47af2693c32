package search

import "sync"

// One counter per client key; the map is cleared when it grows past this
// bound. Counters are advisory, so dropping them only risks accepting a
// single stale response per client.
const maxTrackedClients = 10000

// Session guards each client's sequence of debounced queries against
// out-of-order response application. A query takes a token from Begin; a
// response is applied only while its token still belongs to the client's
// latest query. Keystrokes do not cancel in-flight requests, so a slow
// older response can arrive after a newer one completed; Accept rejects
// it. Tokens are scoped per client key, so one reader's queries never
// invalidate another's.
type Session struct {
	mu     sync.Mutex
	latest map[string]uint64
}

// NewSession creates an empty guard.
func NewSession() *Session {
	return &Session{latest: make(map[string]uint64)}
}

// Begin registers a new query for the client and returns its token. Any
// token previously issued to the same client is invalidated.
func (s *Session) Begin(client string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latest) > maxTrackedClients {
		s.latest = make(map[string]uint64)
	}
	s.latest[client]++
	return s.latest[client]
}

// Accept reports whether a response carrying the given token may be
// applied for the client.
func (s *Session) Accept(client string, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token == s.latest[client]
}
