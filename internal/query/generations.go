package query

import "sync"

// Generations issues monotonically increasing request tokens per scope so
// callers can discard responses that were superseded by a newer request.
// The underlying fetch is not cancelled; a completed fetch whose token is no
// longer the latest is simply dropped by the caller.
type Generations struct {
	mu     sync.Mutex
	latest map[string]uint64
}

// NewGenerations constructs an empty token registry.
func NewGenerations() *Generations {
	return &Generations{latest: make(map[string]uint64)}
}

// Next claims the next token for scope and marks it as the latest.
func (g *Generations) Next(scope string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.latest[scope]++
	return g.latest[scope]
}

// Latest reports whether token is still the most recent one for scope.
func (g *Generations) Latest(scope string, token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.latest[scope] == token
}
