package server

import (
	"net"
	"sync"
)

// ConnRegistry tracks every live client connection so shutdown can force
// them all closed and unblock their read loops (spec.md §5 "Cancellation").
// A plain mutex-guarded set, the same shape as game.Registry, rather than
// routed through a manager actor.
type ConnRegistry struct {
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func newConnRegistry() *ConnRegistry {
	return &ConnRegistry{conns: make(map[net.Conn]struct{})}
}

func (r *ConnRegistry) add(c net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c] = struct{}{}
}

func (r *ConnRegistry) remove(c net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c)
}

// CloseAll force-closes every tracked connection, waking any goroutine
// blocked in a Read call on it.
func (r *ConnRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.conns {
		c.Close()
	}
}

// Count returns the number of currently tracked connections.
func (r *ConnRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
