package registry

import (
	"sync"

	"github.com/rs/zerolog"

	"sotto/internal/domain"
)

// Registry is an explicitly owned connection table. Multiple independent
// registries can coexist; nothing here is process-global.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.PrincipalID]map[domain.Conn]struct{}
	log   zerolog.Logger
}

// New returns an empty registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		conns: make(map[domain.PrincipalID]map[domain.Conn]struct{}),
		log:   log,
	}
}

// Register adds conn to the principal's set, creating the set if absent.
// Registering the same connection twice is a no-op; concurrent registers
// under one principal are plain set adds, never lost updates.
func (r *Registry) Register(id domain.PrincipalID, conn domain.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[id]
	if !ok {
		set = make(map[domain.Conn]struct{})
		r.conns[id] = set
	}
	set[conn] = struct{}{}
}

// Unregister removes conn from whatever set contains it. An emptied set is
// dropped so the principal stops resolving entirely.
func (r *Registry) Unregister(conn domain.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, set := range r.conns {
		if _, ok := set[conn]; ok {
			delete(set, conn)
			if len(set) == 0 {
				delete(r.conns, id)
			}
		}
	}
}

// Fanout sends frame to every connection registered for id. Iteration runs
// over a snapshot taken under the read lock, so concurrent registers and
// closes cannot disturb it; a connection found closed at send time is
// skipped, its close handler owns the eventual Unregister.
func (r *Registry) Fanout(id domain.PrincipalID, frame any) {
	for _, conn := range r.Connections(id) {
		if err := conn.Send(frame); err != nil {
			r.log.Debug().Str("principal", string(id)).Err(err).Msg("fanout skipped closed connection")
		}
	}
}

// Connections returns a snapshot of the principal's current connections.
func (r *Registry) Connections(id domain.PrincipalID) []domain.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[id]
	out := make([]domain.Conn, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}

// Resolvable reports whether the principal has at least one connection.
func (r *Registry) Resolvable(id domain.PrincipalID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[id]) > 0
}
