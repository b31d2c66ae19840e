// Package registry implements the connection registry (C2): an
// append-only ordered list of Connections with a monotonic id counter,
// mutated only from control threads (§4.2).
package registry

import (
	"sync"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"github.com/rtpatchbay/enginecore/sdk/ids"
)

// Registry holds the active connection set for one graph's lifetime.
// lastID never resets on Clear, preserving invariant 4 (monotonicity)
// across topology refreshes.
type Registry struct {
	mu     sync.Mutex
	conns  []contracts.Connection
	lastID ids.ConnectionId
}

func New() *Registry {
	return &Registry{}
}

// Add assigns the next ConnectionId and appends the connection.
func (r *Registry) Add(groupA ids.GroupId, portA ids.PortId, groupB ids.GroupId, portB ids.PortId) contracts.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	c := contracts.Connection{
		ID:     r.lastID,
		GroupA: groupA,
		PortA:  portA,
		GroupB: groupB,
		PortB:  portB,
	}
	r.conns = append(r.conns, c)
	return c
}

// RemoveIf removes every connection matching pred and returns how many
// were removed.
func (r *Registry) RemoveIf(pred func(contracts.Connection) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.conns[:0]
	removed := 0
	for _, c := range r.conns {
		if pred(c) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	r.conns = kept
	return removed
}

// FindByID returns the connection with the given id, if present.
func (r *Registry) FindByID(id ids.ConnectionId) (contracts.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.conns {
		if c.ID == id {
			return c, true
		}
	}
	return contracts.Connection{}, false
}

// Clear empties the connection list but keeps lastID monotone.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns = r.conns[:0]
}

// ForEach iterates connections in insertion order. fn must not call
// back into the Registry.
func (r *Registry) ForEach(fn func(contracts.Connection)) {
	r.mu.Lock()
	snapshot := append([]contracts.Connection(nil), r.conns...)
	r.mu.Unlock()

	for _, c := range snapshot {
		fn(c)
	}
}

// Snapshot returns a copy of the current connection list in insertion
// order.
func (r *Registry) Snapshot() []contracts.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]contracts.Connection(nil), r.conns...)
}

// LastID returns the most recently issued ConnectionId.
func (r *Registry) LastID() ids.ConnectionId {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastID
}

// Len returns the number of active connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
