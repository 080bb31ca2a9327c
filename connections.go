package googletoken

import "sync"

// MemoryConnectionRegistry is a ConnectionRegistry backed by an in process
// map, suitable for single node deployments and tests. Connections register
// on open and remove themselves on close.
type MemoryConnectionRegistry struct {
	mu    sync.RWMutex
	conns map[string]Connection
}

// NewMemoryConnectionRegistry creates an empty registry.
func NewMemoryConnectionRegistry() *MemoryConnectionRegistry {
	return &MemoryConnectionRegistry{
		conns: make(map[string]Connection),
	}
}

// Add registers a live connection under its connection id.
func (r *MemoryConnectionRegistry) Add(connID string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = conn
}

// Remove drops a connection from the registry.
func (r *MemoryConnectionRegistry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
}

// Snapshot implements ConnectionRegistry. The returned slice is a point in
// time copy; the registry may change before the caller finishes iterating.
func (r *MemoryConnectionRegistry) Snapshot() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		out = append(out, conn)
	}
	return out
}
