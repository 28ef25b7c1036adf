package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps each authenticated user to the single connection that currently receives their traffic.
// The most recent successful authentication wins.
type Registry struct {
	mu    sync.Mutex
	conns map[uuid.UUID]string
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]string)}
}

// Bind points userID at connID and returns the connection it replaced, if any.
// The replaced connection is left open.
func (r *Registry) Bind(userID uuid.UUID, connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, replaced := r.conns[userID]
	r.conns[userID] = connID
	if prev == connID {
		return "", false
	}
	return prev, replaced
}

// Unbind removes the mapping only while it still points at connID.
func (r *Registry) Unbind(userID uuid.UUID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[userID]; ok && current == connID {
		delete(r.conns, userID)
		return true
	}
	return false
}

func (r *Registry) Lookup(userID uuid.UUID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID, ok := r.conns[userID]
	return connID, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
