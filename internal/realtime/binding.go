package realtime

import (
	"sync"

	"github.com/google/uuid"
)

type ConnState int

const (
	StateConnected ConnState = iota
	StateAuthenticated
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "disconnected"
	}
}

// Binding is the per-connection session state. The user id is set at most once.
type Binding struct {
	ConnID string

	mu     sync.Mutex
	state  ConnState
	userID uuid.UUID
}

func NewBinding(connID string) *Binding {
	return &Binding{ConnID: connID, state: StateConnected}
}

func (b *Binding) State() ConnState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// UserID returns the bound user once the connection has authenticated.
func (b *Binding) UserID() (uuid.UUID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateAuthenticated {
		return uuid.Nil, false
	}
	return b.userID, true
}

func (b *Binding) authenticate(userID uuid.UUID) *Error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateAuthenticated:
		return newError(CodeAlreadyAuthenticated, "connection is already authenticated", nil)
	case StateDisconnected:
		return newError(CodeAuthRejected, "connection is closed", nil)
	}
	b.userID = userID
	b.state = StateAuthenticated
	return nil
}

// close moves the binding to Disconnected. first is false when it was already closed.
func (b *Binding) close() (userID uuid.UUID, wasAuthenticated bool, first bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateDisconnected {
		return uuid.Nil, false, false
	}
	wasAuthenticated = b.state == StateAuthenticated
	b.state = StateDisconnected
	return b.userID, wasAuthenticated, true
}
