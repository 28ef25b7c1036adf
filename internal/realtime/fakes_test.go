package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"chat-app-be/internal/entity"
	"chat-app-be/pkg/events"

	"github.com/google/uuid"
)

var errConnGone = errors.New("connection gone")

type fakeTransport struct {
	mu         sync.Mutex
	frames     map[string][]Envelope
	broadcasts []Envelope
	closed     map[string]bool
	dead       map[string]bool

	// when set, each presence broadcast records whether its user was bound at that moment
	registry         *Registry
	boundAtBroadcast []bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		frames: make(map[string][]Envelope),
		closed: make(map[string]bool),
		dead:   make(map[string]bool),
	}
}

func mustEnvelope(frame []byte) Envelope {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		panic(err)
	}
	return env
}

func (t *fakeTransport) Emit(connID string, frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dead[connID] || t.closed[connID] {
		return errConnGone
	}
	t.frames[connID] = append(t.frames[connID], mustEnvelope(frame))
	return nil
}

func (t *fakeTransport) Broadcast(frame []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	env := mustEnvelope(frame)
	t.broadcasts = append(t.broadcasts, env)
	if t.registry != nil && env.Event == EventPresenceChanged {
		var p PresencePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			panic(err)
		}
		_, bound := t.registry.Lookup(p.UserID)
		t.boundAtBroadcast = append(t.boundAtBroadcast, bound)
	}
}

func (t *fakeTransport) Close(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed[connID] = true
}

func (t *fakeTransport) kill(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dead[connID] = true
}

// received returns the frames emitted to connID with the given event name.
func (t *fakeTransport) received(connID, event string) []Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Envelope
	for _, env := range t.frames[connID] {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

func (t *fakeTransport) presence() []PresencePayload {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []PresencePayload
	for _, env := range t.broadcasts {
		if env.Event != EventPresenceChanged {
			continue
		}
		var p PresencePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			panic(err)
		}
		out = append(out, p)
	}
	return out
}

type fakeValidator struct {
	tokens map[string]uuid.UUID
}

func (v *fakeValidator) Validate(token string) (uuid.UUID, error) {
	if id, ok := v.tokens[token]; ok {
		return id, nil
	}
	return uuid.Nil, errors.New("invalid token")
}

type fakeMessageStore struct {
	mu        sync.Mutex
	messages  []*entity.Message
	err       error
	panicWith interface{}
}

func (s *fakeMessageStore) InsertMessage(_ context.Context, msg *entity.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	if s.err != nil {
		return s.err
	}
	msg.Id = uuid.New()
	cp := *msg
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *fakeMessageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type fakePresenceStore struct {
	mu    sync.Mutex
	saved []entity.Presence
	err   error
}

func (s *fakePresenceStore) SavePresence(_ context.Context, p *entity.Presence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, *p)
	return s.err
}

type fakeEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakeEvents) Publish(_ context.Context, ev events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.EventType())
	}
	return out
}

type fakeRelay struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (r *fakeRelay) RelayToUser(userID uuid.UUID, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
	return nil
}
