package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"chat-app-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	gw        *Gateway
	transport *fakeTransport
	messages  *fakeMessageStore
	presence  *fakePresenceStore
	events    *fakeEvents
	alice     uuid.UUID
	bob       uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		transport: newFakeTransport(),
		messages:  &fakeMessageStore{},
		presence:  &fakePresenceStore{},
		events:    &fakeEvents{},
		alice:     uuid.New(),
		bob:       uuid.New(),
	}
	h.gw = NewGateway(Config{
		Transport: h.transport,
		Validator: &fakeValidator{tokens: map[string]uuid.UUID{"alice-token": h.alice, "bob-token": h.bob}},
		Messages:  h.messages,
		Presence:  h.presence,
		Events:    h.events,
	})
	return h
}

func frame(t *testing.T, event string, data interface{}) []byte {
	t.Helper()
	f, err := EncodeFrame(event, data)
	require.NoError(t, err)
	return f
}

func (h *harness) login(t *testing.T, connID, token string) {
	t.Helper()
	h.gw.Connect(connID)
	h.gw.HandleFrame(context.Background(), connID, frame(t, EventAuthenticate, AuthenticatePayload{Token: token}))
	require.Len(t, h.transport.received(connID, EventAuthenticated), 1)
}

func errorCodes(envs []Envelope) []ErrorCode {
	var out []ErrorCode
	for _, env := range envs {
		var p ErrorPayload
		_ = json.Unmarshal(env.Data, &p)
		out = append(out, p.Code)
	}
	return out
}

func strPtr(s string) *string { return &s }

func TestGateway_SendToOnlineReceiver(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")
	h.login(t, "c-bob", "bob-token")

	h.gw.HandleFrame(context.Background(), "c-alice", frame(t, EventSendMessage, SendMessagePayload{
		ReceiverID: h.bob.String(),
		Body:       strPtr("hi bob"),
		ClientRef:  "r-1",
	}))

	require.Equal(t, 1, h.messages.count())

	got := h.transport.received("c-bob", EventMessageReceived)
	require.Len(t, got, 1)
	var rec MessageRecord
	require.NoError(t, json.Unmarshal(got[0].Data, &rec))
	assert.Equal(t, h.alice, rec.SenderId)
	assert.Equal(t, h.bob, rec.ReceiverId)
	assert.Equal(t, "hi bob", *rec.Body)
	assert.Equal(t, "sent", rec.Status)

	acks := h.transport.received("c-alice", EventMessageSent)
	require.Len(t, acks, 1)
	var ack MessageAck
	require.NoError(t, json.Unmarshal(acks[0].Data, &ack))
	assert.Equal(t, rec, ack.MessageRecord, "both parties see the same record")
	assert.Equal(t, rec.Id, ack.Id)
	assert.Equal(t, *rec.Body, *ack.Body)
	assert.True(t, rec.CreatedAt.Equal(ack.CreatedAt))
	assert.Equal(t, rec.Status, ack.Status)
	assert.Equal(t, "r-1", ack.ClientRef)

	assert.Empty(t, h.transport.received("c-alice", EventMessageReceived))
	assert.Contains(t, h.events.types(), events.TypeMessageSent)
}

func TestGateway_SenderIdentityComesFromBinding(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")

	raw := []byte(`{"event":"send_message","data":{"receiverId":"` + h.bob.String() + `","body":"x","senderId":"` + uuid.NewString() + `"}}`)
	h.gw.HandleFrame(context.Background(), "c-alice", raw)

	require.Equal(t, 1, h.messages.count())
	assert.Equal(t, h.alice, h.messages.messages[0].SenderId)
}

func TestGateway_SendToOfflineReceiver(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")

	res, err := h.gw.delivery.Send(context.Background(), h.alice, "c-alice", SendIntent{
		ReceiverID: h.bob,
		Body:       strPtr("are you there"),
		Type:       "text",
	})
	require.NoError(t, err)
	assert.False(t, res.Delivered)
	assert.Equal(t, 1, h.messages.count())
	assert.Len(t, h.transport.received("c-alice", EventMessageSent), 1)
}

func TestGateway_ValidationErrorKeepsConnection(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")

	h.gw.HandleFrame(context.Background(), "c-alice", frame(t, EventSendMessage, SendMessagePayload{Body: strPtr("no receiver"), ClientRef: "r-9"}))

	errs := h.transport.received("c-alice", EventError)
	require.Len(t, errs, 1)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(errs[0].Data, &p))
	assert.Equal(t, CodeValidation, p.Code)
	assert.Equal(t, "r-9", p.Ref)
	assert.Equal(t, 0, h.messages.count())
	assert.False(t, h.transport.closed["c-alice"])

	_, stillBound := h.gw.Registry().Lookup(h.alice)
	assert.True(t, stillBound)
}

func TestGateway_PersistenceFailure(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")
	h.login(t, "c-bob", "bob-token")
	h.messages.err = errors.New("db down")

	h.gw.HandleFrame(context.Background(), "c-alice", frame(t, EventSendMessage, SendMessagePayload{
		ReceiverID: h.bob.String(),
		Body:       strPtr("lost"),
	}))

	assert.Equal(t, []ErrorCode{CodePersistenceFailure}, errorCodes(h.transport.received("c-alice", EventError)))
	assert.Empty(t, h.transport.received("c-bob", EventMessageReceived))
	assert.Empty(t, h.transport.received("c-alice", EventMessageSent))
	assert.False(t, h.transport.closed["c-alice"])
}

func TestGateway_DanglingReceiverConnection(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")
	h.login(t, "c-bob", "bob-token")
	h.transport.kill("c-bob")

	h.gw.HandleFrame(context.Background(), "c-alice", frame(t, EventSendMessage, SendMessagePayload{
		ReceiverID: h.bob.String(),
		Body:       strPtr("race"),
	}))

	assert.Equal(t, 1, h.messages.count())
	assert.Len(t, h.transport.received("c-alice", EventMessageSent), 1)
	assert.Empty(t, h.transport.received("c-alice", EventError))
}

func TestGateway_AuthRejectedClosesConnection(t *testing.T) {
	h := newHarness(t)
	h.gw.Connect("c-x")

	h.gw.HandleFrame(context.Background(), "c-x", frame(t, EventAuthenticate, AuthenticatePayload{Token: "forged"}))

	assert.Equal(t, []ErrorCode{CodeAuthRejected}, errorCodes(h.transport.received("c-x", EventError)))
	assert.True(t, h.transport.closed["c-x"])
	assert.Equal(t, 0, h.gw.Registry().Len())
	assert.Empty(t, h.transport.presence())
}

func TestGateway_AuthenticateAcceptsBareToken(t *testing.T) {
	h := newHarness(t)
	h.gw.Connect("c-alice")

	h.gw.HandleFrame(context.Background(), "c-alice", []byte(`{"event":"authenticate","data":"alice-token"}`))

	assert.True(t, h.gw.IsOnline(h.alice))
}

func TestGateway_ReauthenticationDoesNotSwitchIdentity(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")

	h.gw.HandleFrame(context.Background(), "c-alice", frame(t, EventAuthenticate, AuthenticatePayload{Token: "bob-token"}))

	assert.Equal(t, []ErrorCode{CodeAlreadyAuthenticated}, errorCodes(h.transport.received("c-alice", EventError)))
	assert.False(t, h.transport.closed["c-alice"])
	assert.False(t, h.gw.IsOnline(h.bob))

	b, _ := h.gw.binding("c-alice")
	id, _ := b.UserID()
	assert.Equal(t, h.alice, id)
}

func TestGateway_OnlinePresencePersistedThenBroadcast(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")

	require.Len(t, h.presence.saved, 1)
	assert.True(t, h.presence.saved[0].IsOnline)

	p := h.transport.presence()
	require.Len(t, p, 1)
	assert.Equal(t, h.alice, p[0].UserID)
	assert.True(t, p[0].IsOnline)
	assert.Nil(t, p[0].LastSeen)
}

func TestGateway_PresenceStoreFailureStillBroadcasts(t *testing.T) {
	h := newHarness(t)
	h.presence.err = errors.New("db down")
	h.login(t, "c-alice", "alice-token")

	assert.Len(t, h.transport.presence(), 1)
	assert.True(t, h.gw.IsOnline(h.alice))
}

func TestGateway_DisconnectPublishesOffline(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")

	h.gw.Disconnect(context.Background(), "c-alice")

	assert.False(t, h.gw.IsOnline(h.alice))
	p := h.transport.presence()
	require.Len(t, p, 2)
	assert.False(t, p[1].IsOnline)
	assert.NotNil(t, p[1].LastSeen)
	assert.False(t, h.presence.saved[1].IsOnline)
}

func TestGateway_ReplayedDisconnectIsNoop(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")

	h.gw.Disconnect(context.Background(), "c-alice")
	h.gw.Disconnect(context.Background(), "c-alice")

	assert.Len(t, h.transport.presence(), 2)
}

func TestGateway_StaleDisconnectKeepsNewerBinding(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-old", "alice-token")
	h.login(t, "c-new", "alice-token")

	h.gw.Disconnect(context.Background(), "c-old")

	connID, ok := h.gw.Registry().Lookup(h.alice)
	require.True(t, ok)
	assert.Equal(t, "c-new", connID)
	for _, p := range h.transport.presence() {
		assert.True(t, p.IsOnline, "superseded connection must not announce offline")
	}

	h.gw.HandleFrame(context.Background(), "c-new", frame(t, EventSendMessage, SendMessagePayload{
		ReceiverID: h.bob.String(),
		Body:       strPtr("still here"),
	}))
	assert.Len(t, h.transport.received("c-new", EventMessageSent), 1)

	h.gw.Disconnect(context.Background(), "c-new")
	p := h.transport.presence()
	assert.False(t, p[len(p)-1].IsOnline)
}

func TestGateway_UnauthenticatedDisconnectIsSilent(t *testing.T) {
	h := newHarness(t)
	h.gw.Connect("c-anon")
	h.gw.Disconnect(context.Background(), "c-anon")

	assert.Empty(t, h.transport.presence())
	assert.Empty(t, h.presence.saved)
}

func TestGateway_SendBeforeAuthenticate(t *testing.T) {
	h := newHarness(t)
	h.gw.Connect("c-anon")

	h.gw.HandleFrame(context.Background(), "c-anon", frame(t, EventSendMessage, SendMessagePayload{
		ReceiverID: h.bob.String(),
		Body:       strPtr("hi"),
	}))

	assert.Equal(t, []ErrorCode{CodeUnauthenticated}, errorCodes(h.transport.received("c-anon", EventError)))
	assert.Equal(t, 0, h.messages.count())
}

func TestGateway_MalformedAndUnknownFrames(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")

	h.gw.HandleFrame(context.Background(), "c-alice", []byte("not json"))
	h.gw.HandleFrame(context.Background(), "c-alice", []byte(`{"event":"typing","data":{}}`))
	h.gw.HandleFrame(context.Background(), "c-alice", []byte(`{"event":"send_message","data":"oops"}`))

	assert.Equal(t,
		[]ErrorCode{CodeBadPayload, CodeUnknownEvent, CodeBadPayload},
		errorCodes(h.transport.received("c-alice", EventError)))
	assert.False(t, h.transport.closed["c-alice"])
}

func TestGateway_RESTSendAcksLiveSenderConnection(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")
	h.login(t, "c-bob", "bob-token")

	res, err := h.gw.SendMessage(context.Background(), h.alice, SendIntent{ReceiverID: h.bob, Body: strPtr("via rest"), Type: "text"})
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.Len(t, h.transport.received("c-alice", EventMessageSent), 1)
	assert.Len(t, h.transport.received("c-bob", EventMessageReceived), 1)
}

func TestGateway_NotifyStatus(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")

	ok := h.gw.NotifyStatus(h.alice, StatusChangedPayload{MessageID: uuid.New(), ReceiverId: h.bob, Status: "read"})
	assert.True(t, ok)
	assert.Len(t, h.transport.received("c-alice", EventMessageStatusChanged), 1)

	assert.False(t, h.gw.NotifyStatus(h.bob, StatusChangedPayload{MessageID: uuid.New(), Status: "read"}))
}

func TestGateway_OnlineBroadcastAfterBind(t *testing.T) {
	h := newHarness(t)
	h.transport.registry = h.gw.Registry()

	h.login(t, "c-alice", "alice-token")

	assert.Equal(t, []bool{true}, h.transport.boundAtBroadcast)
}

func TestGateway_TwoUserScenario(t *testing.T) {
	h := newHarness(t)
	h.transport.registry = h.gw.Registry()

	h.login(t, "c1", "alice-token")
	h.login(t, "c2", "bob-token")

	p := h.transport.presence()
	require.Len(t, p, 2)
	assert.Equal(t, h.alice, p[0].UserID)
	assert.True(t, p[0].IsOnline)
	assert.Equal(t, h.bob, p[1].UserID)
	assert.True(t, p[1].IsOnline)

	h.gw.HandleFrame(context.Background(), "c1", frame(t, EventSendMessage, SendMessagePayload{
		ReceiverID: h.bob.String(),
		Body:       strPtr("hi"),
		Type:       "text",
	}))

	got := h.transport.received("c2", EventMessageReceived)
	require.Len(t, got, 1)
	var rec MessageRecord
	require.NoError(t, json.Unmarshal(got[0].Data, &rec))
	assert.Equal(t, h.alice, rec.SenderId)
	assert.Equal(t, "hi", *rec.Body)
	assert.Equal(t, "sent", rec.Status)

	acks := h.transport.received("c1", EventMessageSent)
	require.Len(t, acks, 1)
	var ack MessageAck
	require.NoError(t, json.Unmarshal(acks[0].Data, &ack))
	assert.Equal(t, rec, ack.MessageRecord)

	before := time.Now()
	h.gw.Disconnect(context.Background(), "c1")

	p = h.transport.presence()
	require.Len(t, p, 3)
	assert.Equal(t, h.alice, p[2].UserID)
	assert.False(t, p[2].IsOnline)
	require.NotNil(t, p[2].LastSeen)
	assert.WithinDuration(t, before, *p[2].LastSeen, 5*time.Second)

	_, ok := h.gw.Registry().Lookup(h.alice)
	assert.False(t, ok)
	_, ok = h.gw.Registry().Lookup(h.bob)
	assert.True(t, ok)
	assert.Equal(t, []bool{true, true, false}, h.transport.boundAtBroadcast)
}

func TestGateway_PanickingStoreIsContained(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")
	h.login(t, "c-bob", "bob-token")
	h.messages.panicWith = "driver exploded"

	assert.NotPanics(t, func() {
		h.gw.HandleFrame(context.Background(), "c-alice", frame(t, EventSendMessage, SendMessagePayload{
			ReceiverID: h.bob.String(),
			Body:       strPtr("boom"),
			ClientRef:  "r-7",
		}))
	})

	errs := h.transport.received("c-alice", EventError)
	require.Len(t, errs, 1)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(errs[0].Data, &p))
	assert.Equal(t, CodeInternal, p.Code)
	assert.Equal(t, "r-7", p.Ref)
	assert.Empty(t, h.transport.received("c-bob", EventMessageReceived))
	assert.False(t, h.transport.closed["c-alice"])

	h.messages.panicWith = nil
	h.gw.HandleFrame(context.Background(), "c-bob", frame(t, EventSendMessage, SendMessagePayload{
		ReceiverID: h.alice.String(),
		Body:       strPtr("still works"),
	}))
	assert.Len(t, h.transport.received("c-alice", EventMessageReceived), 1)
	assert.True(t, h.gw.IsOnline(h.alice))
}

func TestGateway_CreatedAtHasStoragePrecision(t *testing.T) {
	h := newHarness(t)
	h.login(t, "c-alice", "alice-token")
	h.gw.delivery.now = func() time.Time {
		return time.Date(2026, 3, 4, 5, 6, 7, 123456789, time.FixedZone("X", 3600))
	}

	res, err := h.gw.SendMessage(context.Background(), h.alice, SendIntent{ReceiverID: h.bob, Body: strPtr("t"), Type: "text"})
	require.NoError(t, err)

	want := time.Date(2026, 3, 4, 4, 6, 7, 123456000, time.UTC)
	assert.Equal(t, want, res.Record.CreatedAt)
	assert.Equal(t, want, h.messages.messages[0].CreatedAt)
}

func TestGateway_RelayOnlyForUsersNotBoundHere(t *testing.T) {
	h := newHarness(t)
	relay := &fakeRelay{}
	h.gw.delivery.relay = relay
	h.login(t, "c-alice", "alice-token")

	res, err := h.gw.SendMessage(context.Background(), h.alice, SendIntent{ReceiverID: h.bob, Body: strPtr("elsewhere?"), Type: "text"})
	require.NoError(t, err)
	assert.False(t, res.Delivered)
	assert.Equal(t, []uuid.UUID{h.bob}, relay.users)

	h.login(t, "c-bob", "bob-token")
	res, err = h.gw.SendMessage(context.Background(), h.alice, SendIntent{ReceiverID: h.bob, Body: strPtr("here"), Type: "text"})
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.Len(t, relay.users, 1)
}
