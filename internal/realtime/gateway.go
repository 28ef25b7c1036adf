package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"chat-app-be/internal/observability"
	"chat-app-be/internal/pkg/logger"

	"github.com/google/uuid"
)

type Config struct {
	Transport Transport
	Validator CredentialValidator
	Messages  MessageStore
	Presence  PresenceStore

	// Optional
	Events    EventPublisher
	Relay     UserRelay
	Metrics   *observability.Metrics
	Logger    logger.ILogger
	MatchWait time.Duration
}

// Gateway routes frames from live connections into the realtime components.
// Frames of one connection must be fed sequentially, and Disconnect must come after the last of them.
type Gateway struct {
	registry      *Registry
	presence      *PresencePublisher
	authenticator *Authenticator
	delivery      *DeliveryPipeline
	cleanup       *CleanupHandler
	matchmaker    *Matchmaker

	transport Transport
	relay     UserRelay
	metrics   *observability.Metrics
	logger    logger.ILogger
	now       func() time.Time

	mu       sync.Mutex
	bindings map[string]*Binding
}

func NewGateway(cfg Config) *Gateway {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	registry := NewRegistry()

	presence := NewPresencePublisher(cfg.Presence, cfg.Transport, registry, log)
	presence.events = cfg.Events
	presence.metrics = cfg.Metrics

	auth := NewAuthenticator(cfg.Validator, registry, presence, cfg.Transport, log)
	auth.metrics = cfg.Metrics

	delivery := NewDeliveryPipeline(cfg.Messages, registry, cfg.Transport, log)
	delivery.relay = cfg.Relay
	delivery.events = cfg.Events
	delivery.metrics = cfg.Metrics

	matchmaker := NewMatchmaker(cfg.MatchWait)

	cleanup := NewCleanupHandler(registry, presence, log)
	cleanup.metrics = cfg.Metrics
	cleanup.matchmaker = matchmaker

	return &Gateway{
		registry:      registry,
		presence:      presence,
		authenticator: auth,
		delivery:      delivery,
		cleanup:       cleanup,
		matchmaker:    matchmaker,
		transport:     cfg.Transport,
		relay:         cfg.Relay,
		metrics:       cfg.Metrics,
		logger:        log,
		now:           time.Now,
		bindings:      make(map[string]*Binding),
	}
}

func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Connect starts tracking a freshly opened connection.
func (g *Gateway) Connect(connID string) *Binding {
	b := NewBinding(connID)

	g.mu.Lock()
	g.bindings[connID] = b
	g.mu.Unlock()

	g.metrics.ConnectionOpened()
	g.logger.Debug("Gateway", "Connection opened", map[string]interface{}{"conn_id": connID})
	return b
}

func (g *Gateway) binding(connID string) (*Binding, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.bindings[connID]
	return b, ok
}

// HandleFrame processes one inbound frame. Failures are reported to the connection as error events.
func (g *Gateway) HandleFrame(ctx context.Context, connID string, frame []byte) {
	b, ok := g.binding(connID)
	if !ok {
		g.logger.Debug("Gateway", "Frame for unknown connection", map[string]interface{}{"conn_id": connID})
		return
	}

	env, err := DecodeFrame(frame)
	if err != nil {
		sendError(g.transport, g.logger, connID, err, "")
		return
	}
	defer g.recoverFrame(connID, env.Event, "")

	switch env.Event {
	case EventAuthenticate:
		_ = g.authenticator.Authenticate(ctx, b, decodeToken(env.Data))

	case EventSendMessage:
		g.handleSend(ctx, b, env.Data)

	case EventFindRandomMatch:
		g.handleMatch(b)

	default:
		sendError(g.transport, g.logger, connID, newError(CodeUnknownEvent, "unknown event "+env.Event, nil), "")
	}
}

func (g *Gateway) handleSend(ctx context.Context, b *Binding, data json.RawMessage) {
	senderID, ok := b.UserID()
	if !ok {
		sendError(g.transport, g.logger, b.ConnID, newError(CodeUnauthenticated, "authenticate first", nil), "")
		return
	}

	var payload SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		sendError(g.transport, g.logger, b.ConnID, newError(CodeBadPayload, "send_message payload is malformed", err), "")
		return
	}

	defer g.recoverFrame(b.ConnID, EventSendMessage, payload.ClientRef)

	intent, err := ParseSendIntent(payload)
	if err != nil {
		g.metrics.MessageRecorded(observability.ResultRejected)
		sendError(g.transport, g.logger, b.ConnID, err, payload.ClientRef)
		return
	}

	if _, err := g.delivery.Send(ctx, senderID, b.ConnID, intent); err != nil {
		sendError(g.transport, g.logger, b.ConnID, err, payload.ClientRef)
	}
}

// handleMatch queues the user for a random partner. Nothing is sent until a partner is found;
// then both sides get match_found naming the other.
func (g *Gateway) handleMatch(b *Binding) {
	userID, ok := b.UserID()
	if !ok {
		sendError(g.transport, g.logger, b.ConnID, newError(CodeUnauthenticated, "authenticate first", nil), "")
		return
	}

	partnerID, matched := g.matchmaker.Join(userID)
	if !matched {
		g.logger.Debug("Gateway", "Waiting for match", map[string]interface{}{"user_id": userID})
		return
	}

	sessionID := ConversationID(userID, partnerID)
	g.emitMatch(b.ConnID, MatchFoundPayload{SessionID: sessionID, PartnerID: partnerID})
	if partnerConn, ok := g.registry.Lookup(partnerID); ok {
		g.emitMatch(partnerConn, MatchFoundPayload{SessionID: sessionID, PartnerID: userID})
	}
	g.logger.Info("Gateway", "Users matched", map[string]interface{}{"user_id": userID, "partner_id": partnerID})
}

func (g *Gateway) emitMatch(connID string, payload MatchFoundPayload) {
	frame, err := EncodeFrame(EventMatchFound, payload)
	if err != nil {
		g.logger.Error("Gateway", "Failed to encode match frame", map[string]interface{}{"error": err})
		return
	}
	if err := g.transport.Emit(connID, frame); err != nil {
		g.logger.Warn("Gateway", "Match notification not delivered", map[string]interface{}{"conn_id": connID, "error": err})
	}
}

// recoverFrame contains a panic raised while handling one frame. The connection stays open and gets an error event.
func (g *Gateway) recoverFrame(connID, event, ref string) {
	r := recover()
	if r == nil {
		return
	}
	g.logger.Error("Gateway", "Frame handler panicked", map[string]interface{}{
		"conn_id": connID,
		"event":   event,
		"panic":   fmt.Sprint(r),
	})
	if event == EventSendMessage {
		g.metrics.MessageRecorded(observability.ResultFailed)
	}
	sendError(g.transport, g.logger, connID, newError(CodeInternal, "request could not be processed", nil), ref)
}

// Disconnect releases a closed connection. Calling it again for the same connection does nothing.
func (g *Gateway) Disconnect(ctx context.Context, connID string) {
	g.mu.Lock()
	b, ok := g.bindings[connID]
	delete(g.bindings, connID)
	g.mu.Unlock()
	if !ok {
		return
	}

	g.metrics.ConnectionClosed()
	if err := g.cleanup.HandleDisconnect(ctx, b, g.now()); err != nil {
		g.logger.Debug("Gateway", "Disconnect of superseded connection", map[string]interface{}{"conn_id": connID})
	}
}

// SendMessage runs the delivery pipeline for a message that did not arrive over a socket.
func (g *Gateway) SendMessage(ctx context.Context, senderID uuid.UUID, in SendIntent) (*DeliveryResult, error) {
	return g.delivery.Send(ctx, senderID, "", in)
}

// NotifyStatus tells the original sender that their message changed status. Returns false if they are not connected here.
func (g *Gateway) NotifyStatus(senderID uuid.UUID, payload StatusChangedPayload) bool {
	frame, err := EncodeFrame(EventMessageStatusChanged, payload)
	if err != nil {
		g.logger.Error("Gateway", "Failed to encode status frame", map[string]interface{}{"error": err})
		return false
	}

	connID, ok := g.registry.Lookup(senderID)
	if !ok {
		if g.relay != nil {
			if err := g.relay.RelayToUser(senderID, frame); err != nil {
				g.logger.Warn("Gateway", "Status relay failed", map[string]interface{}{"user_id": senderID, "error": err})
			}
		}
		return false
	}
	if err := g.transport.Emit(connID, frame); err != nil {
		g.logger.Warn("Gateway", "Status notification not delivered", map[string]interface{}{"conn_id": connID, "error": err})
		return false
	}
	return true
}

// IsOnline reports whether userID holds a live connection on this instance.
func (g *Gateway) IsOnline(userID uuid.UUID) bool {
	_, ok := g.registry.Lookup(userID)
	return ok
}
