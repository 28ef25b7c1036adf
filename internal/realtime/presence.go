package realtime

import (
	"context"
	"sync"
	"time"

	"chat-app-be/internal/entity"
	"chat-app-be/internal/observability"
	"chat-app-be/internal/pkg/logger"
	"chat-app-be/pkg/events"

	"github.com/google/uuid"
)

// PresencePublisher persists a user's presence and tells every connected client about it.
type PresencePublisher struct {
	// serializes persist+broadcast so a reconnect cannot be overtaken by the old connection's offline
	mu        sync.Mutex
	store     PresenceStore
	transport Transport
	registry  *Registry
	events    EventPublisher
	metrics   *observability.Metrics
	logger    logger.ILogger
}

func NewPresencePublisher(store PresenceStore, transport Transport, registry *Registry, log logger.ILogger) *PresencePublisher {
	return &PresencePublisher{
		store:     store,
		transport: transport,
		registry:  registry,
		logger:    log,
	}
}

// Publish records the state and broadcasts presence_changed. Storage errors are logged, the broadcast still goes out.
// An offline publish is dropped if the user has bound a new connection in the meantime.
func (p *PresencePublisher) Publish(ctx context.Context, userID uuid.UUID, online bool, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !online {
		if _, bound := p.registry.Lookup(userID); bound {
			p.logger.Debug("Presence", "Skipping offline, user reconnected", map[string]interface{}{"user_id": userID})
			return
		}
	}

	err := p.store.SavePresence(ctx, &entity.Presence{UserId: userID, IsOnline: online, LastSeen: at})
	if err != nil {
		p.logger.Error("Presence", "Failed to persist presence", map[string]interface{}{
			"user_id": userID,
			"online":  online,
			"error":   err,
		})
	}

	payload := PresencePayload{UserID: userID, IsOnline: online}
	if !online {
		payload.LastSeen = &at
	}
	frame, err := EncodeFrame(EventPresenceChanged, payload)
	if err != nil {
		p.logger.Error("Presence", "Failed to encode presence frame", map[string]interface{}{"error": err})
		return
	}
	p.transport.Broadcast(frame)
	p.metrics.PresenceChanged(online)

	if p.events != nil {
		ev := events.New(events.TypePresenceChanged, map[string]interface{}{
			"user_id":   userID.String(),
			"is_online": online,
			"last_seen": at.UTC().Format(time.RFC3339Nano),
		}, at)
		if err := p.events.Publish(ctx, ev); err != nil {
			p.logger.Warn("Presence", "Failed to publish presence event", map[string]interface{}{"error": err})
		}
	}
}
