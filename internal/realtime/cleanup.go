package realtime

import (
	"context"
	"time"

	"chat-app-be/internal/observability"
	"chat-app-be/internal/pkg/logger"
)

// CleanupHandler releases a closed connection's binding and announces the user offline when it owned it.
type CleanupHandler struct {
	registry   *Registry
	presence   *PresencePublisher
	matchmaker *Matchmaker
	metrics    *observability.Metrics
	logger     logger.ILogger
}

func NewCleanupHandler(registry *Registry, presence *PresencePublisher, log logger.ILogger) *CleanupHandler {
	return &CleanupHandler{registry: registry, presence: presence, logger: log}
}

// HandleDisconnect is idempotent per binding. It returns ErrStaleSession when the connection
// had been superseded and nothing was announced.
func (c *CleanupHandler) HandleDisconnect(ctx context.Context, b *Binding, at time.Time) error {
	userID, wasAuthenticated, first := b.close()
	if !first || !wasAuthenticated {
		return nil
	}
	c.metrics.SessionReleased()

	if !c.registry.Unbind(userID, b.ConnID) {
		c.logger.Debug("Cleanup", "Stale connection closed", map[string]interface{}{"user_id": userID, "conn_id": b.ConnID})
		return ErrStaleSession
	}

	if c.matchmaker != nil {
		c.matchmaker.Leave(userID)
	}
	c.presence.Publish(ctx, userID, false, at)
	c.logger.Info("Cleanup", "User went offline", map[string]interface{}{"user_id": userID, "conn_id": b.ConnID})
	return nil
}
