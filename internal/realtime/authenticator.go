package realtime

import (
	"context"
	"errors"
	"time"

	"chat-app-be/internal/observability"
	"chat-app-be/internal/pkg/logger"
)

// Authenticator turns a fresh connection into an authenticated one, or ends it.
type Authenticator struct {
	validator CredentialValidator
	registry  *Registry
	presence  *PresencePublisher
	transport Transport
	metrics   *observability.Metrics
	logger    logger.ILogger
	now       func() time.Time
}

func NewAuthenticator(validator CredentialValidator, registry *Registry, presence *PresencePublisher, transport Transport, log logger.ILogger) *Authenticator {
	return &Authenticator{
		validator: validator,
		registry:  registry,
		presence:  presence,
		transport: transport,
		logger:    log,
		now:       time.Now,
	}
}

// Authenticate validates token and binds the connection to its user.
// A rejected credential sends an error event and closes the connection.
// A second authenticate on a bound connection is refused and the connection stays up.
func (a *Authenticator) Authenticate(ctx context.Context, b *Binding, token string) error {
	if _, ok := b.UserID(); ok {
		rtErr := newError(CodeAlreadyAuthenticated, "connection is already authenticated", nil)
		a.sendError(b.ConnID, rtErr, "")
		return rtErr
	}

	userID, err := a.validator.Validate(token)
	if err != nil {
		return a.reject(b, newError(CodeAuthRejected, "authentication failed", err))
	}

	if err := b.authenticate(userID); err != nil {
		if CodeOf(err) == CodeAlreadyAuthenticated {
			a.sendError(b.ConnID, err, "")
			return err
		}
		return a.reject(b, err)
	}

	if prev, replaced := a.registry.Bind(userID, b.ConnID); replaced {
		a.logger.Info("Authenticator", "Binding superseded", map[string]interface{}{
			"user_id":  userID,
			"conn_id":  b.ConnID,
			"previous": prev,
		})
	}
	a.metrics.SessionBound()

	a.presence.Publish(ctx, userID, true, a.now())

	frame, err := EncodeFrame(EventAuthenticated, AuthenticatedPayload{UserID: userID})
	if err == nil {
		if err := a.transport.Emit(b.ConnID, frame); err != nil {
			a.logger.Warn("Authenticator", "Failed to ack authentication", map[string]interface{}{"conn_id": b.ConnID, "error": err})
		}
	}

	a.logger.Info("Authenticator", "Connection authenticated", map[string]interface{}{"user_id": userID, "conn_id": b.ConnID})
	return nil
}

func (a *Authenticator) reject(b *Binding, rtErr *Error) error {
	a.logger.Warn("Authenticator", "Authentication rejected", map[string]interface{}{
		"conn_id": b.ConnID,
		"error":   rtErr,
	})
	a.sendError(b.ConnID, rtErr, "")
	a.transport.Close(b.ConnID)
	return rtErr
}

func (a *Authenticator) sendError(connID string, err error, ref string) {
	sendError(a.transport, a.logger, connID, err, ref)
}

// sendError reports err to one connection. Only the code and a client-safe message go on the wire.
func sendError(t Transport, log logger.ILogger, connID string, err error, ref string) {
	payload := ErrorPayload{Code: CodeOf(err), Message: "internal error", Ref: ref}
	var rtErr *Error
	if errors.As(err, &rtErr) {
		payload.Message = rtErr.Message
	}
	frame, encErr := EncodeFrame(EventError, payload)
	if encErr != nil {
		return
	}
	if emitErr := t.Emit(connID, frame); emitErr != nil {
		log.Debug("Realtime", "Error event not delivered", map[string]interface{}{"conn_id": connID, "error": emitErr})
	}
}
