package websocket

import (
	"context"

	"chat-app-be/internal/pkg/logger"
	"chat-app-be/internal/realtime"

	"github.com/google/uuid"
)

// Gateway is the realtime side a connection talks to.
type Gateway interface {
	FrameHandler
	Connect(connID string) *realtime.Binding
}

// ServeWs runs one connection to completion. A token supplied at handshake is treated
// as the connection's authenticate event.
func ServeWs(ctx context.Context, hub *Hub, gw Gateway, conn wsConn, token string, log logger.ILogger) {
	client := newClient(uuid.NewString(), hub, conn, gw, log)
	hub.Register(client)
	gw.Connect(client.ID)

	go client.writePump()

	if token != "" {
		if frame, err := realtime.EncodeFrame(realtime.EventAuthenticate, realtime.AuthenticatePayload{Token: token}); err == nil {
			gw.HandleFrame(ctx, client.ID, frame)
		}
	}
	client.readPump(ctx)
}
