package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"chat-app-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "chat_cluster_events"

var ErrUnknownConnection = errors.New("unknown connection")

// Hub owns the live connections of this instance, keyed by connection id.
// With Redis configured it also fans broadcasts and user-targeted frames out to sibling instances.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex

	rdb        *redis.Client
	instanceID string

	// resolves a user to its connection here, used for frames relayed by other instances
	resolve func(userID uuid.UUID) (string, bool)

	logger logger.ILogger
}

type clusterEnvelope struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// SetResolver wires the user lookup used for relayed frames.
func (h *Hub) SetResolver(fn func(userID uuid.UUID) (string, bool)) {
	h.resolve = fn
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("Hub", "Client registered", map[string]interface{}{"conn_id": c.ID})
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if current, ok := h.clients[c.ID]; ok && current == c {
		delete(h.clients, c.ID)
	}
	h.mu.Unlock()
	c.close()
	h.logger.Debug("Hub", "Client unregistered", map[string]interface{}{"conn_id": c.ID})
}

func (h *Hub) client(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Emit queues a frame for one local connection.
func (h *Hub) Emit(connID string, frame []byte) error {
	c, ok := h.client(connID)
	if !ok {
		return ErrUnknownConnection
	}
	if err := c.enqueue(frame); err != nil {
		if errors.Is(err, ErrSendBufferFull) {
			h.logger.Warn("Hub", "Client send buffer full, closing", map[string]interface{}{"conn_id": connID})
		}
		return err
	}
	return nil
}

// Broadcast sends a frame to every local connection and to the other instances.
func (h *Hub) Broadcast(frame []byte) {
	h.broadcastLocal(frame)
	h.publish("*", frame)
}

func (h *Hub) broadcastLocal(frame []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.enqueue(frame); err != nil && errors.Is(err, ErrSendBufferFull) {
			h.logger.Warn("Hub", "Client send buffer full during broadcast", map[string]interface{}{"conn_id": c.ID})
		}
	}
}

// Close ends a connection after its queued frames have been written.
func (h *Hub) Close(connID string) {
	if c, ok := h.client(connID); ok {
		c.close()
	}
}

// RelayToUser hands a frame to whichever sibling instance holds userID. Without Redis it is a no-op.
func (h *Hub) RelayToUser(userID uuid.UUID, frame []byte) error {
	return h.publish(userID.String(), frame)
}

func (h *Hub) publish(target string, frame []byte) error {
	if h.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(clusterEnvelope{Origin: h.instanceID, TargetUserID: target, Message: frame})
	if err != nil {
		return err
	}
	if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Cluster publish failed", map[string]interface{}{"target": target, "error": err})
		return err
	}
	return nil
}

// Run consumes frames relayed by other instances until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleClusterMessage([]byte(msg.Payload))
		}
	}
}

func (h *Hub) handleClusterMessage(raw []byte) {
	var env clusterEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.logger.Warn("Hub", "Cluster message parse error", map[string]interface{}{"error": err})
		return
	}
	if env.Origin == h.instanceID {
		return
	}

	if env.TargetUserID == "*" {
		h.broadcastLocal(env.Message)
		return
	}

	uid, err := uuid.Parse(env.TargetUserID)
	if err != nil || h.resolve == nil {
		return
	}
	if connID, ok := h.resolve(uid); ok {
		_ = h.Emit(connID, env.Message)
	}
}
