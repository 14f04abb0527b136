// File: internal/hub/hub.go
package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thatchat/go-backend/internal/services"
)

// Hub is the connection registry. It maps chat identifiers to the set of
// live connections subscribed to them, and is the single shared mutable
// resource of the real-time layer. All state is in memory and rebuilt from
// empty on restart; clients rejoin on reconnect.
type Hub struct {
	chatService *services.ChatService
	logger      services.Logger

	mutex   sync.RWMutex
	clients map[*Client]bool
	// rooms holds the subscriber set per chat. Sets, not lists: a repeated
	// join of the same connection is idempotent.
	rooms map[uuid.UUID]map[*Client]bool
	// subscriptions is the reverse index used to release everything a
	// connection holds in one critical section on disconnect.
	subscriptions map[*Client]map[uuid.UUID]bool

	wg sync.WaitGroup
}

// NewHub creates an empty registry routing commands to the chat service.
func NewHub(chatService *services.ChatService, logger services.Logger) *Hub {
	if logger == nil {
		logger = &services.NoOpLogger{}
	}
	return &Hub{
		chatService:   chatService,
		logger:        logger,
		clients:       make(map[*Client]bool),
		rooms:         make(map[uuid.UUID]map[*Client]bool),
		subscriptions: make(map[*Client]map[uuid.UUID]bool),
	}
}

// Register records a freshly upgraded connection and starts its pumps. The
// connection has no subscriptions yet.
func (h *Hub) Register(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client] = true
	h.subscriptions[client] = make(map[uuid.UUID]bool)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.logger.Info("client connected",
		"user_id", client.userID,
		"addr", client.addr,
		"total_clients", clientCount)

	if client.conn == nil {
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// Unregister removes the connection from the registry and from every
// subscriber set it belonged to, atomically with respect to fan-out.
// Idempotent; a fan-out racing with disconnect sees either the subscribed
// client or nothing.
func (h *Hub) Unregister(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	for chatID := range h.subscriptions[client] {
		h.removeFromRoomLocked(client, chatID)
	}
	delete(h.subscriptions, client)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)

	h.logger.Info("client disconnected",
		"user_id", client.userID,
		"addr", client.addr,
		"total_clients", clientCount)
}

// Subscribe adds the connection to the chat's subscriber set. Access has
// already been checked by the caller.
func (h *Hub) Subscribe(client *Client, chatID uuid.UUID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	room, ok := h.rooms[chatID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[chatID] = room
	}
	room[client] = true
	h.subscriptions[client][chatID] = true
}

// Unsubscribe removes the connection from the chat's subscriber set. No
// error if it was not a member.
func (h *Hub) Unsubscribe(client *Client, chatID uuid.UUID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.removeFromRoomLocked(client, chatID)
	if subs, ok := h.subscriptions[client]; ok {
		delete(subs, chatID)
	}
}

func (h *Hub) removeFromRoomLocked(client *Client, chatID uuid.UUID) {
	room, ok := h.rooms[chatID]
	if !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, chatID)
	}
}

// Broadcast delivers one payload to every connection currently subscribed
// to the chat. Holding the write lock for the whole fan-out serializes
// broadcasts, so every subscriber sees one chat's messages in the same
// relative order as persistence completed. A connection that cannot take
// the payload is dropped without aborting delivery to the rest.
func (h *Hub) Broadcast(chatID uuid.UUID, payload []byte) {
	h.mutex.Lock()
	var failed []*Client
	for client := range h.rooms[chatID] {
		if !h.trySendLocked(client, payload) {
			failed = append(failed, client)
		}
	}
	for _, client := range failed {
		h.logger.Warn("dropping unresponsive client",
			"user_id", client.userID,
			"addr", client.addr)
		h.dropLocked(client)
	}
	h.mutex.Unlock()

	for _, client := range failed {
		close(client.send)
		client.closeConnection()
	}
}

// NotifyUser delivers a payload to every live connection authenticated as
// the given user, subscribed or not. Used for chatCreated pushes.
func (h *Hub) NotifyUser(userID uuid.UUID, payload []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.userID == userID {
			// Best effort; a full buffer here is handled by the
			// client's own pump timing out.
			h.trySendLocked(client, payload)
		}
	}
}

// trySendLocked queues the payload on the client's buffered send channel
// without blocking. Callers hold the hub lock.
func (h *Hub) trySendLocked(client *Client, payload []byte) bool {
	if client.closed {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// dropLocked removes a client from all registry state. Callers hold the
// write lock and close the send channel after releasing it.
func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for chatID := range h.subscriptions[client] {
		h.removeFromRoomLocked(client, chatID)
	}
	delete(h.subscriptions, client)
	client.closed = true
}

// ClientCount reports the number of live connections.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// SubscriberCount reports the size of a chat's subscriber set.
func (h *Hub) SubscriberCount(chatID uuid.UUID) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[chatID])
}

// Shutdown closes every connection and waits for the pump goroutines to
// finish, or gives up after the timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		client.closeConnection()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed", "closed_clients", len(clients))
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached")
		return errShutdownTimeout
	}
}
