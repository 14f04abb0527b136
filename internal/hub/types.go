// Package hub tracks live WebSocket connections, their authenticated
// identity and their chat-group subscriptions, and fans persisted messages
// out to the connections currently subscribed to a chat.
package hub

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Command types accepted from clients.
const (
	CommandJoin  = "join"
	CommandLeave = "leave"
	CommandSend  = "send"
)

// Event types pushed to clients.
const (
	EventMessageReceived = "messageReceived"
	EventChatCreated     = "chatCreated"
)

// Command is the client-to-server frame of the real-time channel.
type Command struct {
	Type    string    `json:"type"`
	ChatID  uuid.UUID `json:"chatId"`
	Text    string    `json:"text"`
	FileURL string    `json:"fileUrl"`
}

// Event is the server-to-client frame of the real-time channel.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// EncodeEvent marshals an event frame for delivery.
func EncodeEvent(eventType string, payload interface{}) ([]byte, error) {
	return json.Marshal(Event{Type: eventType, Payload: payload})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
