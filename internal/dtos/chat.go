// File: internal/dtos/chat.go
package dtos

import (
	"time"

	"github.com/google/uuid"
)

// CreateChatRequest is the body of POST /api/chats.
type CreateChatRequest struct {
	Email string `json:"email"`
}

// Chat is the wire representation of a chat, both on the REST surface and
// in chatCreated pushes.
type Chat struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsGlobal bool      `json:"isGlobal"`
}

// ChatMessage is the wire representation of a persisted message, with the
// sender's display email already resolved for fan-out.
type ChatMessage struct {
	ID          uuid.UUID `json:"id"`
	ChatID      uuid.UUID `json:"chatId"`
	SenderID    uuid.UUID `json:"senderId"`
	SenderEmail string    `json:"senderEmail"`
	Text        string    `json:"text,omitempty"`
	FileURL     string    `json:"fileUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
