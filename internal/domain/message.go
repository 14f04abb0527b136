// File: internal/domain/message.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a single message within a chat. At least one of Text
// and FileURL is non-empty. Rows are created once and never mutated.
type Message struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ChatID    uuid.UUID `json:"chat_id" gorm:"type:uuid;not null;index"`
	SenderID  uuid.UUID `json:"sender_id" gorm:"type:uuid;not null"`
	Text      string    `json:"text"`
	FileURL   string    `json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
}
