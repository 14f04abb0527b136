// File: internal/repository/message/interface.go
package message

import (
	"context"

	"github.com/google/uuid"
	"github.com/thatchat/go-backend/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	FindByChatID(ctx context.Context, chatID uuid.UUID) ([]domain.Message, error)
	CountByChatID(ctx context.Context, chatID uuid.UUID) (int64, error)
}
