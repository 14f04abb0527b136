// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thatchat/go-backend/internal/domain"
)

type gormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(message).Error
	if err != nil {
		return nil, errors.New("database error creating message")
	}
	return message, nil
}

// FindByChatID returns the chat's history in persistence order. Ties on
// created_at are broken by id for determinism.
func (r *gormMessageRepository) FindByChatID(ctx context.Context, chatID uuid.UUID) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, errors.New("database error fetching messages")
	}
	return messages, nil
}

func (r *gormMessageRepository) CountByChatID(ctx context.Context, chatID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("chat_id = ?", chatID).
		Count(&count).Error
	if err != nil {
		return 0, errors.New("database error counting messages")
	}
	return count, nil
}
