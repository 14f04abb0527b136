// File: internal/repository/chat/chat_repository.go
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thatchat/go-backend/internal/domain"
)

var ErrChatNotFound = errors.New("chat not found")

// ErrDuplicateMemberPair reports that another transaction already created
// the private chat for the same member pair. Callers re-fetch the winner.
var ErrDuplicateMemberPair = errors.New("private chat already exists for member pair")

type gormChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &gormChatRepository{db: db}
}

func (r *gormChatRepository) CreateWithMembers(ctx context.Context, chat *domain.Chat, memberIDs []uuid.UUID) (*domain.Chat, error) {
	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		for _, userID := range memberIDs {
			member := domain.ChatMember{ChatID: chat.ID, UserID: userID}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateMemberPair
		}
		return nil, errors.New("database error creating chat")
	}
	return chat, nil
}

func (r *gormChatRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	var chat domain.Chat
	err := r.db.WithContext(ctx).First(&chat, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, errors.New("database error fetching chat")
	}
	return &chat, nil
}

func (r *gormChatRepository) FindPrivateByMemberKey(ctx context.Context, memberKey string) (*domain.Chat, error) {
	var chat domain.Chat
	err := r.db.WithContext(ctx).
		Where("is_global = ?", false).
		Where("member_key = ?", memberKey).
		First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, errors.New("database error fetching chat")
	}
	return &chat, nil
}

func (r *gormChatRepository) FindAllForUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := r.db.WithContext(ctx).
		Where("is_global = ? OR EXISTS (SELECT 1 FROM chat_members cm WHERE cm.chat_id = chats.id AND cm.user_id = ?)", true, userID).
		Order("created_at ASC, id ASC").
		Find(&chats).Error
	if err != nil {
		return nil, errors.New("database error fetching chats")
	}
	return chats, nil
}

// HasAccess is evaluated fresh on every call; membership can change between
// a join and a send.
func (r *gormChatRepository) HasAccess(ctx context.Context, userID, chatID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", chatID).
		Where("is_global = ? OR EXISTS (SELECT 1 FROM chat_members cm WHERE cm.chat_id = chats.id AND cm.user_id = ?)", true, userID).
		Count(&count).Error
	if err != nil {
		return false, errors.New("database error checking chat access")
	}
	return count > 0, nil
}

func (r *gormChatRepository) MemberIDs(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.ChatMember{}).
		Where("chat_id = ?", chatID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, errors.New("database error fetching chat members")
	}
	return ids, nil
}

// EnsureGlobalChat seeds the singleton global room at startup. Idempotent.
func (r *gormChatRepository) EnsureGlobalChat(ctx context.Context) error {
	chat := domain.Chat{
		ID:       domain.GlobalChatID,
		Name:     "General Chat",
		IsGlobal: true,
	}
	err := r.db.WithContext(ctx).
		Where("id = ?", domain.GlobalChatID).
		FirstOrCreate(&chat).Error
	if err != nil {
		return errors.New("database error seeding global chat")
	}
	return nil
}
