package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/thatchat/go-backend/internal/domain"
)

// ChatRepository handles chat and membership data operations.
type ChatRepository interface {
	// CreateWithMembers persists the chat row and its member rows in one
	// transaction. A unique index on the member key makes concurrent
	// creation of the same pair fail for all but one caller.
	CreateWithMembers(ctx context.Context, chat *domain.Chat, memberIDs []uuid.UUID) (*domain.Chat, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error)
	FindPrivateByMemberKey(ctx context.Context, memberKey string) (*domain.Chat, error)
	FindAllForUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error)
	HasAccess(ctx context.Context, userID, chatID uuid.UUID) (bool, error)
	MemberIDs(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error)
	EnsureGlobalChat(ctx context.Context) error
}
