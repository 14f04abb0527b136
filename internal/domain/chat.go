// File: internal/domain/chat.go
package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GlobalChatID is the fixed identifier of the single always-accessible chat
// room. It is seeded at first startup and never deleted.
var GlobalChatID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

// Chat represents a single conversation thread. Exactly one chat has
// IsGlobal set; every other chat is private between two members.
type Chat struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name     string    `json:"name"`
	IsGlobal bool      `json:"isGlobal"`
	// MemberKey is the sorted pair of member IDs of a private chat. The
	// unique index is what guarantees that concurrent creation of the same
	// pair's chat produces a single row. Empty for the global chat.
	MemberKey string    `json:"-" gorm:"uniqueIndex:idx_chats_member_key,where:member_key <> ''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMember enrolls a user in a private chat. The global chat has no
// member rows; access to it is universal.
type ChatMember struct {
	ChatID uuid.UUID `json:"chat_id" gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
}

// PrivateMemberKey derives the canonical key for an unordered member pair.
func PrivateMemberKey(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}
