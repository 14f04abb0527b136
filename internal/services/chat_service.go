// File: internal/services/chat_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thatchat/go-backend/internal/domain"
	"github.com/thatchat/go-backend/internal/dtos"
	"github.com/thatchat/go-backend/internal/repository/chat"
	"github.com/thatchat/go-backend/internal/repository/message"
	"github.com/thatchat/go-backend/internal/repository/user"
)

const maxMessageTextLength = 10_000

// ChatService owns chat access policy, private chat creation and message
// persistence.
type ChatService struct {
	chatRepo    chat.ChatRepository
	messageRepo message.MessageRepository
	userRepo    user.UserRepository
	logger      Logger
}

func NewChatService(
	chatRepo chat.ChatRepository,
	messageRepo message.MessageRepository,
	userRepo user.UserRepository,
	logger Logger,
) (*ChatService, error) {
	if chatRepo == nil {
		return nil, errors.New("chat repository is required")
	}
	if messageRepo == nil {
		return nil, errors.New("message repository is required")
	}
	if userRepo == nil {
		return nil, errors.New("user repository is required")
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}

	return &ChatService{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		logger:      logger,
	}, nil
}

// HasChatAccess reports whether the user may read and write the chat: the
// chat is global, or a membership row exists. Evaluated fresh on every call.
func (s *ChatService) HasChatAccess(ctx context.Context, userID, chatID uuid.UUID) (bool, error) {
	return s.chatRepo.HasAccess(ctx, userID, chatID)
}

// CreateOrGetPrivateChat returns the private chat between the requester and
// the user behind targetEmail, creating it if it does not exist. The second
// return value reports whether this call created the chat.
func (s *ChatService) CreateOrGetPrivateChat(ctx context.Context, requesterID uuid.UUID, targetEmail string) (*domain.Chat, bool, error) {
	target, err := s.userRepo.FindByEmail(ctx, targetEmail)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, fmt.Errorf("could not resolve target user: %w", err)
	}

	if target.ID == requesterID {
		return nil, false, ErrSelfChat
	}

	memberKey := domain.PrivateMemberKey(requesterID, target.ID)

	existing, err := s.chatRepo.FindPrivateByMemberKey(ctx, memberKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, chat.ErrChatNotFound) {
		return nil, false, fmt.Errorf("could not look up private chat: %w", err)
	}

	newChat := &domain.Chat{
		Name:      target.Email,
		IsGlobal:  false,
		MemberKey: memberKey,
	}
	created, err := s.chatRepo.CreateWithMembers(ctx, newChat, []uuid.UUID{requesterID, target.ID})
	if err != nil {
		// A concurrent request won the creation race; its row is the
		// canonical chat for this pair.
		if errors.Is(err, chat.ErrDuplicateMemberPair) {
			winner, findErr := s.chatRepo.FindPrivateByMemberKey(ctx, memberKey)
			if findErr != nil {
				return nil, false, fmt.Errorf("could not fetch existing private chat: %w", findErr)
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("could not create private chat: %w", err)
	}

	s.logger.Info("private chat created",
		"chat_id", created.ID,
		"requester_id", requesterID,
		"target_id", target.ID)
	return created, true, nil
}

// SaveMessage validates, persists and formats an outbound message. Any
// validation failure is returned as a sentinel error; the real-time caller
// drops those silently.
func (s *ChatService) SaveMessage(ctx context.Context, senderID, chatID uuid.UUID, text, fileURL string) (*dtos.ChatMessage, error) {
	if strings.TrimSpace(text) == "" && strings.TrimSpace(fileURL) == "" {
		return nil, ErrEmptyMessage
	}

	// The raw length is checked, not the trimmed one.
	if len(text) > maxMessageTextLength {
		return nil, ErrMessageTooLong
	}

	hasAccess, err := s.chatRepo.HasAccess(ctx, senderID, chatID)
	if err != nil {
		return nil, fmt.Errorf("could not check chat access: %w", err)
	}
	if !hasAccess {
		s.logger.Warn("message rejected - sender has no access to chat",
			"sender_id", senderID,
			"chat_id", chatID)
		return nil, ErrChatAccessDenied
	}

	msg := &domain.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		FileURL:   fileURL,
		CreatedAt: time.Now().UTC(),
	}
	saved, err := s.messageRepo.Create(ctx, msg)
	if err != nil {
		s.logger.Error("message persistence failed",
			"error", err,
			"chat_id", chatID)
		return nil, fmt.Errorf("could not save message: %w", err)
	}

	sender, err := s.userRepo.FindByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("could not resolve sender: %w", err)
	}

	return &dtos.ChatMessage{
		ID:          saved.ID,
		ChatID:      saved.ChatID,
		SenderID:    saved.SenderID,
		SenderEmail: sender.Email,
		Text:        saved.Text,
		FileURL:     saved.FileURL,
		CreatedAt:   saved.CreatedAt,
	}, nil
}

// ListUserChats returns the global chat plus every private chat the user is
// a member of.
func (s *ChatService) ListUserChats(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	return s.chatRepo.FindAllForUser(ctx, userID)
}

// GetChatMessages returns the chat's full history ordered by persistence
// time, with sender emails resolved.
func (s *ChatService) GetChatMessages(ctx context.Context, chatID uuid.UUID) ([]dtos.ChatMessage, error) {
	messages, err := s.messageRepo.FindByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	emails := make(map[uuid.UUID]string, 2)
	out := make([]dtos.ChatMessage, 0, len(messages))
	for _, m := range messages {
		email, ok := emails[m.SenderID]
		if !ok {
			if sender, err := s.userRepo.FindByID(ctx, m.SenderID); err == nil {
				email = sender.Email
			}
			emails[m.SenderID] = email
		}
		out = append(out, dtos.ChatMessage{
			ID:          m.ID,
			ChatID:      m.ChatID,
			SenderID:    m.SenderID,
			SenderEmail: email,
			Text:        m.Text,
			FileURL:     m.FileURL,
			CreatedAt:   m.CreatedAt,
		})
	}
	return out, nil
}

// OtherMemberIDs returns the chat's member IDs excluding the given user,
// for chatCreated notifications.
func (s *ChatService) OtherMemberIDs(ctx context.Context, chatID, excludeUserID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.chatRepo.MemberIDs(ctx, chatID)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != excludeUserID {
			out = append(out, id)
		}
	}
	return out, nil
}
