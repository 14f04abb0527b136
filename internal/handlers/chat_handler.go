// File: internal/handlers/chat_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/thatchat/go-backend/internal/dtos"
	"github.com/thatchat/go-backend/internal/hub"
	"github.com/thatchat/go-backend/internal/middleware"
	"github.com/thatchat/go-backend/internal/services"
)

type ChatHandler struct {
	ChatService *services.ChatService
	Hub         *hub.Hub
	Logger      services.Logger
}

func NewChatHandler(cs *services.ChatService, h *hub.Hub, logger services.Logger) *ChatHandler {
	if logger == nil {
		logger = &services.NoOpLogger{}
	}
	return &ChatHandler{
		ChatService: cs,
		Hub:         h,
		Logger:      logger,
	}
}

// ListChats returns the global chat plus the caller's private chats.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chats, err := h.ChatService.ListUserChats(r.Context(), userID)
	if err != nil {
		writeError(w, "Could not retrieve chats", http.StatusInternalServerError)
		return
	}

	out := make([]dtos.Chat, 0, len(chats))
	for _, c := range chats {
		out = append(out, dtos.Chat{ID: c.ID, Name: c.Name, IsGlobal: c.IsGlobal})
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateChat creates (or returns) the private chat with the user behind the
// requested email. When a chat was actually created, the other member is
// notified over the real-time channel.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req dtos.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	chat, created, err := h.ChatService.CreateOrGetPrivateChat(r.Context(), userID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, "User not found", http.StatusNotFound)
		case errors.Is(err, services.ErrSelfChat):
			writeError(w, "Self chat not allowed", http.StatusBadRequest)
		default:
			writeError(w, "Could not create chat", http.StatusInternalServerError)
		}
		return
	}

	chatDTO := dtos.Chat{ID: chat.ID, Name: chat.Name, IsGlobal: chat.IsGlobal}

	if created {
		h.notifyNewChatMembers(r, chatDTO, userID)
	}

	writeJSON(w, http.StatusOK, chatDTO)
}

func (h *ChatHandler) notifyNewChatMembers(r *http.Request, chat dtos.Chat, creatorID uuid.UUID) {
	members, err := h.ChatService.OtherMemberIDs(r.Context(), chat.ID, creatorID)
	if err != nil {
		h.Logger.Error("could not resolve members for chat notification",
			"chat_id", chat.ID,
			"error", err)
		return
	}

	payload, err := hub.EncodeEvent(hub.EventChatCreated, chat)
	if err != nil {
		h.Logger.Error("could not encode chat notification", "error", err)
		return
	}

	for _, memberID := range members {
		h.Hub.NotifyUser(memberID, payload)
	}
}

// GetChatMessages returns a chat's full ordered history.
func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	chatID, err := uuid.Parse(vars["id"])
	if err != nil {
		writeError(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}

	messages, err := h.ChatService.GetChatMessages(r.Context(), chatID)
	if err != nil {
		writeError(w, "Could not retrieve messages", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
