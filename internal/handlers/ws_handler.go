// File: internal/handlers/ws_handler.go
package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/thatchat/go-backend/internal/hub"
	"github.com/thatchat/go-backend/internal/middleware"
	"github.com/thatchat/go-backend/internal/services"
	"github.com/thatchat/go-backend/internal/services/user_services"
)

// WSHandler upgrades authenticated requests into live hub connections.
type WSHandler struct {
	Hub         *hub.Hub
	AuthService *user_services.AuthService
	UserService *user_services.UserService
	Logger      services.Logger
	upgrader    websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, authService *user_services.AuthService, userService *user_services.UserService, logger services.Logger) *WSHandler {
	if logger == nil {
		logger = &services.NoOpLogger{}
	}
	return &WSHandler{
		Hub:         h,
		AuthService: authService,
		UserService: userService,
		Logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Cross-origin policy is enforced by the CORS layer; the
			// handshake itself is gated by the bearer token below.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve authenticates the handshake, upgrades it and hands the connection
// to the hub. The token is read from the Authorization header or the
// access_token query parameter.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		writeError(w, "missing bearer token", http.StatusUnauthorized)
		return
	}

	userID, err := h.AuthService.ValidateToken(token)
	if err != nil {
		writeError(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	account, err := h.UserService.FindByID(r.Context(), userID)
	if err != nil {
		writeError(w, "unknown user", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed",
			"addr", r.RemoteAddr,
			"error", err)
		return
	}

	client := hub.NewClient(conn, h.Hub, account.ID, account.Email, r.RemoteAddr)
	h.Hub.Register(client)
}
