package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/thatchat/go-backend/internal/domain"
	"github.com/thatchat/go-backend/internal/handlers"
	"github.com/thatchat/go-backend/internal/hub"
	"github.com/thatchat/go-backend/internal/middleware"
	chatrepo "github.com/thatchat/go-backend/internal/repository/chat"
	messagerepo "github.com/thatchat/go-backend/internal/repository/message"
	userrepo "github.com/thatchat/go-backend/internal/repository/user"
	"github.com/thatchat/go-backend/internal/services"
	"github.com/thatchat/go-backend/internal/services/user_services"
)

// newTestServer wires the full stack the way cmd/server does, against an
// in-memory database.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Chat{}, &domain.ChatMember{}, &domain.Message{}))

	logger := &services.NoOpLogger{}
	users := userrepo.NewGormUserRepository(db)
	chats := chatrepo.NewChatRepository(db)
	messages := messagerepo.NewMessageRepository(db)
	require.NoError(t, chats.EnsureGlobalChat(context.Background()))

	authService := user_services.NewAuthService(users, "integration-test-secret", logger)
	userService := user_services.NewUserService(users, logger)
	chatService, err := services.NewChatService(chats, messages, users, logger)
	require.NoError(t, err)

	chatHub := hub.NewHub(chatService, logger)

	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, logger)
	wsHandler := handlers.NewWSHandler(chatHub, authService, userService, logger)

	r := mux.NewRouter()
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/ws/chat", wsHandler.Serve).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewJWTMiddleware(authService))
	api.HandleFunc("/chats", chatHandler.ListChats).Methods("GET")
	api.HandleFunc("/chats", chatHandler.CreateChat).Methods("POST")
	api.HandleFunc("/chats/{id}/messages", chatHandler.GetChatMessages).Methods("GET")

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		_ = chatHub.Shutdown(2 * time.Second)
	})
	return srv
}

func postJSON(t *testing.T, srv *httptest.Server, path, token string, body interface{}) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func registerAndLogin(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()

	resp := postJSON(t, srv, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "password",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		AccessToken string `json:"accessToken"`
	}
	decodeBody(t, resp, &login)
	require.NotEmpty(t, login.AccessToken)
	return login.AccessToken
}

// dialWS opens the real-time channel passing the token as a query
// parameter, the way browser clients must.
func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wsEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev wsEvent
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

func assertSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, raw, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no event, got %s", raw)
	}
}

func sendCommand(t *testing.T, conn *websocket.Conn, cmd map[string]interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(cmd))
}

func TestDialWS_RejectsMissingToken(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGlobalChatRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	tokenA := registerAndLogin(t, srv, "alice@test.com")
	tokenB := registerAndLogin(t, srv, "bob@test.com")

	connA := dialWS(t, srv, tokenA)
	connB := dialWS(t, srv, tokenB)

	globalID := domain.GlobalChatID.String()
	sendCommand(t, connA, map[string]interface{}{"type": "join", "chatId": globalID})
	sendCommand(t, connB, map[string]interface{}{"type": "join", "chatId": globalID})
	time.Sleep(200 * time.Millisecond)

	before := time.Now().UTC()
	sendCommand(t, connA, map[string]interface{}{"type": "send", "chatId": globalID, "text": "hello"})

	for _, conn := range []*websocket.Conn{connA, connB} {
		ev := readEvent(t, conn)
		require.Equal(t, "messageReceived", ev.Type)

		var msg struct {
			ChatID      uuid.UUID `json:"chatId"`
			SenderEmail string    `json:"senderEmail"`
			Text        string    `json:"text"`
			CreatedAt   time.Time `json:"createdAt"`
		}
		require.NoError(t, json.Unmarshal(ev.Payload, &msg))
		assert.Equal(t, domain.GlobalChatID, msg.ChatID)
		assert.Equal(t, "alice@test.com", msg.SenderEmail)
		assert.Equal(t, "hello", msg.Text)
		assert.False(t, msg.CreatedAt.Before(before.Add(-time.Second)))
	}

	// The persisted history matches what was fanned out.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/chats/"+globalID+"/messages", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokenB)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history []struct {
		Text        string `json:"text"`
		SenderEmail string `json:"senderEmail"`
	}
	decodeBody(t, resp, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Text)
	assert.Equal(t, "alice@test.com", history[0].SenderEmail)
}

func TestPrivateChatCreationNotifiesOtherMember(t *testing.T) {
	srv := newTestServer(t)
	tokenA := registerAndLogin(t, srv, "alice@test.com")
	tokenB := registerAndLogin(t, srv, "bob@test.com")

	// Bob is connected before Alice opens the chat.
	connB := dialWS(t, srv, tokenB)
	time.Sleep(100 * time.Millisecond)

	resp := postJSON(t, srv, "/api/chats", tokenA, map[string]string{"email": "bob@test.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var chat struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
	decodeBody(t, resp, &chat)
	assert.Equal(t, "bob@test.com", chat.Name)

	ev := readEvent(t, connB)
	require.Equal(t, "chatCreated", ev.Type)

	var pushed struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(ev.Payload, &pushed))
	assert.Equal(t, chat.ID, pushed.ID)

	// Requesting the same pair again returns the same chat and pushes
	// nothing.
	resp = postJSON(t, srv, "/api/chats", tokenA, map[string]string{"email": "bob@test.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again struct {
		ID uuid.UUID `json:"id"`
	}
	decodeBody(t, resp, &again)
	assert.Equal(t, chat.ID, again.ID)
	assertSilence(t, connB)
}

func TestCreateChatErrors(t *testing.T) {
	srv := newTestServer(t)
	tokenA := registerAndLogin(t, srv, "alice@test.com")

	resp := postJSON(t, srv, "/api/chats", tokenA, map[string]string{"email": "ghost@test.com"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv, "/api/chats", tokenA, map[string]string{"email": "alice@test.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv, "/api/chats", "", map[string]string{"email": "alice@test.com"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestNonMemberNeverReceivesPrivateChatFanout(t *testing.T) {
	srv := newTestServer(t)
	tokenAlice := registerAndLogin(t, srv, "alice@test.com")
	registerAndLogin(t, srv, "bob@test.com")
	tokenEve := registerAndLogin(t, srv, "eve@test.com")

	resp := postJSON(t, srv, "/api/chats", tokenAlice, map[string]string{"email": "bob@test.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var chat struct {
		ID uuid.UUID `json:"id"`
	}
	decodeBody(t, resp, &chat)

	connAlice := dialWS(t, srv, tokenAlice)
	connEve := dialWS(t, srv, tokenEve)

	chatID := chat.ID.String()
	sendCommand(t, connAlice, map[string]interface{}{"type": "join", "chatId": chatID})
	// The denied join is a silent no-op; Eve gets no error either way.
	sendCommand(t, connEve, map[string]interface{}{"type": "join", "chatId": chatID})
	time.Sleep(200 * time.Millisecond)

	sendCommand(t, connAlice, map[string]interface{}{"type": "send", "chatId": chatID, "text": "secret"})

	ev := readEvent(t, connAlice)
	assert.Equal(t, "messageReceived", ev.Type)
	assertSilence(t, connEve)
}

func TestLeaveStopsDelivery(t *testing.T) {
	srv := newTestServer(t)
	tokenA := registerAndLogin(t, srv, "alice@test.com")
	tokenB := registerAndLogin(t, srv, "bob@test.com")

	connA := dialWS(t, srv, tokenA)
	connB := dialWS(t, srv, tokenB)

	globalID := domain.GlobalChatID.String()
	sendCommand(t, connA, map[string]interface{}{"type": "join", "chatId": globalID})
	sendCommand(t, connB, map[string]interface{}{"type": "join", "chatId": globalID})
	time.Sleep(200 * time.Millisecond)

	sendCommand(t, connB, map[string]interface{}{"type": "leave", "chatId": globalID})
	time.Sleep(200 * time.Millisecond)

	sendCommand(t, connA, map[string]interface{}{"type": "send", "chatId": globalID, "text": "after leave"})

	ev := readEvent(t, connA)
	assert.Equal(t, "messageReceived", ev.Type)
	assertSilence(t, connB)
}

func TestDisconnectDuringActiveSubscription(t *testing.T) {
	srv := newTestServer(t)
	tokenA := registerAndLogin(t, srv, "alice@test.com")
	tokenB := registerAndLogin(t, srv, "bob@test.com")

	connA := dialWS(t, srv, tokenA)
	connB := dialWS(t, srv, tokenB)

	globalID := domain.GlobalChatID.String()
	sendCommand(t, connA, map[string]interface{}{"type": "join", "chatId": globalID})
	sendCommand(t, connB, map[string]interface{}{"type": "join", "chatId": globalID})
	time.Sleep(200 * time.Millisecond)

	// B drops while subscribed; A's send must still complete.
	connB.Close()
	time.Sleep(100 * time.Millisecond)

	sendCommand(t, connA, map[string]interface{}{"type": "send", "chatId": globalID, "text": "still works"})

	ev := readEvent(t, connA)
	assert.Equal(t, "messageReceived", ev.Type)
}

func TestSilentDropOfInvalidSends(t *testing.T) {
	srv := newTestServer(t)
	tokenA := registerAndLogin(t, srv, "alice@test.com")

	connA := dialWS(t, srv, tokenA)

	globalID := domain.GlobalChatID.String()
	sendCommand(t, connA, map[string]interface{}{"type": "join", "chatId": globalID})
	time.Sleep(200 * time.Millisecond)

	// Whitespace-only text with no file: nothing comes back.
	sendCommand(t, connA, map[string]interface{}{"type": "send", "chatId": globalID, "text": "   "})
	assertSilence(t, connA)

	// Oversized text: same silence.
	sendCommand(t, connA, map[string]interface{}{
		"type":   "send",
		"chatId": globalID,
		"text":   strings.Repeat("a", 10_001),
	})
	assertSilence(t, connA)
}

func TestListChats(t *testing.T) {
	srv := newTestServer(t)
	tokenA := registerAndLogin(t, srv, "alice@test.com")
	registerAndLogin(t, srv, "bob@test.com")

	resp := postJSON(t, srv, "/api/chats", tokenA, map[string]string{"email": "bob@test.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/chats", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokenA)
	listResp, err := srv.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var chats []struct {
		ID       uuid.UUID `json:"id"`
		IsGlobal bool      `json:"isGlobal"`
	}
	decodeBody(t, listResp, &chats)
	require.Len(t, chats, 2)

	foundGlobal := false
	for _, c := range chats {
		if c.IsGlobal {
			foundGlobal = true
			assert.Equal(t, domain.GlobalChatID, c.ID)
		}
	}
	assert.True(t, foundGlobal, "expected the global chat in the list: %v", fmt.Sprint(chats))
}
