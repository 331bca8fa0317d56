package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"chatsync/internal/adapter/api"
	"chatsync/internal/adapter/api/handler"
	"chatsync/internal/adapter/api/middleware"
	"chatsync/internal/adapter/api/router"
	"chatsync/internal/adapter/repository/memory"
	"chatsync/internal/domain/entity"
	"chatsync/internal/infrastructure/firebase"
	"chatsync/internal/infrastructure/ratelimit"
	"chatsync/internal/infrastructure/websocket"
	"chatsync/internal/usecase"
	"chatsync/pkg/logger"
	"chatsync/pkg/response"
)

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

type listData struct {
	Items json.RawMessage `json:"items"`
	Total int             `json:"total"`
}

type APISuite struct {
	suite.Suite

	e           *echo.Echo
	userUseCase *usecase.UserUseCase
	stream      *usecase.MessageStream
	cancel      func()
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	logger.Init("error", "test")

	store := memory.NewStore()
	messageRepo := memory.NewMessageRepository(store)
	chatRepo := memory.NewChatRepository(store)
	userRepo := memory.NewUserRepository(store)

	s.userUseCase = usecase.NewUserUseCase(userRepo)
	s.stream = usecase.NewMessageStream(messageRepo, time.Second)
	authUseCase := usecase.NewAuthUseCase(firebase.NewDevTokenVerifier(nil), s.userUseCase)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	wsManager := websocket.NewManager(nil)
	wsManager.Start(ctx)

	limiter := ratelimit.NewRateLimiter(3)
	handler.Setup(handler.Dependencies{
		UserUseCase:      s.userUseCase,
		AuthUseCase:      authUseCase,
		MessageStore:     usecase.NewMessageStore(messageRepo, chatRepo),
		MessageStream:    s.stream,
		ThreadAggregator: usecase.NewThreadAggregator(messageRepo, chatRepo),
		RateLimiter:      limiter,
		WSManager:        wsManager,
		Backend:          "memory",
		DevTokens:        true,
	})

	s.e = echo.New()
	s.e.Validator = api.NewValidator()
	router.Setup(s.e, middleware.NewAuthMiddleware(authUseCase), middleware.NewRateLimitMiddleware(limiter))
}

func (s *APISuite) TearDownTest() {
	s.stream.Wait()
	s.cancel()
}

func (s *APISuite) do(method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func (s *APISuite) list(env envelope, into interface{}) int {
	var data listData
	s.Require().NoError(json.Unmarshal(env.Data, &data))
	s.Require().NoError(json.Unmarshal(data.Items, into))
	return data.Total
}

func (s *APISuite) TestHealth() {
	rec, _ := s.do(http.MethodGet, "/health", "", "")

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "memory")
}

func (s *APISuite) TestRequiresToken() {
	rec, env := s.do(http.MethodGet, "/v1/chats", "", "")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("UNAUTHORIZED", env.Error.Code)

	rec, _ = s.do(http.MethodGet, "/v1/chats", "not-a-dev-token", "")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *APISuite) TestDevTokenRegistersUser() {
	rec, env := s.do(http.MethodGet, "/_dev/token/carol", "", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var issued struct {
		Token string       `json:"token"`
		User  *entity.User `json:"user"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &issued))
	s.Equal("dev:carol", issued.Token)
	s.Equal("carol", issued.User.ID)

	rec, _ = s.do(http.MethodGet, "/v1/users/me", issued.Token, "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *APISuite) TestSendAndRead() {
	rec, env := s.do(http.MethodPost, "/v1/chats/bob/messages", "dev:alice", `{"text":"  hi bob  "}`)
	s.Require().Equal(http.StatusCreated, rec.Code)

	var sent entity.Message
	s.Require().NoError(json.Unmarshal(env.Data, &sent))
	s.Equal("alice_bob", sent.ChatID)
	s.Equal("hi bob", sent.Text)
	s.Equal(entity.StatusSent, sent.Status)

	rec, env = s.do(http.MethodGet, "/v1/chats/alice/messages", "dev:bob", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var messages []*entity.Message
	s.Equal(1, s.list(env, &messages))
	s.Equal(sent.ID, messages[0].ID)

	rec, env = s.do(http.MethodGet, "/v1/chats", "dev:bob", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var chats []map[string]interface{}
	s.Equal(1, s.list(env, &chats))
	s.Equal("alice", chats[0]["counterpart_id"])

	rec, env = s.do(http.MethodGet, "/v1/threads", "dev:bob", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var threads []*entity.ThreadView
	s.Equal(1, s.list(env, &threads))
	s.Equal("alice", threads[0].CounterpartID)
	s.Equal(1, threads[0].UnreadCount)
}

func (s *APISuite) TestBlankTextIsDropped() {
	rec, _ := s.do(http.MethodPost, "/v1/chats/bob/messages", "dev:alice", `{"text":"   "}`)
	s.Equal(http.StatusNoContent, rec.Code)

	rec, env := s.do(http.MethodGet, "/v1/chats", "dev:alice", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var chats []map[string]interface{}
	s.Equal(0, s.list(env, &chats))
}

func (s *APISuite) TestCannotChatWithSelf() {
	rec, _ := s.do(http.MethodPost, "/v1/chats/alice/messages", "dev:alice", `{"text":"echo"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestSendIsRateLimited() {
	for i := 0; i < 3; i++ {
		rec, _ := s.do(http.MethodPost, "/v1/chats/bob/messages", "dev:alice", `{"text":"spam"}`)
		s.Require().Equal(http.StatusCreated, rec.Code)
	}

	rec, env := s.do(http.MethodPost, "/v1/chats/bob/messages", "dev:alice", `{"text":"spam"}`)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("TOO_MANY_REQUESTS", env.Error.Code)
}

func (s *APISuite) TestMarkReadOnlyTouchesDelivered() {
	rec, _ := s.do(http.MethodPost, "/v1/chats/bob/messages", "dev:alice", `{"text":"unseen"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)

	// Nothing was observed through a live stream yet, so nothing is delivered.
	rec, env := s.do(http.MethodPut, "/v1/chats/alice/read", "dev:bob", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"marked":0}`, string(env.Data))
}

func (s *APISuite) TestUsers() {
	// Authenticating registers a profile.
	rec, _ := s.do(http.MethodGet, "/v1/users/me", "dev:alice", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodGet, "/v1/users/me", "dev:bob", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	rec, env := s.do(http.MethodGet, "/v1/users", "dev:alice", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var contacts []*entity.User
	s.Equal(1, s.list(env, &contacts))
	s.Equal("bob", contacts[0].ID)

	rec, env = s.do(http.MethodPut, "/v1/users/me", "dev:alice", `{"email":"not-an-email"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_ERROR", env.Error.Code)

	rec, env = s.do(http.MethodPut, "/v1/users/me", "dev:alice", `{"email":"alice@example.com"}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	var me entity.User
	s.Require().NoError(json.Unmarshal(env.Data, &me))
	s.Equal("alice@example.com", me.Email)
	s.NotEmpty(me.PhotoURL)

	rec, _ = s.do(http.MethodGet, "/v1/users/ghost", "dev:alice", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APISuite) TestWebSocketChatSession() {
	server := httptest.NewServer(s.e)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	bob, _, err := gorillaws.DefaultDialer.Dial(wsURL+"/ws?counterpart=alice&token=dev:bob", nil)
	s.Require().NoError(err)
	defer bob.Close()

	frame := readFrame(s.T(), bob)
	s.Equal(websocket.MessageTypeMessages, frame.Type)

	rec, _ := s.do(http.MethodPost, "/v1/chats/bob/messages", "dev:alice", `{"text":"over the wire"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)

	// The recipient's stream shows the message as delivered.
	var delivered []*entity.Message
	for delivered == nil {
		frame = readFrame(s.T(), bob)
		if frame.Type != websocket.MessageTypeMessages {
			continue
		}
		var messages []*entity.Message
		s.Require().NoError(json.Unmarshal(frame.Data, &messages))
		if len(messages) == 1 && messages[0].Status == entity.StatusDelivered {
			delivered = messages
		}
	}
	s.Equal("over the wire", delivered[0].Text)

	s.Require().NoError(bob.WriteJSON(map[string]interface{}{
		"type": "send_message",
		"data": map[string]string{"temp_id": "t1", "text": "reply"},
	}))
	s.Require().NoError(bob.WriteJSON(map[string]interface{}{"type": "ping"}))

	seen := map[string]bool{}
	for !seen[websocket.MessageTypeMessageSent] || !seen[websocket.MessageTypePong] {
		seen[readFrame(s.T(), bob).Type] = true
	}
}

func (s *APISuite) TestWebSocketHomeFeeds() {
	server := httptest.NewServer(s.e)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	bob, _, err := gorillaws.DefaultDialer.Dial(wsURL+"/ws/threads?token=dev:bob", nil)
	s.Require().NoError(err)
	defer bob.Close()

	// Every feed opens with its current state.
	initial := map[string]bool{}
	for len(initial) < 3 {
		initial[readFrame(s.T(), bob).Type] = true
	}
	s.True(initial[websocket.MessageTypeThreads])
	s.True(initial[websocket.MessageTypeChats])
	s.True(initial[websocket.MessageTypeProfile])

	rec, _ := s.do(http.MethodPost, "/v1/chats/bob/messages", "dev:alice", `{"text":"new chat"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)

	var chats []map[string]interface{}
	for len(chats) == 0 {
		f := readFrame(s.T(), bob)
		if f.Type == websocket.MessageTypeChats {
			s.Require().NoError(json.Unmarshal(f.Data, &chats))
		}
	}
	s.Equal("alice_bob", chats[0]["chat_id"])
	s.Equal("alice", chats[0]["counterpart_id"])

	rec, _ = s.do(http.MethodPut, "/v1/users/me", "dev:bob", `{"email":"bob@example.com"}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	var profile *entity.User
	for profile == nil || profile.Email != "bob@example.com" {
		f := readFrame(s.T(), bob)
		if f.Type == websocket.MessageTypeProfile && len(f.Data) > 0 {
			profile = nil
			s.Require().NoError(json.Unmarshal(f.Data, &profile))
		}
	}
	s.Equal("bob", profile.ID)
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *gorillaws.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestBearerTokenFallsBackToQuery(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/ws?token=dev:alice", nil)
	assert.Equal(t, "dev:alice", middleware.BearerToken(e.NewContext(req, httptest.NewRecorder())))

	req = httptest.NewRequest(http.MethodGet, "/ws?token=dev:alice", nil)
	req.Header.Set("Authorization", "Bearer dev:bob")
	assert.Equal(t, "dev:bob", middleware.BearerToken(e.NewContext(req, httptest.NewRecorder())))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, middleware.BearerToken(e.NewContext(req, httptest.NewRecorder())))
}
