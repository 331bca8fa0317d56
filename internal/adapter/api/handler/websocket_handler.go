package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"chatsync/internal/adapter/api/middleware"
	"chatsync/internal/domain/entity"
	"chatsync/internal/infrastructure/ratelimit"
	ws "chatsync/internal/infrastructure/websocket"
	"chatsync/internal/usecase"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
	"chatsync/pkg/response"
)

type WebSocketHandler struct {
	wsManager    *ws.Manager
	userUseCase  *usecase.UserUseCase
	messageStore *usecase.MessageStore
	stream       *usecase.MessageStream
	aggregator   *usecase.ThreadAggregator
	limiter      *ratelimit.RateLimiter
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewWebSocketHandler(
	wsManager *ws.Manager,
	userUseCase *usecase.UserUseCase,
	messageStore *usecase.MessageStore,
	stream *usecase.MessageStream,
	aggregator *usecase.ThreadAggregator,
	limiter *ratelimit.RateLimiter,
) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:    wsManager,
		userUseCase:  userUseCase,
		messageStore: messageStore,
		stream:       stream,
		aggregator:   aggregator,
		limiter:      limiter,
	}
}

// HandleChat serves one ChatSession per connection: GET /ws?counterpart=<uid>.
func (h *WebSocketHandler) HandleChat(c echo.Context) error {
	userID := middleware.UID(c)
	counterpartID := strings.TrimSpace(c.QueryParam("counterpart"))
	if counterpartID == "" {
		return response.Error(c, errors.InvalidArgument("counterpart id must not be empty"))
	}
	if counterpartID == userID {
		return response.Error(c, errors.BadRequest("Cannot open a chat with yourself", nil))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already answered the request.
		logger.Warn("WebSocket: Upgrade failed for %s: %v", userID, err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request().Context()))
	defer cancel()

	client := ws.NewClient(userID, conn)
	h.wsManager.Register(client)
	go client.WritePump()

	session := usecase.NewChatSession(h.messageStore, h.stream, userID, counterpartID)
	defer session.Close()

	router := ws.NewRouter()
	router.Handle(ws.MessageTypeSendMessage, func(client *ws.Client, data json.RawMessage) {
		var req ws.SendMessageData
		if err := json.Unmarshal(data, &req); err != nil {
			ws.SendError(client, errors.CodeBadRequest, "Invalid send message format")
			return
		}
		if h.limiter != nil {
			if ok, _ := h.limiter.Allow(userID, ratelimit.ActionSendMessage); !ok {
				ws.SendError(client, errors.CodeTooManyRequests, "Rate limit exceeded")
				return
			}
		}

		message, err := session.Send(ctx, req.Text)
		if err != nil {
			sendAppError(client, err)
			return
		}
		ws.Send(client, ws.MessageTypeMessageSent, ws.MessageSentData{
			TempID:  req.TempID,
			Message: message,
			Dropped: message == nil,
		})
	})
	router.Handle(ws.MessageTypeMarkRead, func(client *ws.Client, _ json.RawMessage) {
		if h.limiter != nil {
			if ok, _ := h.limiter.Allow(userID, ratelimit.ActionMarkRead); !ok {
				ws.SendError(client, errors.CodeTooManyRequests, "Rate limit exceeded")
				return
			}
		}
		ws.Send(client, ws.MessageTypeMarkedRead, ws.MarkedReadData{Count: session.MarkVisible(ctx)})
	})

	err = session.Subscribe(ctx, func(messages []*entity.Message) {
		ws.Send(client, ws.MessageTypeMessages, messages)
	})
	if err != nil {
		sendAppError(client, err)
		h.wsManager.Unregister(client)
		return nil
	}

	logger.Info("WebSocket: %s opened chat with %s", userID, counterpartID)
	client.ReadPump(h.wsManager, router.HandleClientMessage)
	logger.Info("WebSocket: %s closed chat with %s", userID, counterpartID)
	return nil
}

// HandleThreads serves the caller's home feeds on one connection: GET /ws/threads.
// It pushes "threads" on every message change, "chats" on every summary change
// and "profile" whenever the caller's own profile or presence changes.
func (h *WebSocketHandler) HandleThreads(c echo.Context) error {
	userID := middleware.UID(c)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("WebSocket: Upgrade failed for %s: %v", userID, err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request().Context()))
	defer cancel()

	client := ws.NewClient(userID, conn)
	h.wsManager.Register(client)
	go client.WritePump()

	stopThreads, err := h.aggregator.Subscribe(ctx, userID, func(threads []*entity.ThreadView) {
		ws.Send(client, ws.MessageTypeThreads, threads)
	})
	if err != nil {
		sendAppError(client, err)
		h.wsManager.Unregister(client)
		return nil
	}
	defer stopThreads()

	stopChats, err := h.aggregator.SubscribeSummaries(ctx, userID, func(summaries []*entity.ChatSummary) {
		items := make([]chatResponse, 0, len(summaries))
		for _, s := range summaries {
			items = append(items, toChatResponse(s, userID))
		}
		ws.Send(client, ws.MessageTypeChats, items)
	})
	if err != nil {
		sendAppError(client, err)
		h.wsManager.Unregister(client)
		return nil
	}
	defer stopChats()

	stopProfile, err := h.userUseCase.SubscribeProfile(ctx, userID, func(user *entity.User) {
		ws.Send(client, ws.MessageTypeProfile, user)
	})
	if err != nil {
		sendAppError(client, err)
		h.wsManager.Unregister(client)
		return nil
	}
	defer stopProfile()

	client.ReadPump(h.wsManager, ws.NewRouter().HandleClientMessage)
	return nil
}

func sendAppError(client *ws.Client, err error) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		ws.SendError(client, appErr.Code, appErr.Message)
		return
	}
	ws.SendError(client, errors.CodeInternal, "An unexpected error occurred")
}
