package handler

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"chatsync/internal/adapter/api/middleware"
	"chatsync/internal/domain/entity"
	"chatsync/internal/usecase"
	"chatsync/pkg/errors"
	"chatsync/pkg/response"
	"chatsync/pkg/utils"
)

type ChatHandler struct {
	messageStore *usecase.MessageStore
	stream       *usecase.MessageStream
	aggregator   *usecase.ThreadAggregator
}

func NewChatHandler(
	messageStore *usecase.MessageStore,
	stream *usecase.MessageStream,
	aggregator *usecase.ThreadAggregator,
) *ChatHandler {
	return &ChatHandler{
		messageStore: messageStore,
		stream:       stream,
		aggregator:   aggregator,
	}
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"max=4096"`
}

type chatResponse struct {
	ID            string    `json:"id"`
	ChatID        string    `json:"chat_id"`
	CounterpartID string    `json:"counterpart_id"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

func toChatResponse(summary *entity.ChatSummary, selfID string) chatResponse {
	return chatResponse{
		ID:            summary.ID,
		ChatID:        summary.ChatID,
		CounterpartID: summary.CounterpartOf(selfID),
		CreatedAt:     summary.CreatedAt,
		LastMessageAt: summary.LastMessageAt,
	}
}

// counterpart reads :counterpartId and rejects conversations with oneself.
func counterpart(c echo.Context, selfID string) (string, error) {
	id := strings.TrimSpace(c.Param("counterpartId"))
	if id == "" {
		return "", errors.InvalidArgument("counterpart id must not be empty")
	}
	if id == selfID {
		return "", errors.BadRequest("Cannot open a chat with yourself", nil)
	}
	return id, nil
}

// GetChats lists the caller's conversations, most recent first.
func (h *ChatHandler) GetChats(c echo.Context) error {
	userID := middleware.UID(c)

	summaries, err := h.messageStore.Summaries(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	items := make([]chatResponse, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, toChatResponse(s, userID))
	}

	page := utils.GetPaginationParams(c)
	return response.List(c, utils.Paginate(items, page), len(items))
}

// GetThreads lists aggregated threads with unread counts.
func (h *ChatHandler) GetThreads(c echo.Context) error {
	userID := middleware.UID(c)

	threads, err := h.aggregator.Threads(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	page := utils.GetPaginationParams(c)
	return response.List(c, utils.Paginate(threads, page), len(threads))
}

// GetMessages returns the conversation oldest first.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	userID := middleware.UID(c)
	counterpartID, err := counterpart(c, userID)
	if err != nil {
		return response.Error(c, err)
	}

	messages, err := h.stream.Messages(c.Request().Context(), userID, counterpartID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, messages, len(messages))
}

// SendMessage answers 201 with the stored message, or 204 when the text was
// blank and nothing was written.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := middleware.UID(c)
	counterpartID, err := counterpart(c, userID)
	if err != nil {
		return response.Error(c, err)
	}

	message, err := h.messageStore.Send(c.Request().Context(), userID, counterpartID, req.Text)
	if err != nil {
		return response.Error(c, err)
	}
	if message == nil {
		return response.NoContent(c)
	}

	return response.Created(c, message)
}

// MarkRead marks every delivered incoming message of the conversation read.
func (h *ChatHandler) MarkRead(c echo.Context) error {
	userID := middleware.UID(c)
	counterpartID, err := counterpart(c, userID)
	if err != nil {
		return response.Error(c, err)
	}

	messages, err := h.stream.Messages(c.Request().Context(), userID, counterpartID)
	if err != nil {
		return response.Error(c, err)
	}

	marked := h.stream.MarkRead(c.Request().Context(), messages, userID)
	return response.Success(c, map[string]int{"marked": marked})
}
