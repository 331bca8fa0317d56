package usecase

import (
	"context"
	"strings"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

// MessageStore is the write path: it creates messages and keeps the per-pair
// chat summary in place. None of its multi-step writes are atomic.
type MessageStore struct {
	messageRepo repository.MessageRepository
	chatRepo    repository.ChatRepository
}

func NewMessageStore(messageRepo repository.MessageRepository, chatRepo repository.ChatRepository) *MessageStore {
	return &MessageStore{
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
	}
}

// EnsureChat returns the chat id for the pair, inserting a summary when none
// exists. Two first contacts racing from both sides can both insert.
func (s *MessageStore) EnsureChat(ctx context.Context, selfID, counterpartID string) (string, error) {
	chatID, err := entity.DeriveChatID(selfID, counterpartID)
	if err != nil {
		return "", err
	}

	existing, err := s.chatRepo.FindByChatID(ctx, chatID)
	if err != nil {
		logger.Error("EnsureChat Error: Failed to look up chat %s: %v", chatID, err)
		return "", err
	}
	if len(existing) > 0 {
		return chatID, nil
	}

	summary := &entity.ChatSummary{
		ChatID:       chatID,
		Participants: []string{selfID, counterpartID},
	}
	if err := s.chatRepo.Create(ctx, summary); err != nil {
		logger.Error("EnsureChat Error: Failed to create chat %s: %v", chatID, err)
		return "", err
	}

	logger.Debug("EnsureChat: created summary %s for chat %s", summary.ID, chatID)
	return chatID, nil
}

// Send stores a new message from senderID to recipientID. Text that is blank
// after trimming is dropped without error and without any write; the returned
// message is nil in that case.
func (s *MessageStore) Send(ctx context.Context, senderID, recipientID, text string) (*entity.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		logger.Debug("Send: dropping blank message from %s to %s", senderID, recipientID)
		return nil, nil
	}

	chatID, err := s.EnsureChat(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		ChatID:       chatID,
		SenderID:     senderID,
		RecipientID:  recipientID,
		Participants: []string{senderID, recipientID},
		Text:         text,
		Status:       entity.StatusSent,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		logger.Error("Send Error: Failed to create message for chat %s: %v", chatID, err)
		return nil, err
	}

	// The message is already visible; a stale summary only affects summary ordering.
	s.touchSummaries(ctx, chatID)

	return message, nil
}

func (s *MessageStore) touchSummaries(ctx context.Context, chatID string) {
	rows, err := s.chatRepo.FindByChatID(ctx, chatID)
	if err != nil {
		logger.Warn("Send Warning: Failed to load summary for chat %s: %v", chatID, err)
		return
	}

	for _, row := range rows {
		if err := s.chatRepo.TouchLastMessage(ctx, row.ID); err != nil {
			logger.Warn("Send Warning: Failed to bump lastMessageAt on summary %s (chat %s): %v", row.ID, chatID, err)
		}
	}
}

// Summaries lists the chats selfID takes part in, most recent first, with
// duplicate rows for the same pair collapsed.
func (s *MessageStore) Summaries(ctx context.Context, selfID string) ([]*entity.ChatSummary, error) {
	if strings.TrimSpace(selfID) == "" {
		return nil, errors.InvalidArgument("participant id must not be empty")
	}

	rows, err := s.chatRepo.ListByParticipant(ctx, selfID)
	if err != nil {
		logger.Error("Summaries Error: Failed to list chats for %s: %v", selfID, err)
		return nil, err
	}
	return entity.DedupeSummaries(rows), nil
}
