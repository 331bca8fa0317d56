package repository

import (
	"context"

	"chatsync/internal/domain/entity"
)

// MessagesSnapshotFunc receives the full matching result set on every change.
type MessagesSnapshotFunc func(messages []*entity.Message)

type MessageRepository interface {
	// Create inserts the message, assigning ID and a server-side CreatedAt.
	Create(ctx context.Context, message *entity.Message) error
	// AdvanceStatus moves a message forward in its lifecycle. Moving to an equal
	// or lower status is a no-op, never an error.
	AdvanceStatus(ctx context.Context, messageID string, status entity.MessageStatus) error
	GetByID(ctx context.Context, messageID string) (*entity.Message, error)

	ListByChat(ctx context.Context, chatID string) ([]*entity.Message, error)
	ListByParticipant(ctx context.Context, userID string) ([]*entity.Message, error)

	SubscribeByChat(ctx context.Context, chatID string, fn MessagesSnapshotFunc) (Subscription, error)
	SubscribeByParticipant(ctx context.Context, userID string, fn MessagesSnapshotFunc) (Subscription, error)
}
