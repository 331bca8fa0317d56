package repository

import (
	"context"

	"chatsync/internal/domain/entity"
)

type SummariesSnapshotFunc func(summaries []*entity.ChatSummary)

type ChatRepository interface {
	// Create always inserts a new row; callers check for existing rows first.
	Create(ctx context.Context, summary *entity.ChatSummary) error
	// FindByChatID may return more than one row for the same chat.
	FindByChatID(ctx context.Context, chatID string) ([]*entity.ChatSummary, error)
	TouchLastMessage(ctx context.Context, summaryID string) error

	ListByParticipant(ctx context.Context, userID string) ([]*entity.ChatSummary, error)
	SubscribeByParticipant(ctx context.Context, userID string, fn SummariesSnapshotFunc) (Subscription, error)
}
