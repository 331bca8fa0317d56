package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
)

const chatsCollection = "chats"

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) Create(ctx context.Context, summary *entity.ChatSummary) error {
	ref, result, err := r.client.Collection(chatsCollection).Add(ctx, map[string]interface{}{
		"chatId":        summary.ChatID,
		"participants":  summary.Participants,
		"createdAt":     firestore.ServerTimestamp,
		"lastMessageAt": firestore.ServerTimestamp,
	})
	if err != nil {
		return errors.Transient("Failed to create chat", err)
	}

	summary.ID = ref.ID
	summary.CreatedAt = result.UpdateTime
	summary.LastMessageAt = result.UpdateTime
	return nil
}

func (r *firestoreChatRepository) FindByChatID(ctx context.Context, chatID string) ([]*entity.ChatSummary, error) {
	query := r.client.Collection(chatsCollection).Where("chatId", "==", chatID)
	return getAll(ctx, query, "chats", decodeSummary)
}

func (r *firestoreChatRepository) TouchLastMessage(ctx context.Context, summaryID string) error {
	_, err := r.client.Collection(chatsCollection).Doc(summaryID).Update(ctx, []firestore.Update{
		{Path: "lastMessageAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return translateError("Chat", err)
	}
	return nil
}

func (r *firestoreChatRepository) byParticipant(userID string) firestore.Query {
	return r.client.Collection(chatsCollection).
		Where("participants", "array-contains", userID).
		OrderBy("lastMessageAt", firestore.Desc)
}

func (r *firestoreChatRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.ChatSummary, error) {
	return getAll(ctx, r.byParticipant(userID), "chats", decodeSummary)
}

func (r *firestoreChatRepository) SubscribeByParticipant(ctx context.Context, userID string, fn repository.SummariesSnapshotFunc) (repository.Subscription, error) {
	return listen(ctx, r.byParticipant(userID), "chats", decodeSummary, fn)
}

func decodeSummary(doc *firestore.DocumentSnapshot) (*entity.ChatSummary, error) {
	var summary entity.ChatSummary
	if err := doc.DataTo(&summary); err != nil {
		return nil, err
	}
	summary.ID = doc.Ref.ID
	return &summary, nil
}
