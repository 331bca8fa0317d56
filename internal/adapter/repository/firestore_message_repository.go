package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
)

const messagesCollection = "messages"

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) col() *firestore.CollectionRef {
	return r.client.Collection(messagesCollection)
}

func (r *firestoreMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	message.Status = message.Status.Normalize()

	ref, result, err := r.col().Add(ctx, map[string]interface{}{
		"chatId":       message.ChatID,
		"senderId":     message.SenderID,
		"recipientId":  message.RecipientID,
		"participants": message.Participants,
		"text":         message.Text,
		"status":       string(message.Status),
		"createdAt":    firestore.ServerTimestamp,
	})
	if err != nil {
		return errors.Transient("Failed to create message", err)
	}

	message.ID = ref.ID
	message.CreatedAt = result.UpdateTime
	return nil
}

// AdvanceStatus reads and conditionally writes a single document inside a
// transaction so that a late delivered bump can never overwrite read.
func (r *firestoreMessageRepository) AdvanceStatus(ctx context.Context, messageID string, next entity.MessageStatus) error {
	ref := r.col().Doc(messageID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}

		current, _ := doc.Data()["status"].(string)
		if !entity.MessageStatus(current).Normalize().CanAdvanceTo(next) {
			return nil
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(next)},
		})
	})
	if err != nil {
		return translateError("Message", err)
	}
	return nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, messageID string) (*entity.Message, error) {
	doc, err := r.col().Doc(messageID).Get(ctx)
	if err != nil {
		return nil, translateError("Message", err)
	}
	return decodeMessage(doc)
}

func (r *firestoreMessageRepository) byChat(chatID string) firestore.Query {
	return r.col().Where("chatId", "==", chatID).OrderBy("createdAt", firestore.Asc)
}

func (r *firestoreMessageRepository) byParticipant(userID string) firestore.Query {
	return r.col().Where("participants", "array-contains", userID).OrderBy("createdAt", firestore.Asc)
}

func (r *firestoreMessageRepository) ListByChat(ctx context.Context, chatID string) ([]*entity.Message, error) {
	return getAll(ctx, r.byChat(chatID), "messages", decodeMessage)
}

func (r *firestoreMessageRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Message, error) {
	return getAll(ctx, r.byParticipant(userID), "messages", decodeMessage)
}

func (r *firestoreMessageRepository) SubscribeByChat(ctx context.Context, chatID string, fn repository.MessagesSnapshotFunc) (repository.Subscription, error) {
	return listen(ctx, r.byChat(chatID), "messages", decodeMessage, fn)
}

func (r *firestoreMessageRepository) SubscribeByParticipant(ctx context.Context, userID string, fn repository.MessagesSnapshotFunc) (repository.Subscription, error) {
	return listen(ctx, r.byParticipant(userID), "messages", decodeMessage, fn)
}

// decodeMessage reads the raw map so that createdAt may be either a Firestore
// timestamp or epoch milliseconds written by older clients.
func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	data := doc.Data()
	if data == nil {
		return nil, fmt.Errorf("empty message document: %s", doc.Ref.ID)
	}

	getStr := func(key string) string {
		if v, ok := data[key].(string); ok {
			return v
		}
		return ""
	}

	m := &entity.Message{
		ID:          doc.Ref.ID,
		ChatID:      getStr("chatId"),
		SenderID:    getStr("senderId"),
		RecipientID: getStr("recipientId"),
		Text:        getStr("text"),
		Status:      entity.MessageStatus(getStr("status")).Normalize(),
		CreatedAt:   decodeTimestamp(data["createdAt"]),
	}

	if raw, ok := data["participants"].([]interface{}); ok {
		for _, p := range raw {
			if s, ok := p.(string); ok {
				m.Participants = append(m.Participants, s)
			}
		}
	}

	if len(m.Participants) == 0 && m.RecipientID != "" {
		m.Participants = []string{m.SenderID, m.RecipientID}
	}

	if m.ChatID == "" || m.SenderID == "" {
		return nil, fmt.Errorf("message %s is missing chatId or senderId", doc.Ref.ID)
	}
	return m, nil
}

func decodeTimestamp(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case int64:
		return time.UnixMilli(t).UTC()
	case float64:
		return time.UnixMilli(int64(t)).UTC()
	default:
		return time.Time{}
	}
}
