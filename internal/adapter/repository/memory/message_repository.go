package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
)

type messageRepository struct {
	store *Store
}

func NewMessageRepository(store *Store) repository.MessageRepository {
	return &messageRepository{store: store}
}

func (r *messageRepository) Create(ctx context.Context, message *entity.Message) error {
	if err := ctx.Err(); err != nil {
		return errors.Transient("Failed to create message", err)
	}

	r.store.mu.Lock()
	message.ID = uuid.New().String()
	message.CreatedAt = r.store.now()
	message.Status = message.Status.Normalize()
	stored := message.Clone()
	r.store.messages = append(r.store.messages, stored)
	r.store.mu.Unlock()

	r.store.broadcast(messagesCollection, stored)
	return nil
}

func (r *messageRepository) AdvanceStatus(ctx context.Context, messageID string, status entity.MessageStatus) error {
	if err := ctx.Err(); err != nil {
		return errors.Transient("Failed to update message status", err)
	}

	r.store.mu.Lock()
	var target *entity.Message
	for _, m := range r.store.messages {
		if m.ID == messageID {
			target = m
			break
		}
	}
	if target == nil {
		r.store.mu.Unlock()
		return errors.NotFound("Message", nil)
	}
	if !target.Status.CanAdvanceTo(status) {
		r.store.mu.Unlock()
		return nil
	}
	target.Status = status
	snapshot := target.Clone()
	r.store.mu.Unlock()

	r.store.broadcast(messagesCollection, snapshot)
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, messageID string) (*entity.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, m := range r.store.messages {
		if m.ID == messageID {
			return m.Clone(), nil
		}
	}
	return nil, errors.NotFound("Message", nil)
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID string) ([]*entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Transient("Failed to list messages", err)
	}
	return r.query(byChat(chatID)), nil
}

func (r *messageRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Transient("Failed to list messages", err)
	}
	return r.query(byParticipant(userID)), nil
}

func (r *messageRepository) SubscribeByChat(ctx context.Context, chatID string, fn repository.MessagesSnapshotFunc) (repository.Subscription, error) {
	return r.subscribe(ctx, byChat(chatID), fn)
}

func (r *messageRepository) SubscribeByParticipant(ctx context.Context, userID string, fn repository.MessagesSnapshotFunc) (repository.Subscription, error) {
	return r.subscribe(ctx, byParticipant(userID), fn)
}

func (r *messageRepository) subscribe(ctx context.Context, match func(*entity.Message) bool, fn repository.MessagesSnapshotFunc) (repository.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Transient("Failed to register message listener", err)
	}

	l := r.store.listen(messagesCollection,
		func(doc interface{}) bool { return match(doc.(*entity.Message)) },
		func() { fn(r.query(match)) },
	)

	stop := repository.SubscriptionFunc(func() { r.store.unlisten(l) })
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-l.done:
		}
	}()
	return stop, nil
}

// query returns matching messages ordered by createdAt, ties in insertion order.
func (r *messageRepository) query(match func(*entity.Message) bool) []*entity.Message {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]*entity.Message, 0)
	for _, m := range r.store.messages {
		if match(m) {
			result = append(result, m.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func byChat(chatID string) func(*entity.Message) bool {
	return func(m *entity.Message) bool { return m.ChatID == chatID }
}

func byParticipant(userID string) func(*entity.Message) bool {
	return func(m *entity.Message) bool { return contains(m.Participants, userID) }
}
