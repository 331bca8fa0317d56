package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
)

type chatRepository struct {
	store *Store
}

func NewChatRepository(store *Store) repository.ChatRepository {
	return &chatRepository{store: store}
}

func cloneSummary(c *entity.ChatSummary) *entity.ChatSummary {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	return &out
}

func (r *chatRepository) Create(ctx context.Context, summary *entity.ChatSummary) error {
	if err := ctx.Err(); err != nil {
		return errors.Transient("Failed to create chat", err)
	}

	r.store.mu.Lock()
	now := r.store.now()
	summary.ID = uuid.New().String()
	summary.CreatedAt = now
	summary.LastMessageAt = now
	stored := cloneSummary(summary)
	r.store.chats = append(r.store.chats, stored)
	r.store.mu.Unlock()

	r.store.broadcast(chatsCollection, stored)
	return nil
}

func (r *chatRepository) FindByChatID(ctx context.Context, chatID string) ([]*entity.ChatSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Transient("Failed to query chat", err)
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var rows []*entity.ChatSummary
	for _, c := range r.store.chats {
		if c.ChatID == chatID {
			rows = append(rows, cloneSummary(c))
		}
	}
	return rows, nil
}

func (r *chatRepository) TouchLastMessage(ctx context.Context, summaryID string) error {
	if err := ctx.Err(); err != nil {
		return errors.Transient("Failed to update chat", err)
	}

	r.store.mu.Lock()
	var target *entity.ChatSummary
	for _, c := range r.store.chats {
		if c.ID == summaryID {
			target = c
			break
		}
	}
	if target == nil {
		r.store.mu.Unlock()
		return errors.NotFound("Chat", nil)
	}
	target.LastMessageAt = r.store.now()
	snapshot := cloneSummary(target)
	r.store.mu.Unlock()

	r.store.broadcast(chatsCollection, snapshot)
	return nil
}

func (r *chatRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.ChatSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Transient("Failed to list chats", err)
	}
	return r.byParticipant(userID), nil
}

func (r *chatRepository) SubscribeByParticipant(ctx context.Context, userID string, fn repository.SummariesSnapshotFunc) (repository.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Transient("Failed to register chat listener", err)
	}

	l := r.store.listen(chatsCollection,
		func(doc interface{}) bool { return contains(doc.(*entity.ChatSummary).Participants, userID) },
		func() { fn(r.byParticipant(userID)) },
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

// byParticipant orders rows by lastMessageAt descending.
func (r *chatRepository) byParticipant(userID string) []*entity.ChatSummary {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows := make([]*entity.ChatSummary, 0)
	for _, c := range r.store.chats {
		if contains(c.Participants, userID) {
			rows = append(rows, cloneSummary(c))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].LastMessageAt.After(rows[j].LastMessageAt)
	})
	return rows
}
