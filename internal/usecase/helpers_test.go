package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"chatsync/internal/adapter/repository/memory"
	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

func init() {
	logger.Init("error", "test")
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	store       *memory.Store
	messageRepo repository.MessageRepository
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository

	messageStore *MessageStore
	stream       *MessageStream
	aggregator   *ThreadAggregator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore(memory.WithClock((&fakeClock{now: baseTime}).Now))
	f := &fixture{
		store:       store,
		messageRepo: memory.NewMessageRepository(store),
		chatRepo:    memory.NewChatRepository(store),
		userRepo:    memory.NewUserRepository(store),
	}
	f.messageStore = NewMessageStore(f.messageRepo, f.chatRepo)
	f.stream = NewMessageStream(f.messageRepo, time.Second)
	f.aggregator = NewThreadAggregator(f.messageRepo, f.chatRepo)
	t.Cleanup(f.stream.Wait)
	return f
}

func msgAt(id, from, to string, status entity.MessageStatus, offset time.Duration) *entity.Message {
	chatID, _ := entity.DeriveChatID(from, to)
	return &entity.Message{
		ID:           id,
		ChatID:       chatID,
		SenderID:     from,
		RecipientID:  to,
		Participants: []string{from, to},
		Text:         "text " + id,
		Status:       status,
		CreatedAt:    baseTime.Add(offset),
	}
}

// recorder collects snapshots delivered to a callback.
type recorder struct {
	mu        sync.Mutex
	snapshots [][]*entity.Message
}

func (r *recorder) record(messages []*entity.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, messages)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recorder) last() []*entity.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

// flakyMessageRepo fails status updates for the listed ids and records the rest.
type flakyMessageRepo struct {
	repository.MessageRepository

	mu      sync.Mutex
	failIDs map[string]bool
	failed  []string
	updated []string
}

func (r *flakyMessageRepo) failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failed...)
}

func (r *flakyMessageRepo) AdvanceStatus(ctx context.Context, messageID string, status entity.MessageStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIDs[messageID] {
		r.failed = append(r.failed, messageID)
		return errors.Transient("Failed to update message status", context.DeadlineExceeded)
	}
	r.updated = append(r.updated, messageID)
	return nil
}

// failingTouchChatRepo loses every lastMessageAt bump.
type failingTouchChatRepo struct {
	repository.ChatRepository
}

func (r *failingTouchChatRepo) TouchLastMessage(ctx context.Context, summaryID string) error {
	return errors.Transient("Failed to update chat", context.DeadlineExceeded)
}
