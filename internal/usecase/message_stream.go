package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/logger"
)

const defaultSideEffectTimeout = 10 * time.Second

// MessagesFunc receives the ordered message list of one conversation.
type MessagesFunc func(messages []*entity.Message)

// MessageStream is the read path for a conversation. Observing a snapshot is
// what confirms delivery: incoming messages still marked sent are bumped to
// delivered in the background.
type MessageStream struct {
	messageRepo       repository.MessageRepository
	sideEffectTimeout time.Duration
	// pending tracks in-flight delivered bumps so tests and shutdown can drain them.
	pending sync.WaitGroup
	// mu orders pending.Add against Shutdown.
	mu       sync.Mutex
	shutdown bool
}

func NewMessageStream(messageRepo repository.MessageRepository, sideEffectTimeout time.Duration) *MessageStream {
	if sideEffectTimeout <= 0 {
		sideEffectTimeout = defaultSideEffectTimeout
	}
	return &MessageStream{
		messageRepo:       messageRepo,
		sideEffectTimeout: sideEffectTimeout,
	}
}

// SortAscending orders messages oldest first. The sort is stable so equal
// timestamps keep the order the store delivered them in.
func SortAscending(messages []*entity.Message) []*entity.Message {
	sorted := make([]*entity.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

// PendingDeliveries returns the messages that selfID has now observed but that
// are still marked sent.
func PendingDeliveries(messages []*entity.Message, selfID string) []*entity.Message {
	var pending []*entity.Message
	for _, m := range messages {
		if m.Status.Normalize() == entity.StatusSent && m.IsIncoming(selfID) {
			pending = append(pending, m)
		}
	}
	return pending
}

// PendingReads returns delivered incoming messages, the only ones mark-read touches.
func PendingReads(messages []*entity.Message, selfID string) []*entity.Message {
	var pending []*entity.Message
	for _, m := range messages {
		if m.Status == entity.StatusDelivered && m.IsIncoming(selfID) {
			pending = append(pending, m)
		}
	}
	return pending
}

type streamSubscription struct {
	mu     sync.Mutex
	closed bool
	sub    repository.Subscription
	once   sync.Once
}

// unsubscribe stops the live query. Once it returns no further callback runs.
// It must not be called from inside the callback itself.
func (s *streamSubscription) unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.sub != nil {
			s.sub.Stop()
		}
	})
}

// Subscribe opens a live query for the conversation between selfID and
// counterpartID. onUpdate receives the full ascending list on every change,
// with messages being confirmed in this snapshot already shown as delivered.
// The returned function is idempotent; the subscription also ends with ctx.
func (s *MessageStream) Subscribe(ctx context.Context, selfID, counterpartID string, onUpdate MessagesFunc) (func(), error) {
	chatID, err := entity.DeriveChatID(selfID, counterpartID)
	if err != nil {
		return nil, err
	}

	stream := &streamSubscription{}
	// Hold the lock until registration finishes so an early snapshot cannot
	// race the assignment of stream.sub.
	stream.mu.Lock()
	sub, err := s.messageRepo.SubscribeByChat(ctx, chatID, func(snapshot []*entity.Message) {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		if stream.closed {
			return
		}

		ordered := SortAscending(snapshot)
		pending := PendingDeliveries(ordered, selfID)
		if len(pending) > 0 {
			ids := make([]string, 0, len(pending))
			for _, m := range pending {
				ids = append(ids, m.ID)
			}
			if s.issueDeliveries(ctx, chatID, ids) {
				ordered = deliveredView(ordered, selfID)
			}
		}

		onUpdate(ordered)
	})
	if err != nil {
		stream.mu.Unlock()
		logger.Error("Subscribe Error: Failed to open message stream for chat %s: %v", chatID, err)
		return nil, err
	}
	stream.sub = sub
	stream.mu.Unlock()

	logger.Debug("Subscribe: %s listening on chat %s", selfID, chatID)
	return stream.unsubscribe, nil
}

// deliveredView shows the incoming messages being confirmed as delivered.
func deliveredView(ordered []*entity.Message, selfID string) []*entity.Message {
	view := make([]*entity.Message, len(ordered))
	for i, m := range ordered {
		view[i] = m
		if m.Status.Normalize() == entity.StatusSent && m.IsIncoming(selfID) {
			bumped := m.Clone()
			bumped.Status = entity.StatusDelivered
			view[i] = bumped
		}
	}
	return view
}

// issueDeliveries fires the delivered bumps independently of the callback.
// Failures are logged and never retried; bumps already issued survive unsubscribe.
// After Shutdown nothing is issued and it reports false.
func (s *MessageStream) issueDeliveries(ctx context.Context, chatID string, messageIDs []string) bool {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		logger.Debug("Skipping %d delivered bumps for chat %s: stream is shutting down", len(messageIDs), chatID)
		return false
	}
	s.pending.Add(len(messageIDs))
	s.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	for _, id := range messageIDs {
		go func(messageID string) {
			defer s.pending.Done()

			ctx, cancel := context.WithTimeout(detached, s.sideEffectTimeout)
			defer cancel()

			if err := s.messageRepo.AdvanceStatus(ctx, messageID, entity.StatusDelivered); err != nil {
				logger.WithFields(logger.Fields{
					"chat_id":    chatID,
					"message_id": messageID,
				}).Warnf("failed to mark message delivered: %v", err)
			}
		}(id)
	}
	return true
}

// Wait blocks until every delivered bump issued so far has finished.
// Subscriptions may keep issuing bumps; use Shutdown to stop them first.
func (s *MessageStream) Wait() {
	s.pending.Wait()
}

// Shutdown stops issuing delivered bumps and waits for the ones in flight.
// Live subscriptions keep delivering snapshots, without the delivered view.
func (s *MessageStream) Shutdown() {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	s.pending.Wait()
}

// MarkRead moves delivered incoming messages to read, one at a time. A failing
// update is logged and skipped. It returns how many updates succeeded.
func (s *MessageStream) MarkRead(ctx context.Context, messages []*entity.Message, selfID string) int {
	marked := 0
	for _, m := range PendingReads(messages, selfID) {
		if err := s.messageRepo.AdvanceStatus(ctx, m.ID, entity.StatusRead); err != nil {
			logger.WithFields(logger.Fields{
				"chat_id":    m.ChatID,
				"message_id": m.ID,
			}).Warnf("failed to mark message read: %v", err)
			continue
		}
		marked++
	}
	return marked
}

// Messages reads the conversation once, oldest first, without side effects.
func (s *MessageStream) Messages(ctx context.Context, selfID, counterpartID string) ([]*entity.Message, error) {
	chatID, err := entity.DeriveChatID(selfID, counterpartID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListByChat(ctx, chatID)
	if err != nil {
		logger.Error("Messages Error: Failed to list chat %s: %v", chatID, err)
		return nil, err
	}
	return SortAscending(messages), nil
}
