package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

// Aggregate groups messages by counterpart and derives a ThreadView for each.
// Messages that repeat an id are counted once, using the last copy seen.
// Messages selfID is not a party to are ignored.
func Aggregate(messages []*entity.Message, selfID string) map[string]*entity.ThreadView {
	unique := make([]*entity.Message, 0, len(messages))
	position := make(map[string]int, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		if m.ID != "" {
			if i, seen := position[m.ID]; seen {
				unique[i] = m
				continue
			}
			position[m.ID] = len(unique)
		}
		unique = append(unique, m)
	}

	threads := make(map[string]*entity.ThreadView)
	for _, m := range unique {
		counterpart := m.CounterpartOf(selfID)
		if counterpart == "" {
			continue
		}

		thread, ok := threads[counterpart]
		if !ok {
			thread = &entity.ThreadView{CounterpartID: counterpart}
			threads[counterpart] = thread
		}

		thread.OrderedMessages = append(thread.OrderedMessages, m)
		if m.IsIncoming(selfID) && m.Status.IsUnread() {
			thread.UnreadCount++
		}
		if thread.LastMessage == nil || !m.CreatedAt.Before(thread.LastMessage.CreatedAt) {
			thread.LastMessage = m
		}
	}

	for _, thread := range threads {
		sortDescending(thread.OrderedMessages)
	}
	return threads
}

// sortDescending orders newest first; equal timestamps put the later input first,
// matching the tie rule for LastMessage.
func sortDescending(messages []*entity.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
}

// SortedThreads flattens an aggregate into a most-recent-first list.
func SortedThreads(threads map[string]*entity.ThreadView) []*entity.ThreadView {
	list := make([]*entity.ThreadView, 0, len(threads))
	for _, thread := range threads {
		list = append(list, thread)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].LastMessage, list[j].LastMessage
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return list[i].CounterpartID < list[j].CounterpartID
	})
	return list
}

type ThreadsFunc func(threads []*entity.ThreadView)
type SummariesFunc func(summaries []*entity.ChatSummary)

// ThreadAggregator feeds the conversation list: it re-aggregates every message
// involving selfID on each tick of the live query.
type ThreadAggregator struct {
	messageRepo repository.MessageRepository
	chatRepo    repository.ChatRepository
}

func NewThreadAggregator(messageRepo repository.MessageRepository, chatRepo repository.ChatRepository) *ThreadAggregator {
	return &ThreadAggregator{
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
	}
}

func (a *ThreadAggregator) Threads(ctx context.Context, selfID string) ([]*entity.ThreadView, error) {
	if strings.TrimSpace(selfID) == "" {
		return nil, errors.InvalidArgument("participant id must not be empty")
	}

	messages, err := a.messageRepo.ListByParticipant(ctx, selfID)
	if err != nil {
		logger.Error("Threads Error: Failed to list messages for %s: %v", selfID, err)
		return nil, err
	}
	return SortedThreads(Aggregate(messages, selfID)), nil
}

// Subscribe delivers the sorted thread list on every change to selfID's messages.
func (a *ThreadAggregator) Subscribe(ctx context.Context, selfID string, onUpdate ThreadsFunc) (func(), error) {
	if strings.TrimSpace(selfID) == "" {
		return nil, errors.InvalidArgument("participant id must not be empty")
	}

	guard := &callbackGuard{}
	guard.mu.Lock()
	sub, err := a.messageRepo.SubscribeByParticipant(ctx, selfID, func(messages []*entity.Message) {
		guard.run(func() {
			onUpdate(SortedThreads(Aggregate(messages, selfID)))
		})
	})
	guard.mu.Unlock()
	if err != nil {
		logger.Error("Subscribe Error: Failed to open thread feed for %s: %v", selfID, err)
		return nil, err
	}
	return guard.stopWith(sub), nil
}

// SubscribeSummaries delivers the deduplicated chat summaries of selfID,
// most recent first.
func (a *ThreadAggregator) SubscribeSummaries(ctx context.Context, selfID string, onUpdate SummariesFunc) (func(), error) {
	if strings.TrimSpace(selfID) == "" {
		return nil, errors.InvalidArgument("participant id must not be empty")
	}

	guard := &callbackGuard{}
	guard.mu.Lock()
	sub, err := a.chatRepo.SubscribeByParticipant(ctx, selfID, func(rows []*entity.ChatSummary) {
		guard.run(func() {
			onUpdate(entity.DedupeSummaries(rows))
		})
	})
	guard.mu.Unlock()
	if err != nil {
		logger.Error("Subscribe Error: Failed to open chat feed for %s: %v", selfID, err)
		return nil, err
	}
	return guard.stopWith(sub), nil
}

// callbackGuard serializes callbacks with stop so none runs after stop returns.
type callbackGuard struct {
	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func (g *callbackGuard) run(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	fn()
}

func (g *callbackGuard) stopWith(sub repository.Subscription) func() {
	return func() {
		g.once.Do(func() {
			g.mu.Lock()
			g.closed = true
			g.mu.Unlock()
			sub.Stop()
		})
	}
}
