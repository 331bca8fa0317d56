package usecase

import (
	"context"
	"sync"

	"chatsync/internal/domain/entity"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

type SessionState int

const (
	SessionIdle SessionState = iota
	SessionSubscribed
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionSubscribed:
		return "subscribed"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ChatSession is one open conversation screen: it owns a single message
// stream between selfID and counterpartID and remembers the last snapshot so
// the visible messages can be marked read.
type ChatSession struct {
	store  *MessageStore
	stream *MessageStream

	selfID        string
	counterpartID string

	mu          sync.Mutex
	state       SessionState
	messages    []*entity.Message
	unsubscribe func()
}

func NewChatSession(store *MessageStore, stream *MessageStream, selfID, counterpartID string) *ChatSession {
	return &ChatSession{
		store:         store,
		stream:        stream,
		selfID:        selfID,
		counterpartID: counterpartID,
		state:         SessionIdle,
	}
}

func (s *ChatSession) SelfID() string        { return s.selfID }
func (s *ChatSession) CounterpartID() string { return s.counterpartID }

func (s *ChatSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Send is meant for subscribed sessions, but the state is not checked.
func (s *ChatSession) Send(ctx context.Context, text string) (*entity.Message, error) {
	return s.store.Send(ctx, s.selfID, s.counterpartID, text)
}

// Subscribe starts the live stream. It can only be called once, from idle.
func (s *ChatSession) Subscribe(ctx context.Context, onMessages MessagesFunc) error {
	s.mu.Lock()
	if s.state != SessionIdle {
		state := s.state
		s.mu.Unlock()
		return errors.Conflict("session is " + state.String())
	}
	// Reserve the transition so a concurrent Subscribe fails fast.
	s.state = SessionSubscribed
	s.mu.Unlock()

	unsubscribe, err := s.stream.Subscribe(ctx, s.selfID, s.counterpartID, func(messages []*entity.Message) {
		s.mu.Lock()
		if s.state == SessionClosed {
			s.mu.Unlock()
			return
		}
		s.messages = messages
		s.mu.Unlock()

		if onMessages != nil {
			onMessages(messages)
		}
	})

	s.mu.Lock()
	if err != nil {
		if s.state == SessionSubscribed {
			s.state = SessionIdle
		}
		s.mu.Unlock()
		return err
	}
	if s.state == SessionClosed {
		// Closed while registering.
		s.mu.Unlock()
		unsubscribe()
		return errors.Conflict("session is closed")
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	return nil
}

// Messages returns the most recent snapshot, oldest first.
func (s *ChatSession) Messages() []*entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entity.Message(nil), s.messages...)
}

// MarkVisible marks read every delivered incoming message in the current
// snapshot and returns how many were updated.
func (s *ChatSession) MarkVisible(ctx context.Context) int {
	visible := s.Messages()
	if len(visible) == 0 {
		return 0
	}
	marked := s.stream.MarkRead(ctx, visible, s.selfID)
	logger.Debug("MarkVisible: %s marked %d of %d messages read from %s", s.selfID, marked, len(visible), s.counterpartID)
	return marked
}

// Close stops the stream. It is idempotent and safe from any state, but must
// not be called from inside the onMessages callback.
func (s *ChatSession) Close() {
	s.mu.Lock()
	if s.state == SessionClosed {
		s.mu.Unlock()
		return
	}
	s.state = SessionClosed
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
