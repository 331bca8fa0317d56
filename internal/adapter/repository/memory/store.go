// Package memory holds in-process repositories with the same live-query
// semantics as the Firestore adapters: every matching mutation re-delivers the
// full result set on the subscriber's own goroutine.
package memory

import (
	"sync"
	"time"

	"chatsync/internal/domain/entity"
)

type Store struct {
	mu       sync.RWMutex
	messages []*entity.Message
	chats    []*entity.ChatSummary
	users    map[string]*entity.User
	now      func() time.Time

	lmu       sync.Mutex
	listeners map[*listener]struct{}
}

type Option func(*Store)

// WithClock replaces the server clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		users:     make(map[string]*entity.User),
		now:       time.Now,
		listeners: make(map[*listener]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type collection int

const (
	messagesCollection collection = iota
	chatsCollection
	usersCollection
)

type listener struct {
	collection collection
	match      func(doc interface{}) bool
	deliver    func()
	notify     chan struct{}
	done       chan struct{}
	once       sync.Once
}

func (l *listener) signal() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

func (l *listener) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.notify:
		}

		select {
		case <-l.done:
			return
		default:
		}

		l.deliver()
	}
}

func (s *Store) listen(c collection, match func(doc interface{}) bool, deliver func()) *listener {
	l := &listener{
		collection: c,
		match:      match,
		deliver:    deliver,
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	s.lmu.Lock()
	s.listeners[l] = struct{}{}
	s.lmu.Unlock()

	go l.run()
	l.signal()
	return l
}

func (s *Store) unlisten(l *listener) {
	l.once.Do(func() {
		close(l.done)
		s.lmu.Lock()
		delete(s.listeners, l)
		s.lmu.Unlock()
	})
}

func (s *Store) broadcast(c collection, doc interface{}) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	for l := range s.listeners {
		if l.collection == c && l.match(doc) {
			l.signal()
		}
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
