package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// PostingEvent announces a committed ledger transaction.
type PostingEvent struct {
	Owner         string    `json:"-"`
	TransactionID string    `json:"transaction_id"`
	Kind          string    `json:"kind"`
	Entries       int       `json:"entries"`
	Amount        string    `json:"amount"`
	Reverses      string    `json:"reverses,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type subscriber struct {
	owner string
	ch    chan PostingEvent
}

// Stream fans out posting events to subscribers of the same owner
// (SSE clients).
type Stream struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	dropped atomic.Uint64
	onDrop  func()
}

// Option configures a Stream.
type Option func(*Stream)

// WithDropHook calls fn each time an event is dropped for a slow subscriber.
func WithDropHook(fn func()) Option {
	return func(s *Stream) { s.onDrop = fn }
}

// New initialises an empty stream.
func New(opts ...Option) *Stream {
	s := &Stream{subs: make(map[int]subscriber)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a subscriber for owner's events. The channel is closed
// when ctx ends.
func (s *Stream) Subscribe(ctx context.Context, owner string) <-chan PostingEvent {
	ch := make(chan PostingEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{owner: owner, ch: ch}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish delivers evt to the owner's subscribers without blocking.
func (s *Stream) Publish(evt PostingEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.owner != evt.Owner {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			s.dropped.Add(1)
			if s.onDrop != nil {
				s.onDrop()
			}
		}
	}
}

// Dropped reports how many events slow subscribers missed.
func (s *Stream) Dropped() uint64 { return s.dropped.Load() }

// Subscribers reports the number of active subscriptions.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
