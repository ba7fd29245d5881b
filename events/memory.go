package events

import (
	"sync"
	"sync/atomic"
)

// DefaultBufferSize for subscription channels.
const DefaultBufferSize = 256

// MemoryStream implements Stream using in-memory channels.
// Useful for testing and single-process scenarios.
type MemoryStream struct {
	bufferSize int

	mu     sync.RWMutex
	subs   []*memorySub
	closed atomic.Bool
}

type memorySub struct {
	ch     chan Event
	closed atomic.Bool
	stream *MemoryStream
}

// NewMemoryStream creates an in-memory event stream.
func NewMemoryStream() *MemoryStream {
	return &MemoryStream{bufferSize: DefaultBufferSize}
}

// Emit delivers the event to every live subscriber.
// A subscriber whose buffer is full misses the event rather than
// blocking the emitter.
func (s *MemoryStream) Emit(e Event) error {
	if s.closed.Load() {
		return ErrClosed
	}
	e = stamp(e)

	s.mu.RLock()
	subs := s.subs
	s.mu.RUnlock()

	for _, sub := range subs {
		if !sub.closed.Load() {
			select {
			case sub.ch <- e:
			default:
				// Buffer full, drop for this subscriber.
			}
		}
	}
	return nil
}

// Subscribe creates a subscription receiving subsequent events.
func (s *MemoryStream) Subscribe() (Subscription, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	sub := &memorySub{
		ch:     make(chan Event, s.bufferSize),
		stream: s,
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return sub, nil
}

// Close shuts down the stream and all subscriptions.
func (s *MemoryStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if !sub.closed.Swap(true) {
			close(sub.ch)
		}
	}
	s.subs = nil
	return nil
}

// Events returns the subscription channel.
func (s *memorySub) Events() <-chan Event {
	return s.ch
}

// Unsubscribe cancels the subscription.
func (s *memorySub) Unsubscribe() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.stream.mu.Lock()
	defer s.stream.mu.Unlock()

	for i, sub := range s.stream.subs {
		if sub == s {
			s.stream.subs = append(s.stream.subs[:i], s.stream.subs[i+1:]...)
			break
		}
	}
	close(s.ch)
	return nil
}
