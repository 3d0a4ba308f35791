// Package broadcast provides a snapshot-holding publish/subscribe primitive.
package broadcast

import "sync"

// Subject holds the latest value of T and fans every update out to its
// subscribers. Subscribers receive the current value on subscription.
//
// Delivery never blocks the publisher: a subscriber whose buffer is full
// has its pending value replaced by the newer one, so slow readers observe
// the latest snapshot rather than every intermediate one.
type Subject[T any] struct {
	mu      sync.Mutex
	current T
	subs    map[int]chan T
	nextID  int
	closed  bool
}

func NewSubject[T any](initial T) *Subject[T] {
	return &Subject[T]{
		current: initial,
		subs:    make(map[int]chan T),
	}
}

// Value returns the latest published value.
func (s *Subject[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Publish replaces the current value and notifies subscribers.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.current = v
	for _, ch := range s.subs {
		deliver(ch, v)
	}
}

// Subscribe returns a channel that receives the current value followed by
// every later one, and a function that unsubscribes and closes the channel.
func (s *Subject[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.current

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
		})
	}
}

// Close closes every subscriber channel. Later publishes are dropped.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

func deliver[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	// drop the stale pending value
	select {
	case <-ch:
	default:
	}
	ch <- v
}
