package broadcast

import (
	"context"
	"sync"
)

// Subscriber receives the values published after it subscribed.
type Subscriber[T any] interface {
	// Receive returns the delivery channel. It is closed by Close, by the
	// broadcaster's Close, or when the subscription context ends.
	Receive() <-chan T
	// Close is idempotent.
	Close() error
}

// Broadcaster fans values out to every subscriber. Slow subscribers lose
// values instead of blocking the publisher.
type Broadcaster[T any] interface {
	Subscribe(ctx context.Context) Subscriber[T]
	Broadcast(ctx context.Context, v T) error
	Close() error
}

type subscriber[T any] struct {
	mu     sync.RWMutex
	ch     chan T
	closed bool
}

func newSubscriber[T any](bufferSize int) *subscriber[T] {
	return &subscriber[T]{ch: make(chan T, bufferSize)}
}

func (s *subscriber[T]) Receive() <-chan T {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

// send never blocks; it reports false when the value was dropped.
func (s *subscriber[T]) send(v T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- v:
		return true
	default:
		return false
	}
}

// Listen calls fn for each value received by sub until the subscription ends
// or ctx is done. It blocks; run it in a goroutine.
func Listen[T any](ctx context.Context, sub Subscriber[T], fn func(context.Context, T)) {
	ch := sub.Receive()
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			fn(ctx, v)
		case <-ctx.Done():
			return
		}
	}
}
