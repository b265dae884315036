package broadcast_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskdesk/pkg/broadcast"
)

func receive[T any](t *testing.T, sub broadcast.Subscriber[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.Receive():
		require.True(t, ok, "subscriber closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestMemoryBroadcaster(t *testing.T) {
	t.Parallel()

	t.Run("fans out to all subscribers", func(t *testing.T) {
		b := broadcast.NewMemoryBroadcaster[string](4)
		t.Cleanup(func() { _ = b.Close() })

		s1 := b.Subscribe(context.Background())
		s2 := b.Subscribe(context.Background())
		require.NoError(t, b.Broadcast(context.Background(), "hello"))

		assert.Equal(t, "hello", receive(t, s1))
		assert.Equal(t, "hello", receive(t, s2))
	})

	t.Run("full buffer drops without blocking", func(t *testing.T) {
		b := broadcast.NewMemoryBroadcaster[int](1)
		t.Cleanup(func() { _ = b.Close() })

		sub := b.Subscribe(context.Background())
		require.NoError(t, b.Broadcast(context.Background(), 1))
		require.NoError(t, b.Broadcast(context.Background(), 2))

		assert.Equal(t, 1, receive(t, sub))
		assert.EqualValues(t, 1, b.Dropped())
		assert.Equal(t, 1, b.Subscribers(), "slow subscriber stays subscribed")
	})

	t.Run("context cancellation unsubscribes", func(t *testing.T) {
		b := broadcast.NewMemoryBroadcaster[int](1)
		t.Cleanup(func() { _ = b.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		sub := b.Subscribe(ctx)
		cancel()

		assert.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
		_, ok := <-sub.Receive()
		assert.False(t, ok)
	})

	t.Run("close", func(t *testing.T) {
		b := broadcast.NewMemoryBroadcaster[int](1)
		sub := b.Subscribe(context.Background())
		require.NoError(t, b.Close())
		require.NoError(t, b.Close())

		_, ok := <-sub.Receive()
		assert.False(t, ok)
		assert.ErrorIs(t, b.Broadcast(context.Background(), 1), broadcast.ErrClosed)

		late := b.Subscribe(context.Background())
		_, ok = <-late.Receive()
		assert.False(t, ok)
	})
}

func TestListen(t *testing.T) {
	t.Parallel()

	b := broadcast.NewMemoryBroadcaster[string](4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{})
	sub := b.Subscribe(ctx)
	go func() {
		defer close(done)
		broadcast.Listen(ctx, sub, func(_ context.Context, v string) {
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		})
	}()

	require.NoError(t, b.Broadcast(ctx, "a"))
	require.NoError(t, b.Broadcast(ctx, "b"))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after Close")
	}
	assert.Equal(t, []string{"a", "b"}, got)
}
