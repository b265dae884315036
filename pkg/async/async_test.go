package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskdesk/pkg/async"
)

func TestGo(t *testing.T) {
	t.Parallel()

	t.Run("returns the result", func(t *testing.T) {
		f := async.Go(context.Background(), func(context.Context) (int, error) {
			return 42, nil
		})
		v, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.True(t, f.IsComplete())
	})

	t.Run("canceled context skips the function", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		f := async.Go(ctx, func(context.Context) (int, error) {
			called = true
			return 1, nil
		})
		_, err := f.Await()
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		f := async.Go(context.Background(), func(context.Context) (int, error) {
			<-release
			return 0, nil
		})
		_, err := f.AwaitWithTimeout(10 * time.Millisecond)
		assert.ErrorIs(t, err, async.ErrTimeout)
		assert.False(t, f.IsComplete())
	})

	t.Run("await context", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		f := async.Go(context.Background(), func(context.Context) (int, error) {
			<-release
			return 0, nil
		})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := f.AwaitContext(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestWaitAll(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	slowDone := make(chan struct{})
	results, err := async.WaitAll(
		async.Resolved("a", nil),
		async.Resolved("", boom),
		async.Go(context.Background(), func(context.Context) (string, error) {
			time.Sleep(20 * time.Millisecond)
			close(slowDone)
			return "c", nil
		}),
	)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "", "c"}, results)

	select {
	case <-slowDone:
	default:
		t.Fatal("WaitAll returned before every future finished")
	}
}
