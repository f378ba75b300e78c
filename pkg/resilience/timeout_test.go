package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeout_Completes(t *testing.T) {
	err := WithTimeout(context.Background(), time.Second, "flush", func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestWithTimeout_Exceeded(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "flush", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "flush")
}

func TestWithTimeout_ParentCancelledIsPermanent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(context.Background(), "flush", fast, func() error {
		calls++
		return WithTimeout(ctx, time.Second, "flush", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestWithTimeout_ZeroRunsInline(t *testing.T) {
	sentinel := errors.New("boom")
	err := WithTimeout(context.Background(), 0, "flush", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}
