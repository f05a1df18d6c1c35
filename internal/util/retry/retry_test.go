package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingClock never blocks; it records requested sleeps.
type recordingClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *recordingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *recordingClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func TestWithExponentialBackoff_Success(t *testing.T) {
	t.Parallel()
	attempts := 0
	clock := &recordingClock{}

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return nil
	}, WithClock(clock))

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, clock.sleeps)
}

func TestWithExponentialBackoff_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	clock := &recordingClock{}

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, WithInitialDelay(10*time.Millisecond), WithClock(clock))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, clock.sleeps)
}

func TestWithExponentialBackoff_MaxRetries(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return errors.New("persistent error")
	}, WithMaxRetries(3), WithClock(&recordingClock{}))

	require.Error(t, err)
	// MaxRetries counts retries after the first attempt.
	assert.Equal(t, 4, attempts)
	assert.True(t, IsExhausted(err))
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Contains(t, err.Error(), "persistent error")
}

func TestWithExponentialBackoff_ContextCancellation(t *testing.T) {
	t.Parallel()
	attempts := 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithExponentialBackoff(ctx, func() error {
		attempts++
		return errors.New("error")
	}, WithClock(&recordingClock{}))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_RealClockTimeout(t *testing.T) {
	t.Parallel()
	attempts := 0

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := WithExponentialBackoff(ctx, func() error {
		attempts++
		return errors.New("error")
	}, WithInitialDelay(time.Second), WithMaxRetries(10))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_FatalError(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return Fatal(errors.New("fatal error"))
	}, WithClock(&recordingClock{}))

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_RetryIf(t *testing.T) {
	t.Parallel()

	transient := errors.New("not yet visible")
	terminal := errors.New("access denied")
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return transient
		}
		return terminal
	},
		WithRetryIf(func(err error) bool { return errors.Is(err, transient) }),
		WithClock(&recordingClock{}),
	)

	assert.Same(t, terminal, err)
	assert.Equal(t, 3, attempts)
}

func TestWithExponentialBackoff_BackoffTiming(t *testing.T) {
	t.Parallel()
	attempts := 0
	clock := &recordingClock{}

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 5 {
			return errors.New("error")
		}
		return nil
	},
		WithInitialDelay(50*time.Millisecond),
		WithMaxDelay(200*time.Millisecond),
		WithClock(clock),
	)

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{
		50 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
		200 * time.Millisecond,
	}, clock.sleeps)
}

func TestWithConstantDelay(t *testing.T) {
	t.Parallel()
	clock := &recordingClock{}
	var retried []int

	_ = WithExponentialBackoff(context.Background(), func() error {
		return errors.New("error")
	},
		WithConstantDelay(time.Second),
		WithMaxRetries(3),
		WithClock(clock),
		WithOnRetry(func(attempt int, _ error) { retried = append(retried, attempt) }),
	)

	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, clock.sleeps)
	assert.Equal(t, []int{1, 2, 3}, retried)
}

func TestFatal(t *testing.T) {
	t.Parallel()

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, Fatal(nil))
	})

	t.Run("non-nil error", func(t *testing.T) {
		t.Parallel()
		originalErr := errors.New("test error")
		err := Fatal(originalErr)

		require.Error(t, err)
		assert.True(t, IsFatal(err))
		assert.Equal(t, originalErr.Error(), err.Error())
	})
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	assert.False(t, IsFatal(errors.New("regular error")))
	assert.True(t, IsFatal(Fatal(errors.New("fatal error"))))

	wrapped := errors.Join(Fatal(errors.New("base error")), errors.New("additional context"))
	assert.True(t, IsFatal(wrapped))
}

func TestFatalError_Unwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel error")
	fatalErr := Fatal(sentinel)

	assert.Same(t, sentinel, errors.Unwrap(fatalErr))
	assert.ErrorIs(t, fatalErr, sentinel)

	doubleWrapped := fmt.Errorf("context: %w", fatalErr)
	assert.ErrorIs(t, doubleWrapped, sentinel)
	assert.True(t, IsFatal(doubleWrapped))
}
