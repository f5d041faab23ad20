package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rateLimited struct{ after time.Duration }

func (e *rateLimited) Error() string             { return "rate limited" }
func (e *rateLimited) RetryAfter() time.Duration { return e.after }

func counting(failures int, err error) (func() (int, error), *int) {
	calls := 0
	return func() (int, error) {
		calls++
		if calls <= failures {
			return 0, err
		}
		return calls, nil
	}, &calls
}

func TestDo_FirstAttemptSucceeds(t *testing.T) {
	t.Parallel()
	op, calls := counting(0, nil)
	v, err := Do(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, *calls)
}

func TestDo_RecoversFromTransientErrors(t *testing.T) {
	t.Parallel()
	op, calls := counting(2, errors.New("503"))
	v, err := Do(context.Background(), op, WithInitialDelay(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, 3, *calls)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()
	op, calls := counting(10, errors.New("503"))
	_, err := Do(context.Background(), op, WithMaxRetries(3), WithInitialDelay(time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, 4, *calls)
}

func TestDo_ZeroRetriesCallsOnce(t *testing.T) {
	t.Parallel()
	op, calls := counting(10, errors.New("503"))
	_, err := Do(context.Background(), op, WithMaxRetries(0))
	require.Error(t, err)
	assert.Equal(t, 1, *calls)
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	op, calls := counting(10, errors.New("503"))
	_, err := Do(ctx, op, WithInitialDelay(time.Second))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, *calls)
}

func TestDo_FatalIsNotRetried(t *testing.T) {
	t.Parallel()
	bad := errors.New("400 bad request")
	op, calls := counting(10, Fatal(bad))
	_, err := Do(context.Background(), op, WithInitialDelay(time.Millisecond))
	require.ErrorIs(t, err, bad)
	assert.True(t, IsFatal(err))
	assert.Equal(t, 1, *calls)
}

func TestDo_WaitsForRetryAfterHint(t *testing.T) {
	t.Parallel()
	op, _ := counting(1, &rateLimited{after: 80 * time.Millisecond})
	start := time.Now()
	_, err := Do(context.Background(), op, WithInitialDelay(time.Millisecond))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestDo_HintCappedAtMaxDelay(t *testing.T) {
	t.Parallel()
	op, _ := counting(1, fmt.Errorf("wrapped: %w", &rateLimited{after: time.Hour}))
	start := time.Now()
	_, err := Do(context.Background(), op, WithInitialDelay(time.Millisecond), WithMaxDelay(20*time.Millisecond))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPolicyWait(t *testing.T) {
	t.Parallel()
	p := policy{first: 100 * time.Millisecond, ceiling: time.Second}
	tests := []struct {
		name string
		n    int
		hint time.Duration
		want time.Duration
	}{
		{"first retry", 0, 0, 100 * time.Millisecond},
		{"doubles", 2, 0, 400 * time.Millisecond},
		{"capped", 6, 0, time.Second},
		{"hint replaces schedule", 3, 250 * time.Millisecond, 250 * time.Millisecond},
		{"hint capped", 0, time.Minute, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.wait(tt.n, tt.hint))
		})
	}
}

func TestFatal(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Fatal(nil))

	sentinel := errors.New("sentinel")
	wrapped := fmt.Errorf("context: %w", Fatal(sentinel))
	assert.True(t, IsFatal(wrapped))
	assert.ErrorIs(t, wrapped, sentinel)
	assert.False(t, IsFatal(errors.New("plain")))
}
