package phonepool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_MutualExclusion(t *testing.T) {
	t.Parallel()
	l := NewLocalLocker()
	ctx := context.Background()

	var inside, peak atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := l.Acquire(ctx, "k", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			assert.NoError(t, lease.Release(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())
}

func TestLocalLocker_HonorsContext(t *testing.T) {
	t.Parallel()
	l := NewLocalLocker()
	held, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k", time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Other keys are independent.
	other, err := l.Acquire(context.Background(), "other", time.Second)
	require.NoError(t, err)
	require.NoError(t, other.Release(context.Background()))

	// Releasing twice is harmless.
	require.NoError(t, held.Release(context.Background()))
	require.NoError(t, held.Release(context.Background()))
}

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisLocker(client, "squadfleet:lease:")
	l.pollInterval = 5 * time.Millisecond
	return l, mr
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	t.Parallel()
	l, mr := newRedisLocker(t)
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "phonepool", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("squadfleet:lease:phonepool"))

	busy, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(busy, "phonepool", 10*time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("squadfleet:lease:phonepool"))

	again, err := l.Acquire(ctx, "phonepool", 10*time.Second)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLocker_ExpiredLeaseIsNotReleasedByOldHolder(t *testing.T) {
	t.Parallel()
	l, mr := newRedisLocker(t)
	ctx := context.Background()

	first, err := l.Acquire(ctx, "phonepool", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	second, err := l.Acquire(ctx, "phonepool", 10*time.Second)
	require.NoError(t, err)

	require.ErrorIs(t, first.Release(ctx), ErrLeaseLost)
	assert.True(t, mr.Exists("squadfleet:lease:phonepool"))

	require.NoError(t, second.Release(ctx))
}

func TestRedisLocker_ServerDown(t *testing.T) {
	t.Parallel()
	l, mr := newRedisLocker(t)
	mr.Close()

	_, err := l.Acquire(context.Background(), "phonepool", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire lease")
}
