package turnlock

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLocalLockerSerialisesSameKey(t *testing.T) {
	defer goleak.VerifyNone(t)

	locker := NewLocalLocker()
	ctx := context.Background()

	var (
		active  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "user-1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()
			now := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxSeen)
				if now <= prev || atomic.CompareAndSwapInt32(&maxSeen, prev, now) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
	assert.Zero(t, locker.Len())
}

func TestLocalLockerIndependentKeys(t *testing.T) {
	defer goleak.VerifyNone(t)

	locker := NewLocalLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	timeoutCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(timeoutCtx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocalLockerHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), "busy")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "busy")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Zero(t, locker.Len())
}

func TestRedisLocker(t *testing.T) {
	rawURL := strings.TrimSpace(os.Getenv("TEST_REDIS_URL"))
	if rawURL == "" {
		t.Skip("redis tests skipped: TEST_REDIS_URL is not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, rawURL)
	require.NoError(t, err)
	defer client.Close()

	locker := NewRedisLocker(client, time.Second)
	key := "test-" + uuid.NewString()

	unlock, err := locker.Lock(ctx, key)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	_, err = locker.Lock(waitCtx, key)
	cancel()
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := locker.Lock(ctx, key)
	require.NoError(t, err)
	unlock2()
}
