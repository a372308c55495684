package external

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlePoolAcquireRelease(t *testing.T) {
	pool := NewHandlePool([]int{1, 2})

	ctx := context.Background()
	a, err := pool.Acquire(ctx)
	require.NoError(t, err)
	b, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, []int{a, b})

	pool.Release(a)
	c, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestHandlePoolAcquireBlocksUntilCanceled(t *testing.T) {
	pool := NewHandlePool([]int{1})
	ctx := context.Background()
	_, err := pool.Acquire(ctx)
	require.NoError(t, err)

	cancelCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(cancelCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewSlotPoolClampsNonPositive(t *testing.T) {
	pool := NewSlotPool(0)
	release, err := acquireSlot(context.Background(), pool)
	require.NoError(t, err)
	release()
}

func TestAcquireSlotNilPoolIsNoop(t *testing.T) {
	release, err := acquireSlot(context.Background(), nil)
	require.NoError(t, err)
	release()
}

func TestAcquireSlotBoundsConcurrency(t *testing.T) {
	pool := NewSlotPool(1)
	ctx := context.Background()

	release, err := acquireSlot(ctx, pool)
	require.NoError(t, err)

	tightCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = acquireSlot(tightCtx, pool)
	assert.Error(t, err)

	release()
	release2, err := acquireSlot(ctx, pool)
	require.NoError(t, err)
	release2()
}
