package workerpool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1, 0, 6, 7, 8, 9}
	out, err := Run(context.Background(), items, Options{Workers: 4}, func(_ context.Context, item int) (int, error) {
		return item * item, nil
	})
	require.NoError(t, err)
	want := make([]int, len(items))
	for i, v := range items {
		want[i] = v * v
	}
	assert.Equal(t, want, out)
}

func TestRunPropagatesFirstError(t *testing.T) {
	items := []int{0, 1, 2, 3}
	sentinel := errors.New("boom")
	_, err := Run(context.Background(), items, Options{Workers: 2}, func(_ context.Context, item int) (int, error) {
		if item == 2 {
			return 0, sentinel
		}
		return item, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestRunRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	items := []int{1, 2, 3}
	_, err := Run(ctx, items, Options{}, func(ctx context.Context, item int) (int, error) {
		return item, ctx.Err()
	})
	require.Error(t, err)
}

func TestRunEmptyInput(t *testing.T) {
	out, err := Run(context.Background(), []int{}, Options{}, func(_ context.Context, item int) (int, error) {
		return item, nil
	})
	require.NoError(t, err)
	assert.Nil(t, out)
}
