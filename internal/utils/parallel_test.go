package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunParallelKeepsOrder(t *testing.T) {
	boom := errors.New("boom")
	tasks := []ParallelTask[int]{
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (int, error) { return 0, boom },
		func(context.Context) (int, error) { return 3, nil },
	}

	results, errs := RunParallel(context.Background(), tasks)
	require.Equal(t, []int{1, 0, 3}, results)
	require.NoError(t, errs[0])
	require.ErrorIs(t, errs[1], boom)
	require.NoError(t, errs[2])
}

func TestRunParallelEmpty(t *testing.T) {
	results, errs := RunParallel[string](context.Background(), nil)
	require.Empty(t, results)
	require.Empty(t, errs)
}

func TestWorkerPool(t *testing.T) {
	pool := NewWorkerPool(3)

	var n atomic.Int64
	for i := 0; i < 50; i++ {
		require.NoError(t, pool.Submit(func() { n.Add(1) }))
	}
	require.NoError(t, pool.Submit(func() { panic("task failure") }))

	pool.Wait()
	require.EqualValues(t, 50, n.Load())

	pool.Close()
	pool.Close()
	require.ErrorIs(t, pool.Submit(func() {}), ErrPoolClosed)
}

func TestWorkerPoolTrySubmitFull(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()

	hold := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(started)
		<-hold
	}))
	<-started

	var ran atomic.Int32
	for i := 0; i < 2; i++ {
		require.NoError(t, pool.TrySubmit(func() { ran.Add(1) }))
	}
	require.ErrorIs(t, pool.TrySubmit(func() { ran.Add(1) }), ErrPoolFull)

	close(hold)
	pool.Wait()
	require.EqualValues(t, 2, ran.Load())

	pool.Close()
	require.ErrorIs(t, pool.TrySubmit(func() {}), ErrPoolClosed)
}
