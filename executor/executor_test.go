package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGoroutine_BlockOnReturnsFnError(t *testing.T) {
	exec := New()
	sentinel := errors.New("boom")

	err := exec.BlockOn(context.Background(), func(context.Context) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
}

func TestGoroutine_SpawnLocalRuns(t *testing.T) {
	exec := New()
	done := make(chan struct{})
	exec.SpawnLocal(context.Background(), func(context.Context) { close(done) })
	<-done
}

func TestWaitGroup_WaitsForAllTasks(t *testing.T) {
	var wg WaitGroup
	exec := New()
	var count atomic.Int32

	for i := 0; i < 8; i++ {
		wg.Go(exec, func() { count.Add(1) })
	}
	wg.Wait()

	require.EqualValues(t, 8, count.Load())
}
