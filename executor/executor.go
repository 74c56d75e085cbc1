// Package executor provides the cross-runtime scheduler abstraction (spec
// component C8): the pipeline/bootstrap core depends only on this
// capability, never on a concrete goroutine or runtime API directly, so a
// different concurrency model could be dropped in without touching core
// code.
package executor

import (
	"context"
	"sync"
)

// LocalExecutor is the capability a bootstrap needs to run its event loop
// and any helper tasks it spawns from inside that loop. "Local" mirrors the
// single-threaded-per-pipeline constraint of spec §5: SpawnLocal schedules
// work understood to run without crossing to another OS thread, while
// Spawn permits (but does not require) a separate goroutine.
type LocalExecutor interface {
	// BlockOn runs fn to completion on the calling goroutine, returning its
	// error. It exists so callers needing a synchronous boundary (such as
	// stop()/wait_for_stop()) don't have to know the executor's internals.
	BlockOn(ctx context.Context, fn func(context.Context) error) error

	// SpawnLocal schedules fn to run as part of the same pipeline's
	// single-threaded task. The default implementation runs it on a
	// dedicated goroutine, but callers must still honor the single-writer
	// discipline of spec §5 -- SpawnLocal does not grant concurrent access
	// to pipeline state.
	SpawnLocal(ctx context.Context, fn func(context.Context))

	// Spawn schedules fn without the single-threaded-per-pipeline
	// expectation; used for work that is genuinely independent of any one
	// pipeline (e.g. a listener's accept loop spawning a new per-connection
	// task).
	Spawn(ctx context.Context, fn func(context.Context))
}

// Goroutine is the default LocalExecutor, backed directly by goroutines. It
// is what every bootstrap in this module uses by default; it is exported
// so tests and alternative bootstraps can substitute a deterministic fake
// the way the original's BootstrapTcpClient/Server<W, E: LocalExecutor>
// took the executor as a type parameter instead of hard-coding one.
type Goroutine struct{}

// New returns the default goroutine-backed executor.
func New() Goroutine { return Goroutine{} }

func (Goroutine) BlockOn(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (Goroutine) SpawnLocal(ctx context.Context, fn func(context.Context)) {
	go fn(ctx)
}

func (Goroutine) Spawn(ctx context.Context, fn func(context.Context)) {
	go fn(ctx)
}

// WaitGroup is a small helper bootstraps use to track tasks spawned
// through a LocalExecutor, matching the "stop() waits for done_rx"
// requirement of spec §6 when more than one background task is involved
// (e.g. TCPServer's accept loop plus one loop per accepted connection). It
// always launches fn through the given executor rather than a bare `go`
// statement, so the executor a bootstrap was built with is the one
// actually doing the scheduling.
type WaitGroup struct {
	wg sync.WaitGroup
}

func (w *WaitGroup) Go(exec LocalExecutor, fn func()) {
	w.wg.Add(1)
	exec.Spawn(context.Background(), func(context.Context) {
		defer w.wg.Done()
		fn()
	})
}

func (w *WaitGroup) Wait() { w.wg.Wait() }
