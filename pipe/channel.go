package pipe

import (
	"context"
	"sync"
	"sync/atomic"
)

// atomicBool is a tiny wrapper so ShutdownRequestor/ShutdownResponder can
// share a graceful flag set at most once, before closeCh closes, and read
// freely after.
type atomicBool struct {
	v atomic.Bool
}

func (b *atomicBool) set(val bool) { b.v.Store(val) }
func (b *atomicBool) get() bool    { return b.v.Load() }

// OutboundTx is the producing end of the per-pipeline outbound queue (C9):
// held by the AsyncTransport stage, which enqueues onto it from inside
// HandleWrite/HandleClose. Single producer, matching the single-threaded
// cooperative scheduling model -- there is exactly one logical writer per
// pipeline, so no internal locking is needed beyond the channel itself.
type OutboundTx[W any] struct {
	ch chan W
}

// OutboundRx is the consuming end, held by the bootstrap's event loop. The
// loop selects on Chan() alongside socket reads and timers; when the
// pipeline is torn down the producer closes its end and the loop's next
// receive observes end-of-stream and exits gracefully (spec §4.4/§7).
type OutboundRx[W any] struct {
	ch chan W
}

// NewOutbound creates a connected (tx, rx) pair with the given buffer
// capacity. A capacity of 0 makes Send synchronous with the loop's receive;
// bootstraps typically use a small positive backlog (see scenario 5:
// graceful_stop must drain a backlog of 10 frames).
func NewOutbound[W any](capacity int) (OutboundTx[W], OutboundRx[W]) {
	ch := make(chan W, capacity)
	return OutboundTx[W]{ch: ch}, OutboundRx[W]{ch: ch}
}

// Send enqueues msg, blocking if the buffer is full -- the backpressure
// spec §4.4 calls for -- unless ctx is done first, in which case ctx.Err()
// is returned and msg is not enqueued.
func (tx OutboundTx[W]) Send(ctx context.Context, msg W) error {
	select {
	case tx.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals end-of-stream to the receiving loop. Safe to call at most
// once; AsyncTransport.HandleClose is the only caller.
func (tx OutboundTx[W]) Close() {
	close(tx.ch)
}

// Chan exposes the receive channel for use in a select alongside socket
// reads and timers, matching spec §4.6's single select-loop scheduling.
func (rx OutboundRx[W]) Chan() <-chan W {
	return rx.ch
}

// Recv is a convenience blocking receive; ok is false once the channel has
// been closed and drained.
func (rx OutboundRx[W]) Recv() (msg W, ok bool) {
	msg, ok = <-rx.ch
	return
}

// ShutdownRequestor is the bootstrap-held half of the shutdown signal pair
// (C9): Request() asks the event loop to stop; Wait() blocks until the
// loop has actually finished (stop()/graceful_stop() per spec §6).
type ShutdownRequestor struct {
	closeCh  chan struct{}
	doneCh   chan struct{}
	graceful *atomicBool
	once     sync.Once
}

// ShutdownResponder is the loop-held half: Requested() is selected
// alongside socket/outbound events, and Done() is called exactly once,
// after the loop has finished any required drain, immediately before it
// returns.
type ShutdownResponder struct {
	closeCh  chan struct{}
	doneCh   chan struct{}
	graceful *atomicBool
	once     sync.Once
}

// NewShutdown creates a connected requestor/responder pair.
func NewShutdown() (*ShutdownRequestor, *ShutdownResponder) {
	closeCh := make(chan struct{})
	doneCh := make(chan struct{})
	graceful := &atomicBool{}
	return &ShutdownRequestor{closeCh: closeCh, doneCh: doneCh, graceful: graceful},
		&ShutdownResponder{closeCh: closeCh, doneCh: doneCh, graceful: graceful}
}

// Request asks the loop to stop, as stop() would (no drain guarantee).
// Idempotent; only the first call's graceful value takes effect.
func (r *ShutdownRequestor) Request() {
	r.once.Do(func() { close(r.closeCh) })
}

// RequestGraceful asks the loop to stop as graceful_stop() would: the loop
// must empty its outbound queue before returning.
func (r *ShutdownRequestor) RequestGraceful() {
	r.once.Do(func() {
		r.graceful.set(true)
		close(r.closeCh)
	})
}

// Wait blocks until the loop has signalled Done.
func (r *ShutdownRequestor) Wait() {
	<-r.doneCh
}

// Requested is selected by the loop to detect a stop request.
func (s *ShutdownResponder) Requested() <-chan struct{} {
	return s.closeCh
}

// Graceful reports whether the pending request was RequestGraceful. Only
// meaningful after Requested() has fired.
func (s *ShutdownResponder) Graceful() bool {
	return s.graceful.get()
}

// Done signals that the loop has finished. Idempotent; safe even if no
// stop was ever requested (e.g. the loop exited on its own, such as a read
// error).
func (s *ShutdownResponder) Done() {
	s.once.Do(func() { close(s.doneCh) })
}
