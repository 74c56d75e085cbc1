package pipe

import (
	"fmt"
	"reflect"
	"time"

	"github.com/netframe/netframe/handler"
)

// erasedInbound is the type-erased backbone for a handler's inbound half,
// built once per AddBack call by a generic adapter. The concrete adapter
// downcasts msg from any to the handler's Rin, panicking (a caught
// programming error) if the cast fails -- which a correctly constructed
// pipeline can never trigger, because AddBack/Finalize check the Rin/Rout
// chain up front.
type erasedInbound interface {
	handleActive(d handler.Dispatcher, idx int)
	handleInactive(d handler.Dispatcher, idx int)
	handleRead(d handler.Dispatcher, idx int, msg any)
	handleReadError(d handler.Dispatcher, idx int, err error)
	handleReadEOF(d handler.Dispatcher, idx int)
	handleTimeout(d handler.Dispatcher, idx int, now time.Time)
	pollTimeout(d handler.Dispatcher, idx int, eto *time.Time)
}

// erasedOutbound is the outbound counterpart of erasedInbound.
type erasedOutbound interface {
	handleWrite(d handler.Dispatcher, idx int, msg any)
	handleWriteError(d handler.Dispatcher, idx int, err error)
	handleClose(d handler.Dispatcher, idx int)
}

// context is the pipeline's per-handler slot: it tracks the handler's
// declared types (for the adjacency check), its position, and the
// precomputed forward/backward neighbor indices (-1 meaning "terminal",
// i.e. route to the pipeline's sink). Using integer indices into the
// pipeline's own slice -- rather than pointers between contexts -- avoids
// any cyclic-ownership problem between neighbors.
type context struct {
	idx  int
	name string

	rinType, routType   reflect.Type
	winType, woutType   reflect.Type
	inboundNext         int // index of next inbound context, -1 = terminal
	outboundPrev        int // index of next outbound context, -1 = terminal

	inbound  erasedInbound
	outbound erasedOutbound
}

// underlying returns the user handler value wrapped by this context's
// inbound adapter, used for the optional io.Closer check on teardown.
func (c *context) underlying() any {
	if u, ok := c.inbound.(interface{ underlying() any }); ok {
		return u.underlying()
	}
	return nil
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// inboundAdapter wraps a handler.Inbound[Rin, Rout] into the erased
// interface the pipeline dispatches through.
type inboundAdapter[Rin, Rout any] struct {
	h    handler.Inbound[Rin, Rout]
	name string
}

func (a inboundAdapter[Rin, Rout]) handleActive(d handler.Dispatcher, idx int) {
	a.h.HandleActive(handler.NewInboundContext[Rout](d, idx))
}

func (a inboundAdapter[Rin, Rout]) handleInactive(d handler.Dispatcher, idx int) {
	a.h.HandleInactive(handler.NewInboundContext[Rout](d, idx))
}

func (a inboundAdapter[Rin, Rout]) handleRead(d handler.Dispatcher, idx int, msg any) {
	typed, ok := msg.(Rin)
	if !ok {
		panic(fmt.Sprintf("pipe: %s.HandleRead: expected %s, got %T", a.name, typeOf[Rin](), msg))
	}
	a.h.HandleRead(handler.NewInboundContext[Rout](d, idx), typed)
}

func (a inboundAdapter[Rin, Rout]) handleReadError(d handler.Dispatcher, idx int, err error) {
	a.h.HandleReadError(handler.NewInboundContext[Rout](d, idx), err)
}

func (a inboundAdapter[Rin, Rout]) handleReadEOF(d handler.Dispatcher, idx int) {
	a.h.HandleReadEOF(handler.NewInboundContext[Rout](d, idx))
}

func (a inboundAdapter[Rin, Rout]) handleTimeout(d handler.Dispatcher, idx int, now time.Time) {
	a.h.HandleTimeout(handler.NewInboundContext[Rout](d, idx), now)
}

func (a inboundAdapter[Rin, Rout]) pollTimeout(d handler.Dispatcher, idx int, eto *time.Time) {
	a.h.PollTimeout(handler.NewInboundContext[Rout](d, idx), eto)
}

func (a inboundAdapter[Rin, Rout]) underlying() any { return a.h }

// outboundAdapter wraps a handler.Outbound[Win, Wout] into the erased
// interface the pipeline dispatches through.
type outboundAdapter[Win, Wout any] struct {
	h    handler.Outbound[Win, Wout]
	name string
}

func (a outboundAdapter[Win, Wout]) handleWrite(d handler.Dispatcher, idx int, msg any) {
	typed, ok := msg.(Win)
	if !ok {
		panic(fmt.Sprintf("pipe: %s.HandleWrite: expected %s, got %T", a.name, typeOf[Win](), msg))
	}
	a.h.HandleWrite(handler.NewOutboundContext[Wout](d, idx), typed)
}

func (a outboundAdapter[Win, Wout]) handleWriteError(d handler.Dispatcher, idx int, err error) {
	a.h.HandleWriteError(handler.NewOutboundContext[Wout](d, idx), err)
}

func (a outboundAdapter[Win, Wout]) handleClose(d handler.Dispatcher, idx int) {
	a.h.HandleClose(handler.NewOutboundContext[Wout](d, idx))
}
