package handler

import (
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher is the type-erased backbone a pipeline implements so that
// InboundContext[T]/OutboundContext[T], which are generic, can forward an
// event to the next handler without the pipeline itself being generic over
// every handler's types. Index idx identifies the context doing the
// firing; the dispatcher looks up its neighbor and performs the downcast.
type Dispatcher interface {
	FireActive(idx int)
	FireInactive(idx int)
	FireRead(idx int, msg any)
	FireReadError(idx int, err error)
	FireReadEOF(idx int)
	FireTimeout(idx int, now time.Time)
	FirePollTimeout(idx int, eto *time.Time)

	FireWrite(idx int, msg any)
	FireWriteError(idx int, err error)
	FireClose(idx int)

	Log(idx int) *zerolog.Logger
	Name(idx int) string
}

// InboundContext is a handler's per-call view of its position in the
// pipeline's inbound chain. T is the handler's Rout: the type it emits
// going forward.
type InboundContext[T any] struct {
	d   Dispatcher
	idx int
}

// NewInboundContext is used by package pipe to construct the typed context
// handed to a handler's inbound methods.
func NewInboundContext[T any](d Dispatcher, idx int) *InboundContext[T] {
	return &InboundContext[T]{d: d, idx: idx}
}

func (c *InboundContext[T]) FireActive()              { c.d.FireActive(c.idx) }
func (c *InboundContext[T]) FireInactive()            { c.d.FireInactive(c.idx) }
func (c *InboundContext[T]) FireRead(msg T)            { c.d.FireRead(c.idx, msg) }
func (c *InboundContext[T]) FireReadError(err error)   { c.d.FireReadError(c.idx, err) }
func (c *InboundContext[T]) FireReadEOF()              { c.d.FireReadEOF(c.idx) }
func (c *InboundContext[T]) FireTimeout(now time.Time) { c.d.FireTimeout(c.idx, now) }
func (c *InboundContext[T]) FirePollTimeout(eto *time.Time) {
	c.d.FirePollTimeout(c.idx, eto)
}
func (c *InboundContext[T]) Logger() *zerolog.Logger { return c.d.Log(c.idx) }
func (c *InboundContext[T]) Name() string            { return c.d.Name(c.idx) }

// OutboundContext is a handler's per-call view of its position in the
// pipeline's outbound chain. T is the handler's Wout: the type it emits
// going backward, towards the transport.
type OutboundContext[T any] struct {
	d   Dispatcher
	idx int
}

// NewOutboundContext is used by package pipe to construct the typed context
// handed to a handler's outbound methods.
func NewOutboundContext[T any](d Dispatcher, idx int) *OutboundContext[T] {
	return &OutboundContext[T]{d: d, idx: idx}
}

func (c *OutboundContext[T]) FireWrite(msg T)           { c.d.FireWrite(c.idx, msg) }
func (c *OutboundContext[T]) FireWriteError(err error)  { c.d.FireWriteError(c.idx, err) }
func (c *OutboundContext[T]) FireClose()                { c.d.FireClose(c.idx) }
func (c *OutboundContext[T]) Logger() *zerolog.Logger   { return c.d.Log(c.idx) }
func (c *OutboundContext[T]) Name() string              { return c.d.Name(c.idx) }
