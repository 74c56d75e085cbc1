package handler

import "time"

// Base embeds into a handler to supply pass-through defaults for every
// inbound control event (everything except HandleRead, whose default only
// makes sense when Rin == Rout; see ReadPassthrough). A handler that wants
// to react to, say, HandleTimeout simply overrides that one method on the
// embedding type.
type Base[Rout any] struct{}

func (Base[Rout]) HandleActive(ctx *InboundContext[Rout])   { ctx.FireActive() }
func (Base[Rout]) HandleInactive(ctx *InboundContext[Rout]) { ctx.FireInactive() }
func (Base[Rout]) HandleReadError(ctx *InboundContext[Rout], err error) {
	ctx.FireReadError(err)
}
func (Base[Rout]) HandleReadEOF(ctx *InboundContext[Rout]) { ctx.FireReadEOF() }
func (Base[Rout]) HandleTimeout(ctx *InboundContext[Rout], now time.Time) {
	ctx.FireTimeout(now)
}
func (Base[Rout]) PollTimeout(ctx *InboundContext[Rout], eto *time.Time) {
	ctx.FirePollTimeout(eto)
}

// ReadPassthrough supplies the default HandleRead for a handler whose
// Rin equals Rout: forward the message unchanged.
type ReadPassthrough[T any] struct{}

func (ReadPassthrough[T]) HandleRead(ctx *InboundContext[T], msg T) { ctx.FireRead(msg) }

// OutboundBase embeds into a handler to supply pass-through defaults for
// HandleWriteError and HandleClose. HandleWrite has no default for the same
// reason HandleRead doesn't; see WritePassthrough.
type OutboundBase[Wout any] struct{}

func (OutboundBase[Wout]) HandleWriteError(ctx *OutboundContext[Wout], err error) {
	ctx.FireWriteError(err)
}
func (OutboundBase[Wout]) HandleClose(ctx *OutboundContext[Wout]) { ctx.FireClose() }

// WritePassthrough supplies the default HandleWrite for a handler whose
// Win equals Wout: forward the message unchanged.
type WritePassthrough[T any] struct{}

func (WritePassthrough[T]) HandleWrite(ctx *OutboundContext[T], msg T) { ctx.FireWrite(msg) }
