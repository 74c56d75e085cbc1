// Package handler defines the contract a pipeline stage must satisfy: the
// inbound half transforms Rin into Rout, the outbound half transforms Win
// into Wout. A pipeline links handlers so that, for adjacent handlers A then
// B, A.Rout equals B.Rin and B.Wout equals A.Win (see package pipe).
package handler

import "time"

// Named is implemented by every handler; used for logging and error
// messages when a type mismatch is caught at the typed-wrapper boundary.
type Named interface {
	Name() string
}

// Inbound transforms inbound events of type Rin into Rout. A handler that
// does not need to react to a particular event should embed Base[Rout]
// (control events) and, when Rin == Rout, ReadPassthrough[Rout] (the read
// event), rather than writing out a manual pass-through body.
type Inbound[Rin, Rout any] interface {
	HandleActive(ctx *InboundContext[Rout])
	HandleInactive(ctx *InboundContext[Rout])
	HandleRead(ctx *InboundContext[Rout], msg Rin)
	HandleReadError(ctx *InboundContext[Rout], err error)
	HandleReadEOF(ctx *InboundContext[Rout])
	HandleTimeout(ctx *InboundContext[Rout], now time.Time)
	PollTimeout(ctx *InboundContext[Rout], eto *time.Time)
}

// Outbound transforms outbound events of type Win into Wout.
type Outbound[Win, Wout any] interface {
	HandleWrite(ctx *OutboundContext[Wout], msg Win)
	HandleWriteError(ctx *OutboundContext[Wout], err error)
	HandleClose(ctx *OutboundContext[Wout])
}

// Handler is the full contract: a named value with an inbound half
// (Rin -> Rout) and an outbound half (Win -> Wout). A single Go value
// commonly implements both halves directly; the pipeline treats it as two
// independent interfaces rather than literally calling a Split method.
type Handler[Rin, Rout, Win, Wout any] interface {
	Named
	Inbound[Rin, Rout]
	Outbound[Win, Wout]
}
