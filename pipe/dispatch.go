package pipe

import (
	"time"

	"github.com/rs/zerolog"
)

// Pipeline implements handler.Dispatcher: the methods below are invoked by
// handler.InboundContext[T]/OutboundContext[T] when a handler calls one of
// its Fire* methods. idx identifies the context doing the firing; each
// method looks up that context's precomputed neighbor and, if present,
// dispatches to it -- otherwise it routes to the pipeline's terminal sink
// (inbound: drop; outbound: unreachable by construction, see asynctransport.go).

func (p *Pipeline) FireActive(idx int) {
	next := p.contexts[idx].inboundNext
	if next < 0 {
		return
	}
	p.contexts[next].inbound.handleActive(p, next)
}

func (p *Pipeline) FireInactive(idx int) {
	next := p.contexts[idx].inboundNext
	if next < 0 {
		return
	}
	p.contexts[next].inbound.handleInactive(p, next)
}

func (p *Pipeline) FireRead(idx int, msg any) {
	next := p.contexts[idx].inboundNext
	if next < 0 {
		p.dropInboundRead(msg)
		return
	}
	p.contexts[next].inbound.handleRead(p, next, msg)
}

func (p *Pipeline) FireReadError(idx int, err error) {
	next := p.contexts[idx].inboundNext
	if next < 0 {
		p.Logger.Warn().Err(err).Msg("pipe: unhandled read error reached the tail")
		return
	}
	p.contexts[next].inbound.handleReadError(p, next, err)
}

func (p *Pipeline) FireReadEOF(idx int) {
	next := p.contexts[idx].inboundNext
	if next < 0 {
		return
	}
	p.contexts[next].inbound.handleReadEOF(p, next)
}

func (p *Pipeline) FireTimeout(idx int, now time.Time) {
	next := p.contexts[idx].inboundNext
	if next < 0 {
		return
	}
	p.contexts[next].inbound.handleTimeout(p, next, now)
}

func (p *Pipeline) FirePollTimeout(idx int, eto *time.Time) {
	next := p.contexts[idx].inboundNext
	if next < 0 {
		return
	}
	p.contexts[next].inbound.pollTimeout(p, next, eto)
}

func (p *Pipeline) FireWrite(idx int, msg any) {
	prev := p.contexts[idx].outboundPrev
	if prev < 0 {
		// Only reachable if the first handler (normally AsyncTransport)
		// fires onward instead of enqueuing itself: a construction bug,
		// not a runtime condition a correctly wired pipeline can hit.
		p.Logger.Warn().Msg("pipe: write fired past the pipeline head, dropped")
		return
	}
	p.contexts[prev].outbound.handleWrite(p, prev, msg)
}

func (p *Pipeline) FireWriteError(idx int, err error) {
	prev := p.contexts[idx].outboundPrev
	if prev < 0 {
		p.Logger.Warn().Err(err).Msg("pipe: unhandled write error reached the head")
		return
	}
	p.contexts[prev].outbound.handleWriteError(p, prev, err)
}

func (p *Pipeline) FireClose(idx int) {
	prev := p.contexts[idx].outboundPrev
	if prev < 0 {
		return
	}
	p.contexts[prev].outbound.handleClose(p, prev)
}

func (p *Pipeline) Log(idx int) *zerolog.Logger {
	return p.Logger
}

func (p *Pipeline) Name(idx int) string {
	if idx < 0 || idx >= len(p.contexts) {
		return ""
	}
	return p.contexts[idx].name
}

// dropInboundRead is the inbound-terminal sink (spec §4.1): the tail
// pseudo-context drops messages that fall off the end of the chain.
func (p *Pipeline) dropInboundRead(msg any) {
	p.Logger.Debug().Type("msg", msg).Msg("pipe: read reached the tail, dropped")
}
