package main

import (
	"github.com/netframe/netframe/handler"
	"github.com/netframe/netframe/pipe"
	"github.com/netframe/netframe/transport"
)

// echoHandler is the server-side application stage of the UDP echo
// scenario (spec §8 end-to-end scenario 1): it echoes every decoded line
// back to its sender. Holding the pipeline it was added to lets it trigger
// an outbound write from within an inbound callback -- the same pattern
// AsyncTransport uses at the other end of the chain, just at the
// application boundary instead of the transport boundary.
type echoHandler struct {
	handler.Base[transport.Message[string]]
	handler.OutboundBase[transport.Message[string]]
	handler.WritePassthrough[transport.Message[string]]

	p *pipe.Pipeline
}

func newEchoHandler(p *pipe.Pipeline) *echoHandler {
	return &echoHandler{p: p}
}

func (*echoHandler) Name() string { return "echo" }

func (h *echoHandler) HandleRead(ctx *handler.InboundContext[transport.Message[string]], msg transport.Message[string]) {
	if err := pipe.Write(h.p, msg); err != nil {
		ctx.Logger().Warn().Err(err).Msg("echo: write failed")
	}
}

// burstHandler is the client-side application stage: on transport_active
// it sends count copies of "hello world" followed by one "bye", then
// counts every echoed line back, closing done as soon as the "bye" line
// comes back.
type burstHandler struct {
	handler.Base[transport.Message[string]]
	handler.OutboundBase[transport.Message[string]]
	handler.WritePassthrough[transport.Message[string]]

	p     *pipe.Pipeline
	count int
	done  chan struct{}

	received int
}

func newBurstHandler(p *pipe.Pipeline, count int, done chan struct{}) *burstHandler {
	return &burstHandler{p: p, count: count, done: done}
}

func (*burstHandler) Name() string { return "burst" }

func (h *burstHandler) HandleActive(ctx *handler.InboundContext[transport.Message[string]]) {
	for i := 0; i < h.count; i++ {
		_ = pipe.Write(h.p, transport.Message[string]{Value: "hello world"})
	}
	_ = pipe.Write(h.p, transport.Message[string]{Value: "bye"})
}

func (h *burstHandler) HandleRead(ctx *handler.InboundContext[transport.Message[string]], msg transport.Message[string]) {
	h.received++
	if msg.Value == "bye" {
		close(h.done)
	}
}
