package main

import (
	"net/netip"

	"github.com/netframe/netframe/handler"
	"github.com/netframe/netframe/pipe"
	"github.com/netframe/netframe/sharedstate"
	"github.com/netframe/netframe/transport"
)

// chatHandler is the application stage of the TCP chat broadcast scenario
// (spec §6 scenario 2 / §8 scenario 2): every line a connection sends is
// relayed to every other peer in the shared table, but never echoed back to its own
// sender. Peers register in the shared table lazily, on the first line
// they send (PeerTable.Observe), rather than eagerly at connect time, and
// are removed again once the connection goes inactive.
type chatHandler struct {
	handler.Base[transport.Message[string]]
	handler.OutboundBase[transport.Message[string]]
	handler.WritePassthrough[transport.Message[string]]

	p     *pipe.Pipeline
	peers *sharedstate.PeerTable
	addr  netip.AddrPort
}

func newChatHandler(p *pipe.Pipeline, peers *sharedstate.PeerTable) *chatHandler {
	return &chatHandler{p: p, peers: peers}
}

func (*chatHandler) Name() string { return "chat" }

func (h *chatHandler) HandleRead(ctx *handler.InboundContext[transport.Message[string]], msg transport.Message[string]) {
	if !h.addr.IsValid() {
		h.addr = msg.Context.PeerAddr
		peer := h.peers.Observe(h.addr)
		peer.Name = h.addr.String()
		peer.SetSender(func(out transport.Message[string]) error {
			return pipe.Write(h.p, out)
		})
		ctx.Logger().Info().Str("peer", peer.Name).Msg("chat: peer joined")
	}
	h.peers.Broadcast(h.addr, msg)
}

func (h *chatHandler) HandleInactive(ctx *handler.InboundContext[transport.Message[string]]) {
	if h.addr.IsValid() {
		h.peers.Leave(h.addr)
		ctx.Logger().Info().Str("peer", h.addr.String()).Msg("chat: peer left")
	}
	ctx.FireInactive()
}
