// Package sharedstate implements the cross-connection shared-state pattern
// spec §4.8 describes only abstractly: state owned outside any one
// handler, referenced by each handler through a shared handle, safe to
// mutate without OS-level locking because each individual pipeline still
// runs its single-threaded event loop (spec §5) -- but the table itself is
// genuinely shared across the goroutines those separate loops run on, so
// it is backed by xsync.MapOf rather than a plain map.
package sharedstate

import (
	"errors"
	"net/netip"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/netframe/netframe/transport"
)

// ErrNoSender is returned by Peer.Send before SetSender has been called,
// e.g. a peer registered via Observe or Join whose handler has not yet
// installed a sender.
var ErrNoSender = errors.New("sharedstate: peer has no sender")

// Peer is one entry in a PeerTable: an address plus the hook a handler
// installs to push a message back onto that peer's own pipeline.
type Peer struct {
	Addr netip.AddrPort
	Name string

	send func(transport.Message[string]) error
}

// SetSender installs the function Send uses to deliver a message to this
// peer. Typically set from the peer's own connection handler at
// transport_active (join) or on first read (observe), closing over that
// connection's *pipe.Pipeline.
func (p *Peer) SetSender(fn func(transport.Message[string]) error) {
	p.send = fn
}

// Send delivers msg to this peer.
func (p *Peer) Send(msg transport.Message[string]) error {
	if p.send == nil {
		return ErrNoSender
	}
	return p.send(msg)
}

// PeerTable is a concurrent registry of peers, keyed by address. It
// resolves SPEC_FULL.md's decision on spec §9's open question: peers
// register lazily on first message (Observe) by default; Join is exposed
// for callers that want eager registration instead.
type PeerTable struct {
	peers  *xsync.MapOf[netip.AddrPort, *Peer]
	onJoin func(*Peer)
}

// NewPeerTable returns an empty table.
func NewPeerTable() *PeerTable {
	return &PeerTable{peers: xsync.NewMapOf[netip.AddrPort, *Peer]()}
}

// OnJoin registers a hook invoked the first time a peer is registered,
// whether via Observe or Join. Must be called before any Observe/Join if
// the hook should see every peer.
func (t *PeerTable) OnJoin(fn func(*Peer)) {
	t.onJoin = fn
}

// Observe returns the Peer for addr, registering it first if this is the
// first time addr has been seen -- the join-on-first-message behavior
// SPEC_FULL.md documents as the supported default.
func (t *PeerTable) Observe(addr netip.AddrPort) *Peer {
	peer, loaded := t.peers.LoadOrStore(addr, &Peer{Addr: addr})
	if !loaded && t.onJoin != nil {
		t.onJoin(peer)
	}
	return peer
}

// Join eagerly registers addr, for callers (e.g. a TCP bootstrap's
// transport_active) that want registration before any message arrives.
func (t *PeerTable) Join(addr netip.AddrPort) *Peer {
	return t.Observe(addr)
}

// Leave removes addr from the table.
func (t *PeerTable) Leave(addr netip.AddrPort) {
	t.peers.Delete(addr)
}

// Each calls fn for every currently registered peer, in no particular
// order.
func (t *PeerTable) Each(fn func(*Peer)) {
	t.peers.Range(func(_ netip.AddrPort, p *Peer) bool {
		fn(p)
		return true
	})
}

// Len returns the number of registered peers.
func (t *PeerTable) Len() int {
	return t.peers.Size()
}

// Broadcast sends msg to every registered peer except from (scenario 2:
// the sender does not receive its own message back).
func (t *PeerTable) Broadcast(from netip.AddrPort, msg transport.Message[string]) {
	t.peers.Range(func(addr netip.AddrPort, p *Peer) bool {
		if addr == from {
			return true
		}
		_ = p.Send(msg)
		return true
	})
}
