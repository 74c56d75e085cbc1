// Package transport holds the per-message envelope types that carry bytes
// (or typed values derived from bytes) between a socket and a pipeline.
package transport

import (
	"fmt"
	"net/netip"
	"time"
)

// ECN is the 2-bit IP Explicit Congestion Notification codepoint.
type ECN byte

const (
	ECN_NOT_CAPABLE ECN = 0b00
	ECN_CAPABLE_0   ECN = 0b10
	ECN_CAPABLE_1   ECN = 0b01
	ECN_CONGESTED   ECN = 0b11
)

func (e ECN) String() string {
	switch e {
	case ECN_NOT_CAPABLE:
		return "not-ect"
	case ECN_CAPABLE_0:
		return "ect0"
	case ECN_CAPABLE_1:
		return "ect1"
	case ECN_CONGESTED:
		return "ce"
	default:
		return "invalid"
	}
}

// Context carries per-message transport metadata: the local address this
// message was seen on, the optional peer address, an optional ECN codepoint
// (UDP-with-ECN bootstrap only), and the timestamp it was attached.
//
// A Context is immutable once constructed on the inbound path. The outbound
// path rebuilds one (usually by copying an inbound Context and overwriting
// only what needs to change).
type Context struct {
	LocalAddr netip.AddrPort
	PeerAddr  netip.AddrPort // zero Addr means "not set"
	ECN       *ECN           // nil means "not applicable / unknown"
	Now       time.Time
}

// HasPeer reports whether PeerAddr was set by the sender.
func (c Context) HasPeer() bool {
	return c.PeerAddr.IsValid()
}

// WithPeer returns a copy of c with PeerAddr replaced.
func (c Context) WithPeer(peer netip.AddrPort) Context {
	c.PeerAddr = peer
	return c
}

// WithECN returns a copy of c with the ECN codepoint replaced.
func (c Context) WithECN(ecn ECN) Context {
	c.ECN = &ecn
	return c
}

func (c Context) String() string {
	if c.HasPeer() {
		return fmt.Sprintf("%s<-%s", c.LocalAddr, c.PeerAddr)
	}
	return c.LocalAddr.String()
}
