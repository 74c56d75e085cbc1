package sharedstate

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netframe/netframe/transport"
)

func addr(s string) netip.AddrPort {
	return netip.MustParseAddrPort(s)
}

func TestObserve_RegistersOnFirstCallOnly(t *testing.T) {
	table := NewPeerTable()
	var joins []netip.AddrPort
	table.OnJoin(func(p *Peer) { joins = append(joins, p.Addr) })

	a := addr("127.0.0.1:1111")
	p1 := table.Observe(a)
	p2 := table.Observe(a)

	require.Same(t, p1, p2)
	require.Equal(t, []netip.AddrPort{a}, joins)
	require.Equal(t, 1, table.Len())
}

func TestSend_WithoutSenderReturnsError(t *testing.T) {
	table := NewPeerTable()
	peer := table.Observe(addr("127.0.0.1:2222"))

	err := peer.Send(transport.Message[string]{Value: "hi"})
	require.ErrorIs(t, err, ErrNoSender)
}

func TestLeave_RemovesPeer(t *testing.T) {
	table := NewPeerTable()
	a := addr("127.0.0.1:3333")
	table.Observe(a)
	require.Equal(t, 1, table.Len())

	table.Leave(a)
	require.Equal(t, 0, table.Len())
}

func TestBroadcast_SkipsSenderAndReachesOthers(t *testing.T) {
	table := NewPeerTable()
	a, b, c := addr("127.0.0.1:1"), addr("127.0.0.1:2"), addr("127.0.0.1:3")

	received := map[netip.AddrPort][]string{}
	for _, p := range []netip.AddrPort{a, b, c} {
		p := p
		peer := table.Observe(p)
		peer.SetSender(func(msg transport.Message[string]) error {
			received[p] = append(received[p], msg.Value)
			return nil
		})
	}

	table.Broadcast(a, transport.Message[string]{Value: "hi"})

	require.Empty(t, received[a])
	require.Equal(t, []string{"hi"}, received[b])
	require.Equal(t, []string{"hi"}, received[c])
}
