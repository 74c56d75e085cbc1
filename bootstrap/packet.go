package bootstrap

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/netframe/netframe/executor"
	"github.com/netframe/netframe/pipe"
	"github.com/netframe/netframe/transport"
)

// packetResult is one outcome of a background datagram read.
type packetResult struct {
	n    int
	peer netip.AddrPort
	err  error
}

func packetReader(conn *net.UDPConn, buf []byte, out chan<- packetResult) {
	n, peer, err := conn.ReadFromUDPAddrPort(buf)
	out <- packetResult{n: n, peer: peer, err: err}
}

// runPacketLoop drives a UDP bootstrap's single pipeline (spec decision:
// per-peer routing, if any, is layered on top by the application via
// sharedstate.PeerTable -- the bootstrap itself is peer-agnostic). fixedPeer
// is the zero value for a server (each datagram's sender becomes that
// message's Context.PeerAddr) or a connected client's one remote peer
// (every outbound write targets it regardless of what the pipeline set).
func runPacketLoop(exec executor.LocalExecutor, conn *net.UDPConn, p *pipe.Pipeline, rx pipe.OutboundRx[transport.Bytes], resp *pipe.ShutdownResponder, opts Options, local, fixedPeer netip.AddrPort) {
	defer resp.Done()
	defer conn.Close()

	p.TransportActive()
	defer p.TransportInactive()

	buf := make([]byte, opts.MaxPayloadSize)
	reads := make(chan packetResult, 1)
	exec.SpawnLocal(context.Background(), func(context.Context) { packetReader(conn, buf, reads) })

	for {
		eto := nextTimeout(p)
		timerC, stopTimer := timerChannel(eto)

		select {
		case res := <-reads:
			stopTimer()
			if res.err != nil {
				p.ReadError(res.err)
				return
			}
			peer := res.peer
			if fixedPeer.IsValid() {
				peer = fixedPeer
			}
			msg := transport.Bytes{
				Context: transport.Context{LocalAddr: local, PeerAddr: peer, Now: time.Now()},
				Data:    append([]byte(nil), buf[:res.n]...),
			}
			if err := pipe.Read(p, msg); err != nil {
				opts.Logger.Warn().Err(err).Msg("bootstrap: dropped read, pipeline not active")
			}
			exec.SpawnLocal(context.Background(), func(context.Context) { packetReader(conn, buf, reads) })

		case out, ok := <-rx.Chan():
			stopTimer()
			if !ok {
				return
			}
			writePacket(conn, out, fixedPeer, opts)

		case now := <-timerC:
			p.HandleTimeout(now)

		case <-resp.Requested():
			stopTimer()
			if resp.Graceful() {
				drainPacket(conn, rx, fixedPeer, opts)
			}
			return
		}
	}
}

// writePacket sends out.Data to fixedPeer if set (a connected client), else
// to out.Context.PeerAddr as the UDP server case requires -- dropped with
// a warning if neither is set (spec §4.4).
func writePacket(conn *net.UDPConn, out transport.Bytes, fixedPeer netip.AddrPort, opts Options) {
	if fixedPeer.IsValid() {
		// The client's socket is connected to fixedPeer, and a connected
		// socket rejects a write that names an explicit destination.
		conn.Write(out.Data)
		return
	}
	peer := out.Context.PeerAddr
	if !peer.IsValid() {
		opts.Logger.Warn().Msg("bootstrap: outbound datagram has no peer address, dropped")
		return
	}
	conn.WriteToUDPAddrPort(out.Data, peer)
}

func drainPacket(conn *net.UDPConn, rx pipe.OutboundRx[transport.Bytes], fixedPeer netip.AddrPort, opts Options) {
	for {
		select {
		case out, ok := <-rx.Chan():
			if !ok {
				return
			}
			writePacket(conn, out, fixedPeer, opts)
		default:
			return
		}
	}
}
