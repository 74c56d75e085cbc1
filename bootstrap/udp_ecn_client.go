package bootstrap

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"

	"github.com/netframe/netframe/executor"
	"github.com/netframe/netframe/pipe"
	"github.com/netframe/netframe/transport"
)

// UDPEcnClient is BootstrapUdpEcnClient: a UDP client that additionally
// reads and sets the IP Explicit Congestion Notification codepoint on
// every datagram (spec §4.6). Reading ECN requires arming IP_RECVTOS (v4)
// or IPV6_RECVTCLASS (v6) on the raw socket via golang.org/x/sys/unix;
// golang.org/x/net/ipv4 and ipv6 then expose the per-packet
// ControlMessage used to read the inbound codepoint and set the outbound
// one without dropping to raw syscalls for the data path itself.
type UDPEcnClient struct {
	opts    Options
	factory PipelineFactory
	exec    executor.LocalExecutor

	mu   sync.Mutex
	conn *net.UDPConn
	pc4  *ipv4.PacketConn
	pc6  *ipv6.PacketConn
	v6   bool
	req  *pipe.ShutdownRequestor
	resp *pipe.ShutdownResponder
	done chan struct{}
}

// NewUDPEcnClient creates an unbound UDP-with-ECN client bootstrap.
func NewUDPEcnClient(opts Options) *UDPEcnClient {
	opts.apply()
	if opts.MaxPayloadSize > 1500 {
		opts.MaxPayloadSize = 1500
	}
	return &UDPEcnClient{opts: opts, exec: executor.New()}
}

// Pipeline sets the factory used to build the connection's pipeline.
func (c *UDPEcnClient) Pipeline(factory PipelineFactory) *UDPEcnClient {
	c.factory = factory
	return c
}

// Connect opens a UDP socket connected to addr, arms ECN reporting, and
// starts the loop.
func (c *UDPEcnClient) Connect(addr string) (netip.AddrPort, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.factory == nil {
		return netip.AddrPort{}, ErrNoPipelineFactory
	}
	if c.conn != nil {
		return netip.AddrPort{}, ErrAlreadyBound
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return netip.AddrPort{}, err
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return netip.AddrPort{}, err
	}

	v6 := udpAddr.IP.To4() == nil
	if err := armECN(conn, v6); err != nil {
		conn.Close()
		return netip.AddrPort{}, err
	}

	p, rx, err := build(c.factory, c.opts)
	if err != nil {
		conn.Close()
		return netip.AddrPort{}, err
	}

	c.conn = conn
	c.v6 = v6
	if v6 {
		c.pc6 = ipv6.NewPacketConn(conn)
		c.pc6.SetControlMessage(ipv6.FlagTrafficClass, true)
	} else {
		c.pc4 = ipv4.NewPacketConn(conn)
		c.pc4.SetControlMessage(ipv4.FlagTOS, true)
	}
	c.req, c.resp = pipe.NewShutdown()
	c.done = make(chan struct{})

	local, _ := netip.ParseAddrPort(conn.LocalAddr().String())
	peer, _ := netip.ParseAddrPort(conn.RemoteAddr().String())

	c.exec.Spawn(context.Background(), func(context.Context) {
		c.run(local, peer, p, rx)
		close(c.done)
	})

	return local, nil
}

// armECN sets IP_RECVTOS (v4) or IPV6_RECVTCLASS (v6) on conn's raw file
// descriptor, the socket option that makes the kernel deliver the
// ECN/DSCP byte as ancillary data on every read.
func armECN(conn *net.UDPConn, v6 bool) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		if v6 {
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_RECVTCLASS, 1)
		} else {
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_RECVTOS, 1)
		}
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return sockErr
}

func (c *UDPEcnClient) run(local, peer netip.AddrPort, p *pipe.Pipeline, rx pipe.OutboundRx[transport.Bytes]) {
	defer c.resp.Done()
	defer c.conn.Close()

	p.TransportActive()
	defer p.TransportInactive()

	buf := make([]byte, c.opts.MaxPayloadSize)
	type ecnRead struct {
		n   int
		ecn transport.ECN
		err error
	}
	reads := make(chan ecnRead, 1)

	read := func() {
		var n int
		var ecn transport.ECN
		var err error
		if c.v6 {
			var cm *ipv6.ControlMessage
			n, cm, _, err = c.pc6.ReadFrom(buf)
			if cm != nil {
				ecn = transport.ECN(cm.TrafficClass & 0x3)
			}
		} else {
			var cm *ipv4.ControlMessage
			n, cm, _, err = c.pc4.ReadFrom(buf)
			if cm != nil {
				ecn = transport.ECN(cm.TOS & 0x3)
			}
		}
		reads <- ecnRead{n: n, ecn: ecn, err: err}
	}
	c.exec.SpawnLocal(context.Background(), func(context.Context) { read() })

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
			msg := transport.Bytes{
				Context: transport.Context{LocalAddr: local, PeerAddr: peer, Now: time.Now()}.WithECN(res.ecn),
				Data:    append([]byte(nil), buf[:res.n]...),
			}
			if err := pipe.Read(p, msg); err != nil {
				c.opts.Logger.Warn().Err(err).Msg("bootstrap: dropped read, pipeline not active")
			}
			c.exec.SpawnLocal(context.Background(), func(context.Context) { read() })

		case out, ok := <-rx.Chan():
			stopTimer()
			if !ok {
				return
			}
			c.writeECN(out)

		case now := <-timerC:
			p.HandleTimeout(now)

		case <-c.resp.Requested():
			stopTimer()
			if c.resp.Graceful() {
				c.drainECN(rx)
			}
			return
		}
	}
}

func (c *UDPEcnClient) writeECN(out transport.Bytes) {
	if out.Context.ECN == nil {
		if c.v6 {
			c.pc6.WriteTo(out.Data, nil, nil)
		} else {
			c.pc4.WriteTo(out.Data, nil, nil)
		}
		return
	}
	if c.v6 {
		cm := &ipv6.ControlMessage{TrafficClass: int(*out.Context.ECN)}
		c.pc6.WriteTo(out.Data, cm, nil)
	} else {
		cm := &ipv4.ControlMessage{TOS: int(*out.Context.ECN)}
		c.pc4.WriteTo(out.Data, cm, nil)
	}
}

func (c *UDPEcnClient) drainECN(rx pipe.OutboundRx[transport.Bytes]) {
	for {
		select {
		case out, ok := <-rx.Chan():
			if !ok {
				return
			}
			c.writeECN(out)
		default:
			return
		}
	}
}

// Stop tears down the socket immediately.
func (c *UDPEcnClient) Stop() error { return c.stop(false) }

// GracefulStop drains the outbound backlog before closing the socket.
func (c *UDPEcnClient) GracefulStop() error { return c.stop(true) }

func (c *UDPEcnClient) stop(graceful bool) error {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return ErrNotBound
	}
	req := c.req
	c.mu.Unlock()

	if graceful {
		req.RequestGraceful()
	} else {
		req.Request()
	}
	return c.WaitForStop()
}

// WaitForStop blocks until the loop has returned.
func (c *UDPEcnClient) WaitForStop() error {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return ErrNotBound
	}
	done := c.done
	c.mu.Unlock()

	<-done
	return nil
}
