package bootstrap

import (
	"context"
	"net"
	"net/netip"
	"sync"

	"github.com/netframe/netframe/executor"
	"github.com/netframe/netframe/pipe"
)

// UDPClient owns a UDP socket connected to a single remote peer (spec §6:
// BootstrapClientUdp). Connecting the socket means the kernel filters out
// datagrams from any other source, so every inbound message's
// Context.PeerAddr is always the same address.
type UDPClient struct {
	opts    Options
	factory PipelineFactory
	exec    executor.LocalExecutor

	mu   sync.Mutex
	conn *net.UDPConn
	req  *pipe.ShutdownRequestor
	resp *pipe.ShutdownResponder
	done chan struct{}
}

// NewUDPClient creates an unbound UDP client bootstrap.
func NewUDPClient(opts Options) *UDPClient {
	opts.apply()
	if opts.MaxPayloadSize > 1500 {
		opts.MaxPayloadSize = 1500
	}
	return &UDPClient{opts: opts, exec: executor.New()}
}

// Pipeline sets the factory used to build the connection's pipeline.
func (c *UDPClient) Pipeline(factory PipelineFactory) *UDPClient {
	c.factory = factory
	return c
}

// Connect opens a UDP socket connected to addr and starts the loop.
func (c *UDPClient) Connect(addr string) (netip.AddrPort, error) {
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

	p, rx, err := build(c.factory, c.opts)
	if err != nil {
		conn.Close()
		return netip.AddrPort{}, err
	}

	c.conn = conn
	c.req, c.resp = pipe.NewShutdown()
	c.done = make(chan struct{})

	local, _ := netip.ParseAddrPort(conn.LocalAddr().String())
	peer, _ := netip.ParseAddrPort(conn.RemoteAddr().String())

	c.exec.Spawn(context.Background(), func(context.Context) {
		runPacketLoop(c.exec, conn, p, rx, c.resp, c.opts, local, peer)
		close(c.done)
	})

	return local, nil
}

// Stop tears down the socket immediately.
func (c *UDPClient) Stop() error { return c.stop(false) }

// GracefulStop drains the outbound backlog before closing the socket.
func (c *UDPClient) GracefulStop() error { return c.stop(true) }

func (c *UDPClient) stop(graceful bool) error {
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
func (c *UDPClient) WaitForStop() error {
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
