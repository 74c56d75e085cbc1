package bootstrap

import (
	"context"
	"net"
	"net/netip"
	"sync"

	"github.com/netframe/netframe/executor"
	"github.com/netframe/netframe/pipe"
)

// TCPClient dials a single TCP connection and drives its pipeline (spec §6:
// BootstrapTcpClient).
type TCPClient struct {
	opts    Options
	factory PipelineFactory
	exec    executor.LocalExecutor

	mu   sync.Mutex
	conn *net.TCPConn
	req  *pipe.ShutdownRequestor
	resp *pipe.ShutdownResponder
	done chan struct{}
}

// NewTCPClient creates an unbound TCP client bootstrap.
func NewTCPClient(opts Options) *TCPClient {
	opts.apply()
	return &TCPClient{opts: opts, exec: executor.New()}
}

// Pipeline sets the factory used to build the connection's pipeline.
func (c *TCPClient) Pipeline(factory PipelineFactory) *TCPClient {
	c.factory = factory
	return c
}

// Connect dials addr and starts the connection's loop, returning the local
// address the kernel assigned.
func (c *TCPClient) Connect(addr string) (netip.AddrPort, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.factory == nil {
		return netip.AddrPort{}, ErrNoPipelineFactory
	}
	if c.conn != nil {
		return netip.AddrPort{}, ErrAlreadyBound
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return netip.AddrPort{}, err
	}
	conn, err := net.DialTCP("tcp", nil, tcpAddr)
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

	c.exec.Spawn(context.Background(), func(context.Context) {
		runStreamLoop(c.exec, conn, p, rx, c.resp, c.opts)
		close(c.done)
	})

	local, _ := netip.ParseAddrPort(conn.LocalAddr().String())
	return local, nil
}

// Stop tears down the connection immediately.
func (c *TCPClient) Stop() error { return c.stop(false) }

// GracefulStop drains the outbound backlog before closing the socket.
func (c *TCPClient) GracefulStop() error { return c.stop(true) }

func (c *TCPClient) stop(graceful bool) error {
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

// WaitForStop blocks until the connection's loop has returned.
func (c *TCPClient) WaitForStop() error {
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
