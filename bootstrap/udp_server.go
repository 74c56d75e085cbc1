package bootstrap

import (
	"context"
	"net"
	"net/netip"
	"sync"

	"github.com/netframe/netframe/executor"
	"github.com/netframe/netframe/pipe"
)

// UDPServer owns a single UDP socket serving any number of peers through
// one pipeline (spec §6: BootstrapServerUdp). Per-peer application state,
// if needed, is the caller's concern (see sharedstate.PeerTable); the
// bootstrap only tags each inbound message's Context.PeerAddr.
type UDPServer struct {
	opts    Options
	factory PipelineFactory
	exec    executor.LocalExecutor

	mu   sync.Mutex
	conn *net.UDPConn
	req  *pipe.ShutdownRequestor
	resp *pipe.ShutdownResponder
	done chan struct{}
}

// NewUDPServer creates an unbound UDP server bootstrap.
func NewUDPServer(opts Options) *UDPServer {
	opts.apply()
	if opts.MaxPayloadSize > 1500 {
		opts.MaxPayloadSize = 1500
	}
	return &UDPServer{opts: opts, exec: executor.New()}
}

// Pipeline sets the factory used to build the server's single pipeline.
func (s *UDPServer) Pipeline(factory PipelineFactory) *UDPServer {
	s.factory = factory
	return s
}

// Bind opens the UDP socket and starts the loop, returning the bound
// local address.
func (s *UDPServer) Bind(addr string) (netip.AddrPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.factory == nil {
		return netip.AddrPort{}, ErrNoPipelineFactory
	}
	if s.conn != nil {
		return netip.AddrPort{}, ErrAlreadyBound
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return netip.AddrPort{}, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return netip.AddrPort{}, err
	}

	p, rx, err := build(s.factory, s.opts)
	if err != nil {
		conn.Close()
		return netip.AddrPort{}, err
	}

	s.conn = conn
	s.req, s.resp = pipe.NewShutdown()
	s.done = make(chan struct{})

	local, _ := netip.ParseAddrPort(conn.LocalAddr().String())
	s.exec.Spawn(context.Background(), func(context.Context) {
		runPacketLoop(s.exec, conn, p, rx, s.resp, s.opts, local, netip.AddrPort{})
		close(s.done)
	})

	return local, nil
}

// Stop tears down the socket immediately.
func (s *UDPServer) Stop() error { return s.stop(false) }

// GracefulStop drains the outbound backlog before closing the socket
// (scenario 5).
func (s *UDPServer) GracefulStop() error { return s.stop(true) }

func (s *UDPServer) stop(graceful bool) error {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return ErrNotBound
	}
	req := s.req
	s.mu.Unlock()

	if graceful {
		req.RequestGraceful()
	} else {
		req.Request()
	}
	return s.WaitForStop()
}

// WaitForStop blocks until the loop has returned.
func (s *UDPServer) WaitForStop() error {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return ErrNotBound
	}
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}
