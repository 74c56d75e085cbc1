package bootstrap

import (
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/netframe/netframe/executor"
	"github.com/netframe/netframe/pipe"
)

// TCPServer accepts TCP connections and drives one pipeline per connection
// (spec §6: BootstrapTcpServer). Unlike the other variants, which own a
// single loop, TCPServer owns an accept loop plus one stream loop per
// accepted connection; Stop/GracefulStop/WaitForStop apply to all of them.
type TCPServer struct {
	opts    Options
	factory PipelineFactory
	exec    executor.LocalExecutor

	mu       sync.Mutex
	listener *net.TCPListener
	conns    map[*pipe.ShutdownRequestor]struct{}
	acceptWG executor.WaitGroup
	connWG   executor.WaitGroup
}

// NewTCPServer creates an unbound TCP server bootstrap.
func NewTCPServer(opts Options) *TCPServer {
	opts.apply()
	return &TCPServer{
		opts:  opts,
		exec:  executor.New(),
		conns: make(map[*pipe.ShutdownRequestor]struct{}),
	}
}

// Pipeline sets the factory used to build one pipeline per accepted
// connection.
func (s *TCPServer) Pipeline(factory PipelineFactory) *TCPServer {
	s.factory = factory
	return s
}

// Bind starts listening on addr and returns the actual local address
// (useful when addr's port is 0).
func (s *TCPServer) Bind(addr string) (netip.AddrPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.factory == nil {
		return netip.AddrPort{}, ErrNoPipelineFactory
	}
	if s.listener != nil {
		return netip.AddrPort{}, ErrAlreadyBound
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return netip.AddrPort{}, err
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return netip.AddrPort{}, err
	}
	s.listener = ln

	s.acceptWG.Go(s.exec, s.acceptLoop)

	local, _ := netip.ParseAddrPort(ln.Addr().String())
	return local, nil
}

func (s *TCPServer) acceptLoop() {
	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			return
		}
		p, rx, err := build(s.factory, s.opts)
		if err != nil {
			s.opts.Logger.Error().Err(err).Msg("tcp-server: pipeline factory failed, closing connection")
			conn.Close()
			continue
		}
		req, resp := pipe.NewShutdown()

		s.mu.Lock()
		s.conns[req] = struct{}{}
		s.mu.Unlock()

		s.connWG.Go(s.exec, func() {
			runStreamLoop(s.exec, conn, p, rx, resp, s.opts)
			s.mu.Lock()
			delete(s.conns, req)
			s.mu.Unlock()
		})
	}
}

// Stop closes the listener and every active connection immediately,
// without draining pending outbound frames, then waits for all loops to
// exit.
func (s *TCPServer) Stop() error {
	return s.stop(false)
}

// GracefulStop closes the listener, but every active connection drains its
// outbound backlog before closing its socket (scenario 5's guarantee,
// applied per-connection).
func (s *TCPServer) GracefulStop() error {
	return s.stop(true)
}

func (s *TCPServer) stop(graceful bool) error {
	s.mu.Lock()
	if s.listener == nil {
		s.mu.Unlock()
		return ErrNotBound
	}
	s.listener.Close()
	reqs := make([]*pipe.ShutdownRequestor, 0, len(s.conns))
	for req := range s.conns {
		reqs = append(reqs, req)
	}
	s.mu.Unlock()

	for _, req := range reqs {
		if graceful {
			req.RequestGraceful()
		} else {
			req.Request()
		}
	}
	return s.WaitForStop()
}

// WaitForStop blocks until the accept loop and every connection loop have
// returned.
func (s *TCPServer) WaitForStop() error {
	s.mu.Lock()
	if s.listener == nil {
		s.mu.Unlock()
		return ErrNotBound
	}
	s.mu.Unlock()

	s.acceptWG.Wait()
	s.connWG.Wait()
	return nil
}

func (s *TCPServer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return "tcp-server(unbound)"
	}
	return fmt.Sprintf("tcp-server(%s)", s.listener.Addr())
}
