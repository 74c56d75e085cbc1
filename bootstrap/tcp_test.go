package bootstrap

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netframe/netframe/codec"
	"github.com/netframe/netframe/handler"
	"github.com/netframe/netframe/pipe"
	"github.com/netframe/netframe/sharedstate"
	"github.com/netframe/netframe/transport"
)

// testChatHandler relays every line it reads to every other registered
// peer, never back to its own sender -- the application stage of scenario
// 2's TCP chat broadcast test, registering lazily on first message like
// sharedstate.PeerTable's documented default.
type testChatHandler struct {
	handler.Base[transport.Message[string]]
	handler.OutboundBase[transport.Message[string]]
	handler.WritePassthrough[transport.Message[string]]

	p     *pipe.Pipeline
	peers *sharedstate.PeerTable
	addr  netip.AddrPort
}

func newTestChatHandler(p *pipe.Pipeline, peers *sharedstate.PeerTable) *testChatHandler {
	return &testChatHandler{p: p, peers: peers}
}

func (*testChatHandler) Name() string { return "test-chat" }

func (h *testChatHandler) HandleRead(ctx *handler.InboundContext[transport.Message[string]], msg transport.Message[string]) {
	if !h.addr.IsValid() {
		h.addr = msg.Context.PeerAddr
		peer := h.peers.Observe(h.addr)
		peer.SetSender(func(out transport.Message[string]) error {
			return pipe.Write(h.p, out)
		})
	}
	h.peers.Broadcast(h.addr, msg)
}

func (h *testChatHandler) HandleInactive(ctx *handler.InboundContext[transport.Message[string]]) {
	if h.addr.IsValid() {
		h.peers.Leave(h.addr)
	}
	ctx.FireInactive()
}

// chatClientRecorder is the client-side application stage: it records
// every line read back and lets the test trigger a send through its own
// pipeline reference.
type chatClientRecorder struct {
	handler.Base[transport.Message[string]]
	handler.OutboundBase[transport.Message[string]]
	handler.WritePassthrough[transport.Message[string]]

	p        *pipe.Pipeline
	received chan<- string
}

func (*chatClientRecorder) Name() string { return "chat-client" }

func (h *chatClientRecorder) HandleRead(ctx *handler.InboundContext[transport.Message[string]], msg transport.Message[string]) {
	h.received <- msg.Value
}

type chatClient struct {
	cli *TCPClient
	rec *chatClientRecorder
}

func newChatClient(t *testing.T, addr string, received chan<- string) *chatClient {
	t.Helper()
	var rec *chatClientRecorder

	factory := func(tx pipe.OutboundTx[transport.Bytes]) (*pipe.Pipeline, error) {
		p := pipe.New()
		if err := pipe.AddBack(p, pipe.NewAsyncTransport(tx)); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, codec.NewLineBasedFrameDecoder(codec.EitherTerminator, 8192)); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, codec.NewTaggedStringCodec("\r\n")); err != nil {
			return nil, err
		}
		rec = &chatClientRecorder{p: p, received: received}
		if err := pipe.AddBack(p, rec); err != nil {
			return nil, err
		}
		if err := pipe.Finalize[transport.Bytes, transport.Message[string]](p); err != nil {
			return nil, err
		}
		return p, nil
	}

	cli := NewTCPClient(Options{}).Pipeline(factory)
	_, err := cli.Connect(addr)
	require.NoError(t, err)

	return &chatClient{cli: cli, rec: rec}
}

// send retries briefly: Connect returns as soon as the dial succeeds, but
// the pipeline only reaches pipe.Active once its loop goroutine has run
// TransportActive, a race the caller otherwise has no way to observe.
func (c *chatClient) send(line string) {
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := pipe.Write(c.rec.p, transport.Message[string]{Value: line})
		if err == nil || time.Now().After(deadline) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func (c *chatClient) Stop() { c.cli.Stop() }

func TestTCPChat_ScenarioTwo(t *testing.T) {
	peers := sharedstate.NewPeerTable()

	factory := func(tx pipe.OutboundTx[transport.Bytes]) (*pipe.Pipeline, error) {
		p := pipe.New()
		if err := pipe.AddBack(p, pipe.NewAsyncTransport(tx)); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, codec.NewLineBasedFrameDecoder(codec.EitherTerminator, 8192)); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, codec.NewTaggedStringCodec("\r\n")); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, newTestChatHandler(p, peers)); err != nil {
			return nil, err
		}
		if err := pipe.Finalize[transport.Bytes, transport.Message[string]](p); err != nil {
			return nil, err
		}
		return p, nil
	}

	srv := NewTCPServer(Options{}).Pipeline(factory)
	local, err := srv.Bind("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Stop()

	recvA := make(chan string, 4)
	recvB := make(chan string, 4)
	recvC := make(chan string, 4)

	clientA := newChatClient(t, local.String(), recvA)
	clientB := newChatClient(t, local.String(), recvB)
	clientC := newChatClient(t, local.String(), recvC)
	defer clientA.Stop()
	defer clientB.Stop()
	defer clientC.Stop()

	// Peers register on their first line, so B and C speak once before A
	// does. B's line reaches nobody; C's reaches only B.
	clientB.send("join")
	require.Eventually(t, func() bool { return peers.Len() == 1 }, 5*time.Second, time.Millisecond)
	clientC.send("join")
	requireRecv(t, recvB, "join")
	require.Equal(t, 2, peers.Len())

	clientA.send("hi")

	requireRecv(t, recvB, "hi")
	requireRecv(t, recvC, "hi")
	requireNoRecv(t, recvA)
}

func requireRecv(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		require.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func requireNoRecv(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("expected no message, got %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}
