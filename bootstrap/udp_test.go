package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netframe/netframe/codec"
	"github.com/netframe/netframe/handler"
	"github.com/netframe/netframe/pipe"
	"github.com/netframe/netframe/transport"
)

// lineEchoFactory wires AsyncTransport -> LineBasedFrameDecoder ->
// TaggedStringCodec -> app, the chain scenario 1 describes for the UDP
// echo end-to-end test.
func lineEchoFactory(app func(p *pipe.Pipeline) *echoHandler) PipelineFactory {
	return func(tx pipe.OutboundTx[transport.Bytes]) (*pipe.Pipeline, error) {
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
		if err := pipe.AddBack(p, app(p)); err != nil {
			return nil, err
		}
		if err := pipe.Finalize[transport.Bytes, transport.Message[string]](p); err != nil {
			return nil, err
		}
		return p, nil
	}
}

// echoHandler echoes every decoded line back to its sender; used as both
// the server's application stage and (configured to send on activation,
// and to record each line on received instead of echoing it) the client's.
type echoHandler struct {
	handler.Base[transport.Message[string]]
	handler.OutboundBase[transport.Message[string]]
	handler.WritePassthrough[transport.Message[string]]

	p *pipe.Pipeline

	// sendOnActive, if set, is sent once transport_active fires -- the
	// client side of the echo scenario kicks off the exchange this way.
	sendOnActive []string
	received     chan<- string
}

func (*echoHandler) Name() string { return "echo" }

func (h *echoHandler) HandleActive(ctx *handler.InboundContext[transport.Message[string]]) {
	for _, line := range h.sendOnActive {
		_ = pipe.Write(h.p, transport.Message[string]{Value: line})
	}
}

func (h *echoHandler) HandleRead(ctx *handler.InboundContext[transport.Message[string]], msg transport.Message[string]) {
	if h.received != nil {
		h.received <- msg.Value
		return
	}
	_ = pipe.Write(h.p, msg)
}

func TestUDPEcho_ScenarioOne(t *testing.T) {
	srv := NewUDPServer(Options{}).Pipeline(lineEchoFactory(func(p *pipe.Pipeline) *echoHandler {
		return &echoHandler{p: p}
	}))
	local, err := srv.Bind("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Stop()

	received := make(chan string, 8)
	cli := NewUDPClient(Options{}).Pipeline(lineEchoFactory(func(p *pipe.Pipeline) *echoHandler {
		return &echoHandler{p: p, sendOnActive: []string{"hello", "bye"}, received: received}
	}))
	_, err = cli.Connect(local.String())
	require.NoError(t, err)
	defer cli.Stop()

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case v := <-received:
			got = append(got, v)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for echo %d", i)
		}
	}
	require.Equal(t, []string{"hello", "bye"}, got)
}

func TestUDPServer_GracefulStopDrainsBacklog(t *testing.T) {
	const backlog = 10

	srv := NewUDPServer(Options{OutboundBacklog: backlog}).Pipeline(func(tx pipe.OutboundTx[transport.Bytes]) (*pipe.Pipeline, error) {
		p := pipe.New()
		if err := pipe.AddBack(p, pipe.NewAsyncTransport(tx)); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, &burstOnPing{p: p, count: backlog}); err != nil {
			return nil, err
		}
		if err := pipe.Finalize[transport.Bytes, transport.Bytes](p); err != nil {
			return nil, err
		}
		return p, nil
	})
	local, err := srv.Bind("127.0.0.1:0")
	require.NoError(t, err)

	received := make(chan []byte, backlog)
	cli := NewUDPClient(Options{}).Pipeline(func(tx pipe.OutboundTx[transport.Bytes]) (*pipe.Pipeline, error) {
		p := pipe.New()
		if err := pipe.AddBack(p, pipe.NewAsyncTransport(tx)); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, &collectBytes{p: p, out: received}); err != nil {
			return nil, err
		}
		if err := pipe.Finalize[transport.Bytes, transport.Bytes](p); err != nil {
			return nil, err
		}
		return p, nil
	})
	_, err = cli.Connect(local.String())
	require.NoError(t, err)
	defer cli.Stop()

	count := 0
	select {
	case <-received:
		count++
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the first reply")
	}

	// By the time GracefulStop returns, the server loop has either sent
	// every remaining buffered reply through its normal select branch or,
	// if the shutdown request won the race, drained the rest
	// synchronously -- either way all backlog frames have been written to
	// the socket.
	require.NoError(t, srv.GracefulStop())

	for count < backlog {
		select {
		case <-received:
			count++
		case <-time.After(5 * time.Second):
			t.Fatalf("only received %d/%d frames before timeout", count, backlog)
		}
	}
}

type burstOnPing struct {
	handler.Base[transport.Bytes]
	handler.OutboundBase[transport.Bytes]
	handler.WritePassthrough[transport.Bytes]

	p     *pipe.Pipeline
	count int
}

func (*burstOnPing) Name() string { return "burst-on-ping" }

func (h *burstOnPing) HandleRead(ctx *handler.InboundContext[transport.Bytes], msg transport.Bytes) {
	for i := 0; i < h.count; i++ {
		_ = pipe.Write(h.p, transport.Bytes{Context: msg.Context, Data: []byte("reply")})
	}
}

// collectBytes pings the server once active (so the server learns the
// client's address to reply to) and records every frame read back.
type collectBytes struct {
	handler.Base[transport.Bytes]
	handler.OutboundBase[transport.Bytes]
	handler.WritePassthrough[transport.Bytes]

	p   *pipe.Pipeline
	out chan<- []byte
}

func (*collectBytes) Name() string { return "collect-bytes" }

func (c *collectBytes) HandleActive(ctx *handler.InboundContext[transport.Bytes]) {
	_ = pipe.Write(c.p, transport.Bytes{Data: []byte("ping")})
}

func (c *collectBytes) HandleRead(ctx *handler.InboundContext[transport.Bytes], msg transport.Bytes) {
	c.out <- msg.Data
}
