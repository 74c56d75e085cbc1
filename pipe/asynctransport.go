package pipe

import (
	"context"

	"github.com/netframe/netframe/handler"
	"github.com/netframe/netframe/transport"
)

// AsyncTransport is the built-in stage every standard pipeline installs as
// its first inbound and last outbound handler (spec §4.4, component C6).
// Its inbound half is a straight pass-through: AsyncTransport never
// transforms a read, it only exists so later stages have a uniform
// "first handler" to add behind. Its outbound half holds the producing end
// of the outbound channel: a write reaching AsyncTransport is the pipeline
// telling the bootstrap loop to put bytes on the wire, and a close reaching
// it is the pipeline telling the loop to tear down once drained.
type AsyncTransport struct {
	handler.Base[transport.Bytes]
	handler.ReadPassthrough[transport.Bytes]
	handler.OutboundBase[transport.Bytes]

	tx OutboundTx[transport.Bytes]
}

// NewAsyncTransport wraps the producing end of an outbound channel created
// by NewOutbound. A pipeline factory calls this first, then AddBack's the
// result before any user handler (spec §4.5: "AsyncTransport(outbound_tx)
// first, then user handlers").
func NewAsyncTransport(tx OutboundTx[transport.Bytes]) *AsyncTransport {
	return &AsyncTransport{tx: tx}
}

func (*AsyncTransport) Name() string { return "async-transport" }

// HandleWrite enqueues msg onto the outbound channel, blocking under
// backpressure until the bootstrap loop drains it. The send is made with
// context.Background(), so a full channel is waited on with no
// cancellation.
func (t *AsyncTransport) HandleWrite(ctx *handler.OutboundContext[transport.Bytes], msg transport.Bytes) {
	if err := t.tx.Send(context.Background(), msg); err != nil {
		ctx.Logger().Debug().Err(err).Msg("async-transport: write dropped, pipeline tearing down")
	}
}

// HandleClose closes the outbound channel. The bootstrap loop's next
// receive observes end-of-stream and, after processing anything already
// buffered, exits (spec: graceful_stop drains before returning).
func (t *AsyncTransport) HandleClose(ctx *handler.OutboundContext[transport.Bytes]) {
	t.tx.Close()
}
