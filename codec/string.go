package codec

import (
	"unicode/utf8"

	"github.com/netframe/netframe/handler"
	"github.com/netframe/netframe/transport"
)

// TaggedStringCodec converts framed transport.Bytes to/from
// transport.Message[string] (spec §6): Rin = transport.Bytes, Rout =
// transport.Message[string] on read; Win = transport.Message[string],
// Wout = transport.Bytes on write, appending Terminator.
type TaggedStringCodec struct {
	handler.Base[transport.Message[string]]
	handler.OutboundBase[transport.Bytes]

	// Terminator is appended to every outbound frame; typically "\r\n" to
	// match whatever LineBasedFrameDecoder mode the peer expects.
	Terminator string
}

// NewTaggedStringCodec returns a codec appending terminator on write.
func NewTaggedStringCodec(terminator string) *TaggedStringCodec {
	return &TaggedStringCodec{Terminator: terminator}
}

func (*TaggedStringCodec) Name() string { return "tagged-string-codec" }

// HandleRead rejects non-UTF-8 frames with ErrInvalidUTF8 via
// read_exception (spec §6: "erroring on invalid sequences"), without
// terminating the connection -- a protocol error, not an I/O error.
func (c *TaggedStringCodec) HandleRead(ctx *handler.InboundContext[transport.Message[string]], msg transport.Bytes) {
	if !utf8.Valid(msg.Data) {
		ctx.FireReadError(ErrInvalidUTF8)
		return
	}
	ctx.FireRead(transport.Message[string]{Context: msg.Context, Value: string(msg.Data)})
}

func (c *TaggedStringCodec) HandleWrite(ctx *handler.OutboundContext[transport.Bytes], msg transport.Message[string]) {
	data := make([]byte, 0, len(msg.Value)+len(c.Terminator))
	data = append(data, msg.Value...)
	data = append(data, c.Terminator...)
	ctx.FireWrite(transport.Bytes{Context: msg.Context, Data: data})
}
