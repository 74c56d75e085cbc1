package codec

import (
	"sort"
	"strconv"

	"github.com/netframe/netframe/handler"
	"github.com/netframe/netframe/json"
	"github.com/netframe/netframe/transport"
)

// TaggedJSONCodec is a supplement to the codecs spec.md names: a second
// concrete codec converting newline-delimited JSON objects to/from
// transport.Message[map[string]string]. It scans top-level string fields
// with jsonparser's callback API (package json, adapted from the teacher's
// zero-alloc field-scanning style) instead of paying for a full
// encoding/json unmarshal on every frame.
//
// Non-string JSON values are not supported; ObjectEach hands each value's
// raw bytes to json.SQ, which only strips surrounding quotes. Pair this
// codec with LineBasedFrameDecoder the same way TaggedStringCodec is used.
type TaggedJSONCodec struct {
	handler.Base[transport.Message[map[string]string]]
	handler.OutboundBase[transport.Bytes]
}

// NewTaggedJSONCodec returns a ready-to-use JSON line codec.
func NewTaggedJSONCodec() *TaggedJSONCodec { return &TaggedJSONCodec{} }

func (*TaggedJSONCodec) Name() string { return "tagged-json-codec" }

func (c *TaggedJSONCodec) HandleRead(ctx *handler.InboundContext[transport.Message[map[string]string]], msg transport.Bytes) {
	fields := make(map[string]string)
	err := json.ObjectEach(msg.Data, func(key, val []byte) error {
		fields[string(key)] = json.SQ(val)
		return nil
	})
	if err != nil {
		ctx.FireReadError(err)
		return
	}
	ctx.FireRead(transport.Message[map[string]string]{Context: msg.Context, Value: fields})
}

func (c *TaggedJSONCodec) HandleWrite(ctx *handler.OutboundContext[transport.Bytes], msg transport.Message[map[string]string]) {
	keys := make([]string, 0, len(msg.Value))
	for k := range msg.Value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := make([]byte, 0, 64)
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = strconv.AppendQuote(buf, msg.Value[k])
	}
	buf = append(buf, '}', '\n')
	ctx.FireWrite(transport.Bytes{Context: msg.Context, Data: buf})
}
