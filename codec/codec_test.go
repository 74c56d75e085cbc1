package codec

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/netframe/netframe/handler"
	"github.com/netframe/netframe/transport"
)

// stubDispatcher is a minimal handler.Dispatcher used to drive a single
// codec's HandleRead/HandleWrite directly in isolation, without building a
// full pipe.Pipeline.
type stubDispatcher struct {
	onRead    func(any)
	onReadErr func(error)
	onWrite   func(any)
}

func (d *stubDispatcher) FireActive(int)   {}
func (d *stubDispatcher) FireInactive(int) {}
func (d *stubDispatcher) FireRead(idx int, msg any) {
	if d.onRead != nil {
		d.onRead(msg)
	}
}
func (d *stubDispatcher) FireReadError(idx int, err error) {
	if d.onReadErr != nil {
		d.onReadErr(err)
	}
}
func (d *stubDispatcher) FireReadEOF(int)                  {}
func (d *stubDispatcher) FireTimeout(int, time.Time)       {}
func (d *stubDispatcher) FirePollTimeout(int, *time.Time)  {}
func (d *stubDispatcher) FireWrite(idx int, msg any) {
	if d.onWrite != nil {
		d.onWrite(msg)
	}
}
func (d *stubDispatcher) FireWriteError(int, error) {}
func (d *stubDispatcher) FireClose(int)             {}

var nop = zerolog.Nop()

func (d *stubDispatcher) Log(int) *zerolog.Logger { return &nop }
func (d *stubDispatcher) Name(int) string         { return "" }

func TestLineBasedFrameDecoder_SplitAcrossReads(t *testing.T) {
	d := NewLineBasedFrameDecoder(EitherTerminator, 8192)
	var frames []string
	ctx := handler.NewInboundContext[transport.Bytes](&stubDispatcher{
		onRead: func(v any) { frames = append(frames, string(v.(transport.Bytes).Data)) },
	}, 0)

	d.HandleRead(ctx, transport.Bytes{Data: []byte("hel")})
	d.HandleRead(ctx, transport.Bytes{Data: []byte("lo\r\nworld\r\nextra")})

	require.Equal(t, []string{"hello", "world"}, frames)
	require.Equal(t, "extra", string(d.buf))
}

func TestLineBasedFrameDecoder_OversizedFrame(t *testing.T) {
	d := NewLineBasedFrameDecoder(EitherTerminator, 16)
	long := make([]byte, 9000)
	for i := range long {
		long[i] = 'a'
	}

	var errs []error
	var frames []string
	ctx := handler.NewInboundContext[transport.Bytes](&stubDispatcher{
		onRead:    func(v any) { frames = append(frames, string(v.(transport.Bytes).Data)) },
		onReadErr: func(err error) { errs = append(errs, err) },
	}, 0)

	d.HandleRead(ctx, transport.Bytes{Data: append(long, '\n')})
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], ErrFrameTooLong)
	require.Empty(t, frames)

	// The connection stays usable: a subsequent valid frame decodes fine.
	d.HandleRead(ctx, transport.Bytes{Data: []byte("ok\n")})
	require.Equal(t, []string{"ok"}, frames)
}

func TestTaggedStringCodec_RoundTrip(t *testing.T) {
	c := NewTaggedStringCodec("\r\n")

	var got transport.Message[string]
	inCtx := handler.NewInboundContext[transport.Message[string]](&stubDispatcher{
		onRead: func(v any) { got = v.(transport.Message[string]) },
	}, 0)
	c.HandleRead(inCtx, transport.Bytes{Data: []byte("hello")})
	require.Equal(t, "hello", got.Value)

	var wroteOut transport.Bytes
	outCtx := handler.NewOutboundContext[transport.Bytes](&stubDispatcher{
		onWrite: func(v any) { wroteOut = v.(transport.Bytes) },
	}, 0)
	c.HandleWrite(outCtx, transport.Message[string]{Value: "world"})
	require.Equal(t, "world\r\n", string(wroteOut.Data))
}

func TestTaggedStringCodec_InvalidUTF8(t *testing.T) {
	c := NewTaggedStringCodec("\r\n")
	var gotErr error
	inCtx := handler.NewInboundContext[transport.Message[string]](&stubDispatcher{
		onReadErr: func(err error) { gotErr = err },
	}, 0)
	c.HandleRead(inCtx, transport.Bytes{Data: []byte{0xff, 0xfe}})
	require.ErrorIs(t, gotErr, ErrInvalidUTF8)
}

func TestTaggedJSONCodec_RoundTrip(t *testing.T) {
	c := NewTaggedJSONCodec()

	var got transport.Message[map[string]string]
	inCtx := handler.NewInboundContext[transport.Message[map[string]string]](&stubDispatcher{
		onRead: func(v any) { got = v.(transport.Message[map[string]string]) },
	}, 0)
	c.HandleRead(inCtx, transport.Bytes{Data: []byte(`{"from":"alice","body":"hi"}`)})
	require.Equal(t, "alice", got.Value["from"])
	require.Equal(t, "hi", got.Value["body"])

	var wroteOut transport.Bytes
	outCtx := handler.NewOutboundContext[transport.Bytes](&stubDispatcher{
		onWrite: func(v any) { wroteOut = v.(transport.Bytes) },
	}, 0)
	c.HandleWrite(outCtx, transport.Message[map[string]string]{Value: map[string]string{"b": "2", "a": "1"}})
	require.Equal(t, `{"a":"1","b":"2"}`+"\n", string(wroteOut.Data))
}
