// Package codec provides the built-in framing and message codecs: pluggable
// handler stages a pipeline factory adds behind AsyncTransport to turn raw
// socket bytes into application-level frames (spec §6: LineBasedFrameDecoder,
// TaggedStringCodec) and, as a supplement, a JSON line codec.
package codec

import (
	"bytes"

	"github.com/netframe/netframe/handler"
	"github.com/netframe/netframe/transport"
)

// Terminator selects which line ending LineBasedFrameDecoder recognizes.
type Terminator int

const (
	// LF splits only on '\n'.
	LF Terminator = iota
	// CRLF splits only on "\r\n".
	CRLF
	// EitherTerminator splits on "\r\n" or a bare '\n'.
	EitherTerminator
)

// LineBasedFrameDecoder is the built-in frame decoder named by spec §6: it
// yields one transport.Bytes frame per line, stripping the terminator, and
// caps accumulated-but-undelimited input at MaxLength, reporting
// ErrFrameTooLong via read_exception without closing the connection.
//
// Rin = Rout = transport.Bytes; the outbound half is an untouched
// pass-through, matching the teacher idiom of a handler only acting on the
// direction it actually transforms.
type LineBasedFrameDecoder struct {
	handler.Base[transport.Bytes]
	handler.OutboundBase[transport.Bytes]
	handler.WritePassthrough[transport.Bytes]

	Term      Terminator
	MaxLength int

	buf []byte
}

// NewLineBasedFrameDecoder returns a decoder for the given terminator mode
// and max undelimited length.
func NewLineBasedFrameDecoder(term Terminator, maxLength int) *LineBasedFrameDecoder {
	return &LineBasedFrameDecoder{Term: term, MaxLength: maxLength}
}

func (*LineBasedFrameDecoder) Name() string { return "line-frame-decoder" }

// HandleRead accumulates msg.Data and emits zero or more framed reads,
// preserving msg.Context on each (scenario 3: a frame split across two
// socket reads still decodes as one logical frame).
func (d *LineBasedFrameDecoder) HandleRead(ctx *handler.InboundContext[transport.Bytes], msg transport.Bytes) {
	d.buf = append(d.buf, msg.Data...)

	for {
		idx, termLen := d.findTerminator(d.buf)
		if idx < 0 {
			if len(d.buf) > d.MaxLength {
				ctx.FireReadError(ErrFrameTooLong)
				d.buf = d.buf[:0]
			}
			return
		}
		if idx > d.MaxLength {
			ctx.FireReadError(ErrFrameTooLong)
			d.buf = d.buf[idx+termLen:]
			continue
		}
		frame := make([]byte, idx)
		copy(frame, d.buf[:idx])
		d.buf = d.buf[idx+termLen:]
		ctx.FireRead(transport.Bytes{Context: msg.Context, Data: frame})
	}
}

func (d *LineBasedFrameDecoder) findTerminator(buf []byte) (idx, termLen int) {
	switch d.Term {
	case CRLF:
		i := bytes.Index(buf, []byte("\r\n"))
		if i < 0 {
			return -1, 0
		}
		return i, 2
	case EitherTerminator:
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			return -1, 0
		}
		if i > 0 && buf[i-1] == '\r' {
			return i - 1, 2
		}
		return i, 1
	default: // LF
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			return -1, 0
		}
		return i, 1
	}
}
