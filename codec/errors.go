package codec

import "errors"

var (
	// ErrFrameTooLong is the protocol error surfaced via read_exception
	// (spec §7) when a frame exceeds LineBasedFrameDecoder's MaxLength
	// before a terminator is found.
	ErrFrameTooLong = errors.New("codec: frame too long")

	// ErrInvalidUTF8 is surfaced by TaggedStringCodec when a frame is not
	// valid UTF-8.
	ErrInvalidUTF8 = errors.New("codec: invalid utf-8")
)
