package transport

// Bytes is a byte buffer tagged with a transport Context. It is produced by
// the bootstrap read loop and consumed by the first pipeline stage. The
// buffer owns its storage; framing stages may split it into zero or more
// framed buffers, each carrying the original Context unchanged.
type Bytes struct {
	Context Context
	Data    []byte
}

// Clone returns a Bytes with the same Context and a copy of Data, so the
// result can outlive the original backing array.
func (b Bytes) Clone() Bytes {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return Bytes{Context: b.Context, Data: data}
}

// Message is the generic envelope pairing a transport Context with a typed
// payload, used by stages above the byte-oriented framing layer.
type Message[T any] struct {
	Context Context
	Value   T
}
