// Package json provides small zero-allocation JSON scanning helpers built
// on jsonparser, shared by codec.TaggedJSONCodec and anything else that
// wants to pick fields out of a JSON line without a full unmarshal pass.
package json

import (
	"unsafe"

	jsp "github.com/buger/jsonparser"
)

// S returns a string view of buf without copying. Only safe when buf's
// backing array outlives the returned string, which holds for the
// jsonparser callback buffers this package is built around.
func S(buf []byte) string {
	return *(*string)(unsafe.Pointer(&buf))
}

// Q strips surrounding double quotes from buf, if present.
func Q(buf []byte) []byte {
	if l := len(buf); l > 1 && buf[0] == '"' && buf[l-1] == '"' {
		return buf[1 : l-1]
	}
	return buf
}

// SQ is S(Q(buf)): an unquoted string view.
func SQ(buf []byte) string {
	return S(Q(buf))
}

// ArrayEach calls cb for each element of the JSON array in src. If cb
// returns a non-nil error, iteration stops and that error is returned.
func ArrayEach(src []byte, cb func(val []byte) error) (reterr error) {
	defer func() {
		if r, ok := recover().(error); ok {
			reterr = r
		}
	}()
	jsp.ArrayEach(src, func(val []byte, _ jsp.ValueType, _ int, _ error) {
		if err := cb(val); err != nil {
			panic(err)
		}
	})
	return nil
}

// ObjectEach calls cb for each key/value pair of the JSON object in src.
// If cb returns a non-nil error, iteration stops and that error is
// returned.
func ObjectEach(src []byte, cb func(key, val []byte) error) error {
	return jsp.ObjectEach(src, func(key, val []byte, _ jsp.ValueType, _ int) error {
		return cb(key, val)
	})
}
