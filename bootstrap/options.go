// Package bootstrap implements the five socket-facing bootstrap variants of
// spec component C7: TCP server, TCP client, UDP server, UDP client, and a
// UDP-with-ECN client. Each owns exactly one OS socket and drives one
// finalized pipe.Pipeline (or, for the TCP server, one pipeline per
// accepted connection) through the single-threaded cooperative loop
// described in spec §5.
package bootstrap

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

// DefaultOptions mirrors the teacher's DefaultOptions package vars
// (pipe.DefaultOptions, speaker.DefaultOptions): every constructor calls
// apply, which fills each zero-valued field of the caller's Options from
// these values, so a zero Options can be passed as-is.
var DefaultOptions = Options{
	MaxPayloadSize:  2048,
	OutboundBacklog: 16,
}

// Options configures a bootstrap variant. A zero-value field falls back to
// DefaultOptions' value when apply is called.
type Options struct {
	// Logger receives bootstrap lifecycle and error events. Nil disables
	// logging (apply installs zerolog.Nop()).
	Logger *zerolog.Logger

	// MaxPayloadSize bounds a single read buffer: spec §6 default is 2048
	// for TCP framing, up to 1500 (path MTU) for UDP.
	MaxPayloadSize int

	// OutboundBacklog is the outbound channel's buffer capacity (pipe.NewOutbound).
	OutboundBacklog int
}

// apply fills zero-valued fields from DefaultOptions and installs a no-op
// logger when none was set, matching speaker.Options.apply's idiom.
func (o *Options) apply() {
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	if o.MaxPayloadSize <= 0 {
		o.MaxPayloadSize = DefaultOptions.MaxPayloadSize
	}
	if o.OutboundBacklog <= 0 {
		o.OutboundBacklog = DefaultOptions.OutboundBacklog
	}
}

// Env is the subset of environment access FromEnv needs; satisfied by
// os.Getenv directly.
type Env func(key string) string

// FromEnv builds Options from environment variables, coercing with
// github.com/spf13/cast the way the teacher's filter package coerces
// user-supplied values. Unset variables leave the corresponding field
// zero (apply then supplies the default). A malformed value is reported,
// not silently ignored.
func FromEnv(getenv Env) (Options, error) {
	var o Options
	if v := getenv("NETFRAME_MAX_PAYLOAD_SIZE"); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return o, err
		}
		o.MaxPayloadSize = n
	}
	if v := getenv("NETFRAME_OUTBOUND_BACKLOG"); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return o, err
		}
		o.OutboundBacklog = n
	}
	return o, nil
}
