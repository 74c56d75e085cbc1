package bootstrap

import (
	"github.com/netframe/netframe/pipe"
	"github.com/netframe/netframe/transport"
)

// PipelineFactory builds one finalized pipeline per connection (spec §4.7).
// It is responsible for installing pipe.NewAsyncTransport(tx) as the first
// handler, adding user handlers behind it, and finalizing; it returns either
// a finalized pipeline or an error, never a partially-built pipeline.
type PipelineFactory func(tx pipe.OutboundTx[transport.Bytes]) (*pipe.Pipeline, error)

// build creates a fresh outbound channel sized by opts and invokes factory,
// the piece of bootstrap bring-up every variant shares.
func build(factory PipelineFactory, opts Options) (*pipe.Pipeline, pipe.OutboundRx[transport.Bytes], error) {
	tx, rx := pipe.NewOutbound[transport.Bytes](opts.OutboundBacklog)
	p, err := factory(tx)
	if err != nil {
		return nil, pipe.OutboundRx[transport.Bytes]{}, err
	}
	return p, rx, nil
}
