// Command chat runs the TCP chat broadcast scenario of spec §8 scenario 2:
// every connected client's lines are relayed to every other client that
// has sent at least one line, using a sharedstate.PeerTable to fan a
// message out across
// connections that each run their own independent pipeline and loop.
package main

import (
	"flag"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/netframe/netframe/bootstrap"
	"github.com/netframe/netframe/codec"
	"github.com/netframe/netframe/pipe"
	"github.com/netframe/netframe/sharedstate"
	"github.com/netframe/netframe/transport"
)

var optAddr = flag.String("addr", "127.0.0.1:9902", "address to bind")

func newLogger() zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	if f, ok := w.Out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w.Out = colorable.NewColorable(f)
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func main() {
	flag.Parse()
	logger := newLogger()
	peers := sharedstate.NewPeerTable()

	factory := func(tx pipe.OutboundTx[transport.Bytes]) (*pipe.Pipeline, error) {
		p := pipe.New()
		p.SetLogger(&logger)
		if err := pipe.AddBack(p, pipe.NewAsyncTransport(tx)); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, codec.NewLineBasedFrameDecoder(codec.EitherTerminator, 8192)); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, codec.NewTaggedStringCodec("\r\n")); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, newChatHandler(p, peers)); err != nil {
			return nil, err
		}
		if err := pipe.Finalize[transport.Bytes, transport.Message[string]](p); err != nil {
			return nil, err
		}
		return p, nil
	}

	srv := bootstrap.NewTCPServer(bootstrap.Options{Logger: &logger}).Pipeline(factory)
	local, err := srv.Bind(*optAddr)
	if err != nil {
		logger.Error().Err(err).Msg("bind failed")
		os.Exit(1)
	}
	logger.Info().Stringer("addr", local).Msg("chat server listening")

	if err := srv.WaitForStop(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	}
}
