// Command echo runs the UDP echo scenario of spec §8 scenario 1: a server
// pipeline that decodes LF/CRLF-framed lines and echoes each one back to
// its sender, and (with -client) a client that sends a burst of lines and
// exits once its trailing "bye" line is echoed back.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/netframe/netframe/bootstrap"
	"github.com/netframe/netframe/codec"
	"github.com/netframe/netframe/pipe"
	"github.com/netframe/netframe/transport"
)

var (
	optAddr   = flag.String("addr", "127.0.0.1:9901", "address to bind (server) or dial (client)")
	optClient = flag.Bool("client", false, "run as client instead of server")
	optCount  = flag.Int("count", 1024, "client: number of 'hello world' lines to send before 'bye'")
)

func newLogger() zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	if f, ok := w.Out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w.Out = colorable.NewColorable(f)
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func framerFactory() *codec.LineBasedFrameDecoder {
	return codec.NewLineBasedFrameDecoder(codec.EitherTerminator, 8192)
}

func runServer(logger zerolog.Logger) {
	factory := func(tx pipe.OutboundTx[transport.Bytes]) (*pipe.Pipeline, error) {
		p := pipe.New()
		p.SetLogger(&logger)
		if err := pipe.AddBack(p, pipe.NewAsyncTransport(tx)); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, framerFactory()); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, codec.NewTaggedStringCodec("\r\n")); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, newEchoHandler(p)); err != nil {
			return nil, err
		}
		if err := pipe.Finalize[transport.Bytes, transport.Message[string]](p); err != nil {
			return nil, err
		}
		return p, nil
	}

	srv := bootstrap.NewUDPServer(bootstrap.Options{Logger: &logger}).Pipeline(factory)
	local, err := srv.Bind(*optAddr)
	if err != nil {
		logger.Error().Err(err).Msg("bind failed")
		os.Exit(1)
	}
	logger.Info().Stringer("addr", local).Msg("echo server listening")

	if err := srv.WaitForStop(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	}
}

func runClient(logger zerolog.Logger) {
	done := make(chan struct{})
	var burst *burstHandler

	factory := func(tx pipe.OutboundTx[transport.Bytes]) (*pipe.Pipeline, error) {
		p := pipe.New()
		p.SetLogger(&logger)
		if err := pipe.AddBack(p, pipe.NewAsyncTransport(tx)); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, framerFactory()); err != nil {
			return nil, err
		}
		if err := pipe.AddBack(p, codec.NewTaggedStringCodec("\r\n")); err != nil {
			return nil, err
		}
		burst = newBurstHandler(p, *optCount, done)
		if err := pipe.AddBack(p, burst); err != nil {
			return nil, err
		}
		if err := pipe.Finalize[transport.Bytes, transport.Message[string]](p); err != nil {
			return nil, err
		}
		return p, nil
	}

	cli := bootstrap.NewUDPClient(bootstrap.Options{Logger: &logger}).Pipeline(factory)
	if _, err := cli.Connect(*optAddr); err != nil {
		logger.Error().Err(err).Msg("connect failed")
		os.Exit(1)
	}

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("timed out waiting for bye echo")
	}
	logger.Info().Int("received", burst.received).Msg("echo client done")
	cli.Stop()
}

func main() {
	flag.Parse()
	logger := newLogger()

	if *optClient {
		runClient(logger)
		return
	}
	runServer(logger)
}
