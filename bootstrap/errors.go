package bootstrap

import "errors"

var (
	// ErrNoPipelineFactory is returned by Bind/Connect when Pipeline was
	// never called.
	ErrNoPipelineFactory = errors.New("bootstrap: no pipeline factory set")

	// ErrAlreadyBound is returned by a second Bind/Connect call on the same
	// bootstrap value.
	ErrAlreadyBound = errors.New("bootstrap: already bound")

	// ErrNotBound is returned by Stop/GracefulStop/WaitForStop before
	// Bind/Connect has succeeded.
	ErrNotBound = errors.New("bootstrap: not bound")
)
