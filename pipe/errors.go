package pipe

import "errors"

var (
	// ErrNotConstructing is returned by AddBack/Finalize once the pipeline
	// has left the Constructing state.
	ErrNotConstructing = errors.New("pipe: not constructing")

	// ErrNotActive is returned by Read/Write/Close when the pipeline is not
	// in the Active state.
	ErrNotActive = errors.New("pipe: not active")

	// ErrEmptyPipeline is returned by Finalize on a pipeline with no
	// handlers.
	ErrEmptyPipeline = errors.New("pipe: empty pipeline")

	// ErrTypeMismatch is wrapped into a descriptive error whenever AddBack
	// or Finalize detect an Rin/Rout or Win/Wout mismatch between
	// neighboring handlers, or between the chain ends and the bootstrap's
	// head/tail types.
	ErrTypeMismatch = errors.New("pipe: type mismatch")

	// ErrInClosed names the condition of writing to an already-closed
	// outbound channel. No function in this package returns it:
	// OutboundTx.Send on a closed channel panics.
	ErrInClosed = errors.New("pipe: input closed")

	// ErrOutClosed names the condition of an outbound channel that was
	// already closed (the pipeline was torn down). No function in this
	// package returns it.
	ErrOutClosed = errors.New("pipe: output closed")
)
