// Package pipe provides the typed handler pipeline: an ordered chain of
// handlers composed at construction time, with the adjacency of neighboring
// handlers' types checked by AddBack and Finalize (at run time, through
// reflect), dispatched at runtime through a type-erased backbone.
package pipe

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/netframe/netframe/handler"
	"github.com/rs/zerolog"
)

// State is the pipeline's lifecycle state.
type State int32

const (
	// Constructing accepts AddBack calls.
	Constructing State = iota
	// Finalized has a locked handler chain, awaiting TransportActive().
	Finalized
	// Active accepts Read/Write/Close.
	Active
	// Inactive is a pipeline that has seen TransportInactive(); it is done.
	Inactive
)

func (s State) String() string {
	switch s {
	case Constructing:
		return "constructing"
	case Finalized:
		return "finalized"
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Pipeline is the ordered, type-checked composition of handlers described
// by spec component C5. It is deliberately not a Go generic type: its
// backbone is type-erased (§9 design notes), and the handler's own Rin/
// Rout/Win/Wout types are only visible at the two places an outside caller
// actually needs them -- AddBack and the generic Read/Write functions.
type Pipeline struct {
	*zerolog.Logger

	mu       sync.Mutex
	state    atomic.Int32
	contexts []*context
}

// New returns a new, empty Pipeline in the Constructing state.
func New() *Pipeline {
	l := zerolog.Nop()
	return &Pipeline{Logger: &l}
}

// SetLogger overrides the pipeline's logger. Must be called before
// Finalize; a nil logger installs a no-op logger, matching the teacher
// idiom of never leaving a handler with a nil *zerolog.Logger.
func (p *Pipeline) SetLogger(l *zerolog.Logger) {
	if l == nil {
		nop := zerolog.Nop()
		l = &nop
	}
	p.Logger = l
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Len returns the number of handlers in the pipeline.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.contexts)
}

// Names returns the handler names in add-back order, for diagnostics.
func (p *Pipeline) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.contexts))
	for i, c := range p.contexts {
		names[i] = c.name
	}
	return names
}

// AddBack appends a handler to the pipeline. Rin must equal the Rout of the
// previously added handler (skipped on the first call), and Wout must equal
// the Win of the previously added handler. AddBack is only legal while the
// pipeline is Constructing.
func AddBack[Rin, Rout, Win, Wout any](p *Pipeline, h handler.Handler[Rin, Rout, Win, Wout]) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if State(p.state.Load()) != Constructing {
		return ErrNotConstructing
	}

	rin, rout := typeOf[Rin](), typeOf[Rout]()
	win, wout := typeOf[Win](), typeOf[Wout]()
	name := h.Name()

	if n := len(p.contexts); n > 0 {
		prev := p.contexts[n-1]
		if prev.routType != rin {
			return fmt.Errorf("%w: %s.Rin=%s does not match %s.Rout=%s",
				ErrTypeMismatch, name, rin, prev.name, prev.routType)
		}
		if prev.winType != wout {
			return fmt.Errorf("%w: %s.Wout=%s does not match %s.Win=%s",
				ErrTypeMismatch, name, wout, prev.name, prev.winType)
		}
	}

	c := &context{
		idx:      len(p.contexts),
		name:     name,
		rinType:  rin,
		routType: rout,
		winType:  win,
		woutType: wout,
		inbound:  inboundAdapter[Rin, Rout]{h: h, name: name},
		outbound: outboundAdapter[Win, Wout]{h: h, name: name},
	}
	p.contexts = append(p.contexts, c)
	return nil
}

// Finalize transitions the pipeline from Constructing to Finalized. I is
// the type the bootstrap will feed to Read (the first-added handler's
// Rin). W is W_app, the type an external Write call feeds in (the
// last-added handler's Win -- spec §4.3: "write(msg: W_app) where W_app is
// the first-outbound-handler's Win", and the last-added handler is the
// first to see an outbound write, since outbound cascades tail to head).
// Finalize fixes each context's forward and backward neighbor index; no
// further AddBack calls are accepted.
func Finalize[I, W any](p *Pipeline) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if State(p.state.Load()) != Constructing {
		return ErrNotConstructing
	}
	if len(p.contexts) == 0 {
		return ErrEmptyPipeline
	}

	wantI, wantW := typeOf[I](), typeOf[W]()
	first, last := p.contexts[0], p.contexts[len(p.contexts)-1]
	if first.rinType != wantI {
		return fmt.Errorf("%w: first handler %s.Rin=%s does not match pipeline input %s",
			ErrTypeMismatch, first.name, first.rinType, wantI)
	}
	if last.winType != wantW {
		return fmt.Errorf("%w: last handler %s.Win=%s does not match pipeline write type %s",
			ErrTypeMismatch, last.name, last.winType, wantW)
	}

	for i, c := range p.contexts {
		if i+1 < len(p.contexts) {
			c.inboundNext = i + 1
		} else {
			c.inboundNext = -1
		}
		if i-1 >= 0 {
			c.outboundPrev = i - 1
		} else {
			c.outboundPrev = -1
		}
	}

	p.state.Store(int32(Finalized))
	return nil
}

// TransportActive fires once, head to tail, when the bootstrap's loop
// starts. Only legal once Finalized; transitions the pipeline to Active.
func (p *Pipeline) TransportActive() {
	if !p.state.CompareAndSwap(int32(Finalized), int32(Active)) {
		return
	}
	if len(p.contexts) == 0 {
		return
	}
	c := p.contexts[0]
	c.inbound.handleActive(p, 0)
}

// TransportInactive fires once, head to tail, when the bootstrap's loop is
// tearing down, then runs each handler's optional io.Closer in reverse of
// add order (the "destructor" order required by spec §8).
func (p *Pipeline) TransportInactive() {
	if !p.state.CompareAndSwap(int32(Active), int32(Inactive)) {
		// allow calling from Finalized too (never went active)
		if !p.state.CompareAndSwap(int32(Finalized), int32(Inactive)) {
			return
		}
	}
	if len(p.contexts) > 0 {
		p.contexts[0].inbound.handleInactive(p, 0)
	}
	for i := len(p.contexts) - 1; i >= 0; i-- {
		if closer, ok := p.contexts[i].underlying().(io.Closer); ok {
			_ = closer.Close()
		}
	}
}

// Read feeds one inbound value of type I into the head of the pipeline.
func Read[I any](p *Pipeline, msg I) error {
	if State(p.state.Load()) != Active {
		return ErrNotActive
	}
	if len(p.contexts) == 0 {
		return ErrEmptyPipeline
	}
	p.contexts[0].inbound.handleRead(p, 0, msg)
	return nil
}

// ReadError propagates a read-side error head to tail (spec §7: protocol
// and I/O errors both surface this way; the loop terminates only for I/O
// errors, a decision left to the bootstrap, not the pipeline).
func (p *Pipeline) ReadError(err error) {
	if State(p.state.Load()) != Active || len(p.contexts) == 0 {
		return
	}
	p.contexts[0].inbound.handleReadError(p, 0, err)
}

// ReadEOF signals end of input head to tail.
func (p *Pipeline) ReadEOF() {
	if State(p.state.Load()) != Active || len(p.contexts) == 0 {
		return
	}
	p.contexts[0].inbound.handleReadEOF(p, 0)
}

// HandleTimeout fires wake-ups head to tail for handlers whose deadline, as
// last reported via PollTimeout, has elapsed.
func (p *Pipeline) HandleTimeout(now time.Time) {
	if State(p.state.Load()) != Active || len(p.contexts) == 0 {
		return
	}
	p.contexts[0].inbound.handleTimeout(p, 0, now)
}

// PollTimeout narrows eto to the earliest wakeup requested by any handler:
// the timer aggregation invariant of spec §8 (minimum across all stages).
func (p *Pipeline) PollTimeout(eto *time.Time) {
	if len(p.contexts) == 0 {
		return
	}
	p.contexts[0].inbound.pollTimeout(p, 0, eto)
}

// Write feeds msg of type W into the outbound half of the LAST handler
// added (spec: "W_app is the first-outbound-handler's Win"), cascading
// backward through the chain towards the transport.
func Write[W any](p *Pipeline, msg W) error {
	if State(p.state.Load()) != Active {
		return ErrNotActive
	}
	n := len(p.contexts)
	if n == 0 {
		return ErrEmptyPipeline
	}
	last := p.contexts[n-1]
	if last.winType != typeOf[W]() {
		return fmt.Errorf("%w: Write got %s, last handler %s.Win=%s",
			ErrTypeMismatch, typeOf[W](), last.name, last.winType)
	}
	last.outbound.handleWrite(p, n-1, msg)
	return nil
}

// WriteError propagates a write-side error tail to head.
func (p *Pipeline) WriteError(err error) {
	n := len(p.contexts)
	if State(p.state.Load()) != Active || n == 0 {
		return
	}
	p.contexts[n-1].outbound.handleWriteError(p, n-1, err)
}

// Close requests pipeline shutdown, tail to head. A Close injected after
// pending writes processes those writes first: Close is just another
// outbound event dispatched through the same ordered call path as Write.
func (p *Pipeline) Close() error {
	n := len(p.contexts)
	if State(p.state.Load()) != Active || n == 0 {
		return ErrNotActive
	}
	p.contexts[n-1].outbound.handleClose(p, n-1)
	return nil
}

