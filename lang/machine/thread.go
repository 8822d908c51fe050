package machine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/dolthub/swiss"
	"github.com/mna/lovage/lang/compiler"
)

// A Thread executes compiled scripts. The zero value is usable; its
// globals table persists from one RunScript call to the next, which is
// what keeps REPL sessions stateful.
type Thread struct {
	// Name is an optional name that describes the thread, mostly for
	// debugging.
	Name string

	// Stdout is the sink of the print statement. If nil, os.Stdout is
	// used.
	Stdout io.Writer

	// MaxSteps is the maximum number of executed instructions before
	// the run aborts with an error. A value <= 0 means no limit.
	MaxSteps int

	// Inspector, if set, retains every compiled function for
	// disassembly and captures the operand stack before each
	// instruction dispatch.
	Inspector *Inspector

	ctx       context.Context
	cancelled atomic.Bool
	watched   bool

	stack        []Value
	frames       []frame
	openUpvalues []*upvalue // open upvalues, one per captured live slot
	globals      *swiss.Map[string, Value]

	steps, maxSteps uint64
	stdout          io.Writer
}

// A frame records one function invocation: the closure being executed,
// the instruction pointer into its chunk, and the operand stack index
// where its slot 0 (the callee itself) resides.
type frame struct {
	closure *Closure
	ip      int
	base    int
}

// Interpret compiles and runs a source text on a fresh thread, writing
// print output to stdout. It is the one-shot form of RunScript, with
// no thread configuration.
func Interpret(source string) error {
	var th Thread
	return th.RunScript(context.Background(), source)
}

// RunScript compiles and executes a source text on the thread. The
// returned error is a single-line compile or runtime message.
func (th *Thread) RunScript(ctx context.Context, source string) error {
	fn, err := compiler.Compile(source)
	if err != nil {
		return err
	}
	th.init(ctx)
	if th.Inspector != nil {
		th.Inspector.CaptureProgram(fn)
	}

	// the script behaves as a zero-upvalue closure called with no
	// arguments: it occupies stack slot 0 of its own frame
	script := &Closure{Function: &Function{Funcode: fn}}
	th.stack = append(th.stack[:0], script)
	th.frames = append(th.frames[:0], frame{closure: script})
	th.openUpvalues = th.openUpvalues[:0]
	return th.run()
}

// Global returns the current value of a global variable, mainly for
// tests and embedding applications.
func (th *Thread) Global(name string) (Value, bool) {
	if th.globals == nil {
		return nil, false
	}
	return th.globals.Get(name)
}

func (th *Thread) init(ctx context.Context) {
	if th.globals == nil {
		th.globals = swiss.NewMap[string, Value](8)
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
	th.steps = 0
	if th.MaxSteps <= 0 {
		th.maxSteps-- // (MaxUint64)
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
	th.ctx = ctx
	if !th.watched && ctx != nil && ctx.Done() != nil {
		th.watched = true
		go func() {
			<-ctx.Done()
			th.cancelled.Store(true)
		}()
	}
}

func (th *Thread) cancelErr() error {
	return fmt.Errorf("thread cancelled: %s", context.Cause(th.ctx))
}
