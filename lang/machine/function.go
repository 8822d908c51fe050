package machine

import "github.com/mna/lovage/lang/compiler"

// A Function is the runtime value of a compiled function. It wraps the
// immutable compiler output; the same Funcode may be wrapped by many
// function values and shared by many closures.
type Function struct {
	Funcode *compiler.Funcode
}

var _ Value = (*Function)(nil)

func (fn *Function) String() string { return fn.Funcode.String() }
func (fn *Function) Type() string   { return "function" }

// A Closure pairs a function with the upvalues it captured. It is
// built by the CLOSURE instruction; the length of its upvalue list
// always equals the function's declared upvalue count.
type Closure struct {
	Function *Function
	Upvalues []*upvalue
}

var _ Value = (*Closure)(nil)

func (cl *Closure) String() string { return cl.Function.String() }
func (cl *Closure) Type() string   { return "closure" }

// An upvalue is the handle through which closures read and write a
// captured variable. While the variable's stack slot is live the
// upvalue is open and aliases that slot, so every holder observes
// SETLOCAL mutations and sibling closures capturing the same local
// share one handle. When the slot is about to leave the stack the
// machine closes the upvalue in place and the value moves into the
// handle's own cell.
type upvalue struct {
	th   *Thread // owning thread while open, nil once closed
	slot int     // absolute operand stack index while open
	v    Value   // the closed-over value once closed
}

func (uv *upvalue) get() Value {
	if uv.th != nil {
		return uv.th.stack[uv.slot]
	}
	return uv.v
}

func (uv *upvalue) set(v Value) {
	if uv.th != nil {
		uv.th.stack[uv.slot] = v
		return
	}
	uv.v = v
}
