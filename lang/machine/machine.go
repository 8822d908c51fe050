// Package machine implements the register-less virtual machine that
// executes compiled lovage bytecode: a single operand stack shared by
// all call frames, a globals table, and closures whose upvalues close
// over captured variables. It also provides the runtime representation
// of the language's values.
package machine

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mna/lovage/lang/compiler"
)

// maxFrames bounds the depth of the call frame stack.
const maxFrames = 255

// run is the dispatch loop. It executes the active frame's bytecode
// instruction by instruction until the script's RETURN, aborting on the
// first runtime error.
func (th *Thread) run() error {
	for {
		if th.cancelled.Load() {
			return th.cancelErr()
		}
		th.steps++
		if th.steps > th.maxSteps {
			return errors.New("Maximum execution steps exceeded.")
		}

		if th.Inspector != nil {
			th.Inspector.captureStack(th.stack)
		}

		fr := &th.frames[len(th.frames)-1]
		fcode := fr.closure.Function.Funcode
		code := fcode.Chunk.Code

		op := compiler.Opcode(code[fr.ip])
		fr.ip++

		switch op {
		case compiler.CONSTANT:
			ix := code[fr.ip]
			fr.ip++
			th.push(constantValue(fcode.Chunk.Constants[ix]))

		case compiler.NIL:
			th.push(Nil)

		case compiler.TRUE:
			th.push(True)

		case compiler.FALSE:
			th.push(False)

		case compiler.POP:
			// a POP ending a scope may discard a captured local; close
			// its upvalue so the variable outlives the slot
			if fcode.HasCaptures && len(th.openUpvalues) > 0 {
				th.closeUpvalues(len(th.stack) - 1)
			}
			th.pop()

		case compiler.GETLOCAL:
			slot := int(code[fr.ip])
			fr.ip++
			th.push(th.stack[fr.base+slot])

		case compiler.SETLOCAL:
			slot := int(code[fr.ip])
			fr.ip++
			th.stack[fr.base+slot] = th.peek(0)

		case compiler.GETGLOBAL:
			ix := code[fr.ip]
			fr.ip++
			name := fcode.Chunk.Constants[ix].(string) // ok to panic otherwise, compiler bug
			v, ok := th.globals.Get(name)
			if !ok {
				return errors.New("Undefined variable.")
			}
			th.push(v)

		case compiler.DEFINEGLOBAL:
			ix := code[fr.ip]
			fr.ip++
			name := fcode.Chunk.Constants[ix].(string)
			th.globals.Put(name, th.pop())

		case compiler.SETGLOBAL:
			ix := code[fr.ip]
			fr.ip++
			name := fcode.Chunk.Constants[ix].(string)
			// check-then-insert so that a failing assignment does not
			// create the binding
			if !th.globals.Has(name) {
				return errors.New("Undefined variable.")
			}
			th.globals.Put(name, th.peek(0))

		case compiler.GETUPVALUE:
			ix := code[fr.ip]
			fr.ip++
			th.push(fr.closure.Upvalues[ix].get())

		case compiler.SETUPVALUE:
			ix := code[fr.ip]
			fr.ip++
			fr.closure.Upvalues[ix].set(th.peek(0))

		case compiler.EQUAL:
			y := th.pop()
			x := th.pop()
			th.push(Bool(Equal(x, y)))

		case compiler.GREATER:
			x, y, err := th.popNumericPair()
			if err != nil {
				return err
			}
			th.push(Bool(x > y))

		case compiler.LESS:
			x, y, err := th.popNumericPair()
			if err != nil {
				return err
			}
			th.push(Bool(x < y))

		case compiler.ADD:
			y := th.pop()
			x := th.pop()
			if xs, ok := AsString(x); ok {
				if ys, ok := AsString(y); ok {
					th.push(String(xs + ys))
					break
				}
			}
			xn, okx := AsNumber(x)
			yn, oky := AsNumber(y)
			if !okx || !oky {
				return errors.New("Operands must be two numbers or two strings.")
			}
			th.push(Number(xn + yn))

		case compiler.SUBTRACT:
			x, y, err := th.popNumericPair()
			if err != nil {
				return err
			}
			th.push(x - y)

		case compiler.MULTIPLY:
			x, y, err := th.popNumericPair()
			if err != nil {
				return err
			}
			th.push(x * y)

		case compiler.DIVIDE:
			x, y, err := th.popNumericPair()
			if err != nil {
				return err
			}
			th.push(x / y)

		case compiler.NOT:
			th.push(!Truth(th.pop()))

		case compiler.NEGATE:
			n, ok := AsNumber(th.pop())
			if !ok {
				return errors.New("Operand must be a number.")
			}
			th.push(Number(-n))

		case compiler.PRINT:
			fmt.Fprintln(th.stdout, th.pop())

		case compiler.JUMP:
			offset := int(binary.LittleEndian.Uint16(code[fr.ip:]))
			fr.ip += 2 + offset

		case compiler.JUMPIFFALSE:
			offset := int(binary.LittleEndian.Uint16(code[fr.ip:]))
			fr.ip += 2
			if !Truth(th.peek(0)) {
				fr.ip += offset
			}

		case compiler.LOOP:
			offset := int(binary.LittleEndian.Uint16(code[fr.ip:]))
			fr.ip += 2 - offset

		case compiler.CALL:
			argc := int(code[fr.ip])
			fr.ip++
			if err := th.call(th.peek(argc), argc); err != nil {
				return err
			}

		case compiler.CLOSURE:
			ix := code[fr.ip]
			fr.ip++
			fn := fcode.Chunk.Constants[ix].(*compiler.Funcode) // ok to panic otherwise, compiler bug
			cl := &Closure{Function: &Function{Funcode: fn}}
			if n := fn.NumUpvalues; n > 0 {
				cl.Upvalues = make([]*upvalue, n)
				for i := 0; i < n; i++ {
					isLocal, uix := code[fr.ip], int(code[fr.ip+1])
					fr.ip += 2
					if isLocal == 1 {
						cl.Upvalues[i] = th.captureUpvalue(fr.base + uix)
					} else {
						cl.Upvalues[i] = fr.closure.Upvalues[uix]
					}
				}
			}
			th.push(cl)

		case compiler.RETURN:
			result := th.pop()
			base := fr.base
			if fcode.HasCaptures {
				th.closeUpvalues(base)
			}
			th.frames = th.frames[:len(th.frames)-1]
			if len(th.frames) == 0 {
				// pop the script sentinel and halt
				th.stack = th.stack[:0]
				return nil
			}
			th.stack = th.stack[:base]
			th.push(result)

		default:
			panic(fmt.Sprintf("unimplemented: %s", op))
		}
	}
}

// call pushes a frame for callee so that slot 0 is the callee itself
// and slots 1..arity are the arguments already on the stack.
func (th *Thread) call(callee Value, argc int) error {
	var cl *Closure
	switch callee := callee.(type) {
	case *Closure:
		cl = callee
	case *Function:
		cl = &Closure{Function: callee}
	default:
		return errors.New("Can only call functions and classes.")
	}

	if arity := cl.Function.Funcode.Arity; argc != arity {
		return fmt.Errorf("Expected %d arguments but got %d.", arity, argc)
	}
	if len(th.frames) >= maxFrames {
		return errors.New("stack overflow.")
	}
	th.frames = append(th.frames, frame{closure: cl, base: len(th.stack) - argc - 1})
	return nil
}

// captureUpvalue returns the open upvalue aliasing the stack slot,
// creating one if the slot is not captured yet, so that every closure
// capturing the same variable shares a single handle.
func (th *Thread) captureUpvalue(slot int) *upvalue {
	for _, uv := range th.openUpvalues {
		if uv.slot == slot {
			return uv
		}
	}
	uv := &upvalue{th: th, slot: slot}
	th.openUpvalues = append(th.openUpvalues, uv)
	return uv
}

// closeUpvalues closes every open upvalue whose slot is at or above
// from: the value moves off the stack into the upvalue's own cell,
// where holders keep reading and writing it.
func (th *Thread) closeUpvalues(from int) {
	kept := th.openUpvalues[:0]
	for _, uv := range th.openUpvalues {
		if uv.slot >= from {
			uv.v = th.stack[uv.slot]
			uv.th = nil
			continue
		}
		kept = append(kept, uv)
	}
	th.openUpvalues = kept
}

func (th *Thread) push(v Value) {
	th.stack = append(th.stack, v)
}

func (th *Thread) pop() Value {
	v := th.stack[len(th.stack)-1]
	th.stack = th.stack[:len(th.stack)-1]
	return v
}

func (th *Thread) peek(distance int) Value {
	return th.stack[len(th.stack)-1-distance]
}

// popNumericPair pops the two operands of a numeric binary operator and
// returns them in evaluation order.
func (th *Thread) popNumericPair() (Number, Number, error) {
	y, oky := AsNumber(th.pop())
	x, okx := AsNumber(th.pop())
	if !okx || !oky {
		return 0, 0, errors.New("Operand must be a number.")
	}
	return Number(x), Number(y), nil
}

// constantValue converts a compile-time constant to its runtime value.
func constantValue(c compiler.Constant) Value {
	switch c := c.(type) {
	case float64:
		return Number(c)
	case string:
		return String(c)
	case *compiler.Funcode:
		return &Function{Funcode: c}
	}
	panic(fmt.Sprintf("unexpected constant %T: %[1]v", c))
}
