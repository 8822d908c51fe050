// Package compiler lowers lovage source text directly to bytecode in a
// single pass: a Pratt parser drives a lexical scope table and emits
// instructions as it consumes tokens, without building a syntax tree.
// The compiled form is executed by the machine package.
package compiler

import "errors"

// An Upvalue descriptor records how a closure captures a variable: from
// the enclosing function's stack slots (IsLocal) or by inheriting the
// enclosing closure's upvalue at Index. The descriptors are emitted as
// two-byte pairs after a CLOSURE instruction and consumed by the
// machine when it builds the closure.
type Upvalue struct {
	IsLocal bool
	Index   byte
}

// A funcFrame is the per-function emitter state. The parser keeps a
// stack of frames, innermost last; frames are pushed and popped as
// function declarations nest.
type funcFrame struct {
	fn       *Funcode
	scopes   Scopes
	upvalues []Upvalue
}

func (p *parser) current() *funcFrame {
	return p.frames[len(p.frames)-1]
}

func (p *parser) chunk() *Chunk {
	return &p.current().fn.Chunk
}

// beginFunction pushes a fresh frame for the function under name; the
// empty name denotes the top-level script.
func (p *parser) beginFunction(name string) {
	p.frames = append(p.frames, &funcFrame{
		fn:     &Funcode{Name: name},
		scopes: newScopes(),
	})
}

// endFunction finalizes the innermost function with the implicit NIL
// RETURN tail, pops its frame and returns the finished function along
// with its upvalue descriptors for the enclosing CLOSURE emission.
func (p *parser) endFunction() (*Funcode, []Upvalue) {
	fr := p.current()
	p.frames = p.frames[:len(p.frames)-1]
	fr.fn.Chunk.EmitOp(NIL, p.prevLine)
	fr.fn.Chunk.EmitOp(RETURN, p.prevLine)
	fr.fn.NumUpvalues = len(fr.upvalues)
	// the body scope is never popped by endScope, so captured locals
	// still in scope are accounted for here; their upvalues close when
	// the frame returns
	if fr.scopes.AnyCaptured() {
		fr.fn.HasCaptures = true
	}
	return fr.fn, fr.upvalues
}

// resolveUpvalue resolves name as an upvalue of the function at frame
// index i, searching the enclosing function's locals first and then
// recursing outward. It returns the descriptor index in that function's
// upvalue list, or -1 when the name does not resolve in any enclosing
// function and must be treated as a global.
func (p *parser) resolveUpvalue(i int, name string) (int, error) {
	if i == 0 {
		return -1, nil
	}

	enclosing := p.frames[i-1]
	loc, err := enclosing.scopes.ResolveLocal(name)
	if err != nil {
		return -1, err
	}
	if loc != nil {
		loc.IsCaptured = true
		return p.addUpvalue(p.frames[i], Upvalue{IsLocal: true, Index: loc.Slot})
	}

	ix, err := p.resolveUpvalue(i-1, name)
	if err != nil || ix < 0 {
		return ix, err
	}
	return p.addUpvalue(p.frames[i], Upvalue{IsLocal: false, Index: byte(ix)})
}

// addUpvalue returns the index of the descriptor in the frame's upvalue
// list, reusing an existing identical descriptor.
func (p *parser) addUpvalue(fr *funcFrame, up Upvalue) (int, error) {
	for i, existing := range fr.upvalues {
		if existing == up {
			return i, nil
		}
	}
	if len(fr.upvalues) >= 255 {
		return -1, errors.New("Too many closure variables in function.")
	}
	fr.upvalues = append(fr.upvalues, up)
	return len(fr.upvalues) - 1, nil
}
