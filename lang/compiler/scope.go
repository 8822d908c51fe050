package compiler

import "errors"

// A Local is a block-scoped variable tracked at compile time. Its slot
// is the operand stack index, relative to the active frame's base,
// where the value lives at runtime.
type Local struct {
	Name       string
	Slot       byte
	IsInit     bool
	IsCaptured bool
}

// A Scope is the contiguous run of locals declared in one lexical
// block. At block end the locals are popped in reverse insertion order.
type Scope struct {
	locals []Local
}

// Len returns the number of locals declared in the scope.
func (sc *Scope) Len() int { return len(sc.locals) }

// HasCaptured reports whether any local of the scope was captured as an
// upvalue by a nested function.
func (sc *Scope) HasCaptured() bool {
	for _, loc := range sc.locals {
		if loc.IsCaptured {
			return true
		}
	}
	return false
}

func (sc *Scope) has(name string) bool {
	return sc.find(name) != nil
}

// find returns the most recent local declared under name, or nil.
func (sc *Scope) find(name string) *Local {
	for i := len(sc.locals) - 1; i >= 0; i-- {
		if sc.locals[i].Name == name {
			return &sc.locals[i]
		}
	}
	return nil
}

// Scopes tracks the lexical blocks of a single function under
// compilation. The running count mirrors the number of operand stack
// slots the function occupies at the current emission point; it starts
// at 1 because slot 0 always holds the callee itself.
type Scopes struct {
	scopes []Scope
	count  int
}

func newScopes() Scopes {
	return Scopes{count: 1}
}

// Push opens a new lexical block.
func (s *Scopes) Push() {
	s.scopes = append(s.scopes, Scope{})
}

// Pop closes the innermost block and returns it so the caller can emit
// one POP per local that goes out of scope.
func (s *Scopes) Pop() Scope {
	sc := s.scopes[len(s.scopes)-1]
	s.scopes = s.scopes[:len(s.scopes)-1]
	s.count -= sc.Len()
	return sc
}

// IsEmpty reports whether no block is open, i.e. the compiler is at
// file scope.
func (s *Scopes) IsEmpty() bool { return len(s.scopes) == 0 }

// AnyCaptured reports whether any local still in scope was captured as
// an upvalue by a nested function.
func (s *Scopes) AnyCaptured() bool {
	for i := range s.scopes {
		if s.scopes[i].HasCaptured() {
			return true
		}
	}
	return false
}

// CurrentHas reports whether name is already declared in the innermost
// block, used to reject redeclarations.
func (s *Scopes) CurrentHas(name string) bool {
	if len(s.scopes) == 0 {
		return false
	}
	return s.scopes[len(s.scopes)-1].has(name)
}

// DefineUninit appends an uninitialized local to the innermost block,
// reserving its stack slot. The local must be marked initialized with
// MarkInit once its initializer has been compiled.
func (s *Scopes) DefineUninit(name string) error {
	if s.count > 255 {
		return errors.New("Too many local variables in function.")
	}
	sc := &s.scopes[len(s.scopes)-1]
	sc.locals = append(sc.locals, Local{Name: name, Slot: byte(s.count)})
	s.count++
	return nil
}

// MarkInit flips the most recent local declared under name to
// initialized.
func (s *Scopes) MarkInit(name string) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if loc := s.scopes[i].find(name); loc != nil {
			loc.IsInit = true
			return
		}
	}
}

// ResolveLocal returns the local visible under name, walking blocks
// innermost first, or nil if the name does not resolve to a local. It
// fails if the name resolves to a local whose initializer is still
// being compiled.
func (s *Scopes) ResolveLocal(name string) (*Local, error) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if loc := s.scopes[i].find(name); loc != nil {
			if !loc.IsInit {
				return nil, errors.New("Can't read local variable in its own initializer.")
			}
			return loc, nil
		}
	}
	return nil, nil
}
