package compiler

// A Funcode is the compiled form of a single function: its bytecode
// chunk, arity and upvalue count. The top-level script is itself a
// Funcode with an empty name. A Funcode is immutable once the compiler
// finishes it and is shared by reference as a chunk constant of its
// enclosing function.
type Funcode struct {
	Name        string // empty for the top-level script
	Arity       int
	NumUpvalues int
	Chunk       Chunk

	// HasCaptures records whether any of the function's own locals is
	// captured as an upvalue by a nested function. When false, no POP
	// or RETURN executed in the function can ever close an upvalue, so
	// the machine skips the close pass for its frames.
	HasCaptures bool
}

// IsScript reports whether fn is a top-level script rather than a named
// function.
func (fn *Funcode) IsScript() bool { return fn.Name == "" }

// String returns the display name of the function, "<fun NAME>" or
// "<script>".
func (fn *Funcode) String() string {
	if fn.IsScript() {
		return "<script>"
	}
	return "<fun " + fn.Name + ">"
}
