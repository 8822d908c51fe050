package machine

import (
	"strings"

	"github.com/mna/lovage/lang/compiler"
)

// An Inspector observes a thread for tests and debugging tools. It
// retains every compiled function for disassembly and captures a copy
// of the operand stack just before each instruction dispatch.
type Inspector struct {
	functions []*compiler.Funcode
	snapshots [][]Value
}

// CaptureProgram walks the compiled program and retains every function
// it contains, innermost first and the script itself last — the order
// in which the compiler finished them.
func (insp *Inspector) CaptureProgram(fn *compiler.Funcode) {
	for _, c := range fn.Chunk.Constants {
		if sub, ok := c.(*compiler.Funcode); ok {
			insp.CaptureProgram(sub)
		}
	}
	insp.functions = append(insp.functions, fn)
}

func (insp *Inspector) captureStack(stack []Value) {
	insp.snapshots = append(insp.snapshots, append([]Value(nil), stack...))
}

// DebugBytecode renders the disassembly of every captured function.
func (insp *Inspector) DebugBytecode() string {
	var buf strings.Builder
	for _, fn := range insp.functions {
		buf.WriteString(compiler.Dasm(fn))
	}
	return buf.String()
}

// DebugStack renders the captured stack snapshots, one bracketed line
// per executed instruction.
func (insp *Inspector) DebugStack() string {
	var buf strings.Builder
	buf.WriteString("== VM Stack Snapshot ==\n")
	for _, snap := range insp.snapshots {
		buf.WriteByte('[')
		for i, v := range snap {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(v.String())
		}
		buf.WriteString("]\n")
	}
	return buf.String()
}
