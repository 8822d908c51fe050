package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/lovage/lang/compiler"
	"github.com/mna/lovage/lang/machine"
)

// Dasm compiles the source file without running it and prints the
// disassembly of every function, innermost first.
func (c *Cmd) Dasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}

	fn, err := compiler.Compile(string(b))
	if err != nil {
		return printError(stdio, err)
	}
	var insp machine.Inspector
	insp.CaptureProgram(fn)
	fmt.Fprint(stdio.Stdout, insp.DebugBytecode())
	return nil
}
