package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mna/mainer"

	"github.com/mna/lovage/lang/machine"
)

// Repl starts an interactive session. Each line is compiled and run as
// a script on a single thread, so globals persist for the whole
// session; errors are printed to the error sink and the session
// continues.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, _ []string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "> ",
		Stdin:  io.NopCloser(stdio.Stdin),
		Stdout: stdio.Stdout,
		Stderr: stdio.Stderr,
	})
	if err != nil {
		return printError(stdio, err)
	}
	defer rl.Close()

	th := &machine.Thread{
		Name:     "repl",
		Stdout:   stdio.Stdout,
		MaxSteps: c.conf.MaxSteps,
	}
	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			// io.EOF ends the session
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := th.RunScript(ctx, line); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
		}
	}
	return nil
}
