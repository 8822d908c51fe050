package maincmd

import (
	"context"
	"os"

	"github.com/mna/mainer"
	"github.com/sirupsen/logrus"

	"github.com/mna/lovage/lang/machine"
)

// Run compiles and executes the source file, printing any compile or
// runtime error to the error sink.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}

	th := &machine.Thread{
		Name:     args[0],
		Stdout:   stdio.Stdout,
		MaxSteps: c.conf.MaxSteps,
	}
	if c.conf.Debug {
		th.Inspector = &machine.Inspector{}
	}
	runErr := th.RunScript(ctx, string(b))
	if th.Inspector != nil {
		logrus.Debugln(th.Inspector.DebugBytecode())
	}
	return printError(stdio, runErr)
}
