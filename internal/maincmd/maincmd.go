// Package maincmd implements the lovage command-line tool: a REPL, a
// file runner and a couple of debugging commands over the compilation
// pipeline.
package maincmd

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"
	"github.com/sirupsen/logrus"
)

const binName = "lovage"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<command>] [<path>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<command>] [<path>]
       %[1]s <path>
       %[1]s -h|--help
       %[1]s -v|--version

Bytecode compiler and virtual machine for the %[1]s programming
language. Without arguments, an interactive session is started; with a
single path, the file is compiled and run.

The <command> can be one of:
       run                       Compile and execute a source file.
       repl                      Start an interactive session (the
                                 default with no arguments).
       dasm                      Compile a source file and print the
                                 disassembly of every function.
       tokenize                  Execute the scanner phase only and
                                 print the resulting tokens.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

The LOVAGE_DEBUG and LOVAGE_MAX_STEPS environment variables enable
debug logging of the compiled bytecode and bound the number of executed
instructions, respectively.

More information on the %[1]s repository:
       https://github.com/mna/lovage
`, binName)
)

// config is the runtime configuration read from the environment, not
// from flags: these knobs are debugging aids, not part of the CLI
// contract.
type config struct {
	Debug    bool `env:"DEBUG"`
	MaxSteps int  `env:"MAX_STEPS"`
}

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args  []string
	conf  config
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	commands := buildCmds(c)
	if len(c.args) == 0 {
		// no arguments starts the REPL
		c.cmdFn = commands["repl"]
		return nil
	}

	cmdName := c.args[0]
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		// a bare path argument runs the file
		if len(c.args) != 1 {
			return fmt.Errorf("unknown command: %s", cmdName)
		}
		c.cmdFn = commands["run"]
		return nil
	}
	c.args = c.args[1:]

	if cmdName != "repl" && len(c.args) == 0 {
		return fmt.Errorf("%s: a file must be provided", cmdName)
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	if err := env.Parse(&c.conf, env.Options{Prefix: strings.ToUpper(binName) + "_"}); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid environment: %s\n", err)
		return mainer.InvalidArgs
	}
	logrus.SetOutput(stdio.Stderr)
	if c.conf.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args); err != nil {
		// each command takes care of printing its errors, just return
		// with an error code
		return mainer.Failure
	}
	return mainer.Success
}

// valid commands are the exported methods of Cmd that take a context, a
// mainer.Stdio and a slice of strings as input, and return an error.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}
