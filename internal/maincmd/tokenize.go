package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/lovage/lang/scanner"
)

// Tokenize executes the scanner phase only and prints the resulting
// tokens, one per line.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}

	s := scanner.New(string(b))
	for {
		tok, err := s.Scan()
		if err != nil {
			return printError(stdio, err)
		}
		if tok == nil {
			return nil
		}
		fmt.Fprintf(stdio.Stdout, "%d:%d: %s", tok.Line, tok.Start, tok.Kind)
		if tok.Kind.HasValue() {
			fmt.Fprintf(stdio.Stdout, " %s", tok.Lexeme)
		}
		fmt.Fprintln(stdio.Stdout)
	}
}
