package dbevolve

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sqldef/dbevolve/database"
)

// ErrDeclined is returned by Evolve when the plan was not confirmed.
var ErrDeclined = errors.New("migration plan declined")

// Confirmer decides whether a plan may be applied.
type Confirmer interface {
	Confirm(ctx context.Context, statements []database.Statement) error
}

// TerminalConfirmer shows the plan and asks for "yes" or "no" until it gets one of them.
// After "yes" it counts down, giving a last chance to abort with Ctrl-C.
type TerminalConfirmer struct {
	in        *bufio.Reader
	out       io.Writer
	Countdown time.Duration
}

func NewTerminalConfirmer(in io.Reader, out io.Writer) *TerminalConfirmer {
	return &TerminalConfirmer{
		in:        bufio.NewReader(in),
		out:       out,
		Countdown: 3 * time.Second,
	}
}

func (c *TerminalConfirmer) Confirm(ctx context.Context, statements []database.Statement) error {
	fmt.Fprintln(c.out, "------------------------------------")
	fmt.Fprintln(c.out, "dbevolve is going to run the following statements")
	fmt.Fprintln(c.out, "------------------------------------")
	for _, stmt := range statements {
		fmt.Fprintf(c.out, "%s;\n", stmt)
	}
	fmt.Fprintln(c.out, "------------------------------------")

	for {
		fmt.Fprint(c.out, "Do you wish to run the above statements? Type 'yes' or 'no': ")
		line, err := c.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "yes":
			return c.countdown(ctx)
		case "no":
			return ErrDeclined
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrDeclined
			}
			return err
		}
	}
}

func (c *TerminalConfirmer) countdown(ctx context.Context) error {
	for remaining := c.Countdown; remaining > 0; remaining -= time.Second {
		fmt.Fprintf(c.out, "Running in %d... (press Ctrl-C to abort)\n", int(remaining/time.Second))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(min(time.Second, remaining)):
		}
	}
	return nil
}
