// File: internal/session/confirm.go
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmer is the user-confirmation gate. The wait is unbounded by design;
// it must still be interruptible by session cancellation, which the
// controller guarantees by racing Confirm against the abort signal.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// IOConfirmer asks a yes/no question over the given reader/writer pair,
// normally stdin/stdout.
type IOConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// Confirm implements Confirmer. It re-asks on anything that is not a clear
// yes or no. The read happens in a goroutine so cancellation is observed even
// while blocked on input.
func (c *IOConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	type answer struct {
		ok  bool
		err error
	}
	result := make(chan answer, 1)

	go func() {
		scanner := bufio.NewScanner(c.In)
		for {
			fmt.Fprintf(c.Out, "%s [y/n]: ", prompt)
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					result <- answer{err: err}
				} else {
					result <- answer{err: io.EOF}
				}
				return
			}
			switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
			case "y", "yes":
				result <- answer{ok: true}
				return
			case "n", "no":
				result <- answer{ok: false}
				return
			}
			fmt.Fprintln(c.Out, "Please enter 'y' or 'n'")
		}
	}()

	select {
	case a := <-result:
		return a.ok, a.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
