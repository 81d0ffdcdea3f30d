package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// DefaultPrompt is shown before each interactive read.
const DefaultPrompt = "autorun> "

// Reader feeds lines from an input stream into a CommandBus.
type Reader struct {
	in     io.Reader
	out    io.Writer
	bus    *CommandBus
	prompt string
}

// NewReader creates a reader. The prompt is only written when in is a
// terminal.
func NewReader(in io.Reader, out io.Writer, bus *CommandBus) *Reader {
	r := &Reader{in: in, out: out, bus: bus}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.prompt = DefaultPrompt
	}
	return r
}

// WithPrompt forces a prompt string regardless of terminal detection.
func (r *Reader) WithPrompt(prompt string) *Reader {
	r.prompt = prompt
	return r
}

// Run reads until ctx is cancelled or input ends. End of input queues an
// exit command. The blocking read happens in its own goroutine so that
// cancellation returns immediately; that goroutine is abandoned until the
// next line or EOF arrives.
func (r *Reader) Run(ctx context.Context) error {
	lines := make(chan string)
	done := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		done <- scanner.Err()
	}()

	for {
		r.showPrompt()
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			r.bus.Push(SourceREPL, line)
		case err := <-done:
			r.bus.Push(SourceREPL, "exit")
			if err != nil {
				return fmt.Errorf("reading commands: %w", err)
			}
			return nil
		}
	}
}

func (r *Reader) showPrompt() {
	if r.prompt == "" || r.out == nil {
		return
	}
	_, _ = fmt.Fprint(r.out, r.prompt)
}
