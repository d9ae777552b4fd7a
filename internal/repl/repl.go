// Package repl is an interactive shell over a runner.Session. Each input line
// is one command: open or close a scope, convert names or shapes, issue a
// raw request, or inspect the frames.
//
// Scopes opened here stay entered across lines until "exit", which makes it
// possible to watch bindings appear and disappear as scopes nest.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/peterh/liner"
	"github.com/specialistvlad/namedim/internal/ctxlog"
	"github.com/specialistvlad/namedim/internal/runner"
)

// LineReader reads one line per prompt. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Option configures a REPL.
type Option func(*REPL)

// WithColor enables ANSI colors in the output.
func WithColor(enabled bool) Option {
	return func(r *REPL) {
		r.color = enabled
	}
}

// REPL reads commands and applies them to a session.
type REPL struct {
	session *runner.Session
	out     io.Writer
	color   bool
	// printed counts the session results already written to out.
	printed int
}

// New creates a REPL writing to out.
func New(session *runner.Session, out io.Writer, opts ...Option) *REPL {
	r := &REPL{session: session, out: out}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads lines until EOF or "quit", then closes every scope still open.
// A failing command is reported and the loop continues.
func (r *REPL) Run(ctx context.Context, in LineReader) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Interactive session started.")
	fmt.Fprintln(r.out, r.bold("namedim interactive session. Type 'help' for commands."))

	for {
		line, err := in.Prompt(r.prompt())
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			break
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		in.AppendHistory(line)

		quit, err := r.Exec(ctx, line)
		if err != nil {
			fmt.Fprintln(r.out, r.red("error: "+err.Error()))
			continue
		}
		if quit {
			break
		}
	}

	logger.Debug("Interactive session finished.", "open_scopes", len(r.session.Open()))
	return r.session.Close()
}

func (r *REPL) prompt() string {
	open := r.session.Open()
	if len(open) == 0 {
		return "namedim> "
	}
	return fmt.Sprintf("namedim(%s)> ", strings.Join(open, "/"))
}

func (r *REPL) bold(s string) string {
	if !r.color {
		return s
	}
	return color.Bold.Sprint(s)
}

func (r *REPL) red(s string) string {
	if !r.color {
		return s
	}
	return color.Red.Sprint(s)
}

func (r *REPL) green(s string) string {
	if !r.color {
		return s
	}
	return color.Green.Sprint(s)
}
