// Package runner executes allocation scripts against a fresh dimension stack.
//
// Scope steps open the matching controller from package scope, run their
// nested steps and close it again. Conversion and request steps call the
// allocator in whatever scope is current and append one Result each.
package runner

import (
	"context"
	"fmt"

	"github.com/specialistvlad/namedim/internal/ctxlog"
	"github.com/specialistvlad/namedim/internal/dimstack"
	"github.com/specialistvlad/namedim/internal/scenario"
)

// NoIteration is the Result.Iteration of steps outside any loop.
const NoIteration = -1

// Result is the outcome of one conversion or request step.
type Result struct {
	// Path locates the step: enclosing scope names joined by "/", with
	// "[i]" for loop steps and "#r" for repeated runs.
	Path string `json:"path"`
	Op   string `json:"op"`
	// Iteration is the index of the innermost enclosing loop step.
	Iteration int                `json:"iteration"`
	Bindings  []dimstack.Binding `json:"bindings"`
}

// Report is the outcome of a whole script.
type Report struct {
	FirstAvailable dimstack.Slot `json:"first_available"`
	Results        []Result      `json:"results"`
	// Global holds the bindings left in the global frame after the script.
	Global []dimstack.Binding `json:"global"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithFirstAvailableSlot overrides the boundary declared by the script.
func WithFirstAvailableSlot(slot dimstack.Slot) Option {
	return func(r *Runner) {
		r.firstAvailable = slot
	}
}

// Runner runs scripts. It holds no per-run state and can be reused.
type Runner struct {
	firstAvailable dimstack.Slot
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes script on a new stack. The first failing step aborts the run;
// every scope entered up to that point is exited before Run returns.
func (r *Runner) Run(ctx context.Context, script *scenario.Script) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("▶️ Running allocation script.", "top_level_steps", len(script.Steps))

	boundary := script.FirstAvailable
	if r.firstAvailable != dimstack.NoSlot {
		boundary = r.firstAvailable
	}
	s, err := NewSession(ctx, boundary)
	if err != nil {
		return nil, fmt.Errorf("cannot start script: %w", err)
	}
	if err := s.steps(ctx, script.Steps, ""); err != nil {
		return nil, err
	}

	report := &Report{
		FirstAvailable: boundary,
		Results:        s.Results(),
		Global:         s.Stack().Global().Bindings(),
	}
	logger.Info("✅ Allocation script finished.", "results", len(report.Results), "global_bindings", len(report.Global))
	return report, nil
}
