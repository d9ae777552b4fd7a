package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/namedim/internal/ctxlog"
	"github.com/specialistvlad/namedim/internal/repl"
	"github.com/specialistvlad/namedim/internal/runner"
	"golang.org/x/sync/errgroup"
)

// scriptReport pairs a report with the script it came from.
type scriptReport struct {
	Script string         `json:"script"`
	Report *runner.Report `json:"report"`
}

// Run executes every loaded script and writes the reports, in argument
// order, in the configured output format. Scripts run concurrently on
// independent stacks, at most WorkerCount at a time.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if len(a.scripts) == 0 {
		a.logger.Warn("No scripts loaded, nothing to run.")
		return nil
	}

	reports := make([]scriptReport, len(a.scripts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.WorkerCount)
	a.logger.Info("🚀 Starting script runs...", "scripts", len(a.scripts), "workers", a.config.WorkerCount)
	for i, script := range a.scripts {
		path := a.config.ScriptPaths[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			runCtx := ctxlog.With(gctx, "script", path)
			report, err := a.runner.Run(runCtx, script)
			if err != nil {
				return fmt.Errorf("script %s failed: %w", path, err)
			}
			reports[i] = scriptReport{Script: path, Report: report}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("🏁 Script runs finished.")

	if err := render(a.outW, a.config.OutputFormat, a.config.Color, reports); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// RunInteractive starts a REPL reading from in. The session's boundary is
// the configured first available slot.
func (a *App) RunInteractive(ctx context.Context, in repl.LineReader) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	session, err := runner.NewSession(ctx, a.config.FirstAvailable)
	if err != nil {
		return fmt.Errorf("cannot start session: %w", err)
	}
	return repl.New(session, a.outW, repl.WithColor(a.config.Color)).Run(ctx, in)
}
