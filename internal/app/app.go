package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/namedim/internal/ctxlog"
	"github.com/specialistvlad/namedim/internal/runner"
	"github.com/specialistvlad/namedim/internal/scenario"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	scripts []*scenario.Script
	runner  *runner.Runner
}

// NewApp returns a fully initialized App. Reports are written to outW and
// logs to logW. A script that cannot be loaded is a fatal startup error and
// panics.
func NewApp(outW, logW io.Writer, cfg *Config, loader scenario.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	scripts := make([]*scenario.Script, 0, len(cfg.ScriptPaths))
	for _, path := range cfg.ScriptPaths {
		script, err := loader.Load(ctx, path)
		if err != nil {
			panic(fmt.Errorf("failed to load script: %w", err))
		}
		scripts = append(scripts, script)
	}
	logger.Debug("Scripts loaded and translated into unified model.", "count", len(scripts))

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		scripts: scripts,
		runner:  runner.New(runner.WithFirstAvailableSlot(cfg.FirstAvailable)),
	}
}

// Scripts returns the loaded scripts. This is primarily for testing.
func (a *App) Scripts() []*scenario.Script {
	return a.scripts
}
