package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/peterh/liner"
	"github.com/specialistvlad/namedim/internal/app"
	"github.com/specialistvlad/namedim/internal/cli"
	"github.com/specialistvlad/namedim/internal/hclscenario"
)

// main is the entrypoint for the namedim application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW, errW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on scripts it cannot load.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	namedim := app.NewApp(outW, errW, appConfig, hclscenario.NewLoader())
	if appConfig.Interactive {
		line := liner.NewLiner()
		defer line.Close()
		line.SetCtrlCAborts(true)
		return namedim.RunInteractive(ctx, line)
	}
	return namedim.Run(ctx)
}
