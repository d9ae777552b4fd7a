package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/namedim/internal/app"
	"github.com/specialistvlad/namedim/internal/dimstack"
	"github.com/specialistvlad/namedim/internal/fsutil"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// ScriptExtension is the file extension of allocation scripts.
const ScriptExtension = ".hcl"

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("namedim", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
namedim - Named dimension allocation over a stack of scoped frames.

Usage:
  namedim [options] [SCRIPT_PATH...]
  namedim -repl [options]

Arguments:
  SCRIPT_PATH
    Path to a .hcl script or a directory containing .hcl scripts.
    Several paths may be given; each script runs on its own stack.

Options:
`)
		flagSet.PrintDefaults()
	}

	var scripts []string
	collect := func(v string) error {
		scripts = append(scripts, v)
		return nil
	}
	flagSet.Func("script", "Path to a script file or directory. May be repeated.", collect)
	flagSet.Func("s", "Path to a script file or directory (shorthand).", collect)
	replFlag := flagSet.Bool("repl", false, "Start an interactive session instead of running scripts.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	outputFlag := flagSet.String("output", app.OutputText, "Report format. Options: 'text', 'json' or 'msgpack'.")
	colorFlag := flagSet.Bool("color", false, "Colorize text reports and the interactive session.")
	workersFlag := flagSet.Int("workers", 4, "Number of scripts run concurrently.")
	firstFlag := flagSet.Int("first-available", 0, "Override the first available slot (a negative number above -25). 0 keeps the script's own.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	scripts = append(scripts, flagSet.Args()...)
	if len(scripts) == 0 && !*replFlag {
		slog.Debug("No script path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	paths, err := fsutil.ExpandPaths(scripts, ScriptExtension)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Script paths determined.", "paths", paths)

	config, err := app.NewConfig(app.Config{
		ScriptPaths:    paths,
		Interactive:    *replFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		OutputFormat:   strings.ToLower(*outputFlag),
		Color:          *colorFlag,
		WorkerCount:    *workersFlag,
		FirstAvailable: dimstack.Slot(*firstFlag),
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
