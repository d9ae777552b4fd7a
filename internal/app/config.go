package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/namedim/internal/dimstack"
)

// Output formats for the run report.
const (
	OutputText    = "text"
	OutputJSON    = "json"
	OutputMsgpack = "msgpack"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScriptPaths []string // hcl scripts, run independently
	Interactive bool

	LogFormat    string
	LogLevel     string
	OutputFormat string
	Color        bool
	WorkerCount  int
	// FirstAvailable overrides the scripts' boundary unless it is dimstack.NoSlot.
	FirstAvailable dimstack.Slot
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ScriptPaths) == 0 && !cfg.Interactive {
		return nil, errors.New("ScriptPaths is a required configuration field and cannot be empty")
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = OutputText
	}
	switch cfg.OutputFormat {
	case OutputText, OutputJSON, OutputMsgpack:
	default:
		return nil, fmt.Errorf("unknown output format %q: must be 'text', 'json' or 'msgpack'", cfg.OutputFormat)
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 1
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.FirstAvailable != dimstack.NoSlot && (cfg.FirstAvailable <= dimstack.MinSlot || cfg.FirstAvailable > 0) {
		return nil, fmt.Errorf("first available slot %d must be 0 (unset) or between %d and -1", cfg.FirstAvailable, dimstack.MinSlot+1)
	}
	return &cfg, nil
}
