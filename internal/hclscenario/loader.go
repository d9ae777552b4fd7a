// Package hclscenario reads allocation scripts written in HCL and translates
// them into the format-agnostic scenario model.
//
// Blocks are walked in document order so that the script's steps run in the
// order they are written. Attribute expressions are evaluated against a
// small eval context exposing min_slot and the range, concat and format
// functions.
package hclscenario

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/namedim/internal/ctxlog"
	"github.com/specialistvlad/namedim/internal/dimstack"
	"github.com/specialistvlad/namedim/internal/scenario"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Loader is the HCL-specific implementation of the scenario.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL script loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and translates the script at path.
func (l *Loader) Load(ctx context.Context, path string) (*scenario.Script, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL script loader started.", "path", path)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading script %s: %w", path, err)
	}
	return l.Parse(ctx, src, path)
}

// Parse translates HCL source. filename is used in diagnostics only.
func (l *Loader) Parse(ctx context.Context, src []byte, filename string) (*scenario.Script, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("failed to parse HCL file %s: native syntax required", filename)
	}

	evalCtx := newEvalContext()
	script := &scenario.Script{}

	diags = checkAttributes(body, "first_available")
	if v, ok, d := intAttr(body, "first_available", evalCtx); ok {
		script.FirstAvailable = dimstack.Slot(v)
	} else {
		diags = diags.Extend(d)
	}

	steps, d := translateBlocks(body.Blocks, evalCtx)
	diags = diags.Extend(d)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	script.Steps = steps

	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script %s: %w", filename, err)
	}
	logger.Debug("HCL script loading complete.", "path", filename, "top_level_steps", len(steps))
	return script, nil
}

// newEvalContext builds the variables and functions available to script
// expressions.
func newEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"min_slot": cty.NumberIntVal(int64(dimstack.MinSlot)),
		},
		Functions: map[string]function.Function{
			"range":  stdlib.RangeFunc,
			"concat": stdlib.ConcatFunc,
			"format": stdlib.FormatFunc,
		},
	}
}
