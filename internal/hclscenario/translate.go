// This file contains the translation of HCL blocks into scenario steps.

package hclscenario

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/namedim/internal/dimstack"
	"github.com/specialistvlad/namedim/internal/scenario"
)

// translateBlocks converts blocks into steps, keeping document order.
func translateBlocks(blocks hclsyntax.Blocks, evalCtx *hcl.EvalContext) ([]*scenario.Step, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	steps := make([]*scenario.Step, 0, len(blocks))
	for _, block := range blocks {
		step, d := translateBlock(block, evalCtx)
		diags = diags.Extend(d)
		if step != nil {
			steps = append(steps, step)
		}
	}
	return steps, diags
}

func translateBlock(block *hclsyntax.Block, evalCtx *hcl.EvalContext) (*scenario.Step, hcl.Diagnostics) {
	switch block.Type {
	case "scope":
		return translateScope(block, evalCtx)
	case "reenter":
		return translateReenter(block, evalCtx)
	case "to_data":
		return translateToData(block, evalCtx)
	case "to_named":
		return translateToNamed(block, evalCtx)
	case "request":
		return translateRequest(block, evalCtx)
	default:
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported block type",
			Detail:   fmt.Sprintf("Blocks of type %q are not expected here. Expected one of scope, reenter, to_data, to_named, request.", block.Type),
			Subject:  block.TypeRange.Ptr(),
		}}
	}
}

func translateScope(block *hclsyntax.Block, evalCtx *hcl.EvalContext) (*scenario.Step, hcl.Diagnostics) {
	if len(block.Labels) != 2 {
		return nil, labelDiag(block, `scope blocks need a kind and a name: scope "<kind>" "<name>"`)
	}
	body := block.Body
	diags := checkAttributes(body, "history", "keep", "iterations", "repeat", "slot")

	spec := &scenario.ScopeSpec{Kind: scenario.ScopeKind(block.Labels[0]), History: 1}
	if v, ok, d := intAttr(body, "history", evalCtx); ok {
		spec.History = v
	} else {
		diags = diags.Extend(d)
	}
	if v, ok, d := boolAttr(body, "keep", evalCtx); ok {
		spec.Keep = v
	} else {
		diags = diags.Extend(d)
	}
	if v, ok, d := intAttr(body, "iterations", evalCtx); ok {
		spec.Iterations = v
	} else {
		diags = diags.Extend(d)
	}
	if v, ok, d := intAttr(body, "repeat", evalCtx); ok {
		spec.Repeat = v
	} else {
		diags = diags.Extend(d)
	}
	if v, ok, d := intAttr(body, "slot", evalCtx); ok {
		spec.Slot = dimstack.Slot(v)
	} else {
		diags = diags.Extend(d)
	}

	children, d := translateBlocks(body.Blocks, evalCtx)
	diags = diags.Extend(d)

	return &scenario.Step{
		Kind:     scenario.StepScope,
		Label:    block.Labels[1],
		Scope:    spec,
		Children: children,
	}, diags
}

func translateReenter(block *hclsyntax.Block, evalCtx *hcl.EvalContext) (*scenario.Step, hcl.Diagnostics) {
	if len(block.Labels) != 1 {
		return nil, labelDiag(block, `reenter blocks need the name of an enclosing scope: reenter "<name>"`)
	}
	diags := checkAttributes(block.Body)
	children, d := translateBlocks(block.Body.Blocks, evalCtx)
	diags = diags.Extend(d)
	return &scenario.Step{Kind: scenario.StepReenter, Label: block.Labels[0], Children: children}, diags
}

func translateToData(block *hclsyntax.Block, evalCtx *hcl.EvalContext) (*scenario.Step, hcl.Diagnostics) {
	label, diags := optionalLabel(block)
	body := block.Body
	diags = diags.Extend(checkAttributes(body, "names", "existing", "class"))
	diags = diags.Extend(noChildren(block))

	spec := &scenario.ToDataSpec{}
	if v, ok, d := stringListAttr(body, "names", evalCtx); ok {
		for _, n := range v {
			spec.Names = append(spec.Names, dimstack.Name(n))
		}
	} else {
		diags = diags.Extend(d)
	}
	if v, ok, d := objectAttr(body, "existing", evalCtx); ok {
		for _, kv := range v {
			slot, err := kv.int()
			if err != nil {
				diags = diags.Append(attrDiag(body, "existing", fmt.Sprintf("slot for %q: %s", kv.key, err)))
				continue
			}
			spec.Existing = append(spec.Existing, dimstack.Binding{Name: dimstack.Name(kv.key), Slot: dimstack.Slot(slot)})
		}
	} else {
		diags = diags.Extend(d)
	}
	class, d := classAttr(body, evalCtx)
	diags = diags.Extend(d)
	spec.Class = class

	return &scenario.Step{Kind: scenario.StepToData, Label: label, ToData: spec}, diags
}

func translateToNamed(block *hclsyntax.Block, evalCtx *hcl.EvalContext) (*scenario.Step, hcl.Diagnostics) {
	label, diags := optionalLabel(block)
	body := block.Body
	diags = diags.Extend(checkAttributes(body, "shape", "event_dims", "existing", "class"))
	diags = diags.Extend(noChildren(block))

	spec := &scenario.ToNamedSpec{}
	if v, ok, d := intListAttr(body, "shape", evalCtx); ok {
		spec.Shape = v
	} else {
		diags = diags.Extend(d)
	}
	if v, ok, d := intAttr(body, "event_dims", evalCtx); ok {
		if v < 0 {
			diags = diags.Append(attrDiag(body, "event_dims", fmt.Sprintf("must not be negative, got %d", v)))
		}
		spec.EventDims = v
	} else {
		diags = diags.Extend(d)
	}
	if v, ok, d := objectAttr(body, "existing", evalCtx); ok {
		for _, kv := range v {
			slot, err := strconv.Atoi(kv.key)
			if err != nil || slot >= 0 {
				diags = diags.Append(attrDiag(body, "existing", fmt.Sprintf("key %q is not a negative slot", kv.key)))
				continue
			}
			name, err := kv.string()
			if err != nil {
				diags = diags.Append(attrDiag(body, "existing", fmt.Sprintf("name for slot %s: %s", kv.key, err)))
				continue
			}
			spec.Existing = append(spec.Existing, dimstack.Binding{Name: dimstack.Name(name), Slot: dimstack.Slot(slot)})
		}
	} else {
		diags = diags.Extend(d)
	}
	class, d := classAttr(body, evalCtx)
	diags = diags.Extend(d)
	spec.Class = class

	return &scenario.Step{Kind: scenario.StepToNamed, Label: label, ToNamed: spec}, diags
}

func translateRequest(block *hclsyntax.Block, evalCtx *hcl.EvalContext) (*scenario.Step, hcl.Diagnostics) {
	if len(block.Labels) != 1 {
		return nil, labelDiag(block, `request blocks need a label: request "<label>"`)
	}
	body := block.Body
	diags := checkAttributes(body, "name", "slot", "requested", "class")
	diags = diags.Extend(noChildren(block))

	spec := &scenario.RequestSpec{Side: scenario.RequestSideSlot}
	if v, ok, d := stringAttr(body, "name", evalCtx); ok {
		spec.Name = dimstack.Name(v)
	} else {
		diags = diags.Extend(d)
	}
	if v, ok, d := intAttr(body, "slot", evalCtx); ok {
		spec.Slot = dimstack.Slot(v)
	} else {
		diags = diags.Extend(d)
	}
	if v, ok, d := stringAttr(body, "requested", evalCtx); ok {
		spec.Side = scenario.RequestSide(v)
	} else {
		diags = diags.Extend(d)
	}
	class, d := classAttr(body, evalCtx)
	diags = diags.Extend(d)
	spec.Class = class

	return &scenario.Step{Kind: scenario.StepRequest, Label: block.Labels[0], Request: spec}, diags
}

func optionalLabel(block *hclsyntax.Block) (string, hcl.Diagnostics) {
	switch len(block.Labels) {
	case 0:
		return "", nil
	case 1:
		return block.Labels[0], nil
	default:
		return "", labelDiag(block, fmt.Sprintf("%s blocks take at most one label", block.Type))
	}
}

func noChildren(block *hclsyntax.Block) hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, child := range block.Body.Blocks {
		diags = diags.Append(&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unexpected nested block",
			Detail:   fmt.Sprintf("%s blocks cannot contain %s blocks.", block.Type, child.Type),
			Subject:  child.TypeRange.Ptr(),
		})
	}
	return diags
}

func labelDiag(block *hclsyntax.Block, detail string) hcl.Diagnostics {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Wrong number of block labels",
		Detail:   detail,
		Subject:  block.DefRange().Ptr(),
	}}
}
