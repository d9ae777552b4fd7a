package hclscenario

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/namedim/internal/dimstack"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// checkAttributes reports every attribute of body that is not in allowed.
func checkAttributes(body *hclsyntax.Body, allowed ...string) hcl.Diagnostics {
	var diags hcl.Diagnostics
	names := make([]string, 0, len(body.Attributes))
	for name := range body.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if slices.Contains(allowed, name) {
			continue
		}
		detail := "No attributes are expected here."
		if len(allowed) > 0 {
			detail = fmt.Sprintf("Expected one of: %s.", strings.Join(allowed, ", "))
		}
		diags = diags.Append(&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported argument",
			Detail:   fmt.Sprintf("An argument named %q is not expected here. %s", name, detail),
			Subject:  body.Attributes[name].NameRange.Ptr(),
		})
	}
	return diags
}

// attrValue evaluates the named attribute and converts it to want. The bool
// result is false when the attribute is absent or did not evaluate.
func attrValue(body *hclsyntax.Body, name string, want cty.Type, evalCtx *hcl.EvalContext) (cty.Value, bool, hcl.Diagnostics) {
	attr, ok := body.Attributes[name]
	if !ok {
		return cty.NilVal, false, nil
	}
	val, diags := attr.Expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, false, diags
	}
	if val.IsNull() {
		return cty.NilVal, false, nil
	}
	if want == cty.DynamicPseudoType {
		return val, true, diags
	}
	converted, err := convert.Convert(val, want)
	if err != nil {
		return cty.NilVal, false, diags.Append(attrDiag(body, name, err.Error()))
	}
	if !converted.IsWhollyKnown() {
		return cty.NilVal, false, diags.Append(attrDiag(body, name, "value must be known when the script is loaded"))
	}
	return converted, true, diags
}

func intAttr(body *hclsyntax.Body, name string, evalCtx *hcl.EvalContext) (int, bool, hcl.Diagnostics) {
	val, ok, diags := attrValue(body, name, cty.Number, evalCtx)
	if !ok {
		return 0, false, diags
	}
	var out int
	if err := gocty.FromCtyValue(val, &out); err != nil {
		return 0, false, diags.Append(attrDiag(body, name, err.Error()))
	}
	return out, true, diags
}

func boolAttr(body *hclsyntax.Body, name string, evalCtx *hcl.EvalContext) (bool, bool, hcl.Diagnostics) {
	val, ok, diags := attrValue(body, name, cty.Bool, evalCtx)
	if !ok {
		return false, false, diags
	}
	return val.True(), true, diags
}

func stringAttr(body *hclsyntax.Body, name string, evalCtx *hcl.EvalContext) (string, bool, hcl.Diagnostics) {
	val, ok, diags := attrValue(body, name, cty.String, evalCtx)
	if !ok {
		return "", false, diags
	}
	return val.AsString(), true, diags
}

func stringListAttr(body *hclsyntax.Body, name string, evalCtx *hcl.EvalContext) ([]string, bool, hcl.Diagnostics) {
	val, ok, diags := attrValue(body, name, cty.List(cty.String), evalCtx)
	if !ok {
		return nil, false, diags
	}
	var out []string
	if err := gocty.FromCtyValue(val, &out); err != nil {
		return nil, false, diags.Append(attrDiag(body, name, err.Error()))
	}
	return out, true, diags
}

func intListAttr(body *hclsyntax.Body, name string, evalCtx *hcl.EvalContext) ([]int, bool, hcl.Diagnostics) {
	val, ok, diags := attrValue(body, name, cty.List(cty.Number), evalCtx)
	if !ok {
		return nil, false, diags
	}
	var out []int
	if err := gocty.FromCtyValue(val, &out); err != nil {
		return nil, false, diags.Append(attrDiag(body, name, err.Error()))
	}
	return out, true, diags
}

// keyValue is one entry of an object attribute.
type keyValue struct {
	key   string
	value cty.Value
}

func (kv keyValue) int() (int, error) {
	v, err := convert.Convert(kv.value, cty.Number)
	if err != nil {
		return 0, err
	}
	var out int
	if err := gocty.FromCtyValue(v, &out); err != nil {
		return 0, err
	}
	return out, nil
}

func (kv keyValue) string() (string, error) {
	v, err := convert.Convert(kv.value, cty.String)
	if err != nil {
		return "", err
	}
	if v.IsNull() {
		return "", fmt.Errorf("must not be null")
	}
	return v.AsString(), nil
}

// objectAttr evaluates an object attribute. Object constructors keep the
// order the entries are written in; any other expression yields its
// entries in key order.
func objectAttr(body *hclsyntax.Body, name string, evalCtx *hcl.EvalContext) ([]keyValue, bool, hcl.Diagnostics) {
	attr, ok := body.Attributes[name]
	if !ok {
		return nil, false, nil
	}
	if cons, isCons := attr.Expr.(*hclsyntax.ObjectConsExpr); isCons {
		var diags hcl.Diagnostics
		out := make([]keyValue, 0, len(cons.Items))
		for _, item := range cons.Items {
			k, d := item.KeyExpr.Value(evalCtx)
			diags = diags.Extend(d)
			if d.HasErrors() {
				continue
			}
			v, d := item.ValueExpr.Value(evalCtx)
			diags = diags.Extend(d)
			if d.HasErrors() {
				continue
			}
			key, err := convert.Convert(k, cty.String)
			if err != nil || key.IsNull() || !key.IsKnown() {
				diags = diags.Append(&hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid object key",
					Detail:   fmt.Sprintf("Keys of %q must be strings or numbers.", name),
					Subject:  item.KeyExpr.Range().Ptr(),
				})
				continue
			}
			out = append(out, keyValue{key: key.AsString(), value: v})
		}
		if diags.HasErrors() {
			return nil, false, diags
		}
		return out, true, diags
	}

	val, ok, diags := attrValue(body, name, cty.DynamicPseudoType, evalCtx)
	if !ok {
		return nil, false, diags
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, false, diags.Append(attrDiag(body, name, "an object is required"))
	}
	var out []keyValue
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		out = append(out, keyValue{key: k.AsString(), value: v})
	}
	return out, true, diags
}

// classAttr reads the optional class attribute; absence means local.
func classAttr(body *hclsyntax.Body, evalCtx *hcl.EvalContext) (dimstack.VisibilityClass, hcl.Diagnostics) {
	v, ok, diags := stringAttr(body, "class", evalCtx)
	if !ok {
		return dimstack.Local, diags
	}
	class, err := dimstack.ParseVisibilityClass(v)
	if err != nil {
		return dimstack.Local, diags.Append(attrDiag(body, "class", err.Error()))
	}
	return class, diags
}

func attrDiag(body *hclsyntax.Body, name, detail string) *hcl.Diagnostic {
	diag := &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  fmt.Sprintf("Invalid value for %q", name),
		Detail:   detail,
	}
	if attr, ok := body.Attributes[name]; ok {
		diag.Subject = attr.Expr.Range().Ptr()
	}
	return diag
}
