package scenario

import (
	"errors"
	"fmt"
	"slices"
)

// Validate checks the structural rules the loader cannot express: known
// scope kinds, loop settings only on local scopes, and reenter steps that
// name an enclosing scope.
func (s *Script) Validate() error {
	var errs []error
	validateSteps(s.Steps, nil, "", &errs)
	return errors.Join(errs...)
}

func validateSteps(steps []*Step, open []string, path string, errs *[]error) {
	for i, st := range steps {
		where := fmt.Sprintf("%s/%s[%d]", path, st.Kind, i)
		switch st.Kind {
		case StepScope:
			sc := st.Scope
			if sc == nil {
				*errs = append(*errs, fmt.Errorf("%s: scope step without settings", where))
				continue
			}
			switch sc.Kind {
			case ScopeLocal, ScopeGlobal, ScopeCleanup, ScopeBoundary:
			default:
				*errs = append(*errs, fmt.Errorf("%s: unknown scope kind %q", where, sc.Kind))
			}
			if sc.Iterations < 0 || sc.Repeat < 0 {
				*errs = append(*errs, fmt.Errorf("%s: iterations and repeat must not be negative", where))
			}
			if sc.Iterations > 0 && sc.Kind != ScopeLocal {
				*errs = append(*errs, fmt.Errorf("%s: only local scopes can iterate", where))
			}
			if sc.Kind != ScopeBoundary && sc.Slot != 0 {
				*errs = append(*errs, fmt.Errorf("%s: slot is only valid on boundary scopes", where))
			}
			validateSteps(st.Children, append(open, st.Label), where, errs)
		case StepReenter:
			if !slices.Contains(open, st.Label) {
				*errs = append(*errs, fmt.Errorf("%s: cannot reenter %q: not an enclosing scope", where, st.Label))
			}
			validateSteps(st.Children, open, where, errs)
		case StepToData:
			if st.ToData == nil {
				*errs = append(*errs, fmt.Errorf("%s: missing conversion settings", where))
			}
		case StepToNamed:
			if st.ToNamed == nil {
				*errs = append(*errs, fmt.Errorf("%s: missing conversion settings", where))
				continue
			}
			if st.ToNamed.EventDims < 0 {
				*errs = append(*errs, fmt.Errorf("%s: event_dims must not be negative, got %d", where, st.ToNamed.EventDims))
			}
		case StepRequest:
			if st.Request == nil {
				*errs = append(*errs, fmt.Errorf("%s: missing request settings", where))
				continue
			}
			if st.Request.Side != RequestSideName && st.Request.Side != RequestSideSlot {
				*errs = append(*errs, fmt.Errorf("%s: requested must be 'name' or 'slot', got %q", where, st.Request.Side))
			}
		}
	}
}

