package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/namedim/internal/ctxlog"
	"github.com/specialistvlad/namedim/internal/dimstack"
	"github.com/specialistvlad/namedim/internal/named"
	"github.com/specialistvlad/namedim/internal/scenario"
	"github.com/specialistvlad/namedim/internal/scope"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrNoOpenScope is returned by Session.Exit when nothing is entered.
var ErrNoOpenScope = errors.New("no open scope")

type openScope struct {
	label string
	ctrl  scope.Controller
}

// Session is one stack together with the scopes currently entered on it.
// Runner.Run drives a session through a whole script; interactive callers
// open and close scopes one at a time with Enter and Exit.
type Session struct {
	stack     *dimstack.Stack
	open      []openScope
	results   []Result
	iteration int
}

// NewSession creates a session on a new stack with the given boundary, which
// may be dimstack.NoSlot.
func NewSession(ctx context.Context, boundary dimstack.Slot) (*Session, error) {
	stack := dimstack.New(dimstack.WithLogger(ctxlog.FromContext(ctx)))
	if _, err := stack.SetFirstAvailableSlot(boundary); err != nil {
		return nil, err
	}
	return &Session{stack: stack, iteration: NoIteration}, nil
}

// Stack returns the session's stack.
func (s *Session) Stack() *dimstack.Stack {
	return s.stack
}

// Results returns every result recorded so far, oldest first.
func (s *Session) Results() []Result {
	return s.results
}

// Open returns the labels of the entered scopes, outermost first.
func (s *Session) Open() []string {
	labels := make([]string, len(s.open))
	for i, o := range s.open {
		labels[i] = o.label
	}
	return labels
}

// Enter opens a new scope and leaves it entered. Loop settings are ignored;
// loops only exist inside scripts.
func (s *Session) Enter(label string, spec *scenario.ScopeSpec) error {
	ctrl, err := s.controller(spec)
	if err != nil {
		return err
	}
	if err := ctrl.Enter(); err != nil {
		return err
	}
	s.open = append(s.open, openScope{label: label, ctrl: ctrl})
	return nil
}

// Reenter enters the innermost open scope named label once more. The scope
// stays entered until the matching Exit.
func (s *Session) Reenter(label string) error {
	for i := len(s.open) - 1; i >= 0; i-- {
		if s.open[i].label == label {
			ctrl := s.open[i].ctrl
			if err := ctrl.Enter(); err != nil {
				return err
			}
			s.open = append(s.open, openScope{label: label, ctrl: ctrl})
			return nil
		}
	}
	return fmt.Errorf("cannot reenter %q: scope is not open", label)
}

// Exit closes the innermost open scope and returns its label.
func (s *Session) Exit() (string, error) {
	if len(s.open) == 0 {
		return "", ErrNoOpenScope
	}
	top := s.open[len(s.open)-1]
	s.open = s.open[:len(s.open)-1]
	return top.label, top.ctrl.Exit()
}

// Close exits every open scope, innermost first.
func (s *Session) Close() error {
	var errs []error
	for len(s.open) > 0 {
		if _, err := s.Exit(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Apply runs one step, including any nested steps, under the scopes that are
// currently open. path prefixes the paths of the recorded results.
func (s *Session) Apply(ctx context.Context, st *scenario.Step, path string) error {
	return s.step(ctx, st, path)
}

func (s *Session) steps(ctx context.Context, steps []*scenario.Step, path string) error {
	for _, st := range steps {
		if err := s.step(ctx, st, path); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) step(ctx context.Context, st *scenario.Step, path string) error {
	switch st.Kind {
	case scenario.StepScope:
		return s.scope(ctx, st, path)
	case scenario.StepReenter:
		return s.reenter(ctx, st, path)
	case scenario.StepToData:
		return s.toData(ctx, st.ToData, join(path, stepName(st)))
	case scenario.StepToNamed:
		return s.toNamed(ctx, st.ToNamed, join(path, stepName(st)))
	case scenario.StepRequest:
		return s.request(ctx, st.Request, join(path, stepName(st)))
	default:
		return fmt.Errorf("step %s: unsupported step kind %s", join(path, st.Label), st.Kind)
	}
}

func (s *Session) scope(ctx context.Context, st *scenario.Step, path string) error {
	spec := st.Scope
	base := join(path, st.Label)
	ctrl, err := s.controller(spec)
	if err != nil {
		return fmt.Errorf("scope %s: %w", base, err)
	}
	ctxlog.FromContext(ctx).Debug("Opening scope.", "step", base, "kind", string(spec.Kind), "history", spec.History, "keep", spec.Keep)

	runs := max(spec.Repeat, 1)
	for run := range runs {
		p := base
		if spec.Repeat > 1 {
			p = fmt.Sprintf("%s#%d", base, run)
		}
		if l, ok := ctrl.(*scope.Local); ok && spec.Iterations > 0 {
			err = s.loop(ctx, l, st, p)
		} else {
			err = s.within(ctx, st.Label, ctrl, st.Children, p)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) controller(spec *scenario.ScopeSpec) (scope.Controller, error) {
	switch spec.Kind {
	case scenario.ScopeLocal:
		return scope.NewLocal(s.stack, scope.WithHistory(spec.History), scope.WithKeep(spec.Keep)), nil
	case scenario.ScopeGlobal:
		return scope.NewGlobal(s.stack), nil
	case scenario.ScopeCleanup:
		return scope.NewCleanup(s.stack), nil
	case scenario.ScopeBoundary:
		return scope.NewBoundary(s.stack, spec.Slot)
	default:
		return nil, fmt.Errorf("unknown scope kind %q", spec.Kind)
	}
}

// within enters ctrl, runs children and exits ctrl, also when a child fails.
func (s *Session) within(ctx context.Context, label string, ctrl scope.Controller, children []*scenario.Step, path string) error {
	if err := ctrl.Enter(); err != nil {
		return fmt.Errorf("entering %s: %w", path, err)
	}
	s.open = append(s.open, openScope{label: label, ctrl: ctrl})
	err := s.steps(ctx, children, path)
	s.open = s.open[:len(s.open)-1]
	if exitErr := ctrl.Exit(); exitErr != nil && err == nil {
		err = fmt.Errorf("exiting %s: %w", path, exitErr)
	}
	return err
}

func (s *Session) loop(ctx context.Context, l *scope.Local, st *scenario.Step, path string) error {
	outer := s.iteration
	defer func() { s.iteration = outer }()

	s.open = append(s.open, openScope{label: st.Label, ctrl: l})
	defer func() { s.open = s.open[:len(s.open)-1] }()

	for i := range scope.Range(l, st.Scope.Iterations) {
		s.iteration = i
		if err := s.steps(ctx, st.Children, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// reenter enters the innermost open scope with the step's label again.
func (s *Session) reenter(ctx context.Context, st *scenario.Step, path string) error {
	for i := len(s.open) - 1; i >= 0; i-- {
		if s.open[i].label == st.Label {
			return s.within(ctx, st.Label, s.open[i].ctrl, st.Children, join(path, "reenter:"+st.Label))
		}
	}
	return fmt.Errorf("step %s: cannot reenter %q: scope is not open", path, st.Label)
}

func (s *Session) toData(ctx context.Context, spec *scenario.ToDataSpec, path string) error {
	var existing *orderedmap.OrderedMap[dimstack.Name, dimstack.SlotSpec]
	if len(spec.Existing) > 0 {
		existing = orderedmap.New[dimstack.Name, dimstack.SlotSpec]()
		for _, b := range spec.Existing {
			existing.Set(b.Name, dimstack.ConcreteSlot(b.Slot))
		}
	}
	msg := &named.ToDataMessage{Value: named.Inputs(spec.Names), Class: spec.Class, Existing: existing}
	if err := named.ToData(ctx, s.stack, msg); err != nil {
		return fmt.Errorf("step %s: %w", path, err)
	}

	bindings := make([]dimstack.Binding, 0, msg.NameToSlot.Len())
	for p := msg.NameToSlot.Oldest(); p != nil; p = p.Next() {
		bindings = append(bindings, dimstack.Binding{Name: p.Key, Slot: p.Value})
	}
	s.record(ctx, path, scenario.StepToData, bindings)
	return nil
}

func (s *Session) toNamed(ctx context.Context, spec *scenario.ToNamedSpec, path string) error {
	var existing *orderedmap.OrderedMap[dimstack.Slot, dimstack.NameSpec]
	if len(spec.Existing) > 0 {
		existing = orderedmap.New[dimstack.Slot, dimstack.NameSpec]()
		for _, b := range spec.Existing {
			existing.Set(b.Slot, dimstack.ConcreteName(b.Name))
		}
	}
	msg := &named.ToNamedMessage{Value: named.Sizes(spec.Shape), EventDims: spec.EventDims, Class: spec.Class, Existing: existing}
	if err := named.ToNamed(ctx, s.stack, msg); err != nil {
		return fmt.Errorf("step %s: %w", path, err)
	}

	bindings := make([]dimstack.Binding, 0, msg.SlotToName.Len())
	for p := msg.SlotToName.Oldest(); p != nil; p = p.Next() {
		bindings = append(bindings, dimstack.Binding{Name: p.Value, Slot: p.Key})
	}
	s.record(ctx, path, scenario.StepToNamed, bindings)
	return nil
}

func (s *Session) request(ctx context.Context, spec *scenario.RequestSpec, path string) error {
	nameSpec, slotSpec := spec.Specs()
	name, slot, err := s.stack.Request(nameSpec, slotSpec)
	if err != nil {
		return fmt.Errorf("step %s: %w", path, err)
	}
	s.stack.Notify(spec.Class, []dimstack.Name{name})
	s.record(ctx, path, scenario.StepRequest, []dimstack.Binding{{Name: name, Slot: slot}})
	return nil
}

func (s *Session) record(ctx context.Context, path string, op scenario.StepKind, bindings []dimstack.Binding) {
	ctxlog.FromContext(ctx).Debug("Step allocated.", "step", path, "op", op.String(), "bindings", bindings)
	s.results = append(s.results, Result{Path: path, Op: op.String(), Iteration: s.iteration, Bindings: bindings})
}

func stepName(st *scenario.Step) string {
	if st.Label != "" {
		return st.Label
	}
	return st.Kind.String()
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "/" + name
}
