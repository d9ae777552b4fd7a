package repl

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/specialistvlad/namedim/internal/dimstack"
	"github.com/specialistvlad/namedim/internal/scenario"
)

const helpText = `Commands:
  local <label> [history=N] [keep]   open a local scope
  global <label>                     open a global scope
  cleanup <label>                    open a cleanup scope
  boundary <label> <slot>            move the first available slot while open
  reenter <label>                    enter an open scope again
  exit                               close the innermost scope
  to_data <name>... [class=C]        allocate slots for names
  to_named <size>... [event_dims=N] [class=C]
                                     allocate names for a shape
  slot <name> [class=C]              request the slot of a name
  name <slot> [class=C]              request the name of a slot
  frames                             print the frame stack
  first_available [slot]             show or set the first available slot
  quit                               close every scope and leave
Classes: local, global, visible.`

// command is a parsed input line: positional words plus key=value options.
// A bare word that names a flag, like keep, is stored with value "true".
type command struct {
	name string
	args []string
	opts map[string]string
}

func parseCommand(line string, flags ...string) command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{opts: map[string]string{}}
	}
	cmd := command{name: strings.ToLower(fields[0]), opts: map[string]string{}}
	for _, f := range fields[1:] {
		if k, v, ok := strings.Cut(f, "="); ok {
			cmd.opts[strings.ToLower(k)] = v
			continue
		}
		isFlag := false
		for _, fl := range flags {
			if strings.EqualFold(f, fl) {
				cmd.opts[fl] = "true"
				isFlag = true
			}
		}
		if !isFlag {
			cmd.args = append(cmd.args, f)
		}
	}
	return cmd
}

func (c command) intOpt(key string, def int) (int, error) {
	v, ok := c.opts[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func (c command) class() (dimstack.VisibilityClass, error) {
	return dimstack.ParseVisibilityClass(c.opts["class"])
}

func (c command) checkOpts(allowed ...string) error {
	for k := range c.opts {
		if !slices.Contains(allowed, k) {
			return fmt.Errorf("%s does not take option %q", c.name, k)
		}
	}
	return nil
}

func (c command) wantArgs(n int, usage string) error {
	if len(c.args) != n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

// Exec runs one command line. It reports whether the session should end.
func (r *REPL) Exec(ctx context.Context, line string) (bool, error) {
	cmd := parseCommand(line, "keep")
	switch cmd.name {
	case "help":
		fmt.Fprintln(r.out, helpText)
	case "quit":
		return true, nil
	case "local":
		return false, r.openLocal(cmd)
	case "global", "cleanup":
		if err := cmd.wantArgs(1, cmd.name+" <label>"); err != nil {
			return false, err
		}
		if err := cmd.checkOpts(); err != nil {
			return false, err
		}
		return false, r.open(cmd.args[0], &scenario.ScopeSpec{Kind: scenario.ScopeKind(cmd.name)})
	case "boundary":
		if err := cmd.wantArgs(2, "boundary <label> <slot>"); err != nil {
			return false, err
		}
		slot, err := strconv.Atoi(cmd.args[1])
		if err != nil {
			return false, fmt.Errorf("slot must be an integer, got %q", cmd.args[1])
		}
		return false, r.open(cmd.args[0], &scenario.ScopeSpec{Kind: scenario.ScopeBoundary, Slot: dimstack.Slot(slot)})
	case "reenter":
		if err := cmd.wantArgs(1, "reenter <label>"); err != nil {
			return false, err
		}
		if err := r.session.Reenter(cmd.args[0]); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "reentered %s\n", cmd.args[0])
	case "exit":
		label, err := r.session.Exit()
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "closed %s\n", label)
	case "to_data":
		return false, r.toData(ctx, cmd)
	case "to_named":
		return false, r.toNamed(ctx, cmd)
	case "slot", "name":
		return false, r.request(ctx, cmd)
	case "frames":
		r.printFrames()
	case "first_available":
		return false, r.firstAvailable(cmd)
	default:
		return false, fmt.Errorf("unknown command %q, type 'help' for a list", cmd.name)
	}
	return false, nil
}

func (r *REPL) openLocal(cmd command) error {
	if err := cmd.wantArgs(1, "local <label> [history=N] [keep]"); err != nil {
		return err
	}
	if err := cmd.checkOpts("history", "keep"); err != nil {
		return err
	}
	history, err := cmd.intOpt("history", 1)
	if err != nil {
		return err
	}
	keep := cmd.opts["keep"] == "true"
	return r.open(cmd.args[0], &scenario.ScopeSpec{Kind: scenario.ScopeLocal, History: history, Keep: keep})
}

func (r *REPL) open(label string, spec *scenario.ScopeSpec) error {
	if err := r.session.Enter(label, spec); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "opened %s %s\n", spec.Kind, label)
	return nil
}

func (r *REPL) toData(ctx context.Context, cmd command) error {
	if err := cmd.checkOpts("class"); err != nil {
		return err
	}
	class, err := cmd.class()
	if err != nil {
		return err
	}
	names := make([]dimstack.Name, len(cmd.args))
	for i, a := range cmd.args {
		names[i] = dimstack.Name(a)
	}
	step := &scenario.Step{Kind: scenario.StepToData, ToData: &scenario.ToDataSpec{Names: names, Class: class}}
	return r.apply(ctx, step)
}

func (r *REPL) toNamed(ctx context.Context, cmd command) error {
	if err := cmd.checkOpts("class", "event_dims"); err != nil {
		return err
	}
	class, err := cmd.class()
	if err != nil {
		return err
	}
	eventDims, err := cmd.intOpt("event_dims", 0)
	if err != nil {
		return err
	}
	if eventDims < 0 {
		return fmt.Errorf("event_dims must not be negative, got %d", eventDims)
	}
	shape := make([]int, len(cmd.args))
	for i, a := range cmd.args {
		if shape[i], err = strconv.Atoi(a); err != nil {
			return fmt.Errorf("sizes must be integers, got %q", a)
		}
	}
	step := &scenario.Step{Kind: scenario.StepToNamed, ToNamed: &scenario.ToNamedSpec{Shape: shape, EventDims: eventDims, Class: class}}
	return r.apply(ctx, step)
}

func (r *REPL) request(ctx context.Context, cmd command) error {
	if err := cmd.checkOpts("class"); err != nil {
		return err
	}
	class, err := cmd.class()
	if err != nil {
		return err
	}
	spec := &scenario.RequestSpec{Class: class}
	if cmd.name == "slot" {
		if err := cmd.wantArgs(1, "slot <name> [class=C]"); err != nil {
			return err
		}
		spec.Name = dimstack.Name(cmd.args[0])
		spec.Side = scenario.RequestSideSlot
	} else {
		if err := cmd.wantArgs(1, "name <slot> [class=C]"); err != nil {
			return err
		}
		slot, err := strconv.Atoi(cmd.args[0])
		if err != nil {
			return fmt.Errorf("slot must be an integer, got %q", cmd.args[0])
		}
		spec.Slot = dimstack.Slot(slot)
		spec.Side = scenario.RequestSideName
	}
	return r.apply(ctx, &scenario.Step{Kind: scenario.StepRequest, Label: cmd.name, Request: spec})
}

// apply runs step and prints the bindings it produced.
func (r *REPL) apply(ctx context.Context, step *scenario.Step) error {
	if err := r.session.Apply(ctx, step, strings.Join(r.session.Open(), "/")); err != nil {
		return err
	}
	results := r.session.Results()
	for _, res := range results[r.printed:] {
		fmt.Fprintln(r.out, r.green(dimstack.FormatBindings(res.Bindings)))
	}
	r.printed = len(results)
	return nil
}

func (r *REPL) printFrames() {
	stack := r.session.Stack()
	frames := stack.Top(stack.Len())
	for i, f := range frames {
		label := fmt.Sprintf("#%d", len(frames)-1-i)
		if f == stack.Global() {
			label = "global"
		}
		fmt.Fprintf(r.out, "%s: %s\n", r.bold(label), dimstack.FormatBindings(f.Bindings()))
	}
}

func (r *REPL) firstAvailable(cmd command) error {
	stack := r.session.Stack()
	if len(cmd.args) == 0 {
		fmt.Fprintf(r.out, "first available slot: %d\n", stack.FirstAvailableSlot())
		return nil
	}
	if err := cmd.wantArgs(1, "first_available [slot]"); err != nil {
		return err
	}
	slot, err := strconv.Atoi(cmd.args[0])
	if err != nil {
		return fmt.Errorf("slot must be an integer, got %q", cmd.args[0])
	}
	prev, err := stack.SetFirstAvailableSlot(dimstack.Slot(slot))
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "first available slot: %d (was %d)\n", slot, prev)
	return nil
}
