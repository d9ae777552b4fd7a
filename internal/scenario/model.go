// Package scenario defines the format-agnostic model of an allocation script,
// along with the Loader interface used to read scripts from a concrete
// format. The HCL implementation lives in package hclscenario.
//
// A script is an ordered list of steps. Scope steps open a controller, run
// their nested steps and close it again; conversion and request steps call
// the allocator in whatever scope is current.
package scenario

import (
	"context"
	"fmt"

	"github.com/specialistvlad/namedim/internal/dimstack"
)

//go:generate mockgen -source=model.go -destination=mock_scenario/loader.go -package=mock_scenario Loader

// Loader reads a script from a format-specific source.
type Loader interface {
	Load(ctx context.Context, path string) (*Script, error)
}

// Script is a whole allocation script.
type Script struct {
	// FirstAvailable is the initial boundary, or dimstack.NoSlot.
	FirstAvailable dimstack.Slot
	Steps          []*Step
}

// StepKind identifies what a step does.
type StepKind int

const (
	StepScope StepKind = iota
	StepReenter
	StepToData
	StepToNamed
	StepRequest
)

// String implements fmt.Stringer.
func (k StepKind) String() string {
	switch k {
	case StepScope:
		return "scope"
	case StepReenter:
		return "reenter"
	case StepToData:
		return "to_data"
	case StepToNamed:
		return "to_named"
	case StepRequest:
		return "request"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// ScopeKind selects the controller a scope step opens.
type ScopeKind string

const (
	ScopeLocal    ScopeKind = "local"
	ScopeGlobal   ScopeKind = "global"
	ScopeCleanup  ScopeKind = "cleanup"
	ScopeBoundary ScopeKind = "boundary"
)

// Step is one instruction. Only the fields relevant to Kind are set.
type Step struct {
	Kind StepKind
	// Label names the step in results; for scope and reenter steps it is the
	// scope name.
	Label string

	Scope    *ScopeSpec
	ToData   *ToDataSpec
	ToNamed  *ToNamedSpec
	Request  *RequestSpec
	Children []*Step
}

// ScopeSpec configures a scope step.
type ScopeSpec struct {
	Kind    ScopeKind
	History int
	Keep    bool
	// Slot is the boundary installed by a boundary scope.
	Slot dimstack.Slot
	// Iterations drives a local scope as a loop when greater than zero.
	Iterations int
	// Repeat enters and exits the scope this many times in sequence.
	Repeat int
}

// ToDataSpec is a conversion of named inputs to positional data.
type ToDataSpec struct {
	Names    []dimstack.Name
	Existing []dimstack.Binding
	Class    dimstack.VisibilityClass
}

// ToNamedSpec is a conversion of a positional shape to named inputs.
type ToNamedSpec struct {
	Shape     []int
	EventDims int
	Existing  []dimstack.Binding
	Class     dimstack.VisibilityClass
}

// RequestSide says which half of a raw request carries the request.
type RequestSide string

const (
	RequestSideName RequestSide = "name"
	RequestSideSlot RequestSide = "slot"
)

// RequestSpec is a raw allocator request.
type RequestSpec struct {
	Name  dimstack.Name
	Slot  dimstack.Slot
	Side  RequestSide
	Class dimstack.VisibilityClass
}

// Specs converts the request into the allocator's tagged variants.
func (r *RequestSpec) Specs() (dimstack.NameSpec, dimstack.SlotSpec) {
	if r.Side == RequestSideName {
		return dimstack.RequestName(r.Name, r.Class), dimstack.ConcreteSlot(r.Slot)
	}
	return dimstack.ConcreteName(r.Name), dimstack.RequestSlot(r.Slot, r.Class)
}
