package runner

import (
	"context"
	"testing"

	"github.com/specialistvlad/namedim/internal/dimstack"
	"github.com/specialistvlad/namedim/internal/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localSpec() *scenario.ScopeSpec {
	return &scenario.ScopeSpec{Kind: scenario.ScopeLocal, History: 1}
}

func TestSession_InteractiveScopes(t *testing.T) {
	ctx := context.Background()
	s, err := NewSession(ctx, dimstack.NoSlot)
	require.NoError(t, err)

	require.NoError(t, s.Enter("outer", localSpec()))
	require.NoError(t, s.Apply(ctx, &scenario.Step{
		Kind:   scenario.StepToData,
		ToData: &scenario.ToDataSpec{Names: []dimstack.Name{"a"}},
	}, "outer"))

	require.NoError(t, s.Enter("inner", localSpec()))
	require.NoError(t, s.Reenter("outer"))
	assert.Equal(t, []string{"outer", "inner", "outer"}, s.Open())
	assert.Equal(t, 3, s.Stack().Len(), "reentering does not push a frame")

	require.NoError(t, s.Apply(ctx, &scenario.Step{
		Kind:    scenario.StepRequest,
		Label:   "b",
		Request: &scenario.RequestSpec{Name: "b", Side: scenario.RequestSideSlot},
	}, "outer/inner"))

	results := s.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "outer/to_data", results[0].Path)
	assert.Equal(t, []dimstack.Binding{b("a", -1)}, results[0].Bindings)
	assert.Equal(t, "outer/inner/b", results[1].Path)
	assert.Equal(t, []dimstack.Binding{b("b", -2)}, results[1].Bindings)

	label, err := s.Exit()
	require.NoError(t, err)
	assert.Equal(t, "outer", label)
	label, err = s.Exit()
	require.NoError(t, err)
	assert.Equal(t, "inner", label)
	assert.Equal(t, 2, s.Stack().Len())

	require.NoError(t, s.Close())
	assert.Empty(t, s.Open())
	assert.Equal(t, 1, s.Stack().Len())

	_, err = s.Exit()
	assert.ErrorIs(t, err, ErrNoOpenScope)
}

func TestSession_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewSession(ctx, 3)
	assert.ErrorIs(t, err, dimstack.ErrInvalidBoundary)

	s, err := NewSession(ctx, -2)
	require.NoError(t, err)
	assert.Equal(t, dimstack.Slot(-2), s.Stack().FirstAvailableSlot())

	err = s.Enter("x", &scenario.ScopeSpec{Kind: "plate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scope kind")
	assert.Empty(t, s.Open())

	err = s.Reenter("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `cannot reenter "missing"`)

	err = s.Enter("b", &scenario.ScopeSpec{Kind: scenario.ScopeBoundary, Slot: -40})
	assert.ErrorIs(t, err, dimstack.ErrInvalidBoundary)
	assert.Empty(t, s.Open())
}

func TestSession_BoundaryScopeRestores(t *testing.T) {
	ctx := context.Background()
	s, err := NewSession(ctx, dimstack.NoSlot)
	require.NoError(t, err)

	require.NoError(t, s.Enter("reserve", &scenario.ScopeSpec{Kind: scenario.ScopeBoundary, Slot: -4}))
	assert.Equal(t, dimstack.Slot(-4), s.Stack().FirstAvailableSlot())
	_, err = s.Exit()
	require.NoError(t, err)
	assert.Equal(t, dimstack.NoSlot, s.Stack().FirstAvailableSlot())
}
