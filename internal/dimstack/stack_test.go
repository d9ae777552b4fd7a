package dimstack

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requestLocal asks for a slot for name in the local scope chain.
func requestLocal(t *testing.T, s *Stack, name Name) Slot {
	t.Helper()
	_, slot, err := s.Request(ConcreteName(name), RequestSlot(NoSlot, Local))
	require.NoError(t, err)
	return slot
}

// pushLocal pushes a frame whose parent is the current frame.
func pushLocal(s *Stack, keep bool) *Frame {
	f := NewFrame(s.Top(1), nil, keep)
	s.Push(f)
	return f
}

func TestNew(t *testing.T) {
	s := New()
	require.Equal(t, 1, s.Len())
	assert.Same(t, s.Global(), s.Current())
	assert.Equal(t, NoSlot, s.FirstAvailableSlot())
	assert.Nil(t, s.Outermost())
}

func TestRequest_SynthesizesNamesAndSlots(t *testing.T) {
	s := New()

	name, slot, err := s.Request(RequestName(NoName, Local), ConcreteSlot(NoSlot))
	require.NoError(t, err)
	assert.Equal(t, Name("_pyro_dim_1"), name)
	assert.Equal(t, Slot(-1), slot)

	name, slot, err = s.Request(RequestName(NoName, Local), ConcreteSlot(NoSlot))
	require.NoError(t, err)
	assert.Equal(t, Name("_pyro_dim_2"), name)
	assert.Equal(t, Slot(-2), slot)
}

func TestRequest_Stability(t *testing.T) {
	s := New()
	pushLocal(s, false)

	first := requestLocal(t, s, "x")
	requestLocal(t, s, "y")
	second := requestLocal(t, s, "x")
	assert.Equal(t, first, second)

	name, slot, err := s.Request(RequestName(NoName, Local), ConcreteSlot(first))
	require.NoError(t, err)
	assert.Equal(t, Name("x"), name, "a slot request resolves back to its name")
	assert.Equal(t, first, slot)
}

func TestRequest_InvalidShape(t *testing.T) {
	s := New()

	testCases := []struct {
		name string
		n    NameSpec
		d    SlotSpec
	}{
		{name: "neither requested", n: ConcreteName("x"), d: ConcreteSlot(-1)},
		{name: "both unset", n: NameSpec{}, d: SlotSpec{}},
		{name: "both requested", n: RequestName("x", Local), d: RequestSlot(NoSlot, Local)},
		{name: "positive slot", n: ConcreteName("x"), d: RequestSlot(3, Local)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := s.Request(tc.n, tc.d)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	assert.Equal(t, 0, s.Global().Len(), "rejected requests must not bind anything")
}

func TestRequest_UniquenessAcrossLiveFrames(t *testing.T) {
	s := New()
	seen := map[Slot]Name{}
	record := func(n Name, slot Slot) {
		if other, ok := seen[slot]; ok {
			assert.Equal(t, other, n, "slot %d bound to two names", slot)
		}
		seen[slot] = n
	}

	_, g, err := s.Request(ConcreteName("g"), RequestSlot(NoSlot, Global))
	require.NoError(t, err)
	record("g", g)

	for depth := 0; depth < 3; depth++ {
		s.Push(NewFrame(s.Top(s.Len()), nil, false))
		for i := 0; i < 3; i++ {
			n := Name(fmt.Sprintf("d%d_%d", depth, i))
			record(n, requestLocal(t, s, n))
		}
	}
	assert.Len(t, seen, 10)
	for slot := range seen {
		assert.GreaterOrEqual(t, slot, MinSlot)
		assert.Less(t, slot, Slot(0))
	}
}

func TestRequest_ReusesSlotsBeyondHistory(t *testing.T) {
	s := New()
	pushLocal(s, false)
	a := requestLocal(t, s, "a")
	pushLocal(s, false)
	b := requestLocal(t, s, "b")
	pushLocal(s, false)

	// Only the immediate parent is visible, so the grandparent's slot is free.
	c := requestLocal(t, s, "c")
	assert.NotEqual(t, b, c)
	assert.Equal(t, a, c)
}

func TestRequest_ChildReadsParentAndGlobal(t *testing.T) {
	s := New()
	_, g, err := s.Request(ConcreteName("g"), RequestSlot(NoSlot, Global))
	require.NoError(t, err)

	pushLocal(s, false)
	x := requestLocal(t, s, "x")
	pushLocal(s, false)

	assert.Equal(t, x, requestLocal(t, s, "x"), "child sees parent binding")
	assert.Equal(t, g, requestLocal(t, s, "g"), "local request falls back to global frame")
	assert.Equal(t, 0, s.Current().Len(), "hits are not copied into the child")
}

func TestRequest_GlobalDoesNotReadLocal(t *testing.T) {
	s := New()
	pushLocal(s, false)
	x := requestLocal(t, s, "x")

	_, g, err := s.Request(ConcreteName("x"), RequestSlot(NoSlot, Global))
	require.NoError(t, err)
	assert.NotEqual(t, x, g, "global requests only read the global frame and never collide")

	gs, ok := s.Global().SlotOf("x")
	require.True(t, ok)
	assert.Equal(t, g, gs)
}

func TestRequest_KeepWritesIntoParents(t *testing.T) {
	s := New()
	outer := pushLocal(s, false)
	inner := pushLocal(s, true)

	x := requestLocal(t, s, "x")

	got, ok := inner.SlotOf("x")
	require.True(t, ok)
	assert.Equal(t, x, got)
	got, ok = outer.SlotOf("x")
	require.True(t, ok, "keep frames write their bindings into parents")
	assert.Equal(t, x, got)

	s.Pop()
	noKeep := pushLocal(s, false)
	requestLocal(t, s, "y")
	_, ok = outer.SlotOf("y")
	assert.False(t, ok)
	_, ok = noKeep.SlotOf("y")
	assert.True(t, ok)
}

func TestRequest_BoundaryRespectsReservation(t *testing.T) {
	s := New()
	_, err := s.SetFirstAvailableSlot(-3)
	require.NoError(t, err)

	_, v, err := s.Request(ConcreteName("v"), RequestSlot(NoSlot, Visible))
	require.NoError(t, err)
	assert.Equal(t, Slot(-1), v)
	_, v2, err := s.Request(ConcreteName("w"), RequestSlot(NoSlot, Visible))
	require.NoError(t, err)
	assert.Equal(t, Slot(-2), v2)

	pushLocal(s, false)
	assert.Equal(t, Slot(-3), requestLocal(t, s, "a"))
	assert.Equal(t, Slot(-4), requestLocal(t, s, "b"))
}

func TestRequest_VisibleScenario(t *testing.T) {
	t.Run("succeeds with -1 when free", func(t *testing.T) {
		s := New(WithFirstAvailableSlot(-2))
		name, slot, err := s.Request(ConcreteName("i"), RequestSlot(NoSlot, Visible))
		require.NoError(t, err)
		assert.Equal(t, Name("i"), name)
		assert.Equal(t, Slot(-1), slot)
	})

	t.Run("exhausted when -1 is taken", func(t *testing.T) {
		s := New(WithFirstAvailableSlot(-2))
		_, _, err := s.Request(ConcreteName("other"), RequestSlot(NoSlot, Visible))
		require.NoError(t, err)

		_, _, err = s.Request(ConcreteName("i"), RequestSlot(NoSlot, Visible))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExhausted)
	})

	t.Run("exhausted without a reserved range", func(t *testing.T) {
		s := New()
		_, _, err := s.Request(ConcreteName("i"), RequestSlot(NoSlot, Visible))
		assert.ErrorIs(t, err, ErrExhausted)
	})
}

func TestRequest_Exhaustion(t *testing.T) {
	s := New()
	pushLocal(s, false)
	for i := 1; i <= -int(MinSlot); i++ {
		slot := requestLocal(t, s, Name(fmt.Sprintf("n%d", i)))
		assert.Equal(t, Slot(-i), slot)
	}

	_, _, err := s.Request(ConcreteName("overflow"), RequestSlot(NoSlot, Local))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Contains(t, err.Error(), "overflow")
}

func TestRequest_ExplicitSlotCollision(t *testing.T) {
	s := New()
	pushLocal(s, false)
	requestLocal(t, s, "x")

	_, _, err := s.Request(ConcreteName("y"), RequestSlot(-1, Global))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)

	name, slot, err := s.Request(ConcreteName("y"), RequestSlot(-5, Local))
	require.NoError(t, err)
	assert.Equal(t, Name("y"), name)
	assert.Equal(t, Slot(-5), slot)
}

func TestRequest_ConflictingDualHit(t *testing.T) {
	s := New()
	pushLocal(s, false)
	x := requestLocal(t, s, "x")
	y := requestLocal(t, s, "y")

	_, _, err := s.Request(ConcreteName("x"), RequestSlot(y, Local))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingBinding)

	name, slot, err := s.Request(ConcreteName("x"), RequestSlot(x, Local))
	require.NoError(t, err, "a consistent dual hit is fine")
	assert.Equal(t, Name("x"), name)
	assert.Equal(t, x, slot)
}

func TestSetFirstAvailableSlot(t *testing.T) {
	s := New()

	prev, err := s.SetFirstAvailableSlot(-5)
	require.NoError(t, err)
	assert.Equal(t, NoSlot, prev)

	prev, err = s.SetFirstAvailableSlot(NoSlot)
	require.NoError(t, err)
	assert.Equal(t, Slot(-5), prev)

	for _, bad := range []Slot{MinSlot, MinSlot - 1, 1} {
		_, err := s.SetFirstAvailableSlot(bad)
		assert.ErrorIs(t, err, ErrInvalidBoundary, "slot %d", bad)
	}
	assert.Equal(t, NoSlot, s.FirstAvailableSlot(), "rejected values leave the boundary unchanged")
}

func TestPop_GlobalFramePanics(t *testing.T) {
	s := New()
	assert.Panics(t, func() { s.Pop() })

	f := pushLocal(s, false)
	assert.Same(t, f, s.Pop())
	assert.Equal(t, 1, s.Len())
}

func TestTop(t *testing.T) {
	s := New()
	a := pushLocal(s, false)
	b := pushLocal(s, false)

	assert.Nil(t, s.Top(0))
	assert.Equal(t, []*Frame{b}, s.Top(1))
	assert.Equal(t, []*Frame{b, a, s.Global()}, s.Top(10))
}

func TestOutermostOwnership(t *testing.T) {
	s := New()
	a, b := new(int), new(int)

	assert.True(t, s.ClaimOutermost(a))
	assert.False(t, s.ClaimOutermost(b))
	assert.False(t, s.ReleaseOutermost(b))
	assert.Same(t, a, s.Outermost())
	assert.True(t, s.ReleaseOutermost(a))
	assert.Nil(t, s.Outermost())
}

type recordingObserver struct {
	calls [][]Name
}

func (r *recordingObserver) ObserveBindings(class VisibilityClass, names []Name) {
	r.calls = append(r.calls, names)
}

func TestObserve(t *testing.T) {
	s := New()
	obs := &recordingObserver{}
	cancel := s.Observe(obs)

	s.Notify(Global, []Name{"a"})
	cancel()
	s.Notify(Global, []Name{"b"})

	assert.Equal(t, [][]Name{{"a"}}, obs.calls)
}

func TestParseVisibilityClass(t *testing.T) {
	for _, c := range []VisibilityClass{Local, Global, Visible} {
		parsed, err := ParseVisibilityClass(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	_, err := ParseVisibilityClass("bogus")
	assert.Error(t, err)
}

func TestNew_InvalidFirstAvailableSlotIsLogged(t *testing.T) {
	testCases := []struct {
		name string
		opts func(logger *slog.Logger) []Option
	}{
		{
			name: "logger first",
			opts: func(logger *slog.Logger) []Option {
				return []Option{WithLogger(logger), WithFirstAvailableSlot(MinSlot)}
			},
		},
		{
			name: "boundary first",
			opts: func(logger *slog.Logger) []Option {
				return []Option{WithFirstAvailableSlot(3), WithLogger(logger)}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			s := New(tc.opts(logger)...)
			assert.Equal(t, NoSlot, s.FirstAvailableSlot())
			assert.Contains(t, buf.String(), "level=WARN")
			assert.Contains(t, buf.String(), "Ignoring invalid first available slot.")
		})
	}

	var buf bytes.Buffer
	s := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))), WithFirstAvailableSlot(-4))
	assert.Equal(t, Slot(-4), s.FirstAvailableSlot())
	assert.Empty(t, buf.String())
}
