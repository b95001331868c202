package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corevm/scheduler"
)

func voa(v uint32) scheduler.ValueOrAlias { return scheduler.ValueOrAlias{Value: scheduler.ValueID(v)} }

func voaAlias(v, alias uint32) scheduler.ValueOrAlias {
	return scheduler.ValueOrAlias{Value: scheduler.ValueID(v), Alias: alias}
}

// execute applies actions to stack exactly as the codegen driver would,
// used to check property (b) of §8's scheduler-correctness requirement.
func execute(stack scheduler.Stack, actions []scheduler.Action) scheduler.Stack {
	s := stack.Clone()
	for _, a := range actions {
		switch a.Kind {
		case scheduler.Copy:
			v := s[a.I]
			s = append(scheduler.Stack{v}, s...)
		case scheduler.Swap:
			s[0], s[a.I] = s[a.I], s[0]
		case scheduler.MoveUp:
			v := s[a.I]
			copy(s[1:a.I+1], s[0:a.I])
			s[0] = v
		case scheduler.MoveDown:
			v := s[0]
			copy(s[0:a.I], s[1:a.I+1])
			s[a.I] = v
		}
	}
	return s
}

func TestSolveEmptyExpectedIsAlwaysEmptyActions(t *testing.T) {
	stack := scheduler.Stack{voa(1), voa(2)}
	actions, err := scheduler.Solve(stack, scheduler.Context{}, scheduler.DefaultTactics())
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestSolveIdentityWhenAlreadyMatching(t *testing.T) {
	stack := scheduler.Stack{voa(1), voa(2), voa(3)}
	ctx := scheduler.Context{Expected: []scheduler.ValueOrAlias{voa(1), voa(2)}}
	actions, err := scheduler.Solve(stack, ctx, scheduler.DefaultTactics())
	require.NoError(t, err)
	assert.Empty(t, actions, "optimality floor: no-op solve must emit nothing")
}

func TestSolvePureMovePermutation(t *testing.T) {
	stack := scheduler.Stack{voa(1), voa(2), voa(3)}
	ctx := scheduler.Context{
		Expected:  []scheduler.ValueOrAlias{voa(3), voa(1)},
		LiveAfter: map[scheduler.ValueID]bool{},
	}
	actions, err := scheduler.Solve(stack, ctx, scheduler.DefaultTactics())
	require.NoError(t, err)
	for _, a := range actions {
		assert.Less(t, a.I, scheduler.Window)
	}
	got := execute(stack, actions)
	require.GreaterOrEqual(t, len(got), len(ctx.Expected))
	for i, want := range ctx.Expected {
		assert.True(t, got[i].Equal(want), "position %d: got %v want %v", i, got[i], want)
	}
}

func TestSolveSwapPermute(t *testing.T) {
	stack := scheduler.Stack{voa(1), voa(2)}
	ctx := scheduler.Context{
		Expected:  []scheduler.ValueOrAlias{voa(2), voa(1)},
		LiveAfter: map[scheduler.ValueID]bool{},
	}
	actions, err := scheduler.Solve(stack, ctx, scheduler.DefaultTactics())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, scheduler.Swap, actions[0].Kind)
}

func TestSolveCopyAllDuplicatesWithoutDroppingOriginal(t *testing.T) {
	// Value 1 is consumed twice (diamond use) and must still be present
	// afterward because it has a third, later use.
	stack := scheduler.Stack{voa(1), voa(2)}
	ctx := scheduler.Context{
		Expected:  []scheduler.ValueOrAlias{voa(1), voaAlias(1, 1)},
		LiveAfter: map[scheduler.ValueID]bool{1: true},
	}
	actions, err := scheduler.Solve(stack, ctx, scheduler.DefaultTactics())
	require.NoError(t, err)
	got := execute(stack, actions)
	// Executed actions carry no alias tags, so each position is compared by
	// underlying value.
	for i, want := range ctx.Expected {
		assert.Equal(t, want.Value, got[i].Value, "position %d: got %v want %v", i, got[i], want)
	}
	// value 1's original occurrence must still exist below the consumed
	// prefix since it remains live.
	found := false
	for _, v := range got[len(ctx.Expected):] {
		if v.Value == 1 && v.Alias == 0 {
			found = true
		}
	}
	assert.True(t, found, "surviving original of value 1 must not be dropped")
}

func TestSolveCopyAllLargeArityStaysInWindow(t *testing.T) {
	// Scenario 5: expected = the 16 values at depths 0..15 in reverse order,
	// all live past the site so each must be copied; the top-down copy pass
	// would push a source to depth 16, forcing the two-phase fallback.
	n := scheduler.Window
	stack := make(scheduler.Stack, n+1)
	for i := 0; i <= n; i++ {
		stack[i] = voa(uint32(i))
	}
	expected := make([]scheduler.ValueOrAlias, n)
	for i := 0; i < n; i++ {
		// reverse order relative to stack depth to force permutation
		expected[i] = voa(uint32(n - 1 - i))
	}
	live := map[scheduler.ValueID]bool{}
	for i := 0; i < n; i++ {
		live[scheduler.ValueID(i)] = true
	}
	ctx := scheduler.Context{Expected: expected, LiveAfter: live}
	actions, err := scheduler.Solve(stack, ctx, scheduler.DefaultTactics())
	require.NoError(t, err)
	for _, a := range actions {
		assert.Less(t, a.I, scheduler.Window, "action %v addresses outside the window", a)
	}
	got := execute(stack, actions)
	for i, want := range expected {
		assert.True(t, got[i].Equal(want), "position %d: got %v want %v", i, got[i], want)
	}
}

func TestSolveReturnsSpillRequiredWhenSourceBeyondWindow(t *testing.T) {
	// Scenario 6: an original sits at depth 17, no tactic can reach it
	// without spilling first.
	stack := make(scheduler.Stack, scheduler.Window+2)
	for i := range stack {
		stack[i] = voa(uint32(i))
	}
	deep := stack[scheduler.Window+1]
	ctx := scheduler.Context{
		Expected:  []scheduler.ValueOrAlias{deep},
		LiveAfter: map[scheduler.ValueID]bool{},
	}
	_, err := scheduler.Solve(stack, ctx, scheduler.DefaultTactics())
	assert.ErrorIs(t, err, scheduler.ErrSpillRequired)
}

func TestActionIndicesAlwaysBelowWindow(t *testing.T) {
	stack := scheduler.Stack{voa(1), voa(2), voa(3), voa(4)}
	ctx := scheduler.Context{
		Expected:  []scheduler.ValueOrAlias{voa(4), voa(3), voa(2), voa(1)},
		LiveAfter: map[scheduler.ValueID]bool{},
	}
	actions, err := scheduler.Solve(stack, ctx, scheduler.DefaultTactics())
	require.NoError(t, err)
	for _, a := range actions {
		assert.GreaterOrEqual(t, a.I, 0)
		assert.Less(t, a.I, scheduler.Window)
	}
}
