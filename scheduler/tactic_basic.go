package scheduler

// hasSurvivingOriginal reports whether ctx contains an expected occurrence
// that is both the original (alias 0) and live past the current
// instruction. Any tactic that realizes such an occurrence by moving
// (rather than duplicating) the source slot would drop the last surviving
// copy of that value once the driver pops the consumed operand prefix, so
// tactics built around Move alone must decline these cases and let a
// Dup-based tactic (copyAllTactic) handle them instead.
func hasSurvivingOriginal(ctx Context) bool {
	for _, want := range ctx.Expected {
		if want.Alias == 0 && ctx.LiveAfter[want.Value] {
			return true
		}
	}
	return false
}

// identityTactic handles the trivial case where the stack's current top
// prefix already equals ctx.Expected: the optimality floor requires an
// empty action list here, not a degenerate dup/movup chain. It never
// applies when a matched original must survive the instruction, since an
// empty action list gives the driver nothing to preserve it with.
type identityTactic struct{}

func (identityTactic) Name() string { return "identity" }

func (identityTactic) Cost(ctx Context) int { return 0 }

func (identityTactic) Apply(b *SolutionBuilder, ctx Context) Result {
	if hasSurvivingOriginal(ctx) {
		return PreconditionFailed
	}
	stack := b.Stack()
	if len(stack) < len(ctx.Expected) {
		return PreconditionFailed
	}
	for i, want := range ctx.Expected {
		if !stack[i].Equal(want) {
			return PreconditionFailed
		}
	}
	return Ok
}

// pureMoveTactic handles the case where every expected operand is an
// original (alias 0) value already present on the stack exactly once, with
// no duplication required: the solve is a pure permutation realized with
// MoveUp/MoveDown only.
type pureMoveTactic struct{}

func (pureMoveTactic) Name() string { return "pure-move" }

func (pureMoveTactic) Cost(ctx Context) int { return len(ctx.Expected) }

func (pureMoveTactic) Apply(b *SolutionBuilder, ctx Context) Result {
	for _, want := range ctx.Expected {
		if want.Alias != 0 {
			return PreconditionFailed
		}
	}
	if hasSurvivingOriginal(ctx) {
		return PreconditionFailed
	}
	seen := make(map[ValueID]int, len(ctx.Expected))
	for _, want := range ctx.Expected {
		seen[want.Value]++
		if seen[want.Value] > 1 {
			return PreconditionFailed
		}
	}

	for index, want := range ctx.Expected {
		pos := b.Stack().PositionOf(want)
		if pos < 0 {
			return NotApplicable
		}
		if pos >= Window {
			return NotApplicable
		}
		if pos == index {
			continue
		}
		if pos == 0 {
			if !b.MoveDown(index) {
				return NotApplicable
			}
			continue
		}
		if !b.MoveUp(pos) {
			return NotApplicable
		}
		if index > 0 {
			if !b.MoveDown(index) {
				return NotApplicable
			}
		}
	}
	return Ok
}

// swapPermuteTactic handles the common two-operand reorder (commutative
// binary op whose operands arrived in the wrong order) with a single Swap
// rather than the more general MoveUp/MoveDown pair pureMoveTactic would
// use for the same case.
type swapPermuteTactic struct{}

func (swapPermuteTactic) Name() string { return "swap-permute" }

func (swapPermuteTactic) Cost(ctx Context) int { return 1 }

func (swapPermuteTactic) Apply(b *SolutionBuilder, ctx Context) Result {
	if len(ctx.Expected) != 2 {
		return PreconditionFailed
	}
	if hasSurvivingOriginal(ctx) {
		return PreconditionFailed
	}
	stack := b.Stack()
	if len(stack) < 2 {
		return PreconditionFailed
	}
	if stack[0].Equal(ctx.Expected[1]) && stack[1].Equal(ctx.Expected[0]) {
		if !b.Swap(1) {
			return NotApplicable
		}
		return Ok
	}
	return PreconditionFailed
}
