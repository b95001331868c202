package scheduler

import "sort"

// copyAllTactic copies every expected operand right-to-left, requiring that
// none of them need to be moved (every expected operand is a copy of a
// value already present on the stack).
//
// Copying right-to-left (deepest expected position first) generally
// produces the expected order for free. For large arities this can push a
// not-yet-copied source operand past the addressable window, since each
// dup inserts on top and shifts everything else one deeper; when that
// happens the tactic falls back to a two-phase strategy: copy every
// expected operand deepest-current-position-first (so no dup ever
// addresses outside the window), then permute the freshly copied top
// prefix into expected order with MoveUp/MoveDown.
type copyAllTactic struct{}

func (copyAllTactic) Name() string { return "copy-all" }

func (copyAllTactic) Cost(ctx Context) int {
	if len(ctx.Expected) > 1 {
		return len(ctx.Expected)
	}
	return 1
}

func (copyAllTactic) Apply(b *SolutionBuilder, ctx Context) Result {
	arity := len(ctx.Expected)
	original := b.Stack()

	for index := arity - 1; index >= 0; index-- {
		want := ctx.Expected[index]
		pos := b.Stack().PositionOf(unaliased(want))
		if pos < 0 {
			return NotApplicable
		}
		if pos >= Window {
			b.Discard(original)
			return copyAllFallback(b, ctx, original)
		}
		if !b.Dup(pos) {
			return NotApplicable
		}
		b.stack[0].Alias = want.Alias
	}
	return Ok
}

func copyAllFallback(b *SolutionBuilder, ctx Context, original Stack) Result {
	arity := len(ctx.Expected)
	order := append([]ValueOrAlias(nil), ctx.Expected...)
	positions := make(map[ValueOrAlias]int, arity)
	for _, want := range order {
		pos := original.PositionOf(unaliased(want))
		if pos < 0 {
			return NotApplicable
		}
		positions[want] = pos
	}
	sort.SliceStable(order, func(i, j int) bool {
		return positions[order[i]] > positions[order[j]]
	})

	for _, want := range order {
		pos := b.Stack().PositionOf(unaliased(want))
		if pos < 0 || pos >= Window {
			return NotApplicable
		}
		if !b.Dup(pos) {
			return NotApplicable
		}
		b.stack[0].Alias = want.Alias
	}

	for targetIndex := arity - 1; targetIndex >= 0; targetIndex-- {
		want := ctx.Expected[targetIndex]
		pos := b.Stack().PositionOf(want)
		if pos < 0 {
			return NotApplicable
		}
		if pos != 0 {
			if !b.MoveUp(pos) {
				return NotApplicable
			}
		}
		if targetIndex != 0 {
			if !b.MoveDown(targetIndex) {
				return NotApplicable
			}
		}
	}
	return Ok
}

// unaliased strips the alias tag, used to look up the underlying stack
// occurrence a copy must be duplicated from.
func unaliased(v ValueOrAlias) ValueOrAlias { return ValueOrAlias{Value: v.Value} }
