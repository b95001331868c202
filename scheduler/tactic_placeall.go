package scheduler

// placeAllTactic is the conservative strict fallback: it assumes no
// spilling and builds the expected prefix one position at a time,
// left-to-right. At each step the prefix already built (`0..index`) is
// left undisturbed while the next expected value is surfaced (copied or
// moved) to the top and then placed into index with MoveDown. An original
// (alias 0) occurrence that is still live past this instruction is always
// surfaced with Dup rather than MoveUp, so its old slot keeps a copy
// instead of being destroyed.
type placeAllTactic struct{}

func (placeAllTactic) Name() string { return "place-all" }

func (placeAllTactic) Cost(ctx Context) int {
	if len(ctx.Expected) > 1 {
		return len(ctx.Expected)
	}
	return 1
}

func (placeAllTactic) Apply(b *SolutionBuilder, ctx Context) Result {
	arity := len(ctx.Expected)
	if arity == 0 {
		return Ok
	}
	if arity > Window {
		return NotApplicable
	}

	for index, want := range ctx.Expected {
		if want.Alias != 0 {
			if pos := b.Stack().PositionOf(want); pos < 0 {
				srcPos := b.Stack().PositionOf(unaliased(want))
				if srcPos < 0 || srcPos >= Window {
					return NotApplicable
				}
				if !b.Dup(srcPos) {
					return NotApplicable
				}
				b.stack[0].Alias = want.Alias
			} else {
				if pos >= Window {
					return NotApplicable
				}
				if pos != 0 {
					if !b.MoveUp(pos) {
						return NotApplicable
					}
				}
			}
		} else if ctx.LiveAfter[want.Value] {
			pos := b.Stack().PositionOf(want)
			if pos < 0 || pos >= Window {
				return NotApplicable
			}
			if !b.Dup(pos) {
				return NotApplicable
			}
		} else {
			pos := b.Stack().PositionOf(want)
			if pos < 0 || pos >= Window {
				return NotApplicable
			}
			if pos != 0 {
				if !b.MoveUp(pos) {
					return NotApplicable
				}
			}
		}

		if index != 0 {
			if !b.MoveDown(index) {
				return NotApplicable
			}
		}
	}
	return Ok
}
