package scheduler

import "errors"

// Result is the outcome of one Tactic.Apply attempt.
type Result uint8

const (
	// Ok means the builder now holds a valid solution.
	Ok Result = iota
	// PreconditionFailed means this tactic does not fit the input;
	// the solver should discard progress and try the next tactic.
	PreconditionFailed
	// NotApplicable means no amount of retrying will help; distinct
	// from PreconditionFailed only for diagnostics, both cause the
	// solver to move on.
	NotApplicable
)

// ErrSpillRequired is returned by Solve when every tactic failed: the
// addressable window is insufficient without first spilling one or more
// live values to memory. The caller (codegen) is expected to consult
// SpillAnalysis, insert Spill/Reload ops, and retry.
var ErrSpillRequired = errors.New("scheduler: addressable window exhausted, spill required")

// Context is the read-only information a Tactic needs beyond the builder's
// working stack: the expected post-solve operand prefix and which values
// remain live (have uses) after this instruction.
type Context struct {
	Expected []ValueOrAlias
	// LiveAfter reports whether v has at least one remaining use past
	// the current instruction; values for which this is false may be
	// dropped once consumed.
	LiveAfter map[ValueID]bool
}

// Tactic is one strategy for realizing a Context's Expected prefix atop a
// SolutionBuilder's working stack.
type Tactic interface {
	// Name identifies the tactic for diagnostics and cost-order
	// tie-breaking.
	Name() string
	// Cost estimates the tactic's action count for ctx, used to order
	// attempts ascending; cheaper tactics are tried first.
	Cost(ctx Context) int
	// Apply attempts to drive b to a state whose top len(ctx.Expected)
	// slots equal ctx.Expected.
	Apply(b *SolutionBuilder, ctx Context) Result
}

// Solve tries tactics in ascending Cost order against stack, returning the
// first tactic's Action list to succeed. If none apply, it returns
// ErrSpillRequired.
func Solve(stack Stack, ctx Context, tactics []Tactic) ([]Action, error) {
	if len(ctx.Expected) == 0 {
		return nil, nil
	}
	ordered := append([]Tactic(nil), tactics...)
	sortByCost(ordered, ctx)

	for _, t := range ordered {
		b := NewSolutionBuilder(stack)
		switch t.Apply(b, ctx) {
		case Ok:
			return b.Actions(), nil
		case PreconditionFailed, NotApplicable:
			continue
		}
	}
	return nil, ErrSpillRequired
}

func sortByCost(tactics []Tactic, ctx Context) {
	costs := make([]int, len(tactics))
	for i, t := range tactics {
		costs[i] = t.Cost(ctx)
	}
	for i := 1; i < len(tactics); i++ {
		for j := i; j > 0 && costs[j] < costs[j-1]; j-- {
			tactics[j], tactics[j-1] = tactics[j-1], tactics[j]
			costs[j], costs[j-1] = costs[j-1], costs[j]
		}
	}
}

// DefaultTactics returns the solver's representative tactic set in the
// order described by §4.9.4, cheapest structural fit first: pure moves,
// then small swap-based permutations, then the general copy/place
// fallbacks.
func DefaultTactics() []Tactic {
	return []Tactic{
		&identityTactic{},
		&pureMoveTactic{},
		&swapPermuteTactic{},
		&copyAllTactic{},
		&placeAllTactic{},
	}
}
