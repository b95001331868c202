package dataflow

import "corevm/ir"

// SpillCandidate is one value proposed as a spill target at a given
// program point, scored by the heuristic described in
// SpillAnalysis.Choose.
type SpillCandidate struct {
	Value           ir.Value
	Site            *ir.Operation
	DistanceToNext  int
	CopyCountAtSite int
	score           int
}

// Score returns the candidate's spill-priority score: lower spills first.
func (c SpillCandidate) Score() int { return c.score }

// SpillAnalysis resolves which live value to spill when the stack
// scheduler reports the addressable window exhausted. The heuristic scores
// each candidate by distance_to_next_use * copy_count_at_site, lowest
// score spilled first (a value whose next use is near, or that needs few
// copies at the current site, scores low and is spilled first); ties are
// broken by entity arena index for determinism.
type SpillAnalysis struct {
	liveness *LivenessAnalysis
	solver   *Solver
}

// NewSpillAnalysis wraps an already-run LivenessAnalysis/Solver pair.
func NewSpillAnalysis(liveness *LivenessAnalysis, solver *Solver) *SpillAnalysis {
	return &SpillAnalysis{liveness: liveness, solver: solver}
}

// Choose scores every value with a nonzero copy count in copyCounts (the
// number of distinct ValueOrAlias occurrences the scheduler needed for that
// value at this site), and every value with a zero count that is live after
// site, and returns them sorted, cheapest spill first.
func (sa *SpillAnalysis) Choose(site *ir.Operation, copyCounts map[ir.Value]int) []SpillCandidate {
	var candidates []SpillCandidate
	for v, copies := range copyCounts {
		// A value consumed at the site itself (copies > 0) is always a
		// candidate: rematerializing it from a local slot right before the
		// site frees its window position. Other values qualify only while
		// still live past the site.
		if copies == 0 && !sa.liveness.LiveAfter(sa.solver, site, v) {
			continue
		}
		dist := distanceToNextUse(site, v)
		candidates = append(candidates, SpillCandidate{
			Value:           v,
			Site:            site,
			DistanceToNext:  dist,
			CopyCountAtSite: copies,
			score:           dist * copies,
		})
	}
	sortCandidates(candidates)
	return candidates
}

func sortCandidates(cs []SpillCandidate) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && less(cs[j], cs[j-1]); j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}

func less(a, b SpillCandidate) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return arenaIndex(a.Value) < arenaIndex(b.Value)
}

// arenaIndex extracts the deterministic tie-break key from a value: the
// arena id of its defining operation (for an OpResult) or its owning
// block's (for a BlockArgument), matching §5's stable-tie-break
// requirement.
func arenaIndex(v ir.Value) uint64 {
	switch r := v.(type) {
	case *ir.OpResult:
		return uint64(r.DefiningOp().ID())
	case *ir.BlockArgument:
		return uint64(r.Owner().ID())
	default:
		return 0
	}
}

// distanceToNextUse counts operations strictly after site, up to and
// including the first use of v, within site's block. Values whose next use
// is outside the block (or absent) are given the block's remaining length
// plus one, treating them as "far" for scoring purposes; a full
// interprocedural distance is out of scope for this heuristic.
func distanceToNextUse(site *ir.Operation, v ir.Value) int {
	dist := 0
	for op := site.Next(); op != nil; op = op.Next() {
		dist++
		for _, operand := range op.Operands() {
			if operand.Value() == v {
				return dist
			}
		}
	}
	return dist + 1
}
