package rewrite

import (
	"sort"

	"corevm/ir"
)

// RewritePatternSet is a mutable collection of patterns populated from a
// Context's registered dialects before being frozen for use by the greedy
// driver.
type RewritePatternSet struct {
	patterns []RewritePattern
}

// NewRewritePatternSet returns an empty set.
func NewRewritePatternSet() *RewritePatternSet { return &RewritePatternSet{} }

// Add registers p in the set.
func (s *RewritePatternSet) Add(p RewritePattern) { s.patterns = append(s.patterns, p) }

// Freeze converts the set into an index keyed by root, ordered by
// descending benefit. A FrozenPatternSet is immutable and cheap to clone
// (it shares its backing slices).
func (s *RewritePatternSet) Freeze() *FrozenPatternSet {
	byName := make(map[*ir.OperationName][]RewritePattern)
	byTrait := make(map[ir.TraitID][]RewritePattern)
	for _, p := range s.patterns {
		info := p.Info()
		switch info.RootKind {
		case RootOperationName:
			byName[info.OpName] = append(byName[info.OpName], p)
		case RootTrait:
			byTrait[info.Trait] = append(byTrait[info.Trait], p)
		}
	}
	for k := range byName {
		sortByBenefit(byName[k])
	}
	traits := make([]ir.TraitID, 0, len(byTrait))
	for k := range byTrait {
		sortByBenefit(byTrait[k])
		traits = append(traits, k)
	}
	sort.Slice(traits, func(i, j int) bool { return traits[i] < traits[j] })
	return &FrozenPatternSet{byName: byName, byTrait: byTrait, traitsSorted: traits}
}

func sortByBenefit(ps []RewritePattern) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].Info().Benefit > ps[j].Info().Benefit
	})
}

// FrozenPatternSet is the immutable, benefit-ordered pattern index the
// greedy driver consults per visited operation.
type FrozenPatternSet struct {
	byName       map[*ir.OperationName][]RewritePattern
	byTrait      map[ir.TraitID][]RewritePattern
	traitsSorted []ir.TraitID
}

// Applicable returns every pattern that could apply to op, in descending
// benefit order: first those rooted at op's concrete OperationName, then
// those rooted at any trait op carries (traits are consulted in trait-id
// order for determinism).
func (f *FrozenPatternSet) Applicable(op *ir.Operation) []RewritePattern {
	var out []RewritePattern
	out = append(out, f.byName[op.Name()]...)
	for _, t := range f.traitsSorted {
		if op.Name().HasTrait(t) {
			out = append(out, f.byTrait[t]...)
		}
	}
	return out
}
