// Package canon is the canonicalization catalog: the concrete
// RewritePatterns the dialects in this repo register through their
// populate_canonicalization_patterns hook (§6), covering the unstructured
// CFG folds and structured-control-flow folds described in §4.5.
//
// Every pattern here upholds the canonicalization contract: applying it is
// idempotent, every member of an equivalence class reduces to the same
// form, and each rewrite is either a no-op or strictly more canonical. None
// of them touch operations outside the one they matched and its immediate
// neighbors.
package canon

import (
	"corevm/dialect/arith"
	"corevm/dialect/cf"
	"corevm/dialect/fn"
	"corevm/dialect/scf"
	"corevm/rewrite"
)

// PopulateCF registers the unstructured-CFG canonicalization patterns.
func PopulateCF(set *rewrite.RewritePatternSet, cfN *cf.Names) {
	set.Add(&mergeSinglePredecessor{n: cfN})
	set.Add(&collapsePassThroughBranch{n: cfN})
	set.Add(&splitCriticalEdges{n: cfN})
	set.Add(&switchUniformFold{n: cfN})
	set.Add(&dropUnusedSinglePredBlockArg{})
}

// PopulateCFWithFunc registers the CFG patterns that additionally need the
// func dialect's vocabulary (lifting a branch-to-return).
func PopulateCFWithFunc(set *rewrite.RewritePatternSet, cfN *cf.Names, fnN *fn.Names) {
	set.Add(&liftReturnThroughBranch{cfN: cfN, fnN: fnN})
}

// PopulateCFWithArith registers the CFG patterns that lower a switch into
// arith + cond_br.
func PopulateCFWithArith(set *rewrite.RewritePatternSet, cfN *cf.Names, arithN *arith.Names) {
	set.Add(&switchToCondBr{cfN: cfN, arithN: arithN})
}

// PopulateSCF registers the structured-control-flow canonicalization
// patterns.
func PopulateSCF(set *rewrite.RewritePatternSet, scfN *scf.Names) {
	set.Add(&constantSelectorIf{n: scfN})
	set.Add(&removeUnusedIfResults{n: scfN})
	set.Add(&removeUnusedWhileCarried{n: scfN})
}

// PopulateArith registers the arithmetic canonicalization patterns.
func PopulateArith(set *rewrite.RewritePatternSet, arithN *arith.Names) {
	set.Add(&rotl32ToHalvesSwap{n: arithN})
}
