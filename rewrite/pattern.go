// Package rewrite implements the pattern rewrite engine: pattern
// registration and freezing, the Rewriter mutation API, and the greedy
// worklist-driven driver that applies folds and patterns to a fixed point.
package rewrite

import "corevm/ir"

// PatternBenefit orders competing pattern matches at the same root: higher
// benefit is tried first.
type PatternBenefit int

// RootKind discriminates a pattern's root key: it fires either on a
// concrete OperationName or on any operation carrying a given trait.
type RootKind uint8

const (
	RootOperationName RootKind = iota
	RootTrait
)

// PatternInfo is the registration metadata every Pattern carries.
type PatternInfo struct {
	Name     string
	RootKind RootKind
	// OpName is set when RootKind == RootOperationName.
	OpName *ir.OperationName
	// Trait is set when RootKind == RootTrait.
	Trait   ir.TraitID
	Benefit PatternBenefit
}

// RewritePattern is one rewrite rule: given a matching root operation and a
// Rewriter through which to mutate the IR, it reports whether it applied
// and any malformed-IR error encountered while trying.
type RewritePattern interface {
	Info() PatternInfo
	MatchAndRewrite(op *ir.Operation, r Rewriter) (changed bool, err error)
}

// matches reports whether pattern p is a candidate for op, based on its
// root key.
func matches(p RewritePattern, op *ir.Operation) bool {
	info := p.Info()
	switch info.RootKind {
	case RootOperationName:
		return info.OpName == op.Name()
	case RootTrait:
		return op.Name().HasTrait(info.Trait)
	default:
		return false
	}
}
