package canon

import (
	"corevm/dialect/arith"
	"corevm/ir"
	"corevm/rewrite"
)

// rotl32ToHalvesSwap implements the arithmetic canonicalization named in
// §4.5: a rotl32 is rewritten into a split_halves/join_halves pair with
// the halves swapped, since field elements avoid the range checks a
// native bit-rotate would need to preserve packed upper bits.
type rotl32ToHalvesSwap struct{ n *arith.Names }

func (p *rotl32ToHalvesSwap) Info() rewrite.PatternInfo {
	return rewrite.PatternInfo{Name: "arith.rotl32-to-halves-swap", RootKind: rewrite.RootOperationName, OpName: p.n.RotL32}
}

func (p *rotl32ToHalvesSwap) MatchAndRewrite(op *ir.Operation, r rewrite.Rewriter) (bool, error) {
	v := op.Operand(0).Value()
	r.SetInsertionPointBefore(op)
	ab := arith.NewBuilder(r.Builder(), p.n)
	splitOp, err := ab.SplitHalves(v)
	if err != nil {
		return false, err
	}
	joinOp, err := ab.JoinHalves(splitOp.Result(1), splitOp.Result(0))
	if err != nil {
		return false, err
	}
	return true, r.ReplaceOp(op, joinOp)
}
