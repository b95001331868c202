package canon

import (
	"corevm/dialect/arith"
	"corevm/dialect/cf"
	"corevm/dialect/fn"
	"corevm/ir"
	"corevm/rewrite"
)

func forwardedValues(operands []*ir.Operand) []ir.Value {
	out := make([]ir.Value, len(operands))
	for i, o := range operands {
		out[i] = o.Value()
	}
	return out
}

// mergeSinglePredecessor implements §8 scenario "merge a branch into a
// block with a single predecessor": given B0: br B1(args) where B1 has no
// other predecessor, B1's contents are spliced into B0 and B1 is erased.
type mergeSinglePredecessor struct{ n *cf.Names }

func (p *mergeSinglePredecessor) Info() rewrite.PatternInfo {
	return rewrite.PatternInfo{Name: "cf.merge-single-predecessor", RootKind: rewrite.RootOperationName, OpName: p.n.Br}
}

func (p *mergeSinglePredecessor) MatchAndRewrite(op *ir.Operation, r rewrite.Rewriter) (bool, error) {
	parent := op.Parent()
	succ := op.Successors()[0]
	target := succ.Target()
	if target == parent || target.SinglePredecessor() != succ {
		return false, nil
	}
	argMapping := forwardedValues(succ.Forwarded())
	if err := r.EraseOp(op); err != nil {
		return false, err
	}
	if err := r.MergeBlocks(target, parent, argMapping); err != nil {
		return false, err
	}
	if err := r.EraseBlock(target); err != nil {
		return false, err
	}
	return true, nil
}

// collapsePassThroughBranch implements §8 scenario 1: given B0: br B1 and
// B1: br B2(x), where B1 contains nothing but that forwarding branch, B0's
// branch is replaced by one straight to B2 (B1's arguments in the forwarded
// list are substituted by what B0 passed for them) and B1 is erased once it
// has no remaining predecessors. Because B0's terminator carries only one
// successor, retargeting it can never introduce a critical edge.
type collapsePassThroughBranch struct{ n *cf.Names }

func (p *collapsePassThroughBranch) Info() rewrite.PatternInfo {
	return rewrite.PatternInfo{Name: "cf.collapse-pass-through-branch", RootKind: rewrite.RootOperationName, OpName: p.n.Br}
}

func (p *collapsePassThroughBranch) MatchAndRewrite(op *ir.Operation, r rewrite.Rewriter) (bool, error) {
	succ := op.Successors()[0]
	b1 := succ.Target()
	if b1 == op.Parent() || b1.First() == nil || b1.First() != b1.Last() {
		return false, nil
	}
	inner := b1.First()
	if inner.Name() != p.n.Br {
		return false, nil
	}
	innerSucc := inner.Successors()[0]
	outer := forwardedValues(succ.Forwarded())
	if len(outer) != len(b1.Arguments()) {
		return false, nil
	}
	newFwd := forwardedValues(innerSucc.Forwarded())
	for i, v := range newFwd {
		if a, ok := v.(*ir.BlockArgument); ok && a.Owner() == b1 {
			newFwd[i] = outer[a.ArgIndex()]
		}
	}
	r.SetInsertionPointBefore(op)
	cf.NewBuilder(r.Builder(), p.n).Br(innerSucc.Target(), newFwd)
	if err := r.EraseOp(op); err != nil {
		return false, err
	}
	if len(b1.Predecessors()) == 0 {
		if err := r.EraseOp(inner); err != nil {
			return false, err
		}
		if err := r.EraseBlock(b1); err != nil {
			return false, err
		}
	}
	return true, nil
}

// splitCriticalEdges implements §8 scenario 2: for every successor edge
// whose source carries more than one successor and whose target has more
// than one predecessor, a pass-through block is inserted and the edge
// retargeted through it, so no critical edge survives canonicalization.
type splitCriticalEdges struct{ n *cf.Names }

func (p *splitCriticalEdges) Info() rewrite.PatternInfo {
	return rewrite.PatternInfo{Name: "cf.split-critical-edges", RootKind: rewrite.RootTrait, Trait: ir.TraitTerminator}
}

func (p *splitCriticalEdges) MatchAndRewrite(op *ir.Operation, r rewrite.Rewriter) (bool, error) {
	if len(op.Successors()) < 2 {
		return false, nil
	}
	changed := false
	for _, s := range op.Successors() {
		target := s.Target()
		if len(target.Predecessors()) < 2 {
			continue
		}
		trampoline := r.CreateBlock(target.Parent())
		for _, a := range target.Arguments() {
			trampoline.AddArgument(a.Type())
		}
		brArgs := make([]ir.Value, len(trampoline.Arguments()))
		for i, a := range trampoline.Arguments() {
			brArgs[i] = a
		}
		cf.NewBuilder(r.Builder(), p.n).Br(target, brArgs)
		r.ModifyOpInPlace(op, func() { s.SetTarget(trampoline) })
		changed = true
	}
	return changed, nil
}

// switchUniformFold implements the "switch with uniform target" fold: when
// every case of a cf.switch targets the same block as its default, with
// identical forwarded operands, the switch degenerates to an
// unconditional branch.
type switchUniformFold struct{ n *cf.Names }

func (p *switchUniformFold) Info() rewrite.PatternInfo {
	return rewrite.PatternInfo{Name: "cf.switch-uniform-target", RootKind: rewrite.RootOperationName, OpName: p.n.Switch}
}

func (p *switchUniformFold) MatchAndRewrite(op *ir.Operation, r rewrite.Rewriter) (bool, error) {
	def := cf.DefaultSuccessor(op)
	for _, c := range cf.CaseSuccessors(op) {
		if c.Target() != def.Target() || len(c.Forwarded()) != len(def.Forwarded()) {
			return false, nil
		}
		for i, f := range c.Forwarded() {
			if f.Value() != def.Forwarded()[i].Value() {
				return false, nil
			}
		}
	}
	r.SetInsertionPointBefore(op)
	cf.NewBuilder(r.Builder(), p.n).Br(def.Target(), forwardedValues(def.Forwarded()))
	return true, r.EraseOp(op)
}

// switchToCondBr implements the "2-successor switch" fold: a cf.switch
// with exactly one case is equivalent to an equality test against that
// case's value followed by a cf.cond_br.
type switchToCondBr struct {
	cfN    *cf.Names
	arithN *arith.Names
}

func (p *switchToCondBr) Info() rewrite.PatternInfo {
	return rewrite.PatternInfo{Name: "cf.switch-to-cond-br", RootKind: rewrite.RootOperationName, OpName: p.cfN.Switch}
}

func (p *switchToCondBr) MatchAndRewrite(op *ir.Operation, r rewrite.Rewriter) (bool, error) {
	cases := cf.CaseSuccessors(op)
	if len(cases) != 1 {
		return false, nil
	}
	impl, ok := op.Impl.(*cf.SwitchImpl)
	if !ok {
		return false, nil
	}
	selector := op.Operand(0).Value()
	def := cf.DefaultSuccessor(op)
	caseSucc := cases[0]

	r.SetInsertionPointBefore(op)
	ab := arith.NewBuilder(r.Builder(), p.arithN)
	constOp := ab.Constant(selector.Type(), impl.Cases[0])
	eqOp, err := ab.CmpEq(selector, constOp.Result(0))
	if err != nil {
		return false, err
	}
	cf.NewBuilder(r.Builder(), p.cfN).CondBr(
		eqOp.Result(0),
		caseSucc.Target(), forwardedValues(caseSucc.Forwarded()),
		def.Target(), forwardedValues(def.Forwarded()),
	)
	return true, r.EraseOp(op)
}

// dropUnusedSinglePredBlockArg implements the "unused block argument"
// fold: a block argument with no remaining uses, reached through exactly
// one predecessor edge, is pruned along with the matching forwarded
// operand on that edge.
type dropUnusedSinglePredBlockArg struct{}

func (p *dropUnusedSinglePredBlockArg) Info() rewrite.PatternInfo {
	return rewrite.PatternInfo{Name: "cf.drop-unused-single-pred-block-arg", RootKind: rewrite.RootTrait, Trait: ir.TraitTerminator}
}

func (p *dropUnusedSinglePredBlockArg) MatchAndRewrite(op *ir.Operation, r rewrite.Rewriter) (bool, error) {
	changed := false
	for _, s := range op.Successors() {
		target := s.Target()
		if target.SinglePredecessor() != s {
			continue
		}
		args := target.Arguments()
		for i := len(args) - 1; i >= 0; i-- {
			if args[i].HasUses() {
				continue
			}
			r.ModifyOpInPlace(op, func() {
				s.EraseForwarded(i)
				target.EraseArgument(i)
			})
			changed = true
		}
	}
	return changed, nil
}

// liftReturnThroughBranch implements the "branch to a return-only block"
// fold: given B0: br B1(args) where B1 contains nothing but func.return
// forwarding exactly B1's own arguments, B0's branch is replaced by a
// direct return of the forwarded values.
type liftReturnThroughBranch struct {
	cfN *cf.Names
	fnN *fn.Names
}

func (p *liftReturnThroughBranch) Info() rewrite.PatternInfo {
	return rewrite.PatternInfo{Name: "cf.lift-return-through-branch", RootKind: rewrite.RootOperationName, OpName: p.cfN.Br}
}

func (p *liftReturnThroughBranch) MatchAndRewrite(op *ir.Operation, r rewrite.Rewriter) (bool, error) {
	succ := op.Successors()[0]
	target := succ.Target()
	if target.First() == nil || target.First() != target.Last() {
		return false, nil
	}
	inner := target.First()
	if inner.Name() != p.fnN.Return {
		return false, nil
	}
	args := target.Arguments()
	if len(inner.Operands()) != len(args) {
		return false, nil
	}
	for i, o := range inner.Operands() {
		if o.Value() != ir.Value(args[i]) {
			return false, nil
		}
	}
	newVals := forwardedValues(succ.Forwarded())

	r.SetInsertionPointBefore(op)
	fn.NewBuilder(r.Builder(), p.fnN).Return(newVals)
	if err := r.EraseOp(op); err != nil {
		return false, err
	}
	if len(target.Predecessors()) == 0 {
		if err := r.EraseOp(inner); err != nil {
			return false, err
		}
		if err := r.EraseBlock(target); err != nil {
			return false, err
		}
	}
	return true, nil
}
