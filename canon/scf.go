package canon

import (
	"sort"

	"corevm/dialect/arith"
	"corevm/dialect/scf"
	"corevm/ir"
	"corevm/rewrite"
)

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// constantSelectorIf implements the structured-control-flow constant-fold
// (§4.5): an scf.if whose condition is a constant is replaced by the
// chosen branch's body, inlined in place of the op, with its yield
// forwarding directly in place of the op's results.
type constantSelectorIf struct{ n *scf.Names }

func (p *constantSelectorIf) Info() rewrite.PatternInfo {
	return rewrite.PatternInfo{Name: "scf.constant-selector-if", RootKind: rewrite.RootOperationName, OpName: p.n.If}
}

func (p *constantSelectorIf) MatchAndRewrite(op *ir.Operation, r rewrite.Rewriter) (bool, error) {
	res, ok := op.Operand(0).Value().(*ir.OpResult)
	if !ok {
		return false, nil
	}
	def := res.DefiningOp()
	constImpl, ok := def.Impl.(*arith.ConstantImpl)
	if !ok {
		return false, nil
	}
	var condTrue bool
	switch v := constImpl.Value.(type) {
	case ir.BoolAttr:
		condTrue = bool(v)
	case ir.IntAttr:
		condTrue = v.Value != 0
	default:
		return false, nil
	}

	impl := op.Impl.(*scf.IfImpl)
	var chosen *ir.Region
	switch {
	case condTrue:
		chosen = scf.Then(op)
	case impl.HasElse:
		chosen = scf.Else(op)
	default:
		return true, r.EraseOp(op)
	}

	entry := chosen.EntryBlock()
	if entry == nil {
		return true, r.EraseOp(op)
	}
	var yieldVals []ir.Value
	if term := entry.Terminator(); term != nil && term.Name() == p.n.Yield {
		yieldVals = forwardedValues(term.Operands())
		if err := r.EraseOp(term); err != nil {
			return false, err
		}
	}
	if err := r.InlineBlockBefore(entry, op, nil); err != nil {
		return false, err
	}
	if yieldVals == nil {
		return true, r.EraseOp(op)
	}
	return true, r.ReplaceOpWithValues(op, yieldVals)
}

// removeUnusedIfResults implements the "remove unused if results" fold:
// result indices of an scf.if with no remaining uses are pruned from the
// op, along with the matching yield operand in each region.
type removeUnusedIfResults struct{ n *scf.Names }

func (p *removeUnusedIfResults) Info() rewrite.PatternInfo {
	return rewrite.PatternInfo{Name: "scf.remove-unused-if-results", RootKind: rewrite.RootOperationName, OpName: p.n.If}
}

func (p *removeUnusedIfResults) MatchAndRewrite(op *ir.Operation, r rewrite.Rewriter) (bool, error) {
	results := op.Results()
	var keep []int
	for i, res := range results {
		if res.HasUses() {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(results) {
		return false, nil
	}

	pruneYield := func(region *ir.Region) error {
		if region.Empty() {
			return nil
		}
		term := region.EntryBlock().Terminator()
		if term == nil || term.Name() != p.n.Yield {
			return nil
		}
		for i := len(results) - 1; i >= 0; i-- {
			if !containsInt(keep, i) {
				idx := i
				r.ModifyOpInPlace(term, func() { term.EraseOperand(idx) })
			}
		}
		return nil
	}
	impl := op.Impl.(*scf.IfImpl)
	if err := pruneYield(scf.Then(op)); err != nil {
		return false, err
	}
	if impl.HasElse {
		if err := pruneYield(scf.Else(op)); err != nil {
			return false, err
		}
	}

	newResultTypes := make([]*ir.Type, len(keep))
	for j, i := range keep {
		newResultTypes[j] = results[i].Type()
	}
	cond := op.Operand(0).Value()
	regions := op.Regions()

	r.SetInsertionPointBefore(op)
	newOp := r.Builder().CreateWithRegions(op.Name(), newResultTypes, regions)
	newOp.AddOperand(cond)
	newOp.Impl = impl

	for j, i := range keep {
		r.ReplaceAllUsesOfValueWith(results[i], newOp.Result(j))
	}
	return true, r.EraseOp(op)
}

// removeUnusedWhileCarried prunes a while loop-carried value at index i
// when: the op's own result i has no uses, the before-region's block
// argument i has no uses (the condition computation never reads it), and
// the after-region's yield simply forwards its own block argument i
// unchanged (the value is loop-invariant through the body). Pruning it
// changes neither the loop's trip count nor any observable value.
type removeUnusedWhileCarried struct{ n *scf.Names }

func (p *removeUnusedWhileCarried) Info() rewrite.PatternInfo {
	return rewrite.PatternInfo{Name: "scf.remove-unused-while-carried", RootKind: rewrite.RootOperationName, OpName: p.n.While}
}

func (p *removeUnusedWhileCarried) MatchAndRewrite(op *ir.Operation, r rewrite.Rewriter) (bool, error) {
	before, after := scf.Before(op), scf.After(op)
	if before.Empty() || after.Empty() {
		return false, nil
	}
	beforeEntry, afterEntry := before.EntryBlock(), after.EntryBlock()
	cond, yield := beforeEntry.Terminator(), afterEntry.Terminator()
	if cond == nil || cond.Name() != p.n.Condition || yield == nil || yield.Name() != p.n.Yield {
		return false, nil
	}

	results := op.Results()
	n := len(results)
	beforeArgs, afterArgs := beforeEntry.Arguments(), afterEntry.Arguments()
	condFwd := cond.Operands()[1:]
	yieldOperands := yield.Operands()
	if len(beforeArgs) != n || len(afterArgs) != n || len(condFwd) != n || len(yieldOperands) != n || op.NumOperands() != n {
		return false, nil
	}

	var keep []int
	for i := 0; i < n; i++ {
		switch {
		case results[i].HasUses(), beforeArgs[i].HasUses():
			keep = append(keep, i)
		case yieldOperands[i].Value() != ir.Value(afterArgs[i]):
			keep = append(keep, i)
		}
	}
	if len(keep) == n {
		return false, nil
	}

	var drop []int
	for i := 0; i < n; i++ {
		if !containsInt(keep, i) {
			drop = append(drop, i)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(drop)))
	for _, i := range drop {
		idx := i
		r.ModifyOpInPlace(cond, func() { cond.EraseOperand(idx + 1) })
		r.ModifyOpInPlace(yield, func() { yield.EraseOperand(idx) })
		beforeEntry.EraseArgument(idx)
		afterEntry.EraseArgument(idx)
	}

	initArgs := make([]ir.Value, len(keep))
	for j, i := range keep {
		initArgs[j] = op.Operand(i).Value()
	}
	newResultTypes := make([]*ir.Type, len(keep))
	for j, i := range keep {
		newResultTypes[j] = results[i].Type()
	}
	regions := op.Regions()

	r.SetInsertionPointBefore(op)
	newOp := r.Builder().CreateWithRegions(op.Name(), newResultTypes, regions)
	for _, v := range initArgs {
		newOp.AddOperand(v)
	}
	newOp.Impl = op.Impl

	for j, i := range keep {
		r.ReplaceAllUsesOfValueWith(results[i], newOp.Result(j))
	}
	return true, r.EraseOp(op)
}
