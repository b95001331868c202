// Package lower implements structured-control-flow lifting: the pipeline
// stage that turns scf.if/scf.while into plain blocks joined by
// cf.br/cf.cond_br, run after canonicalization and before spill insertion
// and codegen (§2).
package lower

import (
	"fmt"

	"corevm/dialect/cf"
	"corevm/dialect/scf"
	"corevm/ir"
	"corevm/pass"
)

// SCFToCF lowers every scf.if/scf.while found in a target op's first
// region into cf dialect branches between unstructured blocks.
type SCFToCF struct {
	pass.FuncPass
	CF  *cf.Names
	SCF *scf.Names
}

// NewSCFToCF returns a pass scoped to target (typically func.func),
// lowering scf ops using the given dialect vocabularies.
func NewSCFToCF(target *ir.OperationName, cfNames *cf.Names, scfNames *scf.Names) *SCFToCF {
	return &SCFToCF{FuncPass: pass.FuncPass{TargetName: target}, CF: cfNames, SCF: scfNames}
}

// Name implements pass.Pass.
func (p *SCFToCF) Name() string { return "scf-to-cf" }

// Preserves implements pass.Pass: lowering rewrites the CFG wholesale, so
// no prior analysis survives it.
func (p *SCFToCF) Preserves() []string { return nil }

// Run implements pass.Pass.
func (p *SCFToCF) Run(op *ir.Operation, am *pass.AnalysisManager) error {
	if len(op.Regions()) == 0 || op.Region(0).Empty() {
		return nil
	}
	b := ir.NewBuilder(op.Context())
	return p.lowerRegion(b, op.Region(0))
}

func valuesOfOperands(operands []*ir.Operand) []ir.Value {
	out := make([]ir.Value, len(operands))
	for i, o := range operands {
		out[i] = o.Value()
	}
	return out
}

func replaceAllUses(from, to ir.Value) {
	for _, use := range append([]*ir.Operand(nil), from.Uses()...) {
		use.Set(to)
	}
}

// moveTail relocates every operation after op (exclusive) from curBlock to
// the end of cont, preserving order.
func moveTail(curBlock, cont *ir.Block, op *ir.Operation) {
	for o := op.Next(); o != nil; {
		next := o.Next()
		curBlock.UnlinkForMove(o)
		cont.AppendForMove(o)
		o = next
	}
}

// terminatedBy returns the block in region whose terminator is named
// want, or nil. Before any nested structured op inside region has been
// lowered, this is always region's single entry block; after nested
// lowering has split it into several blocks, it is whichever one ended up
// holding the original terminator.
func terminatedBy(region *ir.Region, want *ir.OperationName) *ir.Block {
	for _, blk := range region.Blocks() {
		if t := blk.Terminator(); t != nil && t.Name() == want {
			return blk
		}
	}
	return nil
}

// lowerRegion repeatedly finds and lowers the first remaining scf.if/while
// in region. Lowering one op only ever appends new blocks to the same
// region, so this always terminates.
func (p *SCFToCF) lowerRegion(b *ir.Builder, region *ir.Region) error {
	for {
		op := p.findStructuredOp(region)
		if op == nil {
			return nil
		}
		if err := p.lowerOne(b, op); err != nil {
			return err
		}
	}
}

func (p *SCFToCF) findStructuredOp(region *ir.Region) *ir.Operation {
	for _, blk := range region.Blocks() {
		for o := blk.First(); o != nil; o = o.Next() {
			if o.Name() == p.SCF.If || o.Name() == p.SCF.While {
				return o
			}
		}
	}
	return nil
}

func (p *SCFToCF) lowerOne(b *ir.Builder, op *ir.Operation) error {
	for _, r := range op.Regions() {
		if err := p.lowerRegion(b, r); err != nil {
			return err
		}
	}
	switch op.Name() {
	case p.SCF.If:
		return p.lowerIf(b, op)
	case p.SCF.While:
		return p.lowerWhile(b, op)
	default:
		return fmt.Errorf("lower: unexpected structured op %s", op.Name().Full())
	}
}

// spliceRegionAsBlock moves every block of srcRegion into parentRegion,
// replacing whichever block holds its yield terminator with a cf.br to
// cont forwarding the yielded values, and returns srcRegion's original
// entry block as the branch target for entering it. A nil/empty srcRegion
// (an if with no else) returns cont itself.
func (p *SCFToCF) spliceRegionAsBlock(b *ir.Builder, parentRegion, srcRegion *ir.Region, cont *ir.Block) *ir.Block {
	if srcRegion.Empty() {
		return cont
	}
	entry := srcRegion.EntryBlock()
	yieldBlock := terminatedBy(srcRegion, p.SCF.Yield)
	var yieldVals []ir.Value
	if yieldBlock != nil {
		term := yieldBlock.Terminator()
		yieldVals = valuesOfOperands(term.Operands())
		term.Erase()
	}
	parentRegion.InlineRegionBefore(srcRegion, nil)
	if yieldBlock != nil {
		b.SetInsertionPointToEnd(yieldBlock)
		cf.NewBuilder(b, p.CF).Br(cont, yieldVals)
	}
	return entry
}

func (p *SCFToCF) lowerIf(b *ir.Builder, op *ir.Operation) error {
	curBlock := op.Parent()
	parentRegion := curBlock.Parent()
	impl := op.Impl.(*scf.IfImpl)
	cond := op.Operand(0).Value()
	results := op.Results()

	cont := parentRegion.AppendBlock(b.Context())
	for _, res := range results {
		arg := cont.AddArgument(res.Type())
		replaceAllUses(res, arg)
	}
	moveTail(curBlock, cont, op)

	thenBlock := p.spliceRegionAsBlock(b, parentRegion, scf.Then(op), cont)
	var elseBlock *ir.Block
	if impl.HasElse {
		elseBlock = p.spliceRegionAsBlock(b, parentRegion, scf.Else(op), cont)
	} else {
		elseBlock = cont
	}

	b.SetInsertionPointToEnd(curBlock)
	cf.NewBuilder(b, p.CF).CondBr(cond, thenBlock, nil, elseBlock, nil)

	return op.Erase()
}

func (p *SCFToCF) lowerWhile(b *ir.Builder, op *ir.Operation) error {
	curBlock := op.Parent()
	parentRegion := curBlock.Parent()
	results := op.Results()
	initVals := valuesOfOperands(op.Operands())

	cont := parentRegion.AppendBlock(b.Context())
	for _, res := range results {
		arg := cont.AddArgument(res.Type())
		replaceAllUses(res, arg)
	}
	moveTail(curBlock, cont, op)

	beforeRegion, afterRegion := scf.Before(op), scf.After(op)
	beforeEntry := beforeRegion.EntryBlock()
	afterEntry := afterRegion.EntryBlock()

	condBlock := terminatedBy(beforeRegion, p.SCF.Condition)
	yieldBlock := terminatedBy(afterRegion, p.SCF.Yield)

	var condVal ir.Value
	var condFwd []ir.Value
	if condBlock != nil {
		term := condBlock.Terminator()
		ops := term.Operands()
		condVal = ops[0].Value()
		condFwd = valuesOfOperands(ops[1:])
		term.Erase()
	}
	var yieldVals []ir.Value
	if yieldBlock != nil {
		term := yieldBlock.Terminator()
		yieldVals = valuesOfOperands(term.Operands())
		term.Erase()
	}

	parentRegion.InlineRegionBefore(beforeRegion, nil)
	parentRegion.InlineRegionBefore(afterRegion, nil)

	if condBlock != nil {
		b.SetInsertionPointToEnd(condBlock)
		cf.NewBuilder(b, p.CF).CondBr(condVal, afterEntry, condFwd, cont, condFwd)
	}
	if yieldBlock != nil {
		b.SetInsertionPointToEnd(yieldBlock)
		cf.NewBuilder(b, p.CF).Br(beforeEntry, yieldVals)
	}

	b.SetInsertionPointToEnd(curBlock)
	cf.NewBuilder(b, p.CF).Br(beforeEntry, initVals)

	return op.Erase()
}
