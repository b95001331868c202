package canon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corevm/canon"
	"corevm/dialect/arith"
	"corevm/dialect/cf"
	"corevm/dialect/fn"
	"corevm/diag"
	"corevm/ir"
	"corevm/rewrite"
)

func runGreedy(t *testing.T, root *ir.Operation, set *rewrite.RewritePatternSet) {
	t.Helper()
	sink := diag.NewSink(nil)
	_, err := rewrite.ApplyPatternsAndFoldGreedily(root, set.Freeze(), rewrite.Config{
		Order:         rewrite.TopDown,
		MaxIterations: 64,
	}, sink)
	require.NoError(t, err)
}

// TestPassThroughBranchCollapse covers §8 scenario 1: B0: br B1 and
// B1: br B2(x), B1 having only that forwarding branch, collapses to
// B0: br B2(x) with B1 erased. B3 is a second predecessor of B2, so B2 is
// not merged into B0 as a single-predecessor block afterward.
func TestPassThroughBranchCollapse(t *testing.T) {
	ctx := ir.NewContext()
	fnN := fn.Register(ctx)
	cfN := cf.Register(ctx)
	b := ir.NewBuilder(ctx)
	cb := cf.NewBuilder(b, cfN)

	root := ir.NewOperation(ctx, fnN.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)

	fb := fn.NewBuilder(b, fnN)
	fnOp := fb.Func("f", []*ir.Type{ctx.Felt()}, []*ir.Type{ctx.Felt()})
	body := fnOp.Region(0)
	b0 := body.EntryBlock()
	x := b0.Arguments()[0]
	b1 := body.AppendBlock(ctx)
	b2 := body.AppendBlock(ctx)
	b2Arg := b2.AddArgument(ctx.Felt())
	b3 := body.AppendBlock(ctx)

	b.SetInsertionPointToEnd(b0)
	cb.Br(b1, nil)

	b.SetInsertionPointToEnd(b1)
	cb.Br(b2, []ir.Value{x})

	b.SetInsertionPointToEnd(b2)
	fb.Return([]ir.Value{b2Arg})

	b.SetInsertionPointToEnd(b3)
	cb.Br(b2, []ir.Value{x})

	set := rewrite.NewRewritePatternSet()
	canon.PopulateCF(set, cfN)
	runGreedy(t, root, set)

	b0Term := b0.Terminator()
	require.NotNil(t, b0Term)
	require.Equal(t, cfN.Br, b0Term.Name())
	succ := b0Term.Successors()[0]
	assert.Equal(t, b2, succ.Target(), "B0 must branch directly to B2")
	require.Len(t, succ.Forwarded(), 1)
	assert.Equal(t, ir.Value(x), succ.Forwarded()[0].Value())

	// b1 must have been erased: it's no longer reachable among body's blocks.
	for _, blk := range body.Blocks() {
		assert.NotEqual(t, b1, blk, "B1 must be erased once collapsed")
	}
}

// TestSwitchToCondBr covers §8 scenario 3: a two-successor switch rewrites
// to an equality test plus a conditional branch.
func TestSwitchToCondBr(t *testing.T) {
	ctx := ir.NewContext()
	fnN := fn.Register(ctx)
	cfN := cf.Register(ctx)
	arithN := arith.Register(ctx)
	b := ir.NewBuilder(ctx)
	cb := cf.NewBuilder(b, cfN)
	ab := arith.NewBuilder(b, arithN)

	root := ir.NewOperation(ctx, fnN.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)

	fb := fn.NewBuilder(b, fnN)
	fnOp := fb.Func("f", []*ir.Type{ctx.I32()}, []*ir.Type{ctx.Felt()})
	body := fnOp.Region(0)
	entry := body.EntryBlock()
	selector := entry.Arguments()[0]

	bt := body.AppendBlock(ctx)
	bf := body.AppendBlock(ctx)

	b.SetInsertionPointToEnd(entry)
	cb.Switch(selector, []uint64{5}, []*ir.Block{bt}, [][]ir.Value{nil}, bf, nil)

	b.SetInsertionPointToEnd(bt)
	c1 := ab.Constant(ctx.Felt(), 1)
	fb.Return([]ir.Value{c1.Result(0)})

	b.SetInsertionPointToEnd(bf)
	c0 := ab.Constant(ctx.Felt(), 0)
	fb.Return([]ir.Value{c0.Result(0)})

	set := rewrite.NewRewritePatternSet()
	canon.PopulateCFWithArith(set, cfN, arithN)
	runGreedy(t, root, set)

	term := entry.Terminator()
	require.NotNil(t, term)
	assert.Equal(t, cfN.CondBr, term.Name(), "switch with two successors must become cond_br")
	require.Len(t, term.Successors(), 2)
	assert.Equal(t, bt, term.Successors()[0].Target())
	assert.Equal(t, bf, term.Successors()[1].Target())
}
