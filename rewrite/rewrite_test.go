package rewrite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corevm/dialect/arith"
	"corevm/dialect/fn"
	"corevm/diag"
	"corevm/ir"
	"corevm/rewrite"
)

// buildAddZeroFunc builds a single function `f(x) -> felt { return x + 0 }`
// and returns the module root plus the addi op, for folding tests.
func buildAddZeroFunc(t *testing.T) (*ir.Context, *ir.Operation, *arith.Names, *ir.Operation) {
	t.Helper()
	ctx := ir.NewContext()
	fnNames := fn.Register(ctx)
	arithNames := arith.Register(ctx)
	b := ir.NewBuilder(ctx)

	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)

	fb := fn.NewBuilder(b, fnNames)
	fnOp := fb.Func("f", []*ir.Type{ctx.Felt()}, []*ir.Type{ctx.Felt()})
	entry := fnOp.Region(0).EntryBlock()
	x := entry.Arguments()[0]

	b.SetInsertionPointToStart(entry)
	ab := arith.NewBuilder(b, arithNames)
	c0 := ab.Constant(ctx.Felt(), 0)
	addOp, err := ab.AddI(x, c0.Result(0))
	require.NoError(t, err)
	fb.Return([]ir.Value{addOp.Result(0)})

	return ctx, root, arithNames, addOp
}

func TestGreedyFoldsAddZeroToIdentity(t *testing.T) {
	_, root, _, addOp := buildAddZeroFunc(t)
	_ = addOp

	empty := rewrite.NewRewritePatternSet().Freeze()
	sink := diag.NewSink(nil)

	converged, err := rewrite.ApplyPatternsAndFoldGreedily(root, empty, rewrite.Config{
		Order:         rewrite.TopDown,
		MaxIterations: 64,
	}, sink)
	require.NoError(t, err)
	assert.True(t, converged, "folding x+0 to x must converge")

	// The addi must have been erased; the function should now return the
	// block argument directly.
	fnBody := root.Region(0).EntryBlock().First().Region(0).EntryBlock()
	ret := fnBody.Terminator()
	require.NotNil(t, ret)
	require.Equal(t, 1, ret.NumOperands())
	_, isBlockArg := ret.Operand(0).Value().(*ir.BlockArgument)
	assert.True(t, isBlockArg, "return should forward the original block argument after the addi folds away")
}

func TestGreedyConvergesWithinIterationBudget(t *testing.T) {
	ctx, root, _, _ := buildAddZeroFunc(t)
	_ = ctx

	empty := rewrite.NewRewritePatternSet().Freeze()
	sink := diag.NewSink(nil)

	_, err := rewrite.ApplyPatternsAndFoldGreedily(root, empty, rewrite.Config{
		Order:              rewrite.TopDown,
		MaxIterations:      0,
		RequireConvergence: true,
	}, sink)
	assert.NoError(t, err)
}

type benefitPattern struct {
	name    string
	opName  *ir.OperationName
	benefit rewrite.PatternBenefit
	fired   *[]string
}

func (p benefitPattern) Info() rewrite.PatternInfo {
	return rewrite.PatternInfo{Name: p.name, RootKind: rewrite.RootOperationName, OpName: p.opName, Benefit: p.benefit}
}

func (p benefitPattern) MatchAndRewrite(op *ir.Operation, r rewrite.Rewriter) (bool, error) {
	*p.fired = append(*p.fired, p.name)
	return false, nil
}

func TestFrozenPatternSetOrdersByDescendingBenefit(t *testing.T) {
	ctx := ir.NewContext()
	arithNames := arith.Register(ctx)

	var fired []string
	set := rewrite.NewRewritePatternSet()
	set.Add(benefitPattern{name: "low", opName: arithNames.AddI, benefit: 1, fired: &fired})
	set.Add(benefitPattern{name: "high", opName: arithNames.AddI, benefit: 10, fired: &fired})
	set.Add(benefitPattern{name: "mid", opName: arithNames.AddI, benefit: 5, fired: &fired})
	frozen := set.Freeze()

	dummy := ir.NewOperation(ctx, arithNames.AddI, []*ir.Type{ctx.Felt()}, nil)
	applicable := frozen.Applicable(dummy)
	require.Len(t, applicable, 3)

	names := make([]string, len(applicable))
	for i, p := range applicable {
		names[i] = p.Info().Name
	}
	assert.Equal(t, []string{"high", "mid", "low"}, names)
}

func TestReplaceOpWithValuesRewiresUsesAndErasesOp(t *testing.T) {
	ctx := ir.NewContext()
	fnNames := fn.Register(ctx)
	arithNames := arith.Register(ctx)
	b := ir.NewBuilder(ctx)
	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)
	fb := fn.NewBuilder(b, fnNames)
	fnOp := fb.Func("f", nil, []*ir.Type{ctx.Felt()})
	entry := fnOp.Region(0).EntryBlock()
	b.SetInsertionPointToStart(entry)
	ab := arith.NewBuilder(b, arithNames)
	c1 := ab.Constant(ctx.Felt(), 1)
	c2 := ab.Constant(ctx.Felt(), 2)
	addOp, err := ab.AddI(c1.Result(0), c2.Result(0))
	require.NoError(t, err)
	retOp := fb.Return([]ir.Value{addOp.Result(0)})

	r := rewrite.NewDefaultRewriter(b, nil)
	require.NoError(t, r.ReplaceOpWithValues(addOp, []ir.Value{c1.Result(0)}))

	assert.Same(t, c1, retOp.Operand(0).Value().(*ir.OpResult).DefiningOp())
	assert.Nil(t, addOp.Parent(), "replaced op must be detached from its block")
}

func TestEraseOpRejectsOpWithRemainingUses(t *testing.T) {
	ctx := ir.NewContext()
	fnNames := fn.Register(ctx)
	arithNames := arith.Register(ctx)
	b := ir.NewBuilder(ctx)
	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)
	fb := fn.NewBuilder(b, fnNames)
	fnOp := fb.Func("f", nil, []*ir.Type{ctx.Felt()})
	b.SetInsertionPointToStart(fnOp.Region(0).EntryBlock())
	ab := arith.NewBuilder(b, arithNames)
	c1 := ab.Constant(ctx.Felt(), 1)
	fb.Return([]ir.Value{c1.Result(0)})

	r := rewrite.NewDefaultRewriter(b, nil)
	assert.Error(t, r.EraseOp(c1), "erasing a constant still returned must fail")
}
