package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corevm/dialect/arith"
	"corevm/dialect/cf"
	"corevm/dialect/fn"
	"corevm/ir"
)

// buildBranchyModule builds a module with a function whose body branches
// over a condition, forwards a value through block arguments, and returns
// it, exercising every construct the generic textual form can carry:
// results, operands, successors with forwarded args, nested regions,
// attributes and block arguments.
func buildBranchyModule(t *testing.T) (*ir.Context, *ir.Operation) {
	t.Helper()
	ctx := ir.NewContext()
	fnNames := fn.Register(ctx)
	arithNames := arith.Register(ctx)
	cfNames := cf.Register(ctx)
	b := ir.NewBuilder(ctx)
	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)
	fb := fn.NewBuilder(b, fnNames)
	ab := arith.NewBuilder(b, arithNames)
	cb := cf.NewBuilder(b, cfNames)

	fnOp := fb.Func("pick", []*ir.Type{ctx.I1()}, []*ir.Type{ctx.Felt()})
	body := fnOp.Region(0)
	entry := body.EntryBlock()
	exit := body.AppendBlock(ctx)
	exit.AddArgument(ctx.Felt())

	b.SetInsertionPointToStart(entry)
	c1 := ab.Constant(ctx.Felt(), 7)
	c2 := ab.Constant(ctx.Felt(), 11)
	sum, err := ab.AddI(c1.Result(0), c2.Result(0))
	require.NoError(t, err)
	cb.CondBr(entry.Arguments()[0],
		exit, []ir.Value{sum.Result(0)},
		exit, []ir.Value{c2.Result(0)})

	b.SetInsertionPointToStart(exit)
	fb.Return([]ir.Value{exit.Arguments()[0]})
	return ctx, root
}

func TestParseRoundTripsPrintedModule(t *testing.T) {
	ctx, root := buildBranchyModule(t)

	printed := root.String()
	parsed, err := ir.ParseOperation(ctx, printed)
	require.NoError(t, err)

	// Round-trip equality up to entity identity: the reparsed graph must
	// render to the exact same text, since the printer names entities
	// deterministically by traversal order.
	assert.Equal(t, printed, parsed.String())
}

func TestParseRebuildsStructure(t *testing.T) {
	ctx, root := buildBranchyModule(t)
	parsed, err := ir.ParseOperation(ctx, root.String())
	require.NoError(t, err)

	fnOp := parsed.Region(0).EntryBlock().First()
	require.NotNil(t, fnOp)
	assert.Equal(t, "func.func", fnOp.Name().Full())

	body := fnOp.Region(0)
	require.Equal(t, 2, body.NumBlocks())
	entry := body.EntryBlock()
	require.Len(t, entry.Arguments(), 1)
	assert.Equal(t, ir.KindI1, entry.Arguments()[0].Type().Kind())

	term := entry.Terminator()
	require.NotNil(t, term)
	assert.Equal(t, "cf.cond_br", term.Name().Full())
	require.Len(t, term.Successors(), 2)
	for _, s := range term.Successors() {
		assert.Same(t, entry.Next(), s.Target())
		assert.Len(t, s.Forwarded(), 1)
	}
	// Both edges land on the same block, so it has two predecessors.
	assert.Len(t, entry.Next().Predecessors(), 2)
}

func TestParseAttributeForms(t *testing.T) {
	ctx := ir.NewContext()
	fn.Register(ctx)
	src := `"func.module"() ({
  ^bb0:
}) {flag = true, meta = {depth = 3 : i32, tag = "hot"}, path = @outer::inner, weights = [1 : i64, 2 : i64]} : () -> ()`
	parsed, err := ir.ParseOperation(ctx, src)
	require.NoError(t, err)

	attrs := parsed.Attrs()
	flag, ok := attrs.Get("flag")
	require.True(t, ok)
	assert.Equal(t, ir.BoolAttr(true), flag)

	path, ok := attrs.Get("path")
	require.True(t, ok)
	assert.True(t, path.Equal(ir.SymbolRefAttr{Path: []string{"outer", "inner"}}))

	weights, ok := attrs.Get("weights")
	require.True(t, ok)
	arr, isArr := weights.(ir.ArrayAttr)
	require.True(t, isArr)
	require.Len(t, arr.Elems, 2)
	assert.Equal(t, ir.IntAttr{Type: ctx.I64(), Value: 2}, arr.Elems[1])

	meta, ok := attrs.Get("meta")
	require.True(t, ok)
	dict, isDict := meta.(ir.DictAttr)
	require.True(t, isDict)
	assert.Equal(t, ir.StringAttr("hot"), dict.Entries["tag"])
}

func TestParseRejectsUnregisteredOp(t *testing.T) {
	ctx := ir.NewContext()
	_, err := ir.ParseOperation(ctx, `"bogus.op"() : () -> ()`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestParseRejectsUndefinedValueUse(t *testing.T) {
	ctx := ir.NewContext()
	arith.Register(ctx)
	_, err := ir.ParseOperation(ctx, `"arith.addi"(%0, %1) : (felt, felt) -> (felt)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined value")
}

func TestParseRejectsBranchToUndefinedBlock(t *testing.T) {
	ctx := ir.NewContext()
	fn.Register(ctx)
	cf.Register(ctx)
	src := `"func.func"() ({
  ^bb0:
    "cf.br"()[^nowhere] : () -> ()
}) {sym_name = "f"} : () -> ()`
	_, err := ir.ParseOperation(ctx, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined block")
}
