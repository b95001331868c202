package ir_test

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corevm/dialect/arith"
	"corevm/dialect/cf"
	"corevm/dialect/fn"
	"corevm/ir"
)

// buildCallerCallee builds a module with a "callee" function returning a
// constant and a "caller" function that calls it and forwards the result,
// for the symbol-table erase/verify tests below.
func buildCallerCallee(t *testing.T) (root, callee, caller, callOp, callerReturn *ir.Operation) {
	t.Helper()
	ctx := ir.NewContext()
	fnNames := fn.Register(ctx)
	arithNames := arith.Register(ctx)
	b := ir.NewBuilder(ctx)
	root = ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)
	fb := fn.NewBuilder(b, fnNames)

	callee = fb.Func("callee", nil, []*ir.Type{ctx.Felt()})
	b.SetInsertionPointToStart(callee.Region(0).EntryBlock())
	ab := arith.NewBuilder(b, arithNames)
	c := ab.Constant(ctx.Felt(), 42)
	fb.Return([]ir.Value{c.Result(0)})

	b.SetInsertionPointToEnd(modBlock)
	caller = fb.Func("caller", nil, []*ir.Type{ctx.Felt()})
	b.SetInsertionPointToStart(caller.Region(0).EntryBlock())
	callOp = fb.Call(callee, nil)
	callerReturn = fb.Return([]ir.Value{callOp.Result(0)})

	return root, callee, caller, callOp, callerReturn
}

func TestTypeInterningIsPointerIdentity(t *testing.T) {
	specs := []struct {
		name string
		get  func(c *ir.Context) *ir.Type
	}{
		{"i32", func(c *ir.Context) *ir.Type { return c.I32() }},
		{"felt", func(c *ir.Context) *ir.Type { return c.Felt() }},
		{"ptr", func(c *ir.Context) *ir.Type { return c.Ptr(c.I32(), ir.AddrSpaceByte) }},
		{"array", func(c *ir.Context) *ir.Type { return c.Array(c.I8(), 4) }},
		{"struct", func(c *ir.Context) *ir.Type { return c.Struct(c.I32(), c.I64()) }},
	}
	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			ctx := ir.NewContext()
			a := spec.get(ctx)
			b := spec.get(ctx)
			assert.True(t, a == b, "expected interned type to be the same pointer")
		})
	}
}

func TestTypeStackSize(t *testing.T) {
	ctx := ir.NewContext()
	specs := []struct {
		name string
		typ  *ir.Type
		exp  int
	}{
		{"felt", ctx.Felt(), 1},
		{"i128", ctx.I128(), 2},
		{"unit", ctx.Unit(), 0},
		{"never", ctx.Never(), 0},
		{"struct-of-two-felts", ctx.Struct(ctx.Felt(), ctx.Felt()), 2},
		{"array-of-4-i8", ctx.Array(ctx.I8(), 4), 4},
	}
	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			got := spec.typ.StackSize()
			assert.Equal(t, spec.exp, got, "[spec %s] stack size mismatch", spec.name)
		})
	}
}

func TestAttributeEqualityAndHash(t *testing.T) {
	ctx := ir.NewContext()
	specs := []struct {
		name   string
		a, b   ir.Attribute
		wantEq bool
	}{
		{"int-equal", ir.IntAttr{Type: ctx.I32(), Value: 7}, ir.IntAttr{Type: ctx.I32(), Value: 7}, true},
		{"int-diff-value", ir.IntAttr{Type: ctx.I32(), Value: 7}, ir.IntAttr{Type: ctx.I32(), Value: 8}, false},
		{"int-diff-type", ir.IntAttr{Type: ctx.I32(), Value: 7}, ir.IntAttr{Type: ctx.I64(), Value: 7}, false},
		{"bool-equal", ir.BoolAttr(true), ir.BoolAttr(true), true},
		{"string-equal", ir.StringAttr("x"), ir.StringAttr("x"), true},
		{"symref-equal", ir.SymbolRefAttr{Path: []string{"a", "b"}}, ir.SymbolRefAttr{Path: []string{"a", "b"}}, true},
		{"symref-diff", ir.SymbolRefAttr{Path: []string{"a"}}, ir.SymbolRefAttr{Path: []string{"b"}}, false},
		{"array-equal", ir.ArrayAttr{Elems: []ir.Attribute{ir.BoolAttr(true)}}, ir.ArrayAttr{Elems: []ir.Attribute{ir.BoolAttr(true)}}, true},
		{"dict-equal", ir.DictAttr{Entries: map[string]ir.Attribute{"k": ir.BoolAttr(true)}}, ir.DictAttr{Entries: map[string]ir.Attribute{"k": ir.BoolAttr(true)}}, true},
		{"unit-equal", ir.UnitAttr{}, ir.UnitAttr{}, true},
	}
	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			assert.Equal(t, spec.wantEq, spec.a.Equal(spec.b), "[spec %s] Equal mismatch", spec.name)
			if spec.wantEq {
				assert.Equal(t, spec.a.Hash(), spec.b.Hash(), "[spec %s] equal attrs should hash equal", spec.name)
			}
		})
	}
}

func TestAttrDictPreservesInsertionOrder(t *testing.T) {
	d := ir.NewAttrDict()
	d.Set("b", ir.BoolAttr(true))
	d.Set("a", ir.StringAttr("x"))
	d.Set("b", ir.BoolAttr(false))

	assert.Equal(t, []string{"b", "a"}, d.Keys(), "re-setting an existing key must not move it")
	assert.Equal(t, 2, d.Len())

	v, ok := d.Get("b")
	require.True(t, ok)
	assert.Equal(t, ir.BoolAttr(false), v)

	d.Delete("b")
	assert.Equal(t, []string{"a"}, d.Keys())
	_, ok = d.Get("b")
	assert.False(t, ok)
}

func TestAttrDictClone(t *testing.T) {
	d := ir.NewAttrDict()
	d.Set("k", ir.ArrayAttr{Elems: []ir.Attribute{ir.BoolAttr(true)}})

	cp := d.Clone()
	cp.Set("k", ir.ArrayAttr{Elems: []ir.Attribute{ir.BoolAttr(false)}})

	orig, _ := d.Get("k")
	copied, _ := cp.Get("k")
	assert.NotEqual(t, orig, copied, "clone must be independent of the original")
}

func TestOperandUseListSwapRemove(t *testing.T) {
	ctx := ir.NewContext()
	names := arith.Register(ctx)

	b := ir.NewBuilder(ctx)
	fnNames := fn.Register(ctx)
	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)

	fb := fn.NewBuilder(b, fnNames)
	fnOp := fb.Func("f", nil, []*ir.Type{ctx.Felt()})
	b.SetInsertionPointToStart(fnOp.Region(0).EntryBlock())

	ab := arith.NewBuilder(b, names)
	c1 := ab.Constant(ctx.Felt(), 1)
	c2 := ab.Constant(ctx.Felt(), 2)
	c3 := ab.Constant(ctx.Felt(), 3)

	v := c1.Result(0)
	require.Len(t, v.Uses(), 0)

	addA, err := ab.AddI(v, c2.Result(0))
	require.NoError(t, err)
	addB, err := ab.AddI(c3.Result(0), v)
	require.NoError(t, err)
	require.Len(t, v.Uses(), 2)

	// Drop addA's reference to v; addB's must survive via swap-remove.
	addA.EraseOperand(0)
	uses := v.Uses()
	require.Len(t, uses, 1)
	assert.Same(t, addB, uses[0].Owner())
}

func TestOperationEraseRejectsResultsStillInUse(t *testing.T) {
	ctx := ir.NewContext()
	names := arith.Register(ctx)
	b := ir.NewBuilder(ctx)
	fnNames := fn.Register(ctx)
	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)
	fb := fn.NewBuilder(b, fnNames)
	fnOp := fb.Func("f", nil, []*ir.Type{ctx.Felt()})
	b.SetInsertionPointToStart(fnOp.Region(0).EntryBlock())

	ab := arith.NewBuilder(b, names)
	c1 := ab.Constant(ctx.Felt(), 1)
	addOp, err := ab.AddI(c1.Result(0), c1.Result(0))
	require.NoError(t, err)

	err = c1.Erase()
	assert.Error(t, err, "erasing an op whose result is still used must fail")

	// Erasing the consumer first frees the result, and then the constant
	// can be erased cleanly.
	require.NoError(t, addOp.Erase())
	assert.NoError(t, c1.Erase())
}

func TestBlockArgumentEraseCascadesOverSuccessorForwarded(t *testing.T) {
	ctx := ir.NewContext()
	cfNames := cf.Register(ctx)
	b := ir.NewBuilder(ctx)
	fnNames := fn.Register(ctx)
	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)
	fb := fn.NewBuilder(b, fnNames)
	fnOp := fb.Func("f", nil, nil)
	entry := fnOp.Region(0).EntryBlock()
	target := fnOp.Region(0).AppendBlock(ctx)

	arg := target.AddArgument(ctx.Felt())
	_ = arg

	b.SetInsertionPointToStart(entry)
	cb := cf.NewBuilder(b, cfNames)
	ab := arith.Register(ctx)
	abld := arith.NewBuilder(b, ab)
	c1 := abld.Constant(ctx.Felt(), 9)
	brOp := cb.Br(target, []ir.Value{c1.Result(0)})

	require.Len(t, target.Predecessors(), 1)
	succ := brOp.Successors()[0]
	require.Len(t, succ.Forwarded(), 1)

	target.EraseArgument(0)

	assert.Len(t, target.Arguments(), 0)
	assert.Len(t, succ.Forwarded(), 0)
}

func TestVerifyRejectsNonTerminatorAfterTerminator(t *testing.T) {
	ctx := ir.NewContext()
	fnNames := fn.Register(ctx)
	arithNames := arith.Register(ctx)
	b := ir.NewBuilder(ctx)
	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)
	fb := fn.NewBuilder(b, fnNames)
	fnOp := fb.Func("f", nil, nil)
	entry := fnOp.Region(0).EntryBlock()
	b.SetInsertionPointToStart(entry)

	fb.Return(nil)
	ab := arith.NewBuilder(b, arithNames)
	ab.Constant(ctx.Felt(), 1)

	err := ir.Verify(root)
	assert.Error(t, err, "an op placed after a terminator must fail verification")
}

func TestVerifyAcceptsWellFormedModule(t *testing.T) {
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
	fb.Return([]ir.Value{c1.Result(0)})

	assert.NoError(t, ir.Verify(root))
}

func TestSymbolTableRenameRewritesReferences(t *testing.T) {
	ctx := ir.NewContext()
	fnNames := fn.Register(ctx)
	b := ir.NewBuilder(ctx)
	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)
	fb := fn.NewBuilder(b, fnNames)

	callee := fb.Func("callee", nil, []*ir.Type{ctx.Felt()})
	b.SetInsertionPointToStart(callee.Region(0).EntryBlock())
	arithNames := arith.Register(ctx)
	ab := arith.NewBuilder(b, arithNames)
	c := ab.Constant(ctx.Felt(), 42)
	fb.Return([]ir.Value{c.Result(0)})

	b.SetInsertionPointToEnd(modBlock)
	caller := fb.Func("caller", nil, []*ir.Type{ctx.Felt()})
	b.SetInsertionPointToStart(caller.Region(0).EntryBlock())
	callOp := fb.Call(callee, nil)
	fb.Return([]ir.Value{callOp.Result(0)})

	st, err := ir.NewSymbolTable(root)
	require.NoError(t, err)

	require.NoError(t, st.Rename(callee, "renamed_callee"))

	attr, ok := callOp.Attrs().Get("callee")
	require.True(t, ok)
	ref, ok := attr.(ir.SymbolRefAttr)
	require.True(t, ok)
	assert.Equal(t, []string{"renamed_callee"}, ref.Path, "rename must rewrite every symbol reference")
}

func TestSymbolTableEraseBlocksOnRemainingUses(t *testing.T) {
	root, callee, _, callOp, callerReturn := buildCallerCallee(t)
	st, err := ir.NewSymbolTable(root)
	require.NoError(t, err)

	err = st.Erase(callee)
	assert.Error(t, err, "erasing a symbol with a remaining SymbolUse must fail")
	_, stillPresent := st.Lookup("callee")
	assert.True(t, stillPresent, "a blocked erase must leave the symbol-table entry untouched")

	// Remove the one use (the call), then the erase must succeed cleanly.
	require.NoError(t, callerReturn.Erase())
	require.NoError(t, callOp.Erase())
	assert.NoError(t, st.Erase(callee), "erase must succeed once no SymbolUse remains")
	_, stillPresent = st.Lookup("callee")
	assert.False(t, stillPresent)
}

func TestSymbolTableForceEraseLeavesDanglingUseForVerify(t *testing.T) {
	root, callee, _, _, _ := buildCallerCallee(t)
	st, err := ir.NewSymbolTable(root)
	require.NoError(t, err)

	require.NoError(t, ir.Verify(root), "well-formed module must verify before the force-erase")

	require.NoError(t, st.ForceErase(callee), "ForceErase must succeed despite the caller's remaining use")
	_, stillPresent := st.Lookup("callee")
	assert.False(t, stillPresent)

	err = ir.Verify(root)
	assert.Error(t, err, "Verify must reject a module with a dangling symbol reference")
	assert.Contains(t, err.Error(), "callee")
}

func TestUseListIntegritySnapshot(t *testing.T) {
	ctx := ir.NewContext()
	names := arith.Register(ctx)
	b := ir.NewBuilder(ctx)
	fnNames := fn.Register(ctx)
	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)
	fb := fn.NewBuilder(b, fnNames)
	fnOp := fb.Func("f", nil, []*ir.Type{ctx.Felt()})
	b.SetInsertionPointToStart(fnOp.Region(0).EntryBlock())

	ab := arith.NewBuilder(b, names)
	c := ab.Constant(ctx.Felt(), 7)
	addA, err := ab.AddI(c.Result(0), c.Result(0))
	require.NoError(t, err)
	addB, err := ab.AddI(addA.Result(0), c.Result(0))
	require.NoError(t, err)
	fb.Return([]ir.Value{addB.Result(0)})

	// §8's use-list integrity property: v.Uses() must equal exactly the
	// set of (op, index) pairs where op.operands[index] == v. Project
	// onto a plain, order-independent snapshot and diff it with go-cmp
	// rather than comparing *ir.Operand/*ir.Operation directly, since
	// those carry unexported fields cmp cannot walk.
	type useRef struct {
		Owner *ir.Operation
		Index int
	}
	snapshot := func(v ir.Value) []useRef {
		var out []useRef
		for _, u := range v.Uses() {
			out = append(out, useRef{Owner: u.Owner(), Index: u.Index()})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Owner != out[j].Owner {
				return out[i].Owner.IsBefore(out[j].Owner)
			}
			return out[i].Index < out[j].Index
		})
		return out
	}

	want := []useRef{
		{Owner: addA, Index: 0},
		{Owner: addA, Index: 1},
		{Owner: addB, Index: 1},
	}
	sort.Slice(want, func(i, j int) bool {
		if want[i].Owner != want[j].Owner {
			return want[i].Owner.IsBefore(want[j].Owner)
		}
		return want[i].Index < want[j].Index
	})

	diffOpts := cmp.Comparer(func(a, b *ir.Operation) bool { return a == b })
	if diff := cmp.Diff(want, snapshot(c.Result(0)), diffOpts); diff != "" {
		t.Fatalf("use-list snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestPrinterRendersOperandsAndResults(t *testing.T) {
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

	out := root.String()
	assert.Contains(t, out, "func.module")
	assert.Contains(t, out, "arith.constant")
	assert.Contains(t, out, "func.return")
}

func TestVerifyModuleBodyNeedsNoTerminator(t *testing.T) {
	// A module body is a flat list of symbol definitions, not control
	// flow: its block must verify without a terminator.
	root, _, _, _, _ := buildCallerCallee(t)
	require.NoError(t, ir.Verify(root))
}

func TestVerifySameTypeOperandsMismatch(t *testing.T) {
	ctx := ir.NewContext()
	arithNames := arith.Register(ctx)
	fnNames := fn.Register(ctx)
	b := ir.NewBuilder(ctx)

	fb := fn.NewBuilder(b, fnNames)
	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)
	fnOp := fb.Func("f", []*ir.Type{ctx.I32(), ctx.I64()}, nil)
	entry := fnOp.Region(0).EntryBlock()
	b.SetInsertionPointToStart(entry)

	// Build the mismatched op directly, bypassing type inference, the way
	// a buggy frontend would.
	bad := b.Create(arithNames.AddI, []*ir.Type{ctx.I32()}, nil)
	bad.AddOperand(entry.Arguments()[0])
	bad.AddOperand(entry.Arguments()[1])
	fb.Return(nil)

	err := ir.Verify(fnOp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operand 1 has type i64")
}
