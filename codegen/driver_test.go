package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corevm/codegen"
	"corevm/dataflow"
	"corevm/dialect/arith"
	"corevm/dialect/cf"
	"corevm/dialect/fn"
	"corevm/dialect/vm"
	"corevm/ir"
)

// buildWideFunc builds a function that materializes `width` constants and
// then adds the first to the last: with width > scheduler.Window the first
// constant sits below the addressable window at the add site, forcing the
// driver's spill-retry path.
func buildWideFunc(t *testing.T, width int) (*ir.Operation, *codegen.Driver) {
	t.Helper()
	ctx := ir.NewContext()
	fnNames := fn.Register(ctx)
	arithNames := arith.Register(ctx)
	cfNames := cf.Register(ctx)
	vmNames := vm.Register(ctx)

	b := ir.NewBuilder(ctx)
	fb := fn.NewBuilder(b, fnNames)
	ab := arith.NewBuilder(b, arithNames)

	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)
	fnOp := fb.Func("wide", nil, []*ir.Type{ctx.Felt()})
	b.SetInsertionPointToStart(fnOp.Region(0).EntryBlock())

	consts := make([]*ir.Operation, width)
	for i := range consts {
		consts[i] = ab.Constant(ctx.Felt(), uint64(i))
	}
	sum, err := ab.AddI(consts[0].Result(0), consts[width-1].Result(0))
	require.NoError(t, err)
	fb.Return([]ir.Value{sum.Result(0)})

	return fnOp, codegen.NewDriver(arithNames, fnNames, cfNames, vmNames)
}

func runLiveness(fnOp *ir.Operation) (*dataflow.LivenessAnalysis, *dataflow.Solver) {
	la := dataflow.NewLivenessAnalysis(fnOp.Region(0))
	solver := dataflow.NewSolver()
	la.Run(solver)
	return la, solver
}

func TestLowerStraightLineFunction(t *testing.T) {
	fnOp, d := buildWideFunc(t, 2)
	la, solver := runLiveness(fnOp)

	fnc, err := d.Lower(fnOp, codegen.SymbolTable{}, la, solver)
	require.NoError(t, err)

	var ops []uint8
	for _, in := range fnc.Instrs {
		ops = append(ops, in.Op)
	}
	assert.Equal(t, []uint8{vm.OpPushConst, vm.OpPushConst, vm.OpSwap, vm.OpAdd, vm.OpRet}, ops)
}

func TestLowerSpillsWhenWindowExhausted(t *testing.T) {
	// 18 live constants put the first operand of the add at depth 17, one
	// past the addressable window; the driver must spill it to a local
	// slot and reload it right before the add, then converge.
	fnOp, d := buildWideFunc(t, 18)
	la, solver := runLiveness(fnOp)

	fnc, err := d.Lower(fnOp, codegen.SymbolTable{}, la, solver)
	require.NoError(t, err)

	var spills, reloads int
	var spillSlot, reloadSlot uint64
	for _, in := range fnc.Instrs {
		switch in.Op {
		case vm.OpSpill:
			spills++
			spillSlot = in.Operands[0]
		case vm.OpReload:
			reloads++
			reloadSlot = in.Operands[0]
		}
	}
	require.Equal(t, 1, spills, "exactly one value needs spilling")
	require.Equal(t, 1, reloads)
	assert.Equal(t, spillSlot, reloadSlot, "reload must read the slot its spill wrote")
	assert.Equal(t, vm.OpRet, fnc.Instrs[len(fnc.Instrs)-1].Op)
}
