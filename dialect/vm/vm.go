// Package vm registers the target-facing dialect: ops that correspond 1:1
// to stack-VM instructions, emitted exclusively by the codegen driver once
// the stack scheduler has produced a schedule for each instruction site.
// vm.spill and vm.reload are also inserted earlier, by the spill/reload
// transform (§4.8), ahead of any codegen pass.
package vm

import (
	"fmt"

	"corevm/ir"
)

// Namespace is the vm dialect's registered name.
const Namespace = "vm"

// Names holds every OperationName this dialect registers.
type Names struct {
	PushConst *ir.OperationName
	Add       *ir.OperationName
	Sub       *ir.OperationName
	Mul       *ir.OperationName
	Eq        *ir.OperationName
	Lt        *ir.OperationName
	Call      *ir.OperationName
	Ret       *ir.OperationName
	Br        *ir.OperationName
	CondBr    *ir.OperationName
	Spill     *ir.OperationName
	Reload    *ir.OperationName
}

// SpillImpl is the Impl payload of a vm.spill op: the function-local slot
// it was assigned by the lowering pass that turns it into a store (§4.8).
// -1 until set with AssignSlot.
type SpillImpl struct {
	Slot int
}

// ReloadImpl mirrors SpillImpl for vm.reload: the slot it loads from.
type ReloadImpl struct {
	Slot int
}

// Register installs the vm dialect into ctx and returns its op names.
func Register(ctx *ir.Context) *Names {
	d := ctx.RegisterDialect(Namespace)
	n := &Names{}

	n.PushConst = d.AddOperation(ir.OpSpec{
		Mnemonic: "push_const",
		Traits:   []ir.TraitID{ir.TraitNoSideEffects, ir.TraitConstantLike},
	})
	n.Add = d.AddOperation(ir.OpSpec{Mnemonic: "add", Traits: []ir.TraitID{ir.TraitNoSideEffects}})
	n.Sub = d.AddOperation(ir.OpSpec{Mnemonic: "sub", Traits: []ir.TraitID{ir.TraitNoSideEffects}})
	n.Mul = d.AddOperation(ir.OpSpec{Mnemonic: "mul", Traits: []ir.TraitID{ir.TraitNoSideEffects}})
	n.Eq = d.AddOperation(ir.OpSpec{Mnemonic: "eq", Traits: []ir.TraitID{ir.TraitNoSideEffects}})
	n.Lt = d.AddOperation(ir.OpSpec{Mnemonic: "lt", Traits: []ir.TraitID{ir.TraitNoSideEffects}})
	n.Call = d.AddOperation(ir.OpSpec{Mnemonic: "call"})
	n.Ret = d.AddOperation(ir.OpSpec{
		Mnemonic: "ret",
		Traits:   []ir.TraitID{ir.TraitTerminator, ir.TraitReturnLike},
	})
	n.Br = d.AddOperation(ir.OpSpec{
		Mnemonic: "br",
		Traits:   []ir.TraitID{ir.TraitTerminator},
		Verify: func(op *ir.Operation) error {
			if len(op.Successors()) != 1 {
				return fmt.Errorf("vm.br: expected exactly one successor")
			}
			return nil
		},
	})
	n.CondBr = d.AddOperation(ir.OpSpec{
		Mnemonic: "cond_br",
		Traits:   []ir.TraitID{ir.TraitTerminator},
		Verify: func(op *ir.Operation) error {
			if len(op.Successors()) != 2 {
				return fmt.Errorf("vm.cond_br: expected exactly two successors")
			}
			return nil
		},
	})
	n.Spill = d.AddOperation(ir.OpSpec{Mnemonic: "spill"})
	n.Reload = d.AddOperation(ir.OpSpec{Mnemonic: "reload"})

	return n
}

// Builder wraps an *ir.Builder with typed constructors for the vm dialect.
type Builder struct {
	B *ir.Builder
	N *Names
}

// NewBuilder returns a typed builder over b.
func NewBuilder(b *ir.Builder, names *Names) *Builder { return &Builder{B: b, N: names} }

// PushConst materializes a constant of the given type and value.
func (vb *Builder) PushConst(typ *ir.Type, value ir.Attribute) *ir.Operation {
	op := vb.B.Create(vb.N.PushConst, []*ir.Type{typ}, nil)
	op.Attrs().Set("value", value)
	return op
}

// Spill inserts a vm.spill observing v: the op consumes v as its sole
// operand and produces no result, marking the program point where v must
// still be live in memory once the lowering pass assigns it a slot.
func (vb *Builder) Spill(v ir.Value) *ir.Operation {
	op := vb.B.Create(vb.N.Spill, nil, nil)
	op.AddOperand(v)
	op.Impl = &SpillImpl{Slot: -1}
	return op
}

// Reload inserts a vm.reload redefining a spilled value at this program
// point; typ is the spilled value's type.
func (vb *Builder) Reload(typ *ir.Type) *ir.Operation {
	op := vb.B.Create(vb.N.Reload, []*ir.Type{typ}, nil)
	op.Impl = &ReloadImpl{Slot: -1}
	return op
}

// AssignSlot assigns slot to a vm.spill or vm.reload op's Impl, called by
// the slot-lowering pass once all spills for a function have been
// enumerated.
func AssignSlot(op *ir.Operation, slot int) {
	switch impl := op.Impl.(type) {
	case *SpillImpl:
		impl.Slot = slot
	case *ReloadImpl:
		impl.Slot = slot
	}
}

// Slot returns the function-local slot a vm.spill or vm.reload op was
// assigned, or -1 if not yet lowered.
func Slot(op *ir.Operation) int {
	switch impl := op.Impl.(type) {
	case *SpillImpl:
		return impl.Slot
	case *ReloadImpl:
		return impl.Slot
	default:
		return -1
	}
}
