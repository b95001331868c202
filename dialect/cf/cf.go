// Package cf registers the unstructured control-flow dialect: plain
// branches, conditional branches and multi-way switches over blocks. These
// are the terminators structured control flow lowers to (§2's "structured
// control flow lifting" pipeline stage) and the ones the canonicalization
// catalog's CFG rules (§4.5) operate on directly.
package cf

import (
	"fmt"

	"corevm/ir"
)

// Namespace is the cf dialect's registered name.
const Namespace = "cf"

// Names holds every OperationName this dialect registers.
type Names struct {
	Br     *ir.OperationName
	CondBr *ir.OperationName
	Switch *ir.OperationName
}

// SwitchImpl is the Impl payload of a cf.switch op: the case values, in
// the same order as its first len(Cases) successors; the final successor
// is always the default target.
type SwitchImpl struct {
	Cases []uint64
}

// Register installs the cf dialect into ctx and returns its op names.
func Register(ctx *ir.Context) *Names {
	d := ctx.RegisterDialect(Namespace)
	n := &Names{}

	n.Br = d.AddOperation(ir.OpSpec{
		Mnemonic: "br",
		Traits:   []ir.TraitID{ir.TraitTerminator},
		Verify: func(op *ir.Operation) error {
			if len(op.Successors()) != 1 {
				return fmt.Errorf("cf.br: expected exactly one successor, got %d", len(op.Successors()))
			}
			return nil
		},
	})

	n.CondBr = d.AddOperation(ir.OpSpec{
		Mnemonic: "cond_br",
		Traits:   []ir.TraitID{ir.TraitTerminator},
		Verify: func(op *ir.Operation) error {
			if len(op.Operands()) != 1 {
				return fmt.Errorf("cf.cond_br: expected exactly one condition operand, got %d", len(op.Operands()))
			}
			if len(op.Successors()) != 2 {
				return fmt.Errorf("cf.cond_br: expected exactly two successors, got %d", len(op.Successors()))
			}
			if op.Operand(0).Value().Type().Kind() != ir.KindI1 {
				return fmt.Errorf("cf.cond_br: condition must be i1")
			}
			return nil
		},
	})

	n.Switch = d.AddOperation(ir.OpSpec{
		Mnemonic: "switch",
		Traits:   []ir.TraitID{ir.TraitTerminator},
		Verify: func(op *ir.Operation) error {
			if len(op.Operands()) != 1 {
				return fmt.Errorf("cf.switch: expected exactly one selector operand, got %d", len(op.Operands()))
			}
			impl, ok := op.Impl.(*SwitchImpl)
			if !ok {
				return fmt.Errorf("cf.switch: missing SwitchImpl")
			}
			if len(op.Successors()) != len(impl.Cases)+1 {
				return fmt.Errorf("cf.switch: %d cases require %d successors, got %d",
					len(impl.Cases), len(impl.Cases)+1, len(op.Successors()))
			}
			return nil
		},
	})

	return n
}

// Builder wraps an *ir.Builder with typed constructors for the cf dialect.
type Builder struct {
	B *ir.Builder
	N *Names
}

// NewBuilder returns a typed builder over b, using names registered by a
// prior call to Register on the same context.
func NewBuilder(b *ir.Builder, names *Names) *Builder { return &Builder{B: b, N: names} }

// Br creates an unconditional branch to target, forwarding args as its
// block arguments.
func (cb *Builder) Br(target *ir.Block, args []ir.Value) *ir.Operation {
	op := cb.B.Create(cb.N.Br, nil, nil)
	op.AddSuccessor(target, args)
	return op
}

// CondBr creates a two-way conditional branch: trueTarget if cond holds,
// falseTarget otherwise.
func (cb *Builder) CondBr(cond ir.Value, trueTarget *ir.Block, trueArgs []ir.Value, falseTarget *ir.Block, falseArgs []ir.Value) *ir.Operation {
	op := cb.B.Create(cb.N.CondBr, nil, nil)
	op.AddOperand(cond)
	op.AddSuccessor(trueTarget, trueArgs)
	op.AddSuccessor(falseTarget, falseArgs)
	return op
}

// Switch creates a multi-way branch: selector is compared against each of
// cases in order, branching to the corresponding target in targets
// (forwarding the matching entry of targetArgs); defaultTarget is taken if
// no case matches.
func (cb *Builder) Switch(selector ir.Value, cases []uint64, targets []*ir.Block, targetArgs [][]ir.Value, defaultTarget *ir.Block, defaultArgs []ir.Value) *ir.Operation {
	op := cb.B.Create(cb.N.Switch, nil, nil)
	op.AddOperand(selector)
	for i, t := range targets {
		op.AddSuccessor(t, targetArgs[i])
	}
	op.AddSuccessor(defaultTarget, defaultArgs)
	op.Impl = &SwitchImpl{Cases: append([]uint64(nil), cases...)}
	return op
}

// DefaultSuccessor returns a cf.switch's fallback (last) successor.
func DefaultSuccessor(op *ir.Operation) *ir.Successor {
	succs := op.Successors()
	return succs[len(succs)-1]
}

// CaseSuccessors returns a cf.switch's case successors, excluding the
// trailing default.
func CaseSuccessors(op *ir.Operation) []*ir.Successor {
	succs := op.Successors()
	return succs[:len(succs)-1]
}
