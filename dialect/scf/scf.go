// Package scf registers the structured control-flow dialect: scf.if and
// scf.while, each implementing ir.RegionBranchOp so the dataflow framework
// and canonicalizer can reason about their nested regions declaratively
// instead of special-casing each op (§4.7, §9 "RegionBranchOpInterface").
package scf

import (
	"fmt"

	"corevm/ir"
)

// Namespace is the scf dialect's registered name.
const Namespace = "scf"

// Names holds every OperationName this dialect registers.
type Names struct {
	If        *ir.OperationName
	While     *ir.OperationName
	Yield     *ir.OperationName
	Condition *ir.OperationName
}

// IfImpl is the Impl payload of an scf.if op: whether it carries an else
// region at all (region 1 may still exist as an empty placeholder when
// false, to keep region indices stable). It implements ir.RegionBranchOp:
// execution enters exactly one of the two regions from the op itself, and
// both regions exit directly to the op's own results.
type IfImpl struct {
	HasElse bool
}

// SuccessorRegions implements ir.RegionBranchOp.
func (r *IfImpl) SuccessorRegions(fromRegion int) []ir.RegionSuccessor {
	if fromRegion == -1 {
		out := []ir.RegionSuccessor{{EntersRegion: true, Region: 0}}
		if r.HasElse {
			out = append(out, ir.RegionSuccessor{EntersRegion: true, Region: 1})
		} else {
			out = append(out, ir.RegionSuccessor{EntersRegion: false})
		}
		return out
	}
	return []ir.RegionSuccessor{{EntersRegion: false}}
}

// WhileImpl is the Impl payload of an scf.while op. It implements
// ir.RegionBranchOp: execution always starts in the "before" region (0);
// from there it either enters "after" (1) or exits to the op's results;
// "after" always loops back to "before".
type WhileImpl struct{}

// SuccessorRegions implements ir.RegionBranchOp.
func (WhileImpl) SuccessorRegions(fromRegion int) []ir.RegionSuccessor {
	switch fromRegion {
	case -1:
		return []ir.RegionSuccessor{{EntersRegion: true, Region: 0}}
	case 0:
		return []ir.RegionSuccessor{{EntersRegion: true, Region: 1}, {EntersRegion: false}}
	default:
		return []ir.RegionSuccessor{{EntersRegion: true, Region: 0}}
	}
}

// Register installs the scf dialect into ctx and returns its op names.
func Register(ctx *ir.Context) *Names {
	d := ctx.RegisterDialect(Namespace)
	n := &Names{}

	n.Yield = d.AddOperation(ir.OpSpec{
		Mnemonic: "yield",
		Traits:   []ir.TraitID{ir.TraitTerminator, ir.TraitReturnLike},
	})

	n.Condition = d.AddOperation(ir.OpSpec{
		Mnemonic: "condition",
		Traits:   []ir.TraitID{ir.TraitTerminator, ir.TraitReturnLike},
		Verify: func(op *ir.Operation) error {
			if len(op.Operands()) < 1 {
				return fmt.Errorf("scf.condition: expected at least a condition operand")
			}
			if op.Operand(0).Value().Type().Kind() != ir.KindI1 {
				return fmt.Errorf("scf.condition: first operand must be i1")
			}
			return nil
		},
	})

	n.If = d.AddOperation(ir.OpSpec{
		Mnemonic: "if",
		Verify: func(op *ir.Operation) error {
			if len(op.Operands()) != 1 || op.Operand(0).Value().Type().Kind() != ir.KindI1 {
				return fmt.Errorf("scf.if: expected a single i1 condition operand")
			}
			if len(op.Regions()) != 2 {
				return fmt.Errorf("scf.if: expected exactly two regions")
			}
			return verifyYieldArity(op.Region(0), len(op.Results()), n.Yield)
		},
	})

	n.While = d.AddOperation(ir.OpSpec{
		Mnemonic: "while",
		Verify: func(op *ir.Operation) error {
			if len(op.Regions()) != 2 {
				return fmt.Errorf("scf.while: expected exactly two regions")
			}
			arity := len(op.Results())
			if op.NumOperands() != arity {
				return fmt.Errorf("scf.while: %d initial operands, expected %d matching results", op.NumOperands(), arity)
			}
			before, after := op.Region(0), op.Region(1)
			if !before.Empty() && len(before.EntryBlock().Arguments()) != arity {
				return fmt.Errorf("scf.while: before-region expects %d block arguments", arity)
			}
			if !after.Empty() && len(after.EntryBlock().Arguments()) != arity {
				return fmt.Errorf("scf.while: after-region expects %d block arguments", arity)
			}
			return nil
		},
	})

	return n
}

func verifyYieldArity(r *ir.Region, arity int, yieldName *ir.OperationName) error {
	if r.Empty() {
		return nil
	}
	for _, b := range r.Blocks() {
		term := b.Terminator()
		if term == nil || term.Name() != yieldName {
			continue
		}
		if len(term.Operands()) != arity {
			return fmt.Errorf("scf.if: yield forwards %d values, op expects %d", len(term.Operands()), arity)
		}
	}
	return nil
}

// Builder wraps an *ir.Builder with typed constructors for the scf
// dialect.
type Builder struct {
	B *ir.Builder
	N *Names
}

// NewBuilder returns a typed builder over b.
func NewBuilder(b *ir.Builder, names *Names) *Builder { return &Builder{B: b, N: names} }

// If creates an scf.if with the given result types and condition; hasElse
// controls whether region 1 is populated by the caller or left empty
// (RegionSuccessor treats an empty else as falling straight through to the
// op's results, per §4.5 "if-unused-results").
func (sb *Builder) If(cond ir.Value, resultTypes []*ir.Type, hasElse bool) *ir.Operation {
	op := sb.B.Create(sb.N.If, resultTypes, []ir.RegionKind{ir.RegionSSA, ir.RegionSSA})
	op.AddOperand(cond)
	op.Impl = &IfImpl{HasElse: hasElse}
	return op
}

// Then returns the if's "then" region.
func Then(op *ir.Operation) *ir.Region { return op.Region(0) }

// Else returns the if's "else" region (possibly empty).
func Else(op *ir.Operation) *ir.Region { return op.Region(1) }

// While creates an scf.while with the given result types and no operands;
// callers append the initial loop-carried values with AddOperand.
func (sb *Builder) While(resultTypes []*ir.Type) *ir.Operation {
	op := sb.B.Create(sb.N.While, resultTypes, []ir.RegionKind{ir.RegionSSA, ir.RegionSSA})
	op.Impl = &WhileImpl{}
	return op
}

// Before returns the while's "before"/condition region.
func Before(op *ir.Operation) *ir.Region { return op.Region(0) }

// After returns the while's "after"/body region.
func After(op *ir.Operation) *ir.Region { return op.Region(1) }

// Yield creates a terminator forwarding values as the enclosing region's
// exit values (an if-branch's result, or a while-body's next iteration
// arguments).
func (sb *Builder) Yield(values []ir.Value) *ir.Operation {
	op := sb.B.Create(sb.N.Yield, nil, nil)
	for _, v := range values {
		op.AddOperand(v)
	}
	return op
}

// Condition creates scf.while's "before"-region terminator: cond selects
// whether to continue into the "after" region with forwardArgs as its
// block arguments, or to exit the while with forwardArgs as its results.
func (sb *Builder) Condition(cond ir.Value, forwardArgs []ir.Value) *ir.Operation {
	op := sb.B.Create(sb.N.Condition, nil, nil)
	op.AddOperand(cond)
	for _, v := range forwardArgs {
		op.AddOperand(v)
	}
	return op
}

// ConditionForwarded returns the values scf.condition forwards (excluding
// the leading condition operand).
func ConditionForwarded(op *ir.Operation) []ir.Value {
	ops := op.Operands()
	out := make([]ir.Value, len(ops)-1)
	for i, o := range ops[1:] {
		out[i] = o.Value()
	}
	return out
}
