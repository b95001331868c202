// Package arith registers the arith dialect: integer constants and the
// arithmetic/comparison ops the canonicalizer's arithmetic folds (§4.5)
// target, most notably the felt-halves rotl32 fold.
package arith

import (
	"fmt"

	"corevm/ir"
)

// Namespace is the arith dialect's registered name.
const Namespace = "arith"

// Names holds every OperationName this dialect registers, populated by
// Register.
type Names struct {
	Constant *ir.OperationName
	AddI     *ir.OperationName
	SubI     *ir.OperationName
	MulI     *ir.OperationName
	RotL32   *ir.OperationName
	CmpEq    *ir.OperationName
	CmpLt    *ir.OperationName

	SplitHalves *ir.OperationName
	JoinHalves  *ir.OperationName
}

// ConstantImpl is the Impl payload of an arith.constant op: its literal
// value, carried redundantly alongside the attribute dictionary so codegen
// and folding can read it without a type switch on Attribute.
type ConstantImpl struct {
	Value ir.Attribute
}

// Register installs the arith dialect into ctx and returns its op names.
func Register(ctx *ir.Context) *Names {
	d := ctx.RegisterDialect(Namespace)
	n := &Names{}

	n.Constant = d.AddOperation(ir.OpSpec{
		Mnemonic: "constant",
		Traits:   []ir.TraitID{ir.TraitNoSideEffects, ir.TraitConstantLike},
		Fold: func(op *ir.Operation) *ir.FoldResult {
			v, _ := op.Attrs().Get("value")
			return &ir.FoldResult{Attrs: []ir.Attribute{v}}
		},
	})

	n.AddI = d.AddOperation(ir.OpSpec{
		Mnemonic:  "addi",
		Traits:    []ir.TraitID{ir.TraitNoSideEffects, ir.TraitCommutative, ir.TraitSameTypeOperands},
		InferType: sameTypeBinaryOp,
		Fold:      foldBinary(opAdd),
	})

	n.SubI = d.AddOperation(ir.OpSpec{
		Mnemonic:  "subi",
		Traits:    []ir.TraitID{ir.TraitNoSideEffects, ir.TraitSameTypeOperands},
		InferType: sameTypeBinaryOp,
		Fold:      foldBinary(opSub),
	})

	n.MulI = d.AddOperation(ir.OpSpec{
		Mnemonic:  "muli",
		Traits:    []ir.TraitID{ir.TraitNoSideEffects, ir.TraitCommutative, ir.TraitSameTypeOperands},
		InferType: sameTypeBinaryOp,
		Fold:      foldBinary(opMul),
	})

	// rotl32 rotates a 64-bit felt-backed value left by exactly 32 bits:
	// its low and high halves trade places. The canonicalizer (§4.5)
	// rewrites every rotl32 into a split_halves/join_halves pair, since
	// field elements avoid the range checks a native bit-rotate would
	// need to preserve packed upper bits.
	n.RotL32 = d.AddOperation(ir.OpSpec{
		Mnemonic: "rotl32",
		Traits:   []ir.TraitID{ir.TraitNoSideEffects},
		InferType: func(operandTypes []*ir.Type, attrs *ir.AttrDict) ([]*ir.Type, error) {
			if len(operandTypes) != 1 {
				return nil, errArity("rotl32", 1, len(operandTypes))
			}
			return []*ir.Type{operandTypes[0]}, nil
		},
	})

	// split_halves decomposes a 64-bit felt-backed value into its low and
	// high 32-bit halves, each held in its own field element.
	n.SplitHalves = d.AddOperation(ir.OpSpec{
		Mnemonic: "split_halves",
		Traits:   []ir.TraitID{ir.TraitNoSideEffects},
		InferType: func(operandTypes []*ir.Type, attrs *ir.AttrDict) ([]*ir.Type, error) {
			if len(operandTypes) != 1 {
				return nil, errArity("split_halves", 1, len(operandTypes))
			}
			return []*ir.Type{ctx.Felt(), ctx.Felt()}, nil
		},
	})

	// join_halves is split_halves' inverse: it rejoins a low, high pair of
	// 32-bit field elements into a single 64-bit felt-backed value.
	n.JoinHalves = d.AddOperation(ir.OpSpec{
		Mnemonic: "join_halves",
		Traits:   []ir.TraitID{ir.TraitNoSideEffects},
		InferType: func(operandTypes []*ir.Type, attrs *ir.AttrDict) ([]*ir.Type, error) {
			if len(operandTypes) != 2 {
				return nil, errArity("join_halves", 2, len(operandTypes))
			}
			return []*ir.Type{ctx.Felt()}, nil
		},
	})

	n.CmpEq = d.AddOperation(ir.OpSpec{
		Mnemonic:  "cmp_eq",
		Traits:    []ir.TraitID{ir.TraitNoSideEffects, ir.TraitCommutative, ir.TraitSameTypeOperands},
		InferType: comparisonOp(ctx),
	})

	n.CmpLt = d.AddOperation(ir.OpSpec{
		Mnemonic:  "cmp_lt",
		Traits:    []ir.TraitID{ir.TraitNoSideEffects, ir.TraitSameTypeOperands},
		InferType: comparisonOp(ctx),
	})

	d.MaterializeConstant = func(b *ir.Builder, typ *ir.Type, attr ir.Attribute) *ir.Operation {
		attrs := ir.NewAttrDict()
		attrs.Set("value", attr)
		op := b.Create(n.Constant, []*ir.Type{typ}, nil)
		for _, k := range attrs.Keys() {
			v, _ := attrs.Get(k)
			op.Attrs().Set(k, v)
		}
		op.Impl = &ConstantImpl{Value: attr}
		return op
	}

	return n
}

// errArity reports an operand-count mismatch during type inference, naming
// the op and the expected/actual counts.
func errArity(op string, want, got int) error {
	return fmt.Errorf("arith: %s expects %d operand(s), got %d", op, want, got)
}

// errMismatch reports an operand-type mismatch during type inference.
func errMismatch(a, b *ir.Type) error {
	return fmt.Errorf("arith: operand type mismatch: %s vs %s", a, b)
}

func sameTypeBinaryOp(operandTypes []*ir.Type, attrs *ir.AttrDict) ([]*ir.Type, error) {
	if len(operandTypes) != 2 {
		return nil, errArity("binary arith op", 2, len(operandTypes))
	}
	if operandTypes[0] != operandTypes[1] {
		return nil, errMismatch(operandTypes[0], operandTypes[1])
	}
	return []*ir.Type{operandTypes[0]}, nil
}

func comparisonOp(ctx *ir.Context) ir.InferTypeFunc {
	return func(operandTypes []*ir.Type, attrs *ir.AttrDict) ([]*ir.Type, error) {
		if len(operandTypes) != 2 {
			return nil, errArity("comparison op", 2, len(operandTypes))
		}
		if operandTypes[0] != operandTypes[1] {
			return nil, errMismatch(operandTypes[0], operandTypes[1])
		}
		return []*ir.Type{ctx.I1()}, nil
	}
}

// Builder wraps an *ir.Builder with typed constructors for the arith
// dialect.
type Builder struct {
	B *ir.Builder
	N *Names
}

// NewBuilder returns a typed builder over b.
func NewBuilder(b *ir.Builder, names *Names) *Builder { return &Builder{B: b, N: names} }

// Constant materializes a typed integer literal.
func (ab *Builder) Constant(typ *ir.Type, value uint64) *ir.Operation {
	d, _ := ab.B.Context().Dialect(Namespace)
	return d.MaterializeConstant(ab.B, typ, ir.IntAttr{Type: typ, Value: value})
}

// AddI builds an arith.addi, inferring its result type from lhs/rhs.
func (ab *Builder) AddI(lhs, rhs ir.Value) (*ir.Operation, error) {
	return ab.B.CreateInferred(ab.N.AddI, []ir.Value{lhs, rhs}, nil, nil)
}

// SubI builds an arith.subi, inferring its result type from lhs/rhs.
func (ab *Builder) SubI(lhs, rhs ir.Value) (*ir.Operation, error) {
	return ab.B.CreateInferred(ab.N.SubI, []ir.Value{lhs, rhs}, nil, nil)
}

// MulI builds an arith.muli, inferring its result type from lhs/rhs.
func (ab *Builder) MulI(lhs, rhs ir.Value) (*ir.Operation, error) {
	return ab.B.CreateInferred(ab.N.MulI, []ir.Value{lhs, rhs}, nil, nil)
}

// RotL32 builds an arith.rotl32 over v.
func (ab *Builder) RotL32(v ir.Value) (*ir.Operation, error) {
	return ab.B.CreateInferred(ab.N.RotL32, []ir.Value{v}, nil, nil)
}

// CmpEq builds an arith.cmp_eq, inferring an i1 result.
func (ab *Builder) CmpEq(lhs, rhs ir.Value) (*ir.Operation, error) {
	return ab.B.CreateInferred(ab.N.CmpEq, []ir.Value{lhs, rhs}, nil, nil)
}

// CmpLt builds an arith.cmp_lt, inferring an i1 result.
func (ab *Builder) CmpLt(lhs, rhs ir.Value) (*ir.Operation, error) {
	return ab.B.CreateInferred(ab.N.CmpLt, []ir.Value{lhs, rhs}, nil, nil)
}

// SplitHalves builds an arith.split_halves over v, producing (lo, hi).
func (ab *Builder) SplitHalves(v ir.Value) (*ir.Operation, error) {
	return ab.B.CreateInferred(ab.N.SplitHalves, []ir.Value{v}, nil, nil)
}

// JoinHalves builds an arith.join_halves rejoining lo, hi into one value.
func (ab *Builder) JoinHalves(lo, hi ir.Value) (*ir.Operation, error) {
	return ab.B.CreateInferred(ab.N.JoinHalves, []ir.Value{lo, hi}, nil, nil)
}
