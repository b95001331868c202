package arith

import "corevm/ir"

type binOp uint8

const (
	opAdd binOp = iota
	opSub
	opMul
)

// constOperand returns the IntAttr value of operand i if it is defined by
// an arith.constant, and ok.
func constOperand(op *ir.Operation, i int) (uint64, bool) {
	v := op.Operand(i).Value()
	res, ok := v.(*ir.OpResult)
	if !ok {
		return 0, false
	}
	def := res.DefiningOp()
	impl, ok := def.Impl.(*ConstantImpl)
	if !ok {
		return 0, false
	}
	ia, ok := impl.Value.(ir.IntAttr)
	if !ok {
		return 0, false
	}
	return ia.Value, true
}

// foldBinary returns a Fold hook for a binary integer op: it
// constant-folds when both operands are arith.constant, and otherwise
// applies the op's identity-element simplification (x+0, x*1, x-0).
func foldBinary(kind binOp) func(op *ir.Operation) *ir.FoldResult {
	return func(op *ir.Operation) *ir.FoldResult {
		lhs, lok := constOperand(op, 0)
		rhs, rok := constOperand(op, 1)
		typ := op.Result(0).Type()

		if lok && rok {
			var result uint64
			switch kind {
			case opAdd:
				result = lhs + rhs
			case opSub:
				result = lhs - rhs
			case opMul:
				result = lhs * rhs
			}
			return &ir.FoldResult{Attrs: []ir.Attribute{ir.IntAttr{Type: typ, Value: result}}}
		}

		switch kind {
		case opAdd:
			if rok && rhs == 0 {
				return &ir.FoldResult{Values: []ir.Value{op.Operand(0).Value()}}
			}
			if lok && lhs == 0 {
				return &ir.FoldResult{Values: []ir.Value{op.Operand(1).Value()}}
			}
		case opSub:
			if rok && rhs == 0 {
				return &ir.FoldResult{Values: []ir.Value{op.Operand(0).Value()}}
			}
		case opMul:
			if rok && rhs == 1 {
				return &ir.FoldResult{Values: []ir.Value{op.Operand(0).Value()}}
			}
			if lok && lhs == 1 {
				return &ir.FoldResult{Values: []ir.Value{op.Operand(1).Value()}}
			}
		}
		return nil
	}
}
