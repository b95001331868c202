package ir

import "fmt"

// Verify checks the structural invariants every operation in the module
// rooted at op must satisfy, recursing into nested regions. It does not
// invoke dialect-specific semantic checks beyond calling each
// OperationName's registered Verify hook; those hooks layer domain rules
// (operand count, type agreement) on top of these structural ones.
func Verify(op *Operation) error {
	if err := verifyOp(op); err != nil {
		return err
	}
	for _, r := range op.regions {
		for _, b := range r.Blocks() {
			if err := verifyBlock(r, b); err != nil {
				return err
			}
			for o := b.firstOp; o != nil; o = o.next {
				if err := Verify(o); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func verifyOp(op *Operation) error {
	if op.name.HasTrait(TraitTerminator) {
		if op.parent != nil && op.parent.lastOp != op {
			return fmt.Errorf("ir: terminator %s is not the last operation in its block", op.name.Full())
		}
		if len(op.succs) == 0 && !op.name.HasTrait(TraitReturnLike) {
			return fmt.Errorf("ir: terminator %s has no successors", op.name.Full())
		}
		if len(op.succs) > 0 && op.name.HasTrait(TraitReturnLike) {
			return fmt.Errorf("ir: return-like terminator %s carries successors", op.name.Full())
		}
	} else if op.parent != nil && op.parent.lastOp == op && !blockNeedsNoTerminator(op.parent) {
		return fmt.Errorf("ir: block ends with non-terminator %s", op.name.Full())
	}
	if op.name.HasTrait(TraitConstantLike) && len(op.operands) != 0 {
		return fmt.Errorf("ir: constant-like %s has operands", op.name.Full())
	}
	if op.name.HasTrait(TraitSingleRegion) && len(op.regions) != 1 {
		return fmt.Errorf("ir: %s carries %d regions, trait requires exactly one", op.name.Full(), len(op.regions))
	}
	if op.name.HasTrait(TraitSameTypeOperands) && len(op.operands) > 1 {
		first := op.operands[0].value.Type()
		for i, o := range op.operands[1:] {
			if o.value.Type() != first {
				return fmt.Errorf("ir: %s operand %d has type %s, operand 0 has %s",
					op.name.Full(), i+1, o.value.Type(), first)
			}
		}
	}
	for i, s := range op.succs {
		if s.target == nil {
			return fmt.Errorf("ir: %s successor %d has no target", op.name.Full(), i)
		}
		if len(s.forwarded) != len(s.target.args) {
			return fmt.Errorf("ir: %s successor %d forwards %d operands, target expects %d",
				op.name.Full(), i, len(s.forwarded), len(s.target.args))
		}
	}
	if op.name.HasTrait(TraitIsolatedFromAbove) {
		for _, r := range op.regions {
			if err := verifyIsolated(op, r); err != nil {
				return err
			}
		}
	}
	if op.name.HasTrait(TraitSymbolTable) {
		st, err := NewSymbolTable(op)
		if err != nil {
			return err
		}
		if err := st.VerifySymbolTable(); err != nil {
			return err
		}
	}
	return op.name.Verify(op)
}

// blockNeedsNoTerminator reports whether b belongs to a region whose
// owning operation carries TraitNoTerminator, exempting b's last op from
// the terminator requirement.
func blockNeedsNoTerminator(b *Block) bool {
	return b.parent != nil && b.parent.parent != nil &&
		b.parent.parent.name.HasTrait(TraitNoTerminator)
}

func verifyBlock(r *Region, b *Block) error {
	if b.firstOp == nil {
		return fmt.Errorf("ir: block %d in region is empty", b.id)
	}
	if b.parent != r {
		return fmt.Errorf("ir: block %d has mismatched parent pointer", b.id)
	}
	return nil
}

// verifyIsolated checks that no value used within r is defined outside the
// subtree rooted at op, per the TraitIsolatedFromAbove contract (§3.1): a
// function body must not capture values from an enclosing scope.
func verifyIsolated(root *Operation, r *Region) error {
	defined := make(map[Value]bool)
	markDefined(root, defined)
	var walk func(*Region) error
	walk = func(reg *Region) error {
		for _, b := range reg.Blocks() {
			for _, a := range b.args {
				defined[a] = true
			}
			for o := b.firstOp; o != nil; o = o.next {
				for _, operand := range o.operands {
					if operand.value != nil && !defined[operand.value] {
						return fmt.Errorf("ir: isolated region references value defined outside it")
					}
				}
				for _, res := range o.results {
					defined[res] = true
				}
				for _, nested := range o.regions {
					if err := walk(nested); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}
	return walk(r)
}

func markDefined(op *Operation, defined map[Value]bool) {
	for _, r := range op.results {
		defined[r] = true
	}
}
