package rewrite

import (
	"fmt"

	"corevm/ir"
)

// Rewriter is the only interface through which a RewritePattern is allowed
// to mutate the IR; routing every mutation through it lets a single
// ChangeListener see every structural change regardless of which pattern
// caused it.
type Rewriter interface {
	Builder() *ir.Builder

	EraseOp(op *ir.Operation) error
	ReplaceOp(op *ir.Operation, with *ir.Operation) error
	ReplaceOpWithValues(op *ir.Operation, values []ir.Value) error
	ReplaceAllUsesOfValueWith(from, to ir.Value)

	MergeBlocks(src, dst *ir.Block, argMapping []ir.Value) error
	InlineBlockBefore(src *ir.Block, before *ir.Operation, argMapping []ir.Value) error
	CreateBlock(region *ir.Region) *ir.Block
	EraseBlock(b *ir.Block) error

	SetInsertionPointToStart(block *ir.Block)
	SetInsertionPointToEnd(block *ir.Block)
	SetInsertionPointAfter(op *ir.Operation)
	SetInsertionPointBefore(op *ir.Operation)

	// ModifyOpInPlace runs fn against op and notifies the listener that
	// op was modified. If fn panics, the panic propagates: nothing in this
	// package recovers it, op is left in whatever state fn left it, and the
	// listener is not notified.
	ModifyOpInPlace(op *ir.Operation, fn func())
}

// DefaultRewriter is the standard Rewriter implementation: an ir.Builder
// plus a ChangeListener notified of every mutation.
type DefaultRewriter struct {
	b        *ir.Builder
	listener ChangeListener
}

// NewDefaultRewriter returns a Rewriter wrapping b, notifying listener of
// every mutation (listener may be nil).
func NewDefaultRewriter(b *ir.Builder, listener ChangeListener) *DefaultRewriter {
	if listener == nil {
		listener = MultiListener(nil)
	}
	return &DefaultRewriter{b: b, listener: listener}
}

// Builder implements Rewriter.
func (r *DefaultRewriter) Builder() *ir.Builder { return r.b }

// EraseOp implements Rewriter.
func (r *DefaultRewriter) EraseOp(op *ir.Operation) error {
	if err := op.Erase(); err != nil {
		return err
	}
	r.listener.OpErased(op)
	return nil
}

// ReplaceOp implements Rewriter: every use of op's results is rewired to
// with's results at the same index, then op is erased.
func (r *DefaultRewriter) ReplaceOp(op *ir.Operation, with *ir.Operation) error {
	if len(op.Results()) != len(with.Results()) {
		return fmt.Errorf("rewrite: replacement result arity mismatch: %d != %d",
			len(op.Results()), len(with.Results()))
	}
	values := make([]ir.Value, len(with.Results()))
	for i, res := range with.Results() {
		values[i] = res
	}
	return r.ReplaceOpWithValues(op, values)
}

// ReplaceOpWithValues implements Rewriter: rewires every use of op's
// results to the corresponding entry of values, then erases op.
func (r *DefaultRewriter) ReplaceOpWithValues(op *ir.Operation, values []ir.Value) error {
	if len(op.Results()) != len(values) {
		return fmt.Errorf("rewrite: replacement value count mismatch: %d != %d",
			len(op.Results()), len(values))
	}
	for i, res := range op.Results() {
		r.ReplaceAllUsesOfValueWith(res, values[i])
	}
	if err := op.Erase(); err != nil {
		return err
	}
	r.listener.OpReplaced(op, values)
	return nil
}

// ReplaceAllUsesOfValueWith implements Rewriter.
func (r *DefaultRewriter) ReplaceAllUsesOfValueWith(from, to ir.Value) {
	for _, use := range append([]*ir.Operand(nil), from.Uses()...) {
		use.Set(to)
	}
}

// MergeBlocks implements Rewriter: every operation of src is moved to the
// end of dst, src's block arguments are replaced by argMapping, and src is
// left empty (callers typically erase it immediately after, once it has no
// remaining predecessors).
func (r *DefaultRewriter) MergeBlocks(src, dst *ir.Block, argMapping []ir.Value) error {
	if len(argMapping) != len(src.Arguments()) {
		return fmt.Errorf("rewrite: merge arg mapping count mismatch: %d != %d",
			len(argMapping), len(src.Arguments()))
	}
	for i, arg := range src.Arguments() {
		r.ReplaceAllUsesOfValueWith(arg, argMapping[i])
	}
	return moveAllOps(src, dst, nil)
}

// InlineBlockBefore implements Rewriter: splices src's operations into
// before's parent block immediately ahead of before, remapping src's block
// arguments to argMapping.
func (r *DefaultRewriter) InlineBlockBefore(src *ir.Block, before *ir.Operation, argMapping []ir.Value) error {
	if len(argMapping) != len(src.Arguments()) {
		return fmt.Errorf("rewrite: inline arg mapping count mismatch: %d != %d",
			len(argMapping), len(src.Arguments()))
	}
	for i, arg := range src.Arguments() {
		r.ReplaceAllUsesOfValueWith(arg, argMapping[i])
	}
	return moveAllOps(src, before.Parent(), before)
}

// moveAllOps relocates every operation of src into dst, either appended
// (before == nil) or immediately ahead of before.
func moveAllOps(src, dst *ir.Block, before *ir.Operation) error {
	ops := src.Operations()
	for _, op := range ops {
		src.UnlinkForMove(op)
		if before == nil {
			dst.AppendForMove(op)
		} else {
			dst.InsertForMoveBefore(op, before)
		}
	}
	return nil
}

// CreateBlock implements Rewriter.
func (r *DefaultRewriter) CreateBlock(region *ir.Region) *ir.Block {
	return r.b.CreateBlock(region)
}

// EraseBlock implements Rewriter: removes an emptied, predecessor-less
// block from its parent region.
func (r *DefaultRewriter) EraseBlock(b *ir.Block) error {
	return b.Parent().EraseBlock(b)
}

// SetInsertionPointToStart implements Rewriter.
func (r *DefaultRewriter) SetInsertionPointToStart(block *ir.Block) { r.b.SetInsertionPointToStart(block) }

// SetInsertionPointToEnd implements Rewriter.
func (r *DefaultRewriter) SetInsertionPointToEnd(block *ir.Block) { r.b.SetInsertionPointToEnd(block) }

// SetInsertionPointAfter implements Rewriter.
func (r *DefaultRewriter) SetInsertionPointAfter(op *ir.Operation) { r.b.SetInsertionPointAfter(op) }

// SetInsertionPointBefore implements Rewriter.
func (r *DefaultRewriter) SetInsertionPointBefore(op *ir.Operation) { r.b.SetInsertionPointBefore(op) }

// ModifyOpInPlace implements Rewriter.
func (r *DefaultRewriter) ModifyOpInPlace(op *ir.Operation, fn func()) {
	fn()
	r.listener.OpModified(op)
}
