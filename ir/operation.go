package ir

import (
	"fmt"
)

// Successor is one control-flow edge carried by a terminator operation: a
// target block plus the forwarded operands passed as that block's
// arguments. Successors double as the target block's predecessor list
// entry, so erasing a block argument can walk every incoming edge and drop
// the matching forwarded operand in O(1) (§3.2).
type Successor struct {
	owner     *Operation
	index     int
	target    *Block
	forwarded []*Operand

	predIndex int
}

// Owner returns the terminator operation this successor belongs to.
func (s *Successor) Owner() *Operation { return s.owner }

// Index returns this successor's position in its owner's successor list.
func (s *Successor) Index() int { return s.index }

// Target returns the block this edge branches to.
func (s *Successor) Target() *Block { return s.target }

// Forwarded returns the operands passed as the target block's arguments
// along this edge.
func (s *Successor) Forwarded() []*Operand { return s.forwarded }

// SetTarget retargets this edge to a new block, unlinking from the old
// target's predecessor list and linking into the new one's. Existing
// forwarded operands are left as-is; callers that change block arity must
// also adjust Forwarded.
func (s *Successor) SetTarget(target *Block) {
	if s.target != nil {
		s.target.removePred(s)
	}
	s.target = target
	if target != nil {
		target.addPred(s)
	}
}

// EraseForwarded removes the forwarded operand at argIndex, used when a
// block argument is pruned as dead (§4.5 unused block-argument
// elimination).
func (s *Successor) EraseForwarded(argIndex int) {
	s.forwarded[argIndex].Drop()
	s.forwarded = append(s.forwarded[:argIndex], s.forwarded[argIndex+1:]...)
	for i := argIndex; i < len(s.forwarded); i++ {
		s.forwarded[i].index = i
	}
}

// Operation is the single concrete node type for every dialect: its
// identity (name, attributes), its operands and results, any nested
// regions, and any successor edges if it is a terminator. Dialects attach
// domain semantics via the Impl field, which downstream code type-asserts
// to the interface it needs (RegionBranchOp, CallOp, ...).
type Operation struct {
	id   id
	name *OperationName
	span Span
	ctx  *Context

	attrs *AttrDict

	operands []*Operand
	results  []*OpResult
	regions  []*Region
	succs    []*Successor

	parent     *Block
	prev, next *Operation

	// Impl is the dialect-specific payload for this operation instance
	// (e.g. *arith.ConstantImpl). It is nil for ops that carry no
	// per-instance state beyond operands/attributes/results.
	Impl interface{}
}

// Span aliases diag.Span's shape locally so the ir package does not need to
// import diag for what is, from its perspective, just a source location
// tag on every entity. codegen and the driver translate between the two at
// the diagnostics boundary.
type Span struct {
	File                 string
	Line, Col            int
	EndLine, EndCol       int
}

// NewOperation allocates a new, unparented operation of the given name with
// no operands, one result per entry of resultTypes, and one empty region
// per entry of regionKinds. It is not inserted into
// any block; use Block.insertOpAfter (via a Builder) to place it.
func NewOperation(ctx *Context, name *OperationName, resultTypes []*Type, regionKinds []RegionKind) *Operation {
	op := &Operation{
		id:    ctx.nextOpID(),
		name:  name,
		ctx:   ctx,
		attrs: NewAttrDict(),
	}
	op.results = make([]*OpResult, len(resultTypes))
	for i, t := range resultTypes {
		op.results[i] = &OpResult{valueBase: valueBase{typ: t}, index: i, def: op}
	}
	op.regions = make([]*Region, len(regionKinds))
	for i, k := range regionKinds {
		op.regions[i] = &Region{id: ctx.nextRegionID(), kind: k, parent: op, index: i}
	}
	return op
}

// NewOperationWithRegions allocates a new operation of name with
// numResults results of the given types, adopting existing regions instead
// of allocating empty ones. Used when rebuilding an op with a different
// result/operand arity but unchanged region bodies (e.g. pruning an unused
// scf.if result or an unused scf.while loop-carried value, §4.5).
func NewOperationWithRegions(ctx *Context, name *OperationName, resultTypes []*Type, regions []*Region) *Operation {
	op := &Operation{
		id:    ctx.nextOpID(),
		name:  name,
		ctx:   ctx,
		attrs: NewAttrDict(),
	}
	op.results = make([]*OpResult, len(resultTypes))
	for i, t := range resultTypes {
		op.results[i] = &OpResult{valueBase: valueBase{typ: t}, index: i, def: op}
	}
	op.regions = regions
	for i, r := range regions {
		r.parent = op
		r.index = i
	}
	return op
}

// ID returns the operation's stable arena index, used as the deterministic
// tie-break key required by §5.
func (op *Operation) ID() id { return op.id }

// Name returns the operation's interned mnemonic and trait table.
func (op *Operation) Name() *OperationName { return op.name }

// Span returns the operation's source location, for diagnostics.
func (op *Operation) Span() Span { return op.span }

// SetSpan attaches a source location to the operation.
func (op *Operation) SetSpan(s Span) { op.span = s }

// Context returns the Context that owns this operation.
func (op *Operation) Context() *Context { return op.ctx }

// Attrs returns the operation's attribute dictionary.
func (op *Operation) Attrs() *AttrDict { return op.attrs }

// Operands returns the operation's operand list, in order.
func (op *Operation) Operands() []*Operand { return op.operands }

// Operand returns the operand at i.
func (op *Operation) Operand(i int) *Operand { return op.operands[i] }

// NumOperands returns the number of operands.
func (op *Operation) NumOperands() int { return len(op.operands) }

// AddOperand appends a new operand referencing v.
func (op *Operation) AddOperand(v Value) *Operand {
	o := NewOperand(op, len(op.operands), v)
	op.operands = append(op.operands, o)
	return o
}

// EraseOperand drops the operand at i, unlinking it from its value's use
// list and shifting later operand indices down.
func (op *Operation) EraseOperand(i int) {
	op.operands[i].Drop()
	op.operands = append(op.operands[:i], op.operands[i+1:]...)
	for j := i; j < len(op.operands); j++ {
		op.operands[j].index = j
	}
}

// Results returns the operation's result values, in order.
func (op *Operation) Results() []*OpResult { return op.results }

// Result returns the result at i.
func (op *Operation) Result(i int) *OpResult { return op.results[i] }

// NumResults returns the number of results.
func (op *Operation) NumResults() int { return len(op.results) }

// Regions returns the operation's nested regions, in order.
func (op *Operation) Regions() []*Region { return op.regions }

// Region returns the nested region at i.
func (op *Operation) Region(i int) *Region { return op.regions[i] }

// AddSuccessor appends a new control-flow edge to target, forwarding args.
// Only valid on operations whose name carries TraitTerminator.
func (op *Operation) AddSuccessor(target *Block, args []Value) *Successor {
	s := &Successor{owner: op, index: len(op.succs)}
	op.succs = append(op.succs, s)
	s.SetTarget(target)
	s.forwarded = make([]*Operand, len(args))
	for i, a := range args {
		s.forwarded[i] = NewOperand(op, i, a)
	}
	return s
}

// Successors returns the operation's control-flow edges, in order.
func (op *Operation) Successors() []*Successor { return op.succs }

// Parent returns the block this operation is currently inserted in, or nil
// if detached.
func (op *Operation) Parent() *Block { return op.parent }

// Next returns the following sibling operation in the parent block, or nil.
func (op *Operation) Next() *Operation { return op.next }

// Prev returns the preceding sibling operation in the parent block, or nil.
func (op *Operation) Prev() *Operation { return op.prev }

// Erase detaches the operation from its parent block and drops every
// operand and successor-forwarded-operand use it held, per the use-list
// integrity requirement (§8). It returns an error, without erasing anything,
// if any of its results still has uses; callers must first replace all uses
// (Rewriter.ReplaceOp handles both steps together).
func (op *Operation) Erase() error {
	for _, r := range op.results {
		if r.HasUses() {
			return fmt.Errorf("ir: cannot erase %s: result %d still has uses", op.name.Full(), r.index)
		}
	}
	if op.parent != nil {
		op.parent.unlinkOp(op)
	}
	for _, o := range op.operands {
		o.Drop()
	}
	for _, s := range op.succs {
		if s.target != nil {
			s.target.removePred(s)
		}
		for _, f := range s.forwarded {
			f.Drop()
		}
	}
	return nil
}

// IsBefore reports whether op precedes other in the deterministic arena
// order, used to break ties between otherwise-equal pattern matches (§5).
func (op *Operation) IsBefore(other *Operation) bool { return op.id < other.id }
