package ir

// Value is either an operation result or a block argument. Every Value
// maintains a use list of the Operands that reference it; the list supports
// O(1) addition and removal via an index stored back on each Operand
// (swap-with-last), mirroring the intrusive use-def chains described in §9
// without requiring manual pointer-node bookkeeping.
type Value interface {
	// Type returns the value's static type.
	Type() *Type
	// Uses returns every Operand currently referencing this value. The
	// returned slice is owned by the Value; callers must not retain it
	// across a mutation of the graph.
	Uses() []*Operand
	// HasUses reports whether any Operand currently references this
	// value.
	HasUses() bool

	base() *valueBase
}

type valueBase struct {
	typ  *Type
	uses []*Operand
}

func (b *valueBase) Type() *Type        { return b.typ }
func (b *valueBase) Uses() []*Operand   { return b.uses }
func (b *valueBase) HasUses() bool      { return len(b.uses) > 0 }
func (b *valueBase) base() *valueBase   { return b }

func (b *valueBase) addUse(o *Operand) {
	o.useIndex = len(b.uses)
	b.uses = append(b.uses, o)
}

func (b *valueBase) removeUse(o *Operand) {
	last := len(b.uses) - 1
	moved := b.uses[last]
	b.uses[o.useIndex] = moved
	moved.useIndex = o.useIndex
	b.uses[last] = nil
	b.uses = b.uses[:last]
	o.useIndex = -1
}

// OpResult is the Value produced by an Operation at a given result index.
type OpResult struct {
	valueBase
	index int
	def   *Operation
}

// DefiningOp returns the operation that produces this result.
func (r *OpResult) DefiningOp() *Operation { return r.def }

// ResultIndex returns this result's position in its defining op's result
// list.
func (r *OpResult) ResultIndex() int { return r.index }

// BlockArgument is the Value bound to a formal parameter of a Block.
type BlockArgument struct {
	valueBase
	index int
	owner *Block
}

// Owner returns the block this argument belongs to.
func (a *BlockArgument) Owner() *Block { return a.owner }

// ArgIndex returns this argument's position in its owning block's argument
// list.
func (a *BlockArgument) ArgIndex() int { return a.index }

// Operand is a use of a Value by an Operation at a given operand index. The
// zero value is not usable; Operands are always created via Operation
// construction or NewOperand.
type Operand struct {
	owner    *Operation
	index    int
	value    Value
	useIndex int
}

// NewOperand creates a detached operand referencing value, owned by owner at
// index. The operand is linked into value's use list immediately.
func NewOperand(owner *Operation, index int, value Value) *Operand {
	o := &Operand{owner: owner, index: index, useIndex: -1}
	o.Set(value)
	return o
}

// Owner returns the operation that uses this operand.
func (o *Operand) Owner() *Operation { return o.owner }

// Index returns this operand's position in its owner's operand list.
func (o *Operand) Index() int { return o.index }

// Value returns the value this operand references.
func (o *Operand) Value() Value { return o.value }

// Set rewires this operand to reference v instead, unlinking it from its
// previous value's use list and linking it into v's.
func (o *Operand) Set(v Value) {
	if o.value == v {
		return
	}
	if o.value != nil {
		o.value.base().removeUse(o)
	}
	o.value = v
	if v != nil {
		v.base().addUse(o)
	}
}

// Drop unlinks this operand from its value's use list, leaving it
// unreferenced. Used when erasing an operation.
func (o *Operand) Drop() {
	if o.value != nil {
		o.value.base().removeUse(o)
		o.value = nil
	}
}
