package ir

// Block is an ordered sequence of operations, terminated by an operation
// carrying the Terminator trait (unless its parent region is marked
// no-terminator). Operations are linked intrusively (prev/next) for O(1)
// insert/erase; blocks themselves are linked the same way within their
// parent Region.
type Block struct {
	id     id
	parent *Region

	prev, next *Block

	firstOp, lastOp *Operation

	args []*BlockArgument

	// preds tracks every incoming Successor edge so erasing a block
	// argument can find and erase the matching forwarded operand in each
	// predecessor branch (§3.2). Entries are removed in O(1) via the same
	// swap-with-last index trick used for value use lists.
	preds []*Successor
}

// ID returns the block's stable arena index.
func (b *Block) ID() id { return b.id }

// Parent returns the region that owns this block.
func (b *Block) Parent() *Region { return b.parent }

// Next returns the following sibling block in the parent region, or nil.
func (b *Block) Next() *Block { return b.next }

// Prev returns the preceding sibling block in the parent region, or nil.
func (b *Block) Prev() *Block { return b.prev }

// Arguments returns the block's formal parameters, in order.
func (b *Block) Arguments() []*BlockArgument { return b.args }

// AddArgument appends a new formal parameter of type typ and returns it.
func (b *Block) AddArgument(typ *Type) *BlockArgument {
	arg := &BlockArgument{valueBase: valueBase{typ: typ}, index: len(b.args), owner: b}
	b.args = append(b.args, arg)
	return arg
}

// EraseArgument removes the argument at index i, shifting later arguments
// down one position and renumbering their ArgIndex. On every incoming edge
// whose forwarded operand count still matches the argument count, the
// matching forwarded operand is erased too. The caller is responsible for
// ensuring the argument has no remaining uses.
func (b *Block) EraseArgument(i int) {
	for _, s := range b.preds {
		if len(s.forwarded) == len(b.args) {
			s.EraseForwarded(i)
		}
	}
	b.args = append(b.args[:i], b.args[i+1:]...)
	for j := i; j < len(b.args); j++ {
		b.args[j].index = j
	}
}

// Predecessors returns the incoming Successor edges targeting this block.
func (b *Block) Predecessors() []*Successor { return b.preds }

// SinglePredecessor returns the sole incoming Successor edge if this block
// has exactly one predecessor, else nil. Used by the "merge into single
// predecessor" canonicalization (§4.5, scenario 1 in §8).
func (b *Block) SinglePredecessor() *Successor {
	if len(b.preds) != 1 {
		return nil
	}
	return b.preds[0]
}

func (b *Block) addPred(s *Successor) {
	s.predIndex = len(b.preds)
	b.preds = append(b.preds, s)
}

func (b *Block) removePred(s *Successor) {
	last := len(b.preds) - 1
	moved := b.preds[last]
	b.preds[s.predIndex] = moved
	moved.predIndex = s.predIndex
	b.preds[last] = nil
	b.preds = b.preds[:last]
	s.predIndex = -1
}

// Operations returns every operation in the block, in program order. The
// slice is freshly allocated; hot paths should instead walk First/Next.
func (b *Block) Operations() []*Operation {
	var ops []*Operation
	for op := b.firstOp; op != nil; op = op.next {
		ops = append(ops, op)
	}
	return ops
}

// First returns the block's first operation, or nil if empty.
func (b *Block) First() *Operation { return b.firstOp }

// Last returns the block's last operation, or nil if empty.
func (b *Block) Last() *Operation { return b.lastOp }

// Terminator returns the block's last operation if it carries the
// Terminator trait, else nil.
func (b *Block) Terminator() *Operation {
	if b.lastOp != nil && b.lastOp.name.HasTrait(TraitTerminator) {
		return b.lastOp
	}
	return nil
}

// insertOpAfter splices op into the block's operation list immediately
// after at (at == nil means "at the front").
func (b *Block) insertOpAfter(at, op *Operation) {
	op.parent = b
	if at == nil {
		op.next = b.firstOp
		op.prev = nil
		if b.firstOp != nil {
			b.firstOp.prev = op
		}
		b.firstOp = op
		if b.lastOp == nil {
			b.lastOp = op
		}
		return
	}
	op.prev = at
	op.next = at.next
	if at.next != nil {
		at.next.prev = op
	} else {
		b.lastOp = op
	}
	at.next = op
}

// appendOp appends op to the end of the block.
func (b *Block) appendOp(op *Operation) {
	b.insertOpAfter(b.lastOp, op)
}

// UnlinkForMove detaches op from this block without erasing its operands
// or results, so the rewriter can relocate it into another block via
// AppendForMove or InsertForMoveBefore.
func (b *Block) UnlinkForMove(op *Operation) { b.unlinkOp(op) }

// AppendForMove appends a previously unlinked op to the end of this block.
func (b *Block) AppendForMove(op *Operation) { b.appendOp(op) }

// InsertForMoveBefore splices a previously unlinked op into this block
// immediately before at.
func (b *Block) InsertForMoveBefore(op, at *Operation) { b.insertOpAfter(at.prev, op) }

// unlinkOp removes op from the block's operation list without erasing its
// operands/results; used internally by Operation.Erase and by the rewriter
// when moving an op to a different insertion point.
func (b *Block) unlinkOp(op *Operation) {
	if op.prev != nil {
		op.prev.next = op.next
	} else {
		b.firstOp = op.next
	}
	if op.next != nil {
		op.next.prev = op.prev
	} else {
		b.lastOp = op.prev
	}
	op.prev, op.next, op.parent = nil, nil, nil
}
