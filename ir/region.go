package ir

import "fmt"

// RegionKind distinguishes SSA-dominance regions (the common case: a
// function body, a structured-control-flow body) from graph regions whose
// blocks have no dominance relationship (reserved for dialects that model
// non-SSA control, e.g. a future dataflow-graph dialect).
type RegionKind uint8

const (
	// RegionSSA requires every value used in a block to be dominated by
	// its definition.
	RegionSSA RegionKind = iota
	// RegionGraph imposes no dominance requirement between its blocks.
	RegionGraph
)

func (k RegionKind) String() string {
	switch k {
	case RegionSSA:
		return "ssa"
	case RegionGraph:
		return "graph"
	default:
		return "region?"
	}
}

// Region is an ordered, non-empty (once built) list of Blocks owned by a
// single Operation. Blocks are linked intrusively via Block.prev/next for
// O(1) splice during inlining and block merging (§4.5).
type Region struct {
	id     id
	kind   RegionKind
	parent *Operation
	index  int

	firstBlock, lastBlock *Block
	numBlocks             int
}

// ID returns the region's stable arena index.
func (r *Region) ID() id { return r.id }

// Kind reports whether this region enforces SSA dominance.
func (r *Region) Kind() RegionKind { return r.kind }

// Parent returns the operation that owns this region.
func (r *Region) Parent() *Operation { return r.parent }

// Index returns this region's position in its parent op's region list.
func (r *Region) Index() int { return r.index }

// Empty reports whether the region contains no blocks.
func (r *Region) Empty() bool { return r.firstBlock == nil }

// EntryBlock returns the region's first block, or nil if empty. For a
// single-entry region (the common case) this is the block execution enters
// on.
func (r *Region) EntryBlock() *Block { return r.firstBlock }

// Blocks returns every block in the region, in list order. The slice is
// freshly allocated; hot paths should walk EntryBlock/Next instead.
func (r *Region) Blocks() []*Block {
	var blocks []*Block
	for b := r.firstBlock; b != nil; b = b.next {
		blocks = append(blocks, b)
	}
	return blocks
}

// NumBlocks returns the number of blocks currently in the region.
func (r *Region) NumBlocks() int { return r.numBlocks }

// AppendBlock creates a new, empty block at the end of the region.
func (r *Region) AppendBlock(ctx *Context) *Block {
	b := &Block{id: ctx.nextBlockID(), parent: r}
	r.insertBlockAfter(r.lastBlock, b)
	return b
}

func (r *Region) insertBlockAfter(at, b *Block) {
	b.parent = r
	if at == nil {
		b.next = r.firstBlock
		b.prev = nil
		if r.firstBlock != nil {
			r.firstBlock.prev = b
		}
		r.firstBlock = b
		if r.lastBlock == nil {
			r.lastBlock = b
		}
	} else {
		b.prev = at
		b.next = at.next
		if at.next != nil {
			at.next.prev = b
		} else {
			r.lastBlock = b
		}
		at.next = b
	}
	r.numBlocks++
}

// EraseBlock removes b from the region, failing if it still has incoming
// predecessor edges or operations (callers must retarget or erase those
// first). Used by canonicalization once a pass-through block has been
// merged into its sole predecessor (§4.5, scenario 1 in §8).
func (r *Region) EraseBlock(b *Block) error {
	if len(b.preds) != 0 {
		return fmt.Errorf("ir: cannot erase block %d: still has %d predecessors", b.id, len(b.preds))
	}
	if b.firstOp != nil {
		return fmt.Errorf("ir: cannot erase block %d: still has operations", b.id)
	}
	r.unlinkBlock(b)
	return nil
}

// unlinkBlock removes b from the region's block list. Any Successor edges
// still targeting b are left dangling; callers must erase or retarget them
// first (EraseBlock refuses a block that still has predecessors or
// operations).
func (r *Region) unlinkBlock(b *Block) {
	if b.prev != nil {
		b.prev.next = b.next
	} else {
		r.firstBlock = b.next
	}
	if b.next != nil {
		b.next.prev = b.prev
	} else {
		r.lastBlock = b.prev
	}
	b.prev, b.next, b.parent = nil, nil, nil
	r.numBlocks--
}

// InlineRegionBefore splices every block of src into r, immediately before
// dst (or at the end of r if dst is nil), leaving src empty. Used by the
// rewriter's region-inlining primitive (§4.4) when lowering structured
// control flow to unstructured branches.
func (r *Region) InlineRegionBefore(src *Region, dst *Block) {
	if src.Empty() {
		return
	}
	var at *Block
	if dst == nil {
		at = r.lastBlock
	} else {
		at = dst.prev
	}
	for b := src.firstBlock; b != nil; {
		next := b.next
		b.prev, b.next = nil, nil
		r.insertBlockAfter(at, b)
		at = b
		b = next
	}
	src.firstBlock, src.lastBlock, src.numBlocks = nil, nil, 0
}
