package ir

// InsertionGuard saves a Builder's insertion point so a transformation that
// temporarily redirects it (e.g. to build a nested region) can restore it
// afterwards. Used as `defer builder.Restore(builder.Save())`.
type InsertionGuard struct {
	block *Block
	after *Operation
}

// Builder is the single entry point dialects and passes use to construct
// new operations: it tracks a current insertion point (a block plus the
// operation to insert after, nil meaning "at the block's start") and wraps
// op creation with the Context's id allocation.
type Builder struct {
	ctx   *Context
	block *Block
	after *Operation
}

// NewBuilder returns a Builder with no insertion point set; SetInsertionPoint*
// must be called before Create.
func NewBuilder(ctx *Context) *Builder { return &Builder{ctx: ctx} }

// Context returns the builder's owning context.
func (b *Builder) Context() *Context { return b.ctx }

// SetInsertionPointToStart positions the builder to insert before every
// existing operation in block.
func (b *Builder) SetInsertionPointToStart(block *Block) {
	b.block = block
	b.after = nil
}

// SetInsertionPointToEnd positions the builder to insert after every
// existing operation in block.
func (b *Builder) SetInsertionPointToEnd(block *Block) {
	b.block = block
	b.after = block.lastOp
}

// SetInsertionPointAfter positions the builder to insert immediately after
// op, in op's parent block.
func (b *Builder) SetInsertionPointAfter(op *Operation) {
	b.block = op.parent
	b.after = op
}

// SetInsertionPointBefore positions the builder to insert immediately
// before op, in op's parent block.
func (b *Builder) SetInsertionPointBefore(op *Operation) {
	b.block = op.parent
	b.after = op.prev
}

// InsertionBlock returns the block the builder currently inserts into.
func (b *Builder) InsertionBlock() *Block { return b.block }

// Save captures the current insertion point.
func (b *Builder) Save() InsertionGuard { return InsertionGuard{block: b.block, after: b.after} }

// Restore reinstates a previously saved insertion point.
func (b *Builder) Restore(g InsertionGuard) {
	b.block = g.block
	b.after = g.after
}

// Create allocates a new operation of name with the given result types and
// region kinds, and splices it into the builder's current insertion point.
// The returned op's operands and attributes are left empty for the caller
// to populate before any further IR mutation reads them.
func (b *Builder) Create(name *OperationName, resultTypes []*Type, regionKinds []RegionKind) *Operation {
	op := NewOperation(b.ctx, name, resultTypes, regionKinds)
	b.block.insertOpAfter(b.after, op)
	b.after = op
	return op
}

// CreateWithRegions allocates a new operation of name with the given result
// types, reparenting the existing regions (typically taken from an
// operation being rebuilt) instead of creating empty ones, and splices it
// into the builder's current insertion point.
func (b *Builder) CreateWithRegions(name *OperationName, resultTypes []*Type, regions []*Region) *Operation {
	op := NewOperationWithRegions(b.ctx, name, resultTypes, regions)
	b.block.insertOpAfter(b.after, op)
	b.after = op
	return op
}

// CreateBlock appends a new block to region and positions the builder at
// its start.
func (b *Builder) CreateBlock(region *Region) *Block {
	blk := region.AppendBlock(b.ctx)
	b.SetInsertionPointToStart(blk)
	return blk
}

// CreateInferred builds an operation of name from operands and attrs,
// running name's registered InferType hook (if any) to compute result
// types before allocating the op, then wiring operands and attributes.
// Dialect op constructors use this so every op they produce has gone
// through type inference the way §4.2 requires.
func (b *Builder) CreateInferred(name *OperationName, operands []Value, attrs *AttrDict, regionKinds []RegionKind) (*Operation, error) {
	operandTypes := make([]*Type, len(operands))
	for i, v := range operands {
		if v != nil {
			operandTypes[i] = v.Type()
		}
	}
	resultTypes, err := name.InferType(operandTypes, attrs)
	if err != nil {
		return nil, err
	}
	op := b.Create(name, resultTypes, regionKinds)
	if attrs != nil {
		for _, k := range attrs.Keys() {
			v, _ := attrs.Get(k)
			op.Attrs().Set(k, v)
		}
	}
	for _, v := range operands {
		op.AddOperand(v)
	}
	return op, nil
}
