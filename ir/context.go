package ir

import (
	"github.com/google/uuid"

	"corevm/diag"
)

// Context is the single mutable root of an IR graph: it owns every
// operation, region, block and value allocated through it, interns
// identifiers/types/attributes, and holds the dialect registry and
// diagnostics sink. Its lifecycle is create -> register dialects -> build
// IR -> drop; there is no intermediate "close" step because Go's GC reclaims
// the graph once the Context becomes unreachable.
//
// A Context is not safe for concurrent use (§5): all entity handles it hands
// out are only valid while the Context that produced them is alive, and
// mutation of the IR graph must happen from a single goroutine.
type Context struct {
	id uuid.UUID

	dialects map[string]*DialectInfo

	types *typeInterner
	idents *identInterner

	opIDs     idSource
	regionIDs idSource
	blockIDs  idSource
	valueIDs  idSource
	symIDs    idSource

	Diags *diag.Sink
}

// NewContext creates an empty Context with no dialects registered.
func NewContext() *Context {
	return &Context{
		id:       uuid.New(),
		dialects: make(map[string]*DialectInfo),
		types:    newTypeInterner(),
		idents:   newIdentInterner(),
		Diags:    diag.NewSink(nil),
	}
}

// ID returns the Context's unique instance identifier, used to correlate
// diagnostics and instrumentation events with a particular compile.
func (c *Context) ID() uuid.UUID { return c.id }

func (c *Context) nextOpID() id     { return c.opIDs.alloc() }
func (c *Context) nextRegionID() id { return c.regionIDs.alloc() }
func (c *Context) nextBlockID() id  { return c.blockIDs.alloc() }
func (c *Context) nextValueID() id  { return c.valueIDs.alloc() }
func (c *Context) nextSymID() id    { return c.symIDs.alloc() }

// Ident interns s and returns a stable symbol identifier for it. Attribute
// dictionary keys and symbol names both go through this interner.
func (c *Context) Ident(s string) Identifier { return c.idents.intern(s) }

// --- Type constructors -----------------------------------------------------

// I1 returns the interned 1-bit boolean type.
func (c *Context) I1() *Type { return c.types.intern(&Type{kind: KindI1}) }

// I8 returns the interned signed 8-bit integer type.
func (c *Context) I8() *Type { return c.types.intern(&Type{kind: KindI8}) }

// U8 returns the interned unsigned 8-bit integer type.
func (c *Context) U8() *Type { return c.types.intern(&Type{kind: KindU8}) }

// I16 returns the interned signed 16-bit integer type.
func (c *Context) I16() *Type { return c.types.intern(&Type{kind: KindI16}) }

// U16 returns the interned unsigned 16-bit integer type.
func (c *Context) U16() *Type { return c.types.intern(&Type{kind: KindU16}) }

// I32 returns the interned signed 32-bit integer type.
func (c *Context) I32() *Type { return c.types.intern(&Type{kind: KindI32}) }

// U32 returns the interned unsigned 32-bit integer type.
func (c *Context) U32() *Type { return c.types.intern(&Type{kind: KindU32}) }

// I64 returns the interned signed 64-bit integer type.
func (c *Context) I64() *Type { return c.types.intern(&Type{kind: KindI64}) }

// U64 returns the interned unsigned 64-bit integer type.
func (c *Context) U64() *Type { return c.types.intern(&Type{kind: KindU64}) }

// I128 returns the interned signed 128-bit integer type.
func (c *Context) I128() *Type { return c.types.intern(&Type{kind: KindI128}) }

// U128 returns the interned unsigned 128-bit integer type.
func (c *Context) U128() *Type { return c.types.intern(&Type{kind: KindU128}) }

// Felt returns the interned field-element type, the VM's natural 64-bit
// value.
func (c *Context) Felt() *Type { return c.types.intern(&Type{kind: KindFelt}) }

// F64 returns the interned double-precision float type.
func (c *Context) F64() *Type { return c.types.intern(&Type{kind: KindF64}) }

// Ptr returns the interned pointer type for pointee in the given address
// space.
func (c *Context) Ptr(pointee *Type, space AddrSpace) *Type {
	return c.types.intern(&Type{kind: KindPtr, pointee: pointee, addrSpace: space})
}

// Array returns the interned fixed-length array type.
func (c *Context) Array(elem *Type, length uint64) *Type {
	return c.types.intern(&Type{kind: KindArray, elem: elem, len: length})
}

// Struct returns the interned struct type with the given fields, in order.
func (c *Context) Struct(fields ...*Type) *Type {
	cp := append([]*Type(nil), fields...)
	return c.types.intern(&Type{kind: KindStruct, fields: cp})
}

// List returns the interned dynamically sized list type.
func (c *Context) List(elem *Type) *Type {
	return c.types.intern(&Type{kind: KindList, elem: elem})
}

// Unit returns the interned zero-size unit type.
func (c *Context) Unit() *Type { return c.types.intern(&Type{kind: KindUnit}) }

// Never returns the interned bottom type, the result type of operations that
// do not return control to their successor (e.g. a trap).
func (c *Context) Never() *Type { return c.types.intern(&Type{kind: KindNever}) }

// Unknown returns the interned placeholder type used before type inference
// has run.
func (c *Context) Unknown() *Type { return c.types.intern(&Type{kind: KindUnknown}) }
