package ir

import (
	"fmt"
	"strings"
)

// Kind discriminates the variants of Type. Type is modelled as a single
// value-semantics struct tagged by Kind rather than a Go interface per
// variant: types are interned (see typeInterner) and compared by pointer
// identity, so a flat struct keeps the interning key trivial to compute and
// avoids a type-switch at every use site.
type Kind uint8

// The supported type kinds, per §3.1.
const (
	KindI1 Kind = iota
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindI128
	KindU128
	KindFelt
	KindF64
	KindPtr
	KindArray
	KindStruct
	KindList
	KindUnit
	KindNever
	KindUnknown
)

// AddrSpace tags a Ptr type with the address space of the memory it points
// into. Byte-addressable pointers originate in the source language; Element
// pointers address the VM's native 64-bit stack/memory elements directly.
type AddrSpace uint8

// The two address spaces a Ptr type may carry.
const (
	AddrSpaceByte AddrSpace = iota
	AddrSpaceElement
)

func (a AddrSpace) String() string {
	if a == AddrSpaceElement {
		return "element"
	}
	return "byte"
}

// Type is an interned, value-semantics sum type. Two Types are the same type
// iff they are the same pointer; Context.types guarantees this for every
// Type handed back by the constructors below.
type Type struct {
	kind Kind

	// Ptr
	pointee   *Type
	addrSpace AddrSpace

	// Array / List
	elem *Type
	len  uint64 // Array only

	// Struct
	fields []*Type
}

// Kind returns the type's variant tag.
func (t *Type) Kind() Kind { return t.kind }

// Pointee returns the pointee type of a Ptr type, or nil otherwise.
func (t *Type) Pointee() *Type { return t.pointee }

// AddrSpace returns the address space of a Ptr type.
func (t *Type) AddrSpace() AddrSpace { return t.addrSpace }

// Elem returns the element type of an Array or List type, or nil otherwise.
func (t *Type) Elem() *Type { return t.elem }

// Len returns the element count of an Array type.
func (t *Type) Len() uint64 { return t.len }

// Fields returns the field types of a Struct type, in declaration order.
func (t *Type) Fields() []*Type { return t.fields }

// SizeInBits returns the type's natural bit width. Ptr, List, Unit, Never
// and Unknown return 0; Array and Struct return the sum of their element or
// field widths.
func (t *Type) SizeInBits() uint32 {
	switch t.kind {
	case KindI1:
		return 1
	case KindI8, KindU8:
		return 8
	case KindI16, KindU16:
		return 16
	case KindI32, KindU32:
		return 32
	case KindI64, KindU64, KindFelt, KindF64:
		return 64
	case KindI128, KindU128:
		return 128
	case KindArray:
		return t.elem.SizeInBits() * uint32(t.len)
	case KindStruct:
		var total uint32
		for _, f := range t.fields {
			total += f.SizeInBits()
		}
		return total
	default:
		return 0
	}
}

// MinAlignment returns the type's minimum required alignment, in bytes.
func (t *Type) MinAlignment() uint32 {
	switch t.kind {
	case KindI1, KindI8, KindU8:
		return 1
	case KindI16, KindU16:
		return 2
	case KindI32, KindU32:
		return 4
	case KindI64, KindU64, KindFelt, KindF64, KindPtr:
		return 8
	case KindI128, KindU128:
		return 16
	case KindArray, KindList:
		return t.elem.MinAlignment()
	case KindStruct:
		var max uint32 = 1
		for _, f := range t.fields {
			if a := f.MinAlignment(); a > max {
				max = a
			}
		}
		return max
	default:
		return 1
	}
}

// StackSize returns the number of 64-bit field elements this type occupies
// on the VM's operand stack. Ptr and List values are always represented by
// a single element (an element address / handle); Unit and Never occupy
// none.
func (t *Type) StackSize() int {
	switch t.kind {
	case KindUnit, KindNever:
		return 0
	case KindI128, KindU128:
		return 2
	case KindPtr, KindList, KindUnknown:
		return 1
	case KindArray:
		return t.elem.StackSize() * int(t.len)
	case KindStruct:
		var total int
		for _, f := range t.fields {
			total += f.StackSize()
		}
		return total
	default:
		return 1
	}
}

func (t *Type) String() string {
	switch t.kind {
	case KindI1:
		return "i1"
	case KindI8:
		return "i8"
	case KindU8:
		return "u8"
	case KindI16:
		return "i16"
	case KindU16:
		return "u16"
	case KindI32:
		return "i32"
	case KindU32:
		return "u32"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindI128:
		return "i128"
	case KindU128:
		return "u128"
	case KindFelt:
		return "felt"
	case KindF64:
		return "f64"
	case KindPtr:
		return fmt.Sprintf("ptr<%s, %s>", t.pointee, t.addrSpace)
	case KindArray:
		return fmt.Sprintf("array<%s, %d>", t.elem, t.len)
	case KindStruct:
		parts := make([]string, len(t.fields))
		for i, f := range t.fields {
			parts[i] = f.String()
		}
		return "struct<" + strings.Join(parts, ", ") + ">"
	case KindList:
		return fmt.Sprintf("list<%s>", t.elem)
	case KindUnit:
		return "unit"
	case KindNever:
		return "never"
	default:
		return "unknown"
	}
}

// canonicalKey returns a string uniquely identifying t's structure, used as
// the typeInterner's map key.
func (t *Type) canonicalKey() string {
	switch t.kind {
	case KindPtr:
		return fmt.Sprintf("ptr:%p:%d", t.pointee, t.addrSpace)
	case KindArray:
		return fmt.Sprintf("array:%p:%d", t.elem, t.len)
	case KindList:
		return fmt.Sprintf("list:%p", t.elem)
	case KindStruct:
		var b strings.Builder
		b.WriteString("struct:")
		for _, f := range t.fields {
			fmt.Fprintf(&b, "%p,", f)
		}
		return b.String()
	default:
		return fmt.Sprintf("scalar:%d", t.kind)
	}
}

// typeInterner owns the single canonical *Type for every distinct type
// structure requested from a Context.
type typeInterner struct {
	table map[string]*Type
}

func newTypeInterner() *typeInterner {
	return &typeInterner{table: make(map[string]*Type)}
}

func (in *typeInterner) intern(t *Type) *Type {
	key := t.canonicalKey()
	if existing, ok := in.table[key]; ok {
		return existing
	}
	in.table[key] = t
	return t
}
