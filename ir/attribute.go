package ir

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Attribute is a typed, immutable, value-semantics payload attached to an
// operation. Every concrete attribute implements the small capability set
// dialects rely on: structural equality, hashing (for use as e.g. a
// constant-pool key during codegen), cloning and pretty-printing.
type Attribute interface {
	// Clone returns a deep, independent copy of the value.
	Clone() Attribute
	// Equal reports structural equality with other.
	Equal(other Attribute) bool
	// Hash returns a content hash suitable for map keys.
	Hash() uint64
	// String returns the attribute's stable textual form (§6).
	String() string
}

// IntAttr is an integer immediate of a given bit width/signedness, encoded
// in the type carried alongside it.
type IntAttr struct {
	Type  *Type
	Value uint64
}

// Clone implements Attribute.
func (a IntAttr) Clone() Attribute { return a }

// Equal implements Attribute.
func (a IntAttr) Equal(other Attribute) bool {
	o, ok := other.(IntAttr)
	return ok && o.Type == a.Type && o.Value == a.Value
}

// Hash implements Attribute.
func (a IntAttr) Hash() uint64 { return a.Value*1099511628211 ^ uint64(a.Type.kind) }

func (a IntAttr) String() string {
	return fmt.Sprintf("%d : %s", a.Value, a.Type)
}

// FloatAttr is a double-precision floating point immediate.
type FloatAttr struct {
	Value float64
}

// Clone implements Attribute.
func (a FloatAttr) Clone() Attribute { return a }

// Equal implements Attribute.
func (a FloatAttr) Equal(other Attribute) bool {
	o, ok := other.(FloatAttr)
	return ok && o.Value == a.Value
}

// Hash implements Attribute.
func (a FloatAttr) Hash() uint64 { return uint64(a.Value*1e6) ^ 0x46 }

func (a FloatAttr) String() string { return strconv.FormatFloat(a.Value, 'g', -1, 64) }

// BoolAttr is a boolean immediate.
type BoolAttr bool

// Clone implements Attribute.
func (a BoolAttr) Clone() Attribute { return a }

// Equal implements Attribute.
func (a BoolAttr) Equal(other Attribute) bool { o, ok := other.(BoolAttr); return ok && o == a }

// Hash implements Attribute.
func (a BoolAttr) Hash() uint64 {
	if a {
		return 1
	}
	return 0
}

func (a BoolAttr) String() string {
	if a {
		return "true"
	}
	return "false"
}

// StringAttr is a short textual immediate (e.g. a debug variable name).
type StringAttr string

// Clone implements Attribute.
func (a StringAttr) Clone() Attribute { return a }

// Equal implements Attribute.
func (a StringAttr) Equal(other Attribute) bool { o, ok := other.(StringAttr); return ok && o == a }

// Hash implements Attribute.
func (a StringAttr) Hash() uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(a); i++ {
		h ^= uint64(a[i])
		h *= 1099511628211
	}
	return h
}

func (a StringAttr) String() string { return strconv.Quote(string(a)) }

// SymbolRefAttr names a symbol via a path of segments (printed @a::b), e.g. a function
// reference used as a `func.call` callee attribute.
type SymbolRefAttr struct {
	Path []string
}

// Clone implements Attribute.
func (a SymbolRefAttr) Clone() Attribute {
	return SymbolRefAttr{Path: append([]string(nil), a.Path...)}
}

// Equal implements Attribute.
func (a SymbolRefAttr) Equal(other Attribute) bool {
	o, ok := other.(SymbolRefAttr)
	if !ok || len(o.Path) != len(a.Path) {
		return false
	}
	for i := range a.Path {
		if a.Path[i] != o.Path[i] {
			return false
		}
	}
	return true
}

// Hash implements Attribute.
func (a SymbolRefAttr) Hash() uint64 { return StringAttr(strings.Join(a.Path, ".")).Hash() }

func (a SymbolRefAttr) String() string { return "@" + strings.Join(a.Path, "::") }

// ArrayAttr is an ordered, heterogeneous array of attributes.
type ArrayAttr struct {
	Elems []Attribute
}

// Clone implements Attribute.
func (a ArrayAttr) Clone() Attribute {
	cp := make([]Attribute, len(a.Elems))
	for i, e := range a.Elems {
		cp[i] = e.Clone()
	}
	return ArrayAttr{Elems: cp}
}

// Equal implements Attribute.
func (a ArrayAttr) Equal(other Attribute) bool {
	o, ok := other.(ArrayAttr)
	if !ok || len(o.Elems) != len(a.Elems) {
		return false
	}
	for i := range a.Elems {
		if !a.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

// Hash implements Attribute.
func (a ArrayAttr) Hash() uint64 {
	var h uint64 = 0x9e3779b97f4a7c15
	for _, e := range a.Elems {
		h ^= e.Hash() + 0x9e3779b9 + (h << 6) + (h >> 2)
	}
	return h
}

func (a ArrayAttr) String() string {
	parts := make([]string, len(a.Elems))
	for i, e := range a.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// DictAttr is a name -> attribute dictionary. Keys are sorted before
// printing/hashing so the textual form and hash are deterministic regardless
// of insertion order.
type DictAttr struct {
	Entries map[string]Attribute
}

// Clone implements Attribute.
func (a DictAttr) Clone() Attribute {
	cp := make(map[string]Attribute, len(a.Entries))
	for k, v := range a.Entries {
		cp[k] = v.Clone()
	}
	return DictAttr{Entries: cp}
}

// Equal implements Attribute.
func (a DictAttr) Equal(other Attribute) bool {
	o, ok := other.(DictAttr)
	if !ok || len(o.Entries) != len(a.Entries) {
		return false
	}
	for k, v := range a.Entries {
		ov, ok := o.Entries[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (a DictAttr) sortedKeys() []string {
	keys := make([]string, 0, len(a.Entries))
	for k := range a.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Hash implements Attribute.
func (a DictAttr) Hash() uint64 {
	var h uint64 = 0x1000000000000000
	for _, k := range a.sortedKeys() {
		h ^= StringAttr(k).Hash()
		h ^= a.Entries[k].Hash()
	}
	return h
}

func (a DictAttr) String() string {
	keys := a.sortedKeys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s = %s", k, a.Entries[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// UnitAttr marks a boolean-like flag attribute whose presence is the only
// signal (e.g. "this op is readnone").
type UnitAttr struct{}

// Clone implements Attribute.
func (UnitAttr) Clone() Attribute { return UnitAttr{} }

// Equal implements Attribute.
func (UnitAttr) Equal(other Attribute) bool { _, ok := other.(UnitAttr); return ok }

// Hash implements Attribute.
func (UnitAttr) Hash() uint64 { return 0x1 }

// String implements Attribute.
func (UnitAttr) String() string { return "unit" }

// AttrDict is the ordered-insertion-preserving attribute dictionary attached
// to every Operation. It preserves insertion order for iteration (Keys),
// and the printer emits an operation's attributes in that order; they are
// not sorted.
type AttrDict struct {
	order []string
	table map[string]Attribute
}

// NewAttrDict returns an empty attribute dictionary.
func NewAttrDict() *AttrDict {
	return &AttrDict{table: make(map[string]Attribute)}
}

// Get returns the attribute stored at key, if any.
func (d *AttrDict) Get(key string) (Attribute, bool) {
	v, ok := d.table[key]
	return v, ok
}

// Set stores value at key, overwriting any previous value without disturbing
// key order.
func (d *AttrDict) Set(key string, value Attribute) {
	if _, exists := d.table[key]; !exists {
		d.order = append(d.order, key)
	}
	d.table[key] = value
}

// Delete removes key from the dictionary.
func (d *AttrDict) Delete(key string) {
	if _, exists := d.table[key]; !exists {
		return
	}
	delete(d.table, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Keys returns the dictionary's keys in insertion order.
func (d *AttrDict) Keys() []string { return append([]string(nil), d.order...) }

// Len returns the number of entries in the dictionary.
func (d *AttrDict) Len() int { return len(d.order) }

// Clone returns a deep copy of the dictionary.
func (d *AttrDict) Clone() *AttrDict {
	cp := NewAttrDict()
	for _, k := range d.order {
		cp.Set(k, d.table[k].Clone())
	}
	return cp
}
