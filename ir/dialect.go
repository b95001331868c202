package ir

import (
	"fmt"
	"sort"
)

// TraitID names a structural or semantic capability an operation can carry
// (Terminator, NoSideEffects, commutative, etc). Traits are looked up per
// OperationName through a sorted slice rather than a map so HasTrait is a
// binary search and stays allocation-free on the codegen hot path (§9).
type TraitID uint32

const (
	// TraitTerminator marks an operation as a block terminator: it must be
	// the last operation in its block and its successors are interpreted
	// as control-flow edges.
	TraitTerminator TraitID = iota
	// TraitNoSideEffects marks an operation as free of observable effects
	// beyond producing its results, making it eligible for dead-code
	// elimination and common-subexpression merging.
	TraitNoSideEffects
	// TraitCommutative marks a binary operation whose operand order does
	// not affect its result, enabling operand-order canonicalization.
	TraitCommutative
	// TraitConstantLike marks an operation that takes no operands and
	// whose result is wholly determined by its attributes.
	TraitConstantLike
	// TraitIsolatedFromAbove marks a region as not permitted to
	// reference values defined outside it (e.g. a function body).
	TraitIsolatedFromAbove
	// TraitSymbol marks an operation as defining a named, referenceable
	// symbol (§4.6).
	TraitSymbol
	// TraitSymbolTable marks an operation whose single region holds a
	// flat namespace of Symbol-trait operations.
	TraitSymbolTable
	// TraitReturnLike marks a terminator that exits its parent region
	// directly (a function return, an scf.yield) rather than branching
	// to a sibling block; such a terminator carries no Successor edges.
	TraitReturnLike
	// TraitSingleRegion marks an operation that carries exactly one
	// region.
	TraitSingleRegion
	// TraitNoTerminator marks an operation whose regions hold a flat list
	// of operations rather than executable control flow; blocks in such
	// regions need not end in a Terminator-trait operation (e.g. a module
	// body listing symbol definitions).
	TraitNoTerminator
	// TraitSameTypeOperands marks an operation whose operands must all
	// share a single type.
	TraitSameTypeOperands
)

// OperationName is the unique, interned identity of an operation mnemonic
// within a dialect (e.g. "arith.addi"). It carries the sorted trait table
// consulted by HasTrait and the fold/verify/type-inference hooks registered
// for the mnemonic.
type OperationName struct {
	Dialect string
	Mnemonic string

	traits []TraitID

	fold      func(op *Operation) *FoldResult
	verify    func(op *Operation) error
	inferType InferTypeFunc
}

// FoldResult is the outcome of a FoldableOpInterface.fold attempt: exactly
// one of Attrs (a constant fold, one attribute per op result, re-
// materialized into the IR via the dialect's MaterializeConstant) or
// Values (an identity fold, e.g. `x + 0 -> x`, where the op is simply
// replaced by existing values) should be set.
type FoldResult struct {
	Attrs  []Attribute
	Values []Value
}

// Full returns the "dialect.mnemonic" spelling used in textual IR.
func (n *OperationName) Full() string {
	if n.Dialect == "" {
		return n.Mnemonic
	}
	return n.Dialect + "." + n.Mnemonic
}

// HasTrait reports whether operations of this name carry trait t. The
// trait slice is kept sorted at registration time so this is a binary
// search, matching the dispatch-table complexity called out for trait
// upcasting.
func (n *OperationName) HasTrait(t TraitID) bool {
	i := sort.Search(len(n.traits), func(i int) bool { return n.traits[i] >= t })
	return i < len(n.traits) && n.traits[i] == t
}

// Fold invokes the registered fold hook, if any, returning nil if the op
// did not fold.
func (n *OperationName) Fold(op *Operation) *FoldResult {
	if n.fold == nil {
		return nil
	}
	return n.fold(op)
}

// Verify invokes the registered structural verifier, if any.
func (n *OperationName) Verify(op *Operation) error {
	if n.verify == nil {
		return nil
	}
	return n.verify(op)
}

// InferType invokes the registered type-inference hook, if any, returning
// the inferred result types for an operation with the given operand types
// and attributes. Returns (nil, nil) if this name registered no hook.
func (n *OperationName) InferType(operandTypes []*Type, attrs *AttrDict) ([]*Type, error) {
	if n.inferType == nil {
		return nil, nil
	}
	return n.inferType(operandTypes, attrs)
}

// OpSpec is the registration-time description of an operation mnemonic,
// passed to DialectInfo.AddOperation.
type OpSpec struct {
	Mnemonic  string
	Traits    []TraitID
	Fold      func(op *Operation) *FoldResult
	Verify    func(op *Operation) error
	InferType InferTypeFunc
}

// DialectInfo is a registered dialect's namespace: its set of known
// operation mnemonics and the hooks each carries. A Dialect implementation
// (in package dialect/*) builds one of these at init time and registers it
// on a Context.
type DialectInfo struct {
	Namespace string
	ops       map[string]*OperationName

	// MaterializeConstant builds an operation realizing the constant
	// value attr of type typ, used by canonicalization and constant
	// folding when a fold produces a bare Attribute that must be
	// re-materialized into the IR (§4.5).
	MaterializeConstant func(b *Builder, typ *Type, attr Attribute) *Operation
}

// AddOperation registers a single operation mnemonic within this dialect
// and returns its interned OperationName.
func (d *DialectInfo) AddOperation(spec OpSpec) *OperationName {
	traits := append([]TraitID(nil), spec.Traits...)
	sort.Slice(traits, func(i, j int) bool { return traits[i] < traits[j] })
	name := &OperationName{
		Dialect:   d.Namespace,
		Mnemonic:  spec.Mnemonic,
		traits:    traits,
		fold:      spec.Fold,
		verify:    spec.Verify,
		inferType: spec.InferType,
	}
	if d.ops == nil {
		d.ops = make(map[string]*OperationName)
	}
	d.ops[spec.Mnemonic] = name
	return name
}

// Lookup returns the registered OperationName for mnemonic, if any.
func (d *DialectInfo) Lookup(mnemonic string) (*OperationName, bool) {
	n, ok := d.ops[mnemonic]
	return n, ok
}

// RegisterDialect installs a namespace in the context's dialect registry.
// Registering the same namespace twice panics: dialect registration
// happens once at the start of a compile, and a silent overwrite would
// hide a programming error rather than a user one.
func (c *Context) RegisterDialect(namespace string) *DialectInfo {
	if _, exists := c.dialects[namespace]; exists {
		panic(fmt.Sprintf("ir: dialect %q already registered", namespace))
	}
	info := &DialectInfo{Namespace: namespace, ops: make(map[string]*OperationName)}
	c.dialects[namespace] = info
	return info
}

// Dialect returns the registered DialectInfo for namespace, if any.
func (c *Context) Dialect(namespace string) (*DialectInfo, bool) {
	d, ok := c.dialects[namespace]
	return d, ok
}

// LookupOperationName resolves a "dialect.mnemonic" spelling against the
// context's registered dialects.
func (c *Context) LookupOperationName(dialect, mnemonic string) (*OperationName, bool) {
	d, ok := c.dialects[dialect]
	if !ok {
		return nil, false
	}
	return d.Lookup(mnemonic)
}
