// Package fn registers the function dialect ("func" in textual IR): a
// top-level module symbol table, functions (isolated-from-above symbols
// with a single SSA-region body), returns, and calls. This is the dialect
// every other dialect's ops ultimately live inside, the unit codegen
// lowers one at a time.
package fn

import (
	"fmt"

	"corevm/ir"
)

// Namespace is the func dialect's registered name.
const Namespace = "func"

// Names holds every OperationName this dialect registers.
type Names struct {
	Module *ir.OperationName
	Func   *ir.OperationName
	Return *ir.OperationName
	Call   *ir.OperationName
}

// FuncImpl is the Impl payload of a func.func op: its declared signature,
// kept alongside the entry block's argument types (which InferType cannot
// set on a zero-operand op).
type FuncImpl struct {
	ParamTypes  []*ir.Type
	ResultTypes []*ir.Type
}

// CallImpl is the Impl payload of a func.call op, implementing
// ir.CallOp. Symbol tables track the call through its callee
// SymbolRefAttr attribute.
type CallImpl struct {
	callee string
	op     *ir.Operation
}

// Callee implements ir.CallOp.
func (c *CallImpl) Callee() string { return c.callee }

// CallOperands implements ir.CallOp.
func (c *CallImpl) CallOperands() []*ir.Operand { return c.op.Operands() }

// Register installs the func dialect into ctx and returns its op names.
func Register(ctx *ir.Context) *Names {
	d := ctx.RegisterDialect(Namespace)
	n := &Names{}

	n.Module = d.AddOperation(ir.OpSpec{
		Mnemonic: "module",
		Traits: []ir.TraitID{
			ir.TraitSymbolTable, ir.TraitIsolatedFromAbove,
			ir.TraitSingleRegion, ir.TraitNoTerminator,
		},
	})

	n.Func = d.AddOperation(ir.OpSpec{
		Mnemonic: "func",
		Traits:   []ir.TraitID{ir.TraitSymbol, ir.TraitIsolatedFromAbove, ir.TraitSingleRegion},
		Verify: func(op *ir.Operation) error {
			if ir.SymbolName(op) == "" {
				return fmt.Errorf("func.func: missing sym_name")
			}
			impl, ok := op.Impl.(*FuncImpl)
			if !ok {
				return fmt.Errorf("func.func: missing FuncImpl")
			}
			body := op.Region(0)
			if body.Empty() {
				return nil
			}
			entry := body.EntryBlock()
			if len(entry.Arguments()) != len(impl.ParamTypes) {
				return fmt.Errorf("func.func %q: entry block has %d arguments, signature declares %d",
					ir.SymbolName(op), len(entry.Arguments()), len(impl.ParamTypes))
			}
			return nil
		},
	})

	n.Return = d.AddOperation(ir.OpSpec{
		Mnemonic: "return",
		Traits:   []ir.TraitID{ir.TraitTerminator, ir.TraitReturnLike},
	})

	n.Call = d.AddOperation(ir.OpSpec{
		Mnemonic: "call",
	})

	return n
}

// Builder wraps an *ir.Builder with typed constructors for the func
// dialect.
type Builder struct {
	B *ir.Builder
	N *Names
}

// NewBuilder returns a typed builder over b.
func NewBuilder(b *ir.Builder, names *Names) *Builder { return &Builder{B: b, N: names} }

// Module creates a func.module with an empty, single region and no
// SymbolTable populated yet; callers build one via ir.NewSymbolTable once
// functions have been inserted.
func (fb *Builder) Module() *ir.Operation {
	return fb.B.Create(fb.N.Module, nil, []ir.RegionKind{ir.RegionSSA})
}

// Func creates a func.func with the given name and signature, an empty
// entry block already populated with one block argument per parameter
// type, positioned so the builder can immediately start emitting the
// function body.
func (fb *Builder) Func(name string, paramTypes, resultTypes []*ir.Type) *ir.Operation {
	op := fb.B.Create(fb.N.Func, nil, []ir.RegionKind{ir.RegionSSA})
	op.Attrs().Set("sym_name", ir.StringAttr(name))
	op.Impl = &FuncImpl{ParamTypes: paramTypes, ResultTypes: resultTypes}
	entry := fb.B.CreateBlock(op.Region(0))
	for _, t := range paramTypes {
		entry.AddArgument(t)
	}
	return op
}

// Signature returns a func.func's parameter and result types.
func Signature(op *ir.Operation) ([]*ir.Type, []*ir.Type) {
	impl := op.Impl.(*FuncImpl)
	return impl.ParamTypes, impl.ResultTypes
}

// Return creates a func.return forwarding values as the enclosing
// function's results.
func (fb *Builder) Return(values []ir.Value) *ir.Operation {
	op := fb.B.Create(fb.N.Return, nil, nil)
	for _, v := range values {
		op.AddOperand(v)
	}
	return op
}

// Call creates a func.call to callee with the given arguments, inferring
// its result types from calleeOp's signature.
func (fb *Builder) Call(calleeOp *ir.Operation, args []ir.Value) *ir.Operation {
	_, resultTypes := Signature(calleeOp)
	op := fb.B.Create(fb.N.Call, resultTypes, nil)
	op.Attrs().Set("callee", ir.SymbolRefAttr{Path: []string{ir.SymbolName(calleeOp)}})
	for _, a := range args {
		op.AddOperand(a)
	}
	op.Impl = &CallImpl{callee: ir.SymbolName(calleeOp), op: op}
	return op
}
