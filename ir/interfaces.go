package ir

// RegionSuccessor describes one possible target an op with nested regions
// may transfer control to next: either entry into another nested region
// (EntersRegion true, Region is its index) or the parent op's own result
// list (EntersRegion false).
type RegionSuccessor struct {
	EntersRegion bool
	Region       int
}

// RegionBranchOp is implemented by an operation's Impl when its nested
// regions have non-trivial control flow between them (an `scf.if`'s two
// branches, an `scf.while`'s condition/body alternation), giving the
// dataflow framework and canonicalizer a declarative successor model
// instead of special-casing each op.
//
// fromRegion == -1 denotes "before entering any region" (i.e. from the op
// itself); implementations return every region the op could transfer
// control to from that point.
type RegionBranchOp interface {
	SuccessorRegions(fromRegion int) []RegionSuccessor
}

// CallOp is implemented by an operation's Impl that calls a symbol (e.g.
// func.call): it names the callee and exposes the call's argument operands.
// Symbol tables find uses through SymbolRefAttr attributes, not through
// this interface.
type CallOp interface {
	Callee() string
	CallOperands() []*Operand
}

// InferTypeFunc computes an operation's result types from its operand
// types and attributes, run by the Builder at construction time for any
// OperationName that registers one.
type InferTypeFunc func(operandTypes []*Type, attrs *AttrDict) ([]*Type, error)
