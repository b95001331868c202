// Package pass implements the pass manager: nested pipelines scoped to an
// operation kind, an analysis cache with preservation, and instrumentation
// hooks for deterministic logging and IR dumping between passes.
package pass

import "corevm/ir"

// Pass is one transformation or analysis-only stage, scoped to operations
// of a particular dialect/mnemonic (its Target). A PassManager nested under
// a given op kind only runs passes whose CanScheduleOn reports true for
// that kind.
type Pass interface {
	// Name identifies the pass for instrumentation and diagnostics.
	Name() string
	// CanScheduleOn reports whether this pass is willing to run on
	// operations named target.
	CanScheduleOn(target *ir.OperationName) bool
	// Run executes the pass against op, using am to read/cache
	// analyses. A non-nil error aborts the enclosing pipeline.
	Run(op *ir.Operation, am *AnalysisManager) error
	// Preserves lists the analysis type names this pass guarantees
	// remain valid on op and its descendants after a successful Run; all
	// others cached for them are invalidated.
	Preserves() []string
}

// FuncPass is a convenience base for passes that always target a single,
// fixed operation name (the common case: "func.func").
type FuncPass struct {
	TargetName *ir.OperationName
}

// CanScheduleOn implements part of Pass for embedders of FuncPass.
func (f FuncPass) CanScheduleOn(target *ir.OperationName) bool { return target == f.TargetName }
