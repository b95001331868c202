package pass

import (
	"fmt"
	"io"

	"corevm/ir"
)

// Instrumentation observes pass execution for deterministic logging and IR
// dumping between passes, mirroring the teacher's kernel diagnostic
// formatting conventions but using fmt directly since this repository runs
// hosted, not freestanding.
type Instrumentation interface {
	RunBeforePass(p Pass, op *ir.Operation)
	RunAfterPass(p Pass, op *ir.Operation)
	RunAfterPassFailed(p Pass, op *ir.Operation, err error)
	AnalysisBegin(name string, op *ir.Operation)
	AnalysisEnd(name string, op *ir.Operation)
	PipelineBegin(name string)
	PipelineEnd(name string)
}

// IRPrintingConfig toggles textual IR dumps keyed to pass boundaries: a
// PrintingInstrumentation writes the op's generic textual form to W
// before and/or after each pass, as configured.
type IRPrintingConfig struct {
	BeforeEachPass bool
	AfterEachPass  bool
	W              io.Writer
}

// PrintingInstrumentation implements Instrumentation by printing pass
// boundary events and, per IRPrintingConfig, the operation's textual IR.
type PrintingInstrumentation struct {
	Cfg IRPrintingConfig
}

func (p *PrintingInstrumentation) RunBeforePass(pass Pass, op *ir.Operation) {
	fmt.Fprintf(p.Cfg.W, "// -- before %s on %s\n", pass.Name(), op.Name().Full())
	if p.Cfg.BeforeEachPass {
		ir.Print(p.Cfg.W, op)
	}
}

func (p *PrintingInstrumentation) RunAfterPass(pass Pass, op *ir.Operation) {
	fmt.Fprintf(p.Cfg.W, "// -- after %s on %s\n", pass.Name(), op.Name().Full())
	if p.Cfg.AfterEachPass {
		ir.Print(p.Cfg.W, op)
	}
}

func (p *PrintingInstrumentation) RunAfterPassFailed(pass Pass, op *ir.Operation, err error) {
	fmt.Fprintf(p.Cfg.W, "// -- %s FAILED on %s: %v\n", pass.Name(), op.Name().Full(), err)
}

func (p *PrintingInstrumentation) AnalysisBegin(name string, op *ir.Operation) {
	fmt.Fprintf(p.Cfg.W, "// -- analysis %s begin on %s\n", name, op.Name().Full())
}

func (p *PrintingInstrumentation) AnalysisEnd(name string, op *ir.Operation) {
	fmt.Fprintf(p.Cfg.W, "// -- analysis %s end on %s\n", name, op.Name().Full())
}

func (p *PrintingInstrumentation) PipelineBegin(name string) {
	fmt.Fprintf(p.Cfg.W, "// == pipeline %s begin\n", name)
}

func (p *PrintingInstrumentation) PipelineEnd(name string) {
	fmt.Fprintf(p.Cfg.W, "// == pipeline %s end\n", name)
}
