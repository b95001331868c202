package pass_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corevm/dialect/arith"
	"corevm/dialect/fn"
	"corevm/ir"
	"corevm/pass"
)

// recordingPass appends its name to *log each time it runs, optionally
// failing, and declares the analyses it preserves.
type recordingPass struct {
	pass.FuncPass
	name      string
	log       *[]string
	preserves []string
	onRun     func(op *ir.Operation, am *pass.AnalysisManager) error
}

func (p *recordingPass) Name() string        { return p.name }
func (p *recordingPass) Preserves() []string { return p.preserves }

func (p *recordingPass) Run(op *ir.Operation, am *pass.AnalysisManager) error {
	*p.log = append(*p.log, p.name)
	if p.onRun != nil {
		return p.onRun(op, am)
	}
	return nil
}

// buildTwoFuncModule builds a module holding two empty-bodied functions,
// the smallest tree that exercises nested scheduling.
func buildTwoFuncModule(t *testing.T) (*ir.Operation, *fn.Names) {
	t.Helper()
	ctx := ir.NewContext()
	fnNames := fn.Register(ctx)
	arithNames := arith.Register(ctx)
	b := ir.NewBuilder(ctx)
	root := ir.NewOperation(ctx, fnNames.Module, nil, []ir.RegionKind{ir.RegionSSA})
	modBlock := root.Region(0).AppendBlock(ctx)
	b.SetInsertionPointToStart(modBlock)
	fb := fn.NewBuilder(b, fnNames)
	ab := arith.NewBuilder(b, arithNames)
	for _, name := range []string{"f", "g"} {
		f := fb.Func(name, nil, []*ir.Type{ctx.Felt()})
		b.SetInsertionPointToStart(f.Region(0).EntryBlock())
		c := ab.Constant(ctx.Felt(), 1)
		fb.Return([]ir.Value{c.Result(0)})
		b.SetInsertionPointToEnd(modBlock)
	}
	return root, fnNames
}

func TestNestedManagerRunsPassPerMatchingOp(t *testing.T) {
	root, fnNames := buildTwoFuncModule(t)
	var log []string

	pm := pass.NewPassManager(pass.PreOrder)
	pm.Nest(fnNames.Func).AddPass(&recordingPass{
		FuncPass: pass.FuncPass{TargetName: fnNames.Func},
		name:     "on-func",
		log:      &log,
	})

	require.NoError(t, pm.Run(root, pass.NewAnalysisManager()))
	assert.Equal(t, []string{"on-func", "on-func"}, log, "one run per func.func, in block order")
}

func TestStopCheckAbortsBetweenStages(t *testing.T) {
	root, fnNames := buildTwoFuncModule(t)
	var log []string

	pm := pass.NewPassManager(pass.PreOrder)
	pm.Nest(fnNames.Func).AddPass(&recordingPass{
		FuncPass: pass.FuncPass{TargetName: fnNames.Func},
		name:     "on-func",
		log:      &log,
	})
	// Stop after the first pass completes. The second func.func must not
	// be visited: stages are aborted at the boundary, never mid-pass.
	pm.SetStopCheck(func() bool { return len(log) >= 1 })

	err := pm.Run(root, pass.NewAnalysisManager())
	require.ErrorIs(t, err, pass.ErrStopped)
	assert.Equal(t, []string{"on-func"}, log)
}

func TestAnalysisInvalidationHonorsPreserves(t *testing.T) {
	root, fnNames := buildTwoFuncModule(t)
	var log []string
	am := pass.NewAnalysisManager()

	firstFunc := root.Region(0).EntryBlock().First()
	computes := 0
	compute := func() interface{} { computes++; return computes }

	seed := &recordingPass{
		FuncPass: pass.FuncPass{TargetName: fnNames.Func},
		name:     "seed",
		log:      &log,
		// Preserving "kept" but not "dropped" must leave exactly the
		// former cached at pass exit.
		preserves: []string{"kept"},
		onRun: func(op *ir.Operation, am *pass.AnalysisManager) error {
			am.GetOrCompute("kept", op, compute)
			am.GetOrCompute("dropped", op, compute)
			return nil
		},
	}
	pm := pass.NewPassManager(pass.PreOrder)
	pm.Nest(fnNames.Func).AddPass(seed)
	require.NoError(t, pm.Run(root, am))

	before := computes
	am.GetOrCompute("kept", firstFunc, compute)
	assert.Equal(t, before, computes, "preserved analysis must still be cached")
	am.GetOrCompute("dropped", firstFunc, compute)
	assert.Equal(t, before+1, computes, "non-preserved analysis must have been invalidated")
}
