package rewrite

import (
	"corevm/diag"
	"corevm/ir"
)

// WorklistOrder selects how the greedy driver seeds and drains its initial
// worklist.
type WorklistOrder uint8

const (
	// TopDown visits a region's operations in program order before
	// descending into nested regions. This is the default.
	TopDown WorklistOrder = iota
	// BottomUp visits nested regions before the operations that contain
	// them.
	BottomUp
)

// Config bounds one greedy rewrite run.
type Config struct {
	Order WorklistOrder
	// MaxIterations bounds the total number of worklist pops across all
	// operations; 0 means no limit.
	MaxIterations int
	// RequireConvergence makes a non-empty worklist at MaxIterations a
	// fatal error rather than a logged, best-effort result.
	RequireConvergence bool
}

// worklist is a FIFO queue of operations that ignores pushes of an op
// already queued.
type worklist struct {
	items  []*ir.Operation
	queued map[*ir.Operation]bool
}

func newWorklist() *worklist { return &worklist{queued: make(map[*ir.Operation]bool)} }

func (w *worklist) push(op *ir.Operation) {
	if w.queued[op] {
		return
	}
	w.queued[op] = true
	w.items = append(w.items, op)
}

func (w *worklist) pop() *ir.Operation {
	op := w.items[0]
	w.items = w.items[1:]
	delete(w.queued, op)
	return op
}

func (w *worklist) empty() bool { return len(w.items) == 0 }

// driverListener enqueues every op touched by a mutation so the greedy
// loop revisits it (and, for replaced values, their remaining users).
type driverListener struct {
	wl *worklist
}

func (l *driverListener) OpCreated(op *ir.Operation)  { l.wl.push(op) }
func (l *driverListener) OpModified(op *ir.Operation) { l.wl.push(op) }
func (l *driverListener) OpErased(*ir.Operation)       {}
func (l *driverListener) OpReplaced(op *ir.Operation, with []ir.Value) {
	for _, v := range with {
		if r, ok := v.(*ir.OpResult); ok {
			l.wl.push(r.DefiningOp())
		}
		for _, use := range v.Uses() {
			l.wl.push(use.Owner())
		}
	}
}

// ApplyPatternsAndFoldGreedily applies constant folding and the frozen
// pattern set to every operation in root's subtree (root itself is not
// visited; its regions are) until no pattern or fold applies to anything
// reachable, or cfg.MaxIterations is hit. It returns whether the pass
// converged.
func ApplyPatternsAndFoldGreedily(root *ir.Operation, patterns *FrozenPatternSet, cfg Config, sink *diag.Sink) (bool, error) {
	wl := newWorklist()
	seed(root, wl, cfg.Order)

	b := ir.NewBuilder(root.Context())
	listener := &driverListener{wl: wl}
	r := NewDefaultRewriter(b, listener)

	iterations := 0
	for !wl.empty() {
		if cfg.MaxIterations > 0 && iterations >= cfg.MaxIterations {
			if cfg.RequireConvergence {
				return false, diag.New("rewrite", "greedy driver did not converge within iteration limit")
			}
			return false, nil
		}
		iterations++

		op := wl.pop()
		if op.Parent() == nil {
			continue
		}

		// A constant-like op is already its own canonical fold result;
		// invoking Fold on it here would just re-materialize an
		// identical constant forever.
		if !op.Name().HasTrait(ir.TraitConstantLike) {
			if folded := op.Name().Fold(op); folded != nil {
				applied, err := applyFold(op, folded, r)
				if err != nil {
					return false, err
				}
				if applied {
					continue
				}
			}
		}

		for _, p := range patterns.Applicable(op) {
			if !matches(p, op) {
				continue
			}
			changed, err := p.MatchAndRewrite(op, r)
			if err != nil {
				return false, diag.Newf("rewrite", "pattern %q failed: %v", p.Info().Name, err).Wrap(err)
			}
			if changed {
				break
			}
		}
	}
	return true, nil
}

func seed(root *ir.Operation, wl *worklist, order WorklistOrder) {
	var visit func(op *ir.Operation)
	visitRegions := func(op *ir.Operation) {
		for _, reg := range op.Regions() {
			for _, b := range reg.Blocks() {
				for o := b.First(); o != nil; o = o.Next() {
					visit(o)
				}
			}
		}
	}
	visit = func(op *ir.Operation) {
		if order == BottomUp {
			visitRegions(op)
			wl.push(op)
		} else {
			wl.push(op)
			visitRegions(op)
		}
	}
	visitRegions(root)
}

// applyFold realizes a FoldResult: an identity fold (Values) replaces op
// directly with the given values; a constant fold (Attrs) first
// re-materializes each attribute as a constant op via the defining
// dialect's materialize_constant hook. Returns false (not an error) if the
// fold could not be realized, leaving op for pattern matching instead.
func applyFold(op *ir.Operation, folded *ir.FoldResult, r Rewriter) (bool, error) {
	if folded.Values != nil {
		return true, r.ReplaceOpWithValues(op, folded.Values)
	}

	dialectInfo, ok := op.Context().Dialect(op.Name().Dialect)
	if !ok || dialectInfo.MaterializeConstant == nil {
		return false, nil
	}
	values := make([]ir.Value, len(folded.Attrs))
	r.SetInsertionPointBefore(op)
	for i, attr := range folded.Attrs {
		resultType := op.Result(i).Type()
		constOp := dialectInfo.MaterializeConstant(r.Builder(), resultType, attr)
		if constOp == nil {
			return false, nil
		}
		values[i] = constOp.Result(0)
	}
	return true, r.ReplaceOpWithValues(op, values)
}
