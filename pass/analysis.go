package pass

import "corevm/ir"

// AnalysisManager caches typed analysis results per operation instance,
// keyed by (analysis type name, op identity), and invalidates them
// according to each pass's Preserves declaration. A single AnalysisManager
// is shared by a whole pipeline run; its entries are keyed per op.
type AnalysisManager struct {
	cache map[analysisKey]interface{}
}

type analysisKey struct {
	typeName string
	op       *ir.Operation
}

// NewAnalysisManager returns an empty manager.
func NewAnalysisManager() *AnalysisManager {
	return &AnalysisManager{cache: make(map[analysisKey]interface{})}
}

// keyFor builds the cache key for (typeName, op), using op's pointer
// identity directly.
func keyFor(typeName string, op *ir.Operation) analysisKey {
	return analysisKey{typeName: typeName, op: op}
}

// GetOrCompute returns the cached analysis of typeName for op, computing
// it via compute and caching the result if absent.
func (am *AnalysisManager) GetOrCompute(typeName string, op *ir.Operation, compute func() interface{}) interface{} {
	k := keyFor(typeName, op)
	if v, ok := am.cache[k]; ok {
		return v
	}
	v := compute()
	am.cache[k] = v
	return v
}

// Invalidate drops every cached analysis for op and the ops nested inside
// it whose type name is not in preserved.
func (am *AnalysisManager) Invalidate(op *ir.Operation, preserved []string) {
	keep := make(map[string]bool, len(preserved))
	for _, p := range preserved {
		keep[p] = true
	}
	for k := range am.cache {
		if keep[k.typeName] {
			continue
		}
		for cur := k.op; cur != nil; {
			if cur == op {
				delete(am.cache, k)
				break
			}
			b := cur.Parent()
			if b == nil || b.Parent() == nil {
				break
			}
			cur = b.Parent().Parent()
		}
	}
}

// InvalidateAll drops every cached analysis for op and the ops nested
// inside it.
func (am *AnalysisManager) InvalidateAll(op *ir.Operation) {
	am.Invalidate(op, nil)
}
