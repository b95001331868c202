package pass

import (
	"github.com/pkg/errors"

	"corevm/ir"
)

// ErrStopped is returned by PassManager.Run when the driver's stop check
// reported true at a stage boundary. Stages are never preempted mid-pass:
// the check is consulted only between passes and before descending into
// nested managers (§5).
var ErrStopped = errors.New("pass: pipeline stopped")

// NestingOrder selects whether a PassManager level processes an op's
// nested regions before or after running its own passes on the op.
type NestingOrder uint8

const (
	// PreOrder runs this level's passes on op, then recurses into
	// nested pass managers.
	PreOrder NestingOrder = iota
	// PostOrder recurses into nested pass managers first.
	PostOrder
)

// PassManager is one level of a nested pipeline: a list of passes that run
// on every operation it visits, plus child managers that recurse into
// specific nested op kinds.
type PassManager struct {
	passes []Pass
	nested map[*ir.OperationName]*PassManager
	order  NestingOrder
	instr  []Instrumentation
	stop   func() bool
}

// NewPassManager returns an empty manager with the given nesting order.
func NewPassManager(order NestingOrder) *PassManager {
	return &PassManager{nested: make(map[*ir.OperationName]*PassManager), order: order}
}

// AddPass appends p to this level's pass list.
func (pm *PassManager) AddPass(p Pass) { pm.passes = append(pm.passes, p) }

// Nest returns (creating if needed) the child PassManager that processes
// operations named target when this level descends into them.
func (pm *PassManager) Nest(target *ir.OperationName) *PassManager {
	if child, ok := pm.nested[target]; ok {
		return child
	}
	child := NewPassManager(pm.order)
	child.stop = pm.stop
	pm.nested[target] = child
	return child
}

// SetStopCheck installs fn as the driver's cancellation signal for this
// manager and every nested one: when it reports true at a stage boundary,
// Run returns ErrStopped instead of starting the next pass.
func (pm *PassManager) SetStopCheck(fn func() bool) {
	pm.stop = fn
	for _, child := range pm.nested {
		child.SetStopCheck(fn)
	}
}

func (pm *PassManager) stopped() bool { return pm.stop != nil && pm.stop() }

// AddInstrumentation registers an Instrumentation to be notified of every
// pass run by this manager. Managers created by Nest keep their own list.
func (pm *PassManager) AddInstrumentation(i Instrumentation) { pm.instr = append(pm.instr, i) }

// Run executes this manager against root: every pass whose CanScheduleOn
// matches root's name is run in declaration order, then (per order) each
// operation directly inside root's regions is visited by the nested manager
// registered for that operation's name, or by this manager if none is.
func (pm *PassManager) Run(root *ir.Operation, am *AnalysisManager) error {
	runSelf := func() error {
		for _, p := range pm.passes {
			if !p.CanScheduleOn(root.Name()) {
				continue
			}
			if pm.stopped() {
				return ErrStopped
			}
			pm.notifyBefore(p, root)
			if err := p.Run(root, am); err != nil {
				pm.notifyFailed(p, root, err)
				return err
			}
			am.Invalidate(root, p.Preserves())
			pm.notifyAfter(p, root)
		}
		return nil
	}
	recurse := func() error {
		if pm.stopped() {
			return ErrStopped
		}
		for _, r := range root.Regions() {
			for _, b := range r.Blocks() {
				for o := b.First(); o != nil; o = o.Next() {
					child, ok := pm.nested[o.Name()]
					if !ok {
						child = pm
					}
					if err := child.Run(o, am); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	if pm.order == PreOrder {
		if err := runSelf(); err != nil {
			return err
		}
		return recurse()
	}
	if err := recurse(); err != nil {
		return err
	}
	return runSelf()
}

func (pm *PassManager) notifyBefore(p Pass, op *ir.Operation) {
	for _, i := range pm.instr {
		i.RunBeforePass(p, op)
	}
}

func (pm *PassManager) notifyAfter(p Pass, op *ir.Operation) {
	for _, i := range pm.instr {
		i.RunAfterPass(p, op)
	}
}

func (pm *PassManager) notifyFailed(p Pass, op *ir.Operation, err error) {
	for _, i := range pm.instr {
		i.RunAfterPassFailed(p, op, err)
	}
}
