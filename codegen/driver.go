// Package codegen walks a lowered function body (structured control flow
// already lifted to cf branches, canonicalized, spill-annotated) and emits
// the flat vm.Instr stream described in §4.9.6: at each op it computes the
// expected operand prefix, drives the stack scheduler to realize it atop
// the running abstract stack, appends the scheduler's Actions as stack
// instructions, then appends the op's own encoding.
//
// Every block starts with exactly its block arguments on the abstract
// stack (in argument order, argument 0 on top): cf.br/cf.cond_br only ever
// forward a successor's block arguments, so a value live across a branch
// that isn't itself a block argument must already have been routed through
// a vm.spill/vm.reload pair by an earlier pipeline stage (§4.8). This
// driver does not itself decide what to spill across a block boundary; it
// only reacts to ErrSpillRequired within a single block's instruction
// sequence.
package codegen

import (
	"errors"
	"fmt"

	"corevm/dataflow"
	"corevm/dialect/arith"
	"corevm/dialect/cf"
	"corevm/dialect/fn"
	"corevm/dialect/vm"
	"corevm/diag"
	"corevm/ir"
	"corevm/scheduler"
)

// SymbolTable maps a callee's symbol name to its procedure index in the
// compiled module, used to encode fn.call's procIndex operand.
type SymbolTable map[string]uint32

// Driver holds the dialect vocabularies codegen translates between.
type Driver struct {
	Arith   *arith.Names
	Fn      *fn.Names
	CF      *cf.Names
	VM      *vm.Names
	Tactics []scheduler.Tactic
}

// NewDriver returns a driver using the scheduler's default tactic set.
func NewDriver(arithN *arith.Names, fnN *fn.Names, cfN *cf.Names, vmN *vm.Names) *Driver {
	return &Driver{Arith: arithN, Fn: fnN, CF: cfN, VM: vmN, Tactics: scheduler.DefaultTactics()}
}

// Function is one compiled procedure: its name and encoded instructions.
// br/cond_br targets are patched into the instructions' operands as
// instruction offsets.
type Function struct {
	Name   string
	Instrs []vm.Instr
}

// valueAssign tracks the scheduler ValueID this driver has assigned to
// each distinct ir.Value participating in the current function.
type valueAssign struct {
	next scheduler.ValueID
	ids  map[ir.Value]scheduler.ValueID
}

func newValueAssign() *valueAssign {
	return &valueAssign{next: 1, ids: make(map[ir.Value]scheduler.ValueID)}
}

func (a *valueAssign) of(v ir.Value) scheduler.ValueID {
	if id, ok := a.ids[v]; ok {
		return id
	}
	id := a.next
	a.next++
	a.ids[v] = id
	return id
}

// reversePostOrder returns region's blocks in reverse postorder over the
// CFG induced by terminator successors, the traversal order §4.9.6
// specifies for the codegen walk.
func reversePostOrder(region *ir.Region) []*ir.Block {
	var post []*ir.Block
	visited := make(map[*ir.Block]bool)
	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		if term := b.Terminator(); term != nil {
			for _, s := range term.Successors() {
				visit(s.Target())
			}
		}
		post = append(post, b)
	}
	if entry := region.EntryBlock(); entry != nil {
		visit(entry)
	}
	for _, b := range region.Blocks() {
		visit(b)
	}
	out := make([]*ir.Block, len(post))
	for i, b := range post {
		out[len(post)-1-i] = b
	}
	return out
}

// spillRequired carries the infeasible instruction site out of emit so
// Lower's retry loop can consult SpillAnalysis and mutate the IR (§4.9.6).
type spillRequired struct {
	site       *ir.Operation
	copyCounts map[ir.Value]int
}

func (e *spillRequired) Error() string {
	return fmt.Sprintf("codegen: spill required at %s", e.site.Name().Full())
}

// maxSpillRounds caps the spill-insert-and-retry loop per function.
const maxSpillRounds = 64

// Lower encodes fnOp (a func.func whose body is unstructured CFG) into a
// Function, resolving br/cond_br targets to absolute instruction offsets.
// When the scheduler reports the addressable window exhausted at a site,
// Lower consults SpillAnalysis for a candidate, materializes a
// vm.spill/vm.reload pair around it, re-runs liveness and retries (§4.9.6).
func (d *Driver) Lower(fnOp *ir.Operation, syms SymbolTable, liveness *dataflow.LivenessAnalysis, solver *dataflow.Solver) (*Function, error) {
	for round := 0; ; round++ {
		fnc, err := d.lowerOnce(fnOp, syms, liveness, solver)
		if err == nil {
			return fnc, nil
		}
		var spill *spillRequired
		if !errors.As(err, &spill) || round >= maxSpillRounds {
			return nil, err
		}
		liveness, solver, err = d.insertSpill(fnOp, spill, liveness, solver)
		if err != nil {
			return nil, err
		}
	}
}

// insertSpill picks the cheapest SpillAnalysis candidate at the failing
// site, inserts a vm.spill immediately after the value's definition (where
// it is still near the top of stack) and a vm.reload before its first use
// at or past the site, rewriting that and every later in-block use to the
// reload's result. Returns a freshly converged liveness/solver pair for
// the mutated body.
func (d *Driver) insertSpill(fnOp *ir.Operation, spill *spillRequired, liveness *dataflow.LivenessAnalysis, solver *dataflow.Solver) (*dataflow.LivenessAnalysis, *dataflow.Solver, error) {
	sa := dataflow.NewSpillAnalysis(liveness, solver)
	candidates := sa.Choose(spill.site, spill.copyCounts)
	if len(candidates) == 0 {
		return nil, nil, fmt.Errorf("codegen: spill required at %s but no candidate value is live there",
			spill.site.Name().Full())
	}
	v := candidates[0].Value

	b := ir.NewBuilder(fnOp.Context())
	vmb := vm.NewBuilder(b, d.VM)
	switch def := v.(type) {
	case *ir.OpResult:
		b.SetInsertionPointAfter(def.DefiningOp())
	case *ir.BlockArgument:
		b.SetInsertionPointToStart(def.Owner())
	default:
		return nil, nil, fmt.Errorf("codegen: cannot spill value of unknown provenance")
	}
	spillOp := vmb.Spill(v)

	var firstUse *ir.Operation
	for op := spill.site; op != nil && firstUse == nil; op = op.Next() {
		if op == spillOp {
			continue
		}
		for _, o := range op.Operands() {
			if o.Value() == v {
				firstUse = op
				break
			}
		}
		for _, s := range op.Successors() {
			for _, f := range s.Forwarded() {
				if f.Value() == v {
					firstUse = op
					break
				}
			}
		}
	}
	if firstUse == nil {
		return nil, nil, fmt.Errorf("codegen: spill candidate has no use at or past %s in its block",
			spill.site.Name().Full())
	}
	b.SetInsertionPointBefore(firstUse)
	reload := vmb.Reload(v.Type())
	for op := firstUse; op != nil; op = op.Next() {
		for _, o := range op.Operands() {
			if o.Value() == v {
				o.Set(reload.Result(0))
			}
		}
		for _, s := range op.Successors() {
			for _, f := range s.Forwarded() {
				if f.Value() == v {
					f.Set(reload.Result(0))
				}
			}
		}
	}

	slot := d.nextSpillSlot(fnOp)
	vm.AssignSlot(spillOp, slot)
	vm.AssignSlot(reload, slot)

	la := dataflow.NewLivenessAnalysis(fnOp.Region(0))
	s := dataflow.NewSolver()
	la.Run(s)
	return la, s, nil
}

// nextSpillSlot returns one past the highest function-local slot any
// vm.spill in fnOp has been assigned, allocating slots densely per spilled
// SSA value.
func (d *Driver) nextSpillSlot(fnOp *ir.Operation) int {
	next := 0
	for _, blk := range fnOp.Region(0).Blocks() {
		for op := blk.First(); op != nil; op = op.Next() {
			if op.Name() == d.VM.Spill {
				if s := vm.Slot(op); s >= next {
					next = s + 1
				}
			}
		}
	}
	return next
}

func (d *Driver) lowerOnce(fnOp *ir.Operation, syms SymbolTable, liveness *dataflow.LivenessAnalysis, solver *dataflow.Solver) (*Function, error) {
	name := ir.SymbolName(fnOp)
	region := fnOp.Region(0)
	if region.Empty() {
		return &Function{Name: name}, nil
	}
	blocks := reversePostOrder(region)
	assign := newValueAssign()

	blockOffset := make(map[*ir.Block]int)
	type fixup struct {
		instrIdx  int
		operand   int
		target    *ir.Block
	}
	var fixups []fixup
	var out []vm.Instr

	for _, b := range blocks {
		blockOffset[b] = len(out)
		stack := scheduler.Stack{}
		for _, arg := range b.Arguments() {
			stack = append(stack, scheduler.ValueOrAlias{Value: assign.of(arg)})
		}

		for op := b.First(); op != nil; op = op.Next() {
			var err error
			out, stack, err = d.emit(op, out, stack, assign, liveness, solver, syms)
			if err != nil {
				return nil, diag.Newf("codegen", "%s: %v", name, err).Wrap(err)
			}
			if term := op.Successors(); len(term) > 0 {
				for i, s := range term {
					operandIdx := 0
					if op.Name() == d.CF.CondBr {
						operandIdx = i
					}
					fixups = append(fixups, fixup{instrIdx: len(out) - 1, operand: operandIdx, target: s.Target()})
				}
			}
		}
	}

	for _, f := range fixups {
		out[f.instrIdx].Operands[f.operand] = uint64(blockOffset[f.target])
	}

	return &Function{Name: name, Instrs: out}, nil
}

// emit schedules and encodes a single operation, returning the updated
// instruction stream and abstract stack.
func (d *Driver) emit(op *ir.Operation, out []vm.Instr, stack scheduler.Stack, assign *valueAssign, liveness *dataflow.LivenessAnalysis, solver *dataflow.Solver, syms SymbolTable) ([]vm.Instr, scheduler.Stack, error) {
	expected, values, err := d.expectedOperands(op, assign)
	if err != nil {
		return nil, nil, err
	}

	if len(expected) > 0 {
		ctx := scheduler.Context{Expected: expected, LiveAfter: make(map[scheduler.ValueID]bool)}
		for _, v := range values {
			ctx.LiveAfter[assign.of(v)] = liveness.LiveAfter(solver, op, v)
		}
		actions, err := scheduler.Solve(stack, ctx, d.Tactics)
		if err != nil {
			if errors.Is(err, scheduler.ErrSpillRequired) {
				copyCounts := make(map[ir.Value]int)
				for _, v := range values {
					copyCounts[v]++
				}
				return nil, nil, &spillRequired{site: op, copyCounts: copyCounts}
			}
			return nil, nil, fmt.Errorf("op %s: %w", op.Name().Full(), err)
		}
		sb := scheduler.NewSolutionBuilder(stack)
		for _, a := range actions {
			applyAction(sb, a)
			out = append(out, vm.Instr{Op: vm.StackActionOpcode(a.Kind), Operands: []uint64{uint64(a.I)}})
		}
		stack = sb.Stack()
	}

	stack = stack[len(expected):]

	instr, err := d.encode(op, syms)
	if err != nil {
		return nil, nil, err
	}
	out = append(out, instr)

	for i := len(op.Results()) - 1; i >= 0; i-- {
		stack = append(scheduler.Stack{{Value: assign.of(op.Result(i))}}, stack...)
	}
	return out, stack, nil
}

func applyAction(b *scheduler.SolutionBuilder, a scheduler.Action) {
	switch a.Kind {
	case scheduler.Copy:
		b.Dup(a.I)
	case scheduler.Swap:
		b.Swap(a.I)
	case scheduler.MoveUp:
		b.MoveUp(a.I)
	case scheduler.MoveDown:
		b.MoveDown(a.I)
	}
}

// expectedOperands builds op's expected top-of-stack prefix, assigning a
// fresh alias id to every repeated use of the same value at this site
// (§4.9.2).
func (d *Driver) expectedOperands(op *ir.Operation, assign *valueAssign) ([]scheduler.ValueOrAlias, []ir.Value, error) {
	var values []ir.Value
	switch {
	case op.Name() == d.CF.Br:
		for _, f := range op.Successors()[0].Forwarded() {
			values = append(values, f.Value())
		}
	case op.Name() == d.CF.CondBr:
		// Both successors of a cond_br built by this pipeline forward the
		// same argument list (lower.SCFToCF never diverges them), so cond
		// followed by one side's forwarded values fixes the prefix for
		// either branch taken at runtime.
		values = append(values, op.Operand(0).Value())
		for _, f := range op.Successors()[0].Forwarded() {
			values = append(values, f.Value())
		}
	default:
		for _, operand := range op.Operands() {
			values = append(values, operand.Value())
		}
	}

	seen := make(map[scheduler.ValueID]uint32)
	expected := make([]scheduler.ValueOrAlias, len(values))
	for i, v := range values {
		id := assign.of(v)
		alias := seen[id]
		seen[id] = alias + 1
		expected[i] = scheduler.ValueOrAlias{Value: id, Alias: alias}
	}
	return expected, values, nil
}

// encode translates op into its VM opcode, leaving br/cond_br target
// operands at zero for Lower's fixup pass to patch.
func (d *Driver) encode(op *ir.Operation, syms SymbolTable) (vm.Instr, error) {
	name := op.Name()
	switch {
	case name == d.Arith.Constant:
		v, _ := op.Attrs().Get("value")
		intAttr, ok := v.(ir.IntAttr)
		if !ok {
			return vm.Instr{}, fmt.Errorf("codegen: arith.constant with non-integer attribute")
		}
		return vm.Instr{Op: vm.OpPushConst, Operands: []uint64{intAttr.Value}}, nil
	case name == d.Arith.AddI:
		return vm.Instr{Op: vm.OpAdd}, nil
	case name == d.Arith.SubI:
		return vm.Instr{Op: vm.OpSub}, nil
	case name == d.Arith.MulI:
		return vm.Instr{Op: vm.OpMul}, nil
	case name == d.Arith.CmpEq:
		return vm.Instr{Op: vm.OpEq}, nil
	case name == d.Arith.CmpLt:
		return vm.Instr{Op: vm.OpLt}, nil
	case name == d.Fn.Return:
		return vm.Instr{Op: vm.OpRet}, nil
	case name == d.Fn.Call:
		callee, ok := op.Impl.(interface{ Callee() string })
		if !ok {
			return vm.Instr{}, fmt.Errorf("codegen: fn.call missing CallImpl")
		}
		idx, ok := syms[callee.Callee()]
		if !ok {
			return vm.Instr{}, fmt.Errorf("codegen: unresolved callee %q", callee.Callee())
		}
		return vm.Instr{Op: vm.OpCall, Operands: []uint64{uint64(idx)}}, nil
	case name == d.CF.Br:
		return vm.Instr{Op: vm.OpBr, Operands: []uint64{0}}, nil
	case name == d.CF.CondBr:
		return vm.Instr{Op: vm.OpCondBr, Operands: []uint64{0, 0}}, nil
	case name == d.VM.Spill:
		return vm.Instr{Op: vm.OpSpill, Operands: []uint64{uint64(vm.Slot(op))}}, nil
	case name == d.VM.Reload:
		return vm.Instr{Op: vm.OpReload, Operands: []uint64{uint64(vm.Slot(op))}}, nil
	default:
		return vm.Instr{}, fmt.Errorf("codegen: no encoding for op %s", name.Full())
	}
}
