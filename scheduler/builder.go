package scheduler

// SolutionBuilder owns a working copy of the abstract stack plus the
// accumulating Action list for one tactic attempt. Its primitive mutations
// keep the stack and the action list in lockstep so a tactic never has to
// reason about the two separately; Discard resets both so a failed tactic
// never leaks partial progress into the next attempt.
type SolutionBuilder struct {
	stack   Stack
	actions []Action
}

// NewSolutionBuilder starts a builder over a clone of stack.
func NewSolutionBuilder(stack Stack) *SolutionBuilder {
	return &SolutionBuilder{stack: stack.Clone()}
}

// Stack returns the builder's current abstract stack.
func (b *SolutionBuilder) Stack() Stack { return b.stack }

// Actions returns the accumulated action list.
func (b *SolutionBuilder) Actions() []Action { return append([]Action(nil), b.actions...) }

// Discard throws away all progress, for a tactic that wants to restart
// cleanly after a partial attempt.
func (b *SolutionBuilder) Discard(original Stack) {
	b.stack = original.Clone()
	b.actions = nil
}

// Dup duplicates the element at index i onto the top of stack. Returns
// false without mutating anything if i is outside the addressable window
// or the current stack depth.
func (b *SolutionBuilder) Dup(i int) bool {
	if i < 0 || i >= Window || i >= len(b.stack) {
		return false
	}
	v := b.stack[i]
	b.stack = append(Stack{v}, b.stack...)
	b.actions = append(b.actions, Action{Kind: Copy, I: i})
	return true
}

// Swap exchanges the top of stack with the element at index i.
func (b *SolutionBuilder) Swap(i int) bool {
	if i <= 0 || i >= Window || i >= len(b.stack) {
		return false
	}
	b.stack[0], b.stack[i] = b.stack[i], b.stack[0]
	b.actions = append(b.actions, Action{Kind: Swap, I: i})
	return true
}

// MoveUp brings the element at index i to the top, shifting intervening
// elements down by one.
func (b *SolutionBuilder) MoveUp(i int) bool {
	if i <= 0 || i >= Window || i >= len(b.stack) {
		return false
	}
	v := b.stack[i]
	copy(b.stack[1:i+1], b.stack[0:i])
	b.stack[0] = v
	b.actions = append(b.actions, Action{Kind: MoveUp, I: i})
	return true
}

// MoveDown moves the top element to index i, shifting intervening elements
// up by one.
func (b *SolutionBuilder) MoveDown(i int) bool {
	if i <= 0 || i >= Window || i >= len(b.stack) {
		return false
	}
	v := b.stack[0]
	copy(b.stack[0:i], b.stack[1:i+1])
	b.stack[i] = v
	b.actions = append(b.actions, Action{Kind: MoveDown, I: i})
	return true
}

// Pop discards the top n elements, used after an instruction consumes its
// operands. It does not emit an Action: popping is implicit in the VM's
// instruction semantics, not a separate stack manipulation.
func (b *SolutionBuilder) Pop(n int) {
	b.stack = b.stack[n:]
}

// Push prepends vs (in the given order, vs[0] ending up on top) onto the
// stack, used after an instruction's results are produced.
func (b *SolutionBuilder) Push(vs ...ValueOrAlias) {
	b.stack = append(append(Stack(nil), vs...), b.stack...)
}
