// Package dataflow implements the sparse forward/backward lattice
// framework that anchors analysis results to program points, plus the two
// concrete analyses the core requires: LivenessAnalysis and SpillAnalysis.
package dataflow

// LatticeValue is the element type of one dataflow analysis. Join and Meet
// must each be monotonic and idempotent: join(x, join(x,y)) == join(x,y).
// Analyses that only ever flow in one direction (nearly all of them) need
// only implement the method their Direction uses; the other may be a
// trivial panic or return x unchanged.
type LatticeValue interface {
	// Join combines this value with other for a forward analysis
	// merging control-flow paths.
	Join(other LatticeValue) LatticeValue
	// Meet combines this value with other for a backward analysis
	// merging control-flow paths.
	Meet(other LatticeValue) LatticeValue
	// Equal reports whether this value and other represent the same
	// lattice element, used to detect convergence.
	Equal(other LatticeValue) bool
}

// Anchor identifies where a LatticeValue is attached: a specific SSA value
// for forward analyses seeded at definitions, or a program point (an
// operation plus a before/after flag) for backward analyses seeded at
// terminators. Value holds whatever comparable identity the caller's value
// type provides (ir.Value is itself comparable: it is always a pointer
// wrapped in an interface), kept opaque here so this package does not
// import ir and stays testable against synthetic graphs.
type Anchor struct {
	Value interface{}
	Point ProgramPoint
}

// ProgramPoint denotes a position immediately before or after an
// operation, identified by the operation's arena id (so points remain
// comparable without importing ir).
type ProgramPoint struct {
	OpID   uint64
	Before bool
}
