package expr

import "math/big"

// Solver is the abstract satisfiability-modulo-theories interface the
// engine queries. Any backend implementing it suffices (§3, §9 "Opaque
// symbolic bit-vectors"); Context and the executor never depend on a
// specific backend's internal representation.
//
// Push/Pop stack assertion frames so that constraints asserted after a Push
// are released by the matching Pop. The engine itself forks a path by
// cloning its solver (Clone), so pathsel.Stack and the executor never call
// Push or Pop.
type Solver interface {
	// Push creates a new assertion frame on top of the current one.
	Push()
	// Pop discards the most recently pushed assertion frame and every
	// assertion made within it.
	Pop()
	// Assert adds e (interpreted as a boolean: non-zero is true) as a
	// persistent fact in the current frame.
	Assert(e Expr)
	// IsSat reports whether the conjunction of all asserted facts is
	// satisfiable.
	IsSat() (bool, error)
	// IsSatWithConstraint reports whether the conjunction of all asserted
	// facts AND e is satisfiable, without persisting e.
	IsSatWithConstraint(e Expr) (bool, error)
	// GetValue returns one concrete value consistent with every asserted
	// fact.
	GetValue(e Expr) (*big.Int, error)
	// GetValues returns up to upperBound distinct concrete values
	// consistent with every asserted fact. exact is true iff the returned
	// slice is the complete solution set (fewer than upperBound solutions
	// exist); it is false if at least upperBound solutions exist (more may
	// remain).
	GetValues(e Expr, upperBound int) (values []*big.Int, exact bool, err error)
	// Clone returns a new handle that shares this solver's persistent
	// (pushed) facts but has an independent stack from this point forward:
	// asserting on the clone must not affect the original and vice versa.
	Clone() Solver
}

// ErrUnknown is returned by a Solver that cannot determine satisfiability.
// The engine ends only the current path with it, as a failure; no setting
// makes it fatal to the whole run.
type ErrUnknown struct {
	Reason string
}

func (e *ErrUnknown) Error() string {
	if e.Reason == "" {
		return "solver: unknown"
	}
	return "solver: unknown: " + e.Reason
}
