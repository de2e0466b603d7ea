// Package pathresult defines the terminal outcomes a symbolic execution
// path can reach (spec.md §3 "Lifecycle": "Paths are destroyed after they
// finish (successfully, with an error, or suppressed)"). It has no
// dependencies beyond expr so both the instruction executor and the
// intrinsic/hook dispatcher can report path-ending outcomes without a
// dependency cycle between them.
package pathresult

import "symex/src/expr"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Outcome classifies how a path finished.
type Outcome uint8

const (
	// Returned means the entry function returned normally (or the
	// process called exit()); Value carries its return expression, if
	// any.
	Returned Outcome = iota
	// Failed means execution hit an unrecoverable condition: a reached
	// `unreachable`, a failed hook precondition (e.g. abort()), a
	// malformed-instruction error, or a solver that answered unknown.
	Failed
	// Suppressed means the path was discarded without being reported as
	// a failure; it carries no value and no error. A path whose branch
	// constraints are unsatisfiable is not Suppressed: the executor ends
	// it as Failed with an unsat error.
	Suppressed
)

// Result is a finished path's outcome (spec.md §4.8 "Termination").
type Result struct {
	Outcome Outcome
	Value   *expr.Expr
	Err     error
}

// ---------------------
// ----- Functions -----
// ---------------------

// Return builds a Returned result, value may be nil for a void function.
func Return(value *expr.Expr) Result {
	return Result{Outcome: Returned, Value: value}
}

// Fail builds a Failed result carrying the reason.
func Fail(err error) Result {
	return Result{Outcome: Failed, Err: err}
}

// Suppress builds a Suppressed result.
func Suppress() Result {
	return Result{Outcome: Suppressed}
}
