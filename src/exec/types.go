// Package exec steps one ExecutionState through the instructions and
// terminators of the function it is currently in (spec.md §4 "Execution
// Engine"), forking onto a pathsel.Stack wherever a branch, switch, call,
// or memory access has more than one feasible outcome.
package exec

import (
	"symex/src/intrinsics"
	"symex/src/operand"
	"symex/src/sizeof"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Limits bounds the state space a single path may explore, independent of
// whatever the SMT solver itself can decide (spec.md §4.4 "Throttles").
type Limits struct {
	// CallDepth is the maximum number of nested activations; exceeding it
	// fails the path rather than exhausting the host stack.
	CallDepth int

	// MaxIterCount bounds how many times one activation may re-enter the
	// same basic block, the backstop against unbounded symbolic loops.
	MaxIterCount int

	// AddrUpperBound is how many distinct solutions the solver is asked
	// for when concretizing a symbolic load/store/cmpxchg/atomicrmw
	// address; beyond this the address is treated as having exactly this
	// many candidates (no completeness guarantee past the bound).
	AddrUpperBound int

	// MaxFnPtrResolutions bounds the same enumeration for an indirect
	// call target; exceeding it fails the path instead of forking a huge
	// number of near-identical call continuations.
	MaxFnPtrResolutions int
}

// DefaultLimits matches the engine's out-of-the-box behavior (spec.md §4.4
// lists these as the Non-goal-adjacent defaults, tunable from config).
func DefaultLimits() Limits {
	return Limits{
		CallDepth:           100,
		MaxIterCount:        1000,
		AddrUpperBound:      8,
		MaxFnPtrResolutions: 8,
	}
}

// Executor is the shared, stateless-apart-from-configuration machinery
// that steps any ExecutionState forward. Everything path-specific lives on
// the ExecutionState itself, so one Executor serves every path explored
// from the same project load.
type Executor struct {
	Oracle     *sizeof.Oracle
	Lowerer    *operand.Lowerer
	Intrinsics *intrinsics.Table
	Limits     Limits

	ptrWidth uint32
}

// ---------------------
// ----- Functions -----
// ---------------------

// New returns an Executor wired against a single project's pointer width.
func New(oracle *sizeof.Oracle, lowerer *operand.Lowerer, table *intrinsics.Table, limits Limits) *Executor {
	return &Executor{
		Oracle:     oracle,
		Lowerer:    lowerer,
		Intrinsics: table,
		Limits:     limits,
		ptrWidth:   oracle.PointerWidth(),
	}
}
