// Package state implements the per-path execution context (spec.md §3):
// activation records, the call stack, and the global environment shared
// by every path forked from one project load.
package state

import (
	"github.com/llir/llvm/ir"

	"symex/src/expr"
	"symex/src/memory"
	"symex/src/project"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// ExecutionState is one path's complete mutable context (spec.md §3
// "Execution state"): everything needed to keep stepping the interpreter,
// or to fork into two independent continuations.
type ExecutionState struct {
	Project *project.Project
	Ctx     *expr.Context
	Solver  expr.Solver

	// SymbolicInputs names every free variable introduced as a symbolic
	// program input, in introduction order.
	SymbolicInputs []string

	Memory  *memory.Memory
	Globals *GlobalEnv

	// materializedGlobals is the set of globals whose initializer has
	// already been written into this path's Memory (spec.md §3 "a set of
	// globals whose initializers have been materialized" — part of the
	// per-state context, not the shared GlobalEnv, since two forked paths
	// must each decide independently against their own cloned Memory).
	materializedGlobals map[project.Value]bool

	frames []*Frame
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewExecutionState returns a fresh state with an empty call stack.
func NewExecutionState(p *project.Project, ctx *expr.Context, solver expr.Solver, mem *memory.Memory, globals *GlobalEnv) *ExecutionState {
	return &ExecutionState{
		Project:             p,
		Ctx:                 ctx,
		Solver:              solver,
		Memory:              mem,
		Globals:             globals,
		materializedGlobals: make(map[project.Value]bool),
	}
}

// IsGlobalMaterialized reports whether v's initializer has already been
// written into this path's memory.
func (s *ExecutionState) IsGlobalMaterialized(v project.Value) bool {
	return s.materializedGlobals[v]
}

// MarkGlobalMaterialized records that v's initializer has been written
// into this path's memory, so later lookups of the same global along this
// path skip re-writing it (spec.md §3 "at most once per state").
func (s *ExecutionState) MarkGlobalMaterialized(v project.Value) {
	s.materializedGlobals[v] = true
}

// PushFrame begins a new activation for fn, making it the active frame.
func (s *ExecutionState) PushFrame(fn *ir.Func) *Frame {
	f := NewFrame(fn)
	s.frames = append(s.frames, f)
	return f
}

// PopFrame destroys the active activation and returns it, or returns nil
// if the call stack is already empty.
func (s *ExecutionState) PopFrame() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

// Active returns the top-of-stack (currently executing) activation, or
// nil if the call stack is empty.
func (s *ExecutionState) Active() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Depth returns the current call-stack depth, consulted by the
// call-depth throttle (spec.md §4.4 "call-depth throttle").
func (s *ExecutionState) Depth() int {
	return len(s.frames)
}

// Frames returns the call stack, bottom (oldest caller) first.
func (s *ExecutionState) Frames() []*Frame {
	return s.frames
}

// MarkSymbolicInput records name as one of the free variables introduced
// as a symbolic program input.
func (s *ExecutionState) MarkSymbolicInput(name string) {
	s.SymbolicInputs = append(s.SymbolicInputs, name)
}

// Clone returns an independent ExecutionState: a cloned solver handle
// (sharing every persistent fact asserted so far but with an independent
// assertion stack from this point on), cloned memory, and cloned frames —
// each structurally shared until written to (spec.md §9 "State cloning",
// §3 "Lifecycle").
func (s *ExecutionState) Clone() *ExecutionState {
	frames := make([]*Frame, len(s.frames))
	for i, f := range s.frames {
		frames[i] = f.Clone()
	}
	inputs := make([]string, len(s.SymbolicInputs))
	copy(inputs, s.SymbolicInputs)

	materialized := make(map[project.Value]bool, len(s.materializedGlobals))
	for k, v := range s.materializedGlobals {
		materialized[k] = v
	}

	return &ExecutionState{
		Project:             s.Project,
		Ctx:                 s.Ctx,
		Solver:              s.Solver.Clone(),
		SymbolicInputs:      inputs,
		Memory:              s.Memory.Clone(),
		Globals:             s.Globals,
		materializedGlobals: materialized,
		frames:              frames,
	}
}
