// Package intrinsics dispatches calls to functions the executor never
// steps into: LLVM intrinsics (llvm.*) and a handful of default C hooks
// (abort/exit/malloc/free) supplemented beyond spec.md's named scope to
// let programs that use the C allocator and process-termination
// functions run without a libc body in the project (spec.md §4.7 "Calls
// to functions without a body are resolved through a hook table").
package intrinsics

import (
	"strings"

	"symex/src/expr"
	"symex/src/operand"
	"symex/src/pathresult"
	"symex/src/project"
	"symex/src/state"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Call is what a Hook produces: either a value to bind to the call
// instruction's result register (Value, nil for a void call), or a
// request to end the whole path right here (Terminate, used by
// abort/exit).
type Call struct {
	Value     *expr.Expr
	Terminate bool
	Result    pathresult.Result
}

// Hook implements one intrinsic or default function. args are the call's
// raw operands, lowered against the calling frame's register file.
type Hook func(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, args []project.Value) (Call, error)

// Table is the combined intrinsic/hook dispatch table: fixed-name lookups
// are O(1); suffixed names (llvm.memcpy.p0i8.p0i8.i64, etc) fall back to
// a longest-prefix scan.
type Table struct {
	fixed    map[string]Hook
	prefixes []prefixEntry
}

type prefixEntry struct {
	prefix string
	hook   Hook
}

// ---------------------
// ----- Functions -----
// ---------------------

// IsIntrinsic reports whether name names an LLVM intrinsic, per the
// "llvm." naming convention LLVM itself reserves.
func IsIntrinsic(name string) bool {
	return strings.HasPrefix(name, "llvm.")
}

// NewDefault returns a Table with every required intrinsic and default
// hook registered.
func NewDefault() *Table {
	t := &Table{fixed: make(map[string]Hook)}

	t.addFixed("llvm.assume", llvmAssume)

	t.addPrefix("llvm.memcpy.", llvmMemcpy)
	t.addPrefix("llvm.memmove.", llvmMemmove)
	t.addPrefix("llvm.memset.", llvmMemset)
	t.addPrefix("llvm.umax.", llvmUmax)

	t.addPrefix("llvm.sadd.with.overflow.", overflowHook(addOverflow, true))
	t.addPrefix("llvm.uadd.with.overflow.", overflowHook(addOverflow, false))
	t.addPrefix("llvm.ssub.with.overflow.", overflowHook(subOverflow, true))
	t.addPrefix("llvm.usub.with.overflow.", overflowHook(subOverflow, false))
	t.addPrefix("llvm.smul.with.overflow.", overflowHook(mulOverflow, true))
	t.addPrefix("llvm.umul.with.overflow.", overflowHook(mulOverflow, false))

	t.addPrefix("llvm.sadd.sat.", satHook(expr.Expr.SAddSat))
	t.addPrefix("llvm.uadd.sat.", satHook(expr.Expr.UAddSat))
	t.addPrefix("llvm.ssub.sat.", satHook(expr.Expr.SSubSat))
	t.addPrefix("llvm.usub.sat.", satHook(expr.Expr.USubSat))

	t.addPrefix("llvm.expect.", llvmExpect)

	t.addPrefix("llvm.dbg", noop)
	t.addPrefix("llvm.lifetime", noop)
	t.addPrefix("llvm.experimental", noop)

	t.addFixed("abort", hookAbort)
	t.addFixed("exit", hookExit)
	t.addFixed("malloc", hookMalloc)
	t.addFixed("free", hookFree)

	return t
}

func (t *Table) addFixed(name string, h Hook) {
	t.fixed[name] = h
}

func (t *Table) addPrefix(prefix string, h Hook) {
	t.prefixes = append(t.prefixes, prefixEntry{prefix: prefix, hook: h})
}

// Lookup returns the hook registered for name, preferring an exact match
// and otherwise the longest registered prefix of name.
func (t *Table) Lookup(name string) (Hook, bool) {
	if h, ok := t.fixed[name]; ok {
		return h, true
	}
	var best *prefixEntry
	for i := range t.prefixes {
		p := &t.prefixes[i]
		if strings.HasPrefix(name, p.prefix) && (best == nil || len(p.prefix) > len(best.prefix)) {
			best = p
		}
	}
	if best == nil {
		return nil, false
	}
	return best.hook, true
}

func noop(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, args []project.Value) (Call, error) {
	return Call{}, nil
}
