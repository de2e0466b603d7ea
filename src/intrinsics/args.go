package intrinsics

import (
	"symex/src/expr"
	"symex/src/operand"
	"symex/src/project"
	"symex/src/state"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Args adapts one hook invocation's raw call operands into the few shapes
// intrinsic bodies actually need: a lowered expression, one concretized
// address, or a byte count that the caller is willing to bound when it
// turns out to be symbolic.
type Args struct {
	st   *state.ExecutionState
	lw   *operand.Lowerer
	f    *state.Frame
	vals []project.Value
}

// ----------------------
// ----- Constants ------
// ----------------------

// maxSymbolicLen bounds how many bytes a memory-block intrinsic will
// touch when its length operand turns out to be symbolic: the length is
// concretized to one solver witness and clamped to this bound rather than
// forked or walked without limit.
const maxSymbolicLen = 4096

// ---------------------
// ----- Functions -----
// ---------------------

// newArgs wraps one call's operands for reading by its hook.
func newArgs(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, vals []project.Value) Args {
	return Args{st: st, lw: lw, f: f, vals: vals}
}

// Count returns the number of raw operands.
func (a Args) Count() int {
	return len(a.vals)
}

// Expr lowers the i-th argument to its register-file expression.
func (a Args) Expr(i int) (expr.Expr, error) {
	return a.lw.Get(a.st, a.f, a.vals[i])
}

// Addr lowers the i-th argument and reduces it to one concrete address,
// concretizing via the path's solver if it is symbolic (mirrors
// resolveAddr, which this delegates to).
func (a Args) Addr(i int) (uint64, error) {
	e, err := a.Expr(i)
	if err != nil {
		return 0, err
	}
	return resolveAddr(a.st, e)
}

// Len reads the i-th argument as a byte count. A constant length is used
// outright. A symbolic one is concretized to a single solver witness,
// clamped to maxSymbolicLen, and pinned with an equality assertion so the
// clamp holds for the rest of this path, implementing the bounded
// address-by-address loop spec.md requires for a symbolic-length
// memcpy/memmove/memset instead of rejecting it outright.
func (a Args) Len(i int) (uint64, error) {
	e, err := a.Expr(i)
	if err != nil {
		return 0, err
	}
	if c, ok := e.GetConstant(); ok {
		return c.Uint64(), nil
	}
	v, err := a.st.Solver.GetValue(e)
	if err != nil {
		return 0, err
	}
	n := v.Uint64()
	if n > maxSymbolicLen {
		n = maxSymbolicLen
	}
	pinned := a.st.Ctx.Const(n, e.Width())
	eq, err := e.Eq(pinned)
	if err != nil {
		return 0, err
	}
	a.st.Solver.Assert(eq)
	return n, nil
}
