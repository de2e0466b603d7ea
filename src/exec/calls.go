package exec

import (
	"fmt"

	"github.com/llir/llvm/ir"
	llvalue "github.com/llir/llvm/ir/value"

	"symex/src/expr"
	"symex/src/intrinsics"
	"symex/src/pathresult"
	"symex/src/pathsel"
	"symex/src/project"
	"symex/src/state"
)

// ---------------------
// ----- Functions -----
// ---------------------

// resolveCallee finds the function callee refers to (spec.md §4.5 "Call
// resolution"): directly if it is a function literal, otherwise by
// evaluating it to an address and consulting the global environment. A
// symbolic callee address is concretized the same way a symbolic
// load/store address is, forking a suspended continuation for every
// candidate but the first; when the candidates reach the configured
// limit without the set being known complete, the call fails instead.
func (ex *Executor) resolveCallee(st *state.ExecutionState, f *state.Frame, callee llvalue.Value, paths *pathsel.Stack) (*ir.Func, error) {
	if fn, ok := callee.(*ir.Func); ok {
		return fn, nil
	}

	addr, err := ex.get(st, f, callee)
	if err != nil {
		return nil, err
	}

	if c, ok := addr.GetConstant(); ok {
		fn, ok := st.Globals.FunctionAt(c.Uint64())
		if !ok {
			return nil, &ErrFunctionNotFound{Name: fmt.Sprintf("%#x", c)}
		}
		return fn, nil
	}

	addrs, exact, err := st.Memory.ResolveAddresses(st.Solver, addr, ex.Limits.MaxFnPtrResolutions)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, &ErrUnsat{}
	}
	if !exact && len(addrs) >= ex.Limits.MaxFnPtrResolutions {
		return nil, &ErrTooManyFunctionPointerSolutions{}
	}

	for _, a := range addrs[1:] {
		clone := st.Clone()
		if err := ex.pinAddress(clone, addr, a); err != nil {
			return nil, err
		}
		paths.Push(clone)
	}
	if err := ex.pinAddress(st, addr, addrs[0]); err != nil {
		return nil, err
	}

	fn, ok := st.Globals.FunctionAt(addrs[0])
	if !ok {
		return nil, &ErrFunctionNotFound{Name: fmt.Sprintf("%#x", addrs[0])}
	}
	return fn, nil
}

// stepCall executes a call instruction: a hook/intrinsic dispatches
// synchronously in place, a user function pushes a new activation that
// resumes here (at the next instruction) once it returns (spec.md §4.5).
func (ex *Executor) stepCall(st *state.ExecutionState, f *state.Frame, x *ir.InstCall, paths *pathsel.Stack) (*pathresult.Result, error) {
	fn, err := ex.resolveCallee(st, f, x.Callee, paths)
	if err != nil {
		return nil, err
	}
	name := fn.Name()

	hook, hasHook := ex.Intrinsics.Lookup(name)
	useHook := intrinsics.IsIntrinsic(name) || (hasHook && len(fn.Blocks) == 0)

	if useHook {
		if !hasHook {
			return nil, &ErrFunctionNotFound{Name: name}
		}
		args := make([]project.Value, len(x.Args))
		for i, a := range x.Args {
			args[i] = project.WrapValue(a)
		}
		call, err := hook(st, ex.Lowerer, f, args)
		if err != nil {
			return nil, err
		}
		if call.Terminate {
			return &call.Result, nil
		}
		if call.Value != nil {
			f.Bind(project.WrapValue(x), *call.Value)
		}
		f.Loc.InstIndex++
		return nil, nil
	}

	if len(fn.Blocks) == 0 {
		return nil, &ErrFunctionNotFound{Name: name + ": declaration with no body and no hook"}
	}
	if st.Depth() >= ex.Limits.CallDepth {
		return nil, &ErrCallDepthExceeded{Limit: ex.Limits.CallDepth}
	}

	argExprs := make([]expr.Expr, len(x.Args))
	for i, a := range x.Args {
		v, err := ex.get(st, f, a)
		if err != nil {
			return nil, err
		}
		argExprs[i] = v
	}

	f.Loc.InstIndex++ // where the caller resumes once the callee returns.
	f.SetPendingResult(project.WrapValue(x))

	callee := st.PushFrame(fn)
	for i, p := range fn.Params {
		if i < len(argExprs) {
			callee.Bind(project.WrapValue(p), argExprs[i])
		}
	}
	return nil, nil
}
