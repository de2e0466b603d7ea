package intrinsics

import (
	"symex/src/operand"
	"symex/src/pathresult"
	"symex/src/project"
	"symex/src/state"
)

// ---------------------
// ----- Functions -----
// ---------------------

// defaultMallocAlignment is used for every malloc() call: the engine does
// not model a real allocator's size-class alignment rules.
const defaultMallocAlignment = 8

func hookAbort(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, args []project.Value) (Call, error) {
	return Call{Terminate: true, Result: pathresult.Fail(&ErrAbort{})}, nil
}

func hookExit(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, vals []project.Value) (Call, error) {
	if len(vals) == 0 {
		return Call{Terminate: true, Result: pathresult.Return(nil)}, nil
	}
	code, err := newArgs(st, lw, f, vals).Expr(0)
	if err != nil {
		return Call{}, err
	}
	return Call{Terminate: true, Result: pathresult.Return(&code)}, nil
}

func hookMalloc(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, vals []project.Value) (Call, error) {
	if len(vals) != 1 {
		return Call{}, &ErrWrongArgCount{Name: "malloc", Expected: 1, Got: len(vals)}
	}
	n, err := newArgs(st, lw, f, vals).Addr(0)
	if err != nil {
		return Call{}, err
	}
	if n == 0 {
		n = 1 // a zero-byte malloc still returns a uniquely addressable pointer.
	}
	ptr, err := st.Memory.Allocate(n*8, defaultMallocAlignment)
	if err != nil {
		return Call{}, err
	}
	return Call{Value: &ptr}, nil
}

// free is a no-op: the engine never models deallocation or
// use-after-free, only forward allocation (spec.md §4.2's allocator is a
// linear bump allocator with no free list).
func hookFree(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, args []project.Value) (Call, error) {
	return Call{}, nil
}
