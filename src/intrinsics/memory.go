package intrinsics

import (
	"symex/src/expr"
	"symex/src/operand"
	"symex/src/project"
	"symex/src/state"
)

// ---------------------
// ----- Functions -----
// ---------------------

// resolveAddr reduces ptr to a single concrete address: directly if it is
// already constant, otherwise via one solver witness. Buffer intrinsics
// only ever see one address; a symbolic base that could legitimately
// point at several distinct allocations is not forked over here.
func resolveAddr(st *state.ExecutionState, ptr expr.Expr) (uint64, error) {
	if c, ok := ptr.GetConstant(); ok {
		return c.Uint64(), nil
	}
	v, err := st.Solver.GetValue(ptr)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

func llvmMemcpy(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, vals []project.Value) (Call, error) {
	if len(vals) != 4 {
		return Call{}, &ErrWrongArgCount{Name: "llvm.memcpy", Expected: 4, Got: len(vals)}
	}
	args := newArgs(st, lw, f, vals)
	dstAddr, err := args.Addr(0)
	if err != nil {
		return Call{}, err
	}
	srcAddr, err := args.Addr(1)
	if err != nil {
		return Call{}, err
	}
	n, err := args.Len(2)
	if err != nil {
		return Call{}, err
	}
	for i := uint64(0); i < n; i++ {
		b, err := st.Memory.Read(srcAddr+i, 8)
		if err != nil {
			return Call{}, err
		}
		if err := st.Memory.Write(dstAddr+i, b); err != nil {
			return Call{}, err
		}
	}
	return Call{}, nil
}

// llvmMemmove is llvmMemcpy's overlap-safe sibling: every byte is read
// before any byte is written.
func llvmMemmove(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, vals []project.Value) (Call, error) {
	if len(vals) != 4 {
		return Call{}, &ErrWrongArgCount{Name: "llvm.memmove", Expected: 4, Got: len(vals)}
	}
	args := newArgs(st, lw, f, vals)
	dstAddr, err := args.Addr(0)
	if err != nil {
		return Call{}, err
	}
	srcAddr, err := args.Addr(1)
	if err != nil {
		return Call{}, err
	}
	n, err := args.Len(2)
	if err != nil {
		return Call{}, err
	}

	bytes := make([]expr.Expr, n)
	for i := uint64(0); i < n; i++ {
		b, err := st.Memory.Read(srcAddr+i, 8)
		if err != nil {
			return Call{}, err
		}
		bytes[i] = b
	}
	for i := uint64(0); i < n; i++ {
		if err := st.Memory.Write(dstAddr+i, bytes[i]); err != nil {
			return Call{}, err
		}
	}
	return Call{}, nil
}

func llvmMemset(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, vals []project.Value) (Call, error) {
	if len(vals) != 4 {
		return Call{}, &ErrWrongArgCount{Name: "llvm.memset", Expected: 4, Got: len(vals)}
	}
	args := newArgs(st, lw, f, vals)
	dstAddr, err := args.Addr(0)
	if err != nil {
		return Call{}, err
	}
	val, err := args.Expr(1)
	if err != nil {
		return Call{}, err
	}
	n, err := args.Len(2)
	if err != nil {
		return Call{}, err
	}
	for i := uint64(0); i < n; i++ {
		if err := st.Memory.Write(dstAddr+i, val); err != nil {
			return Call{}, err
		}
	}
	return Call{}, nil
}

func llvmUmax(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, vals []project.Value) (Call, error) {
	if len(vals) != 2 {
		return Call{}, &ErrWrongArgCount{Name: "llvm.umax", Expected: 2, Got: len(vals)}
	}
	args := newArgs(st, lw, f, vals)
	lhs, err := args.Expr(0)
	if err != nil {
		return Call{}, err
	}
	rhs, err := args.Expr(1)
	if err != nil {
		return Call{}, err
	}
	cond, err := lhs.Ugt(rhs)
	if err != nil {
		return Call{}, err
	}
	result, err := cond.Ite(lhs, rhs)
	if err != nil {
		return Call{}, err
	}
	return Call{Value: &result}, nil
}

func llvmExpect(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, vals []project.Value) (Call, error) {
	if len(vals) != 2 {
		return Call{}, &ErrWrongArgCount{Name: "llvm.expect", Expected: 2, Got: len(vals)}
	}
	v, err := newArgs(st, lw, f, vals).Expr(0)
	if err != nil {
		return Call{}, err
	}
	return Call{Value: &v}, nil
}

func llvmAssume(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, vals []project.Value) (Call, error) {
	if len(vals) != 1 {
		return Call{}, &ErrWrongArgCount{Name: "llvm.assume", Expected: 1, Got: len(vals)}
	}
	cond, err := newArgs(st, lw, f, vals).Expr(0)
	if err != nil {
		return Call{}, err
	}
	st.Solver.Assert(cond)
	return Call{}, nil
}
