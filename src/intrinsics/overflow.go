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

// overflowOp computes a binary result and its matching overflow flag for
// one arithmetic operation, chosen (signed vs. unsigned) by the caller.
type overflowOp func(lhs, rhs expr.Expr, signed bool) (result, overflow expr.Expr, err error)

// ---------------------
// ----- Functions -----
// ---------------------

func addOverflow(lhs, rhs expr.Expr, signed bool) (expr.Expr, expr.Expr, error) {
	result, err := lhs.Add(rhs)
	if err != nil {
		return expr.Expr{}, expr.Expr{}, err
	}
	var overflow expr.Expr
	if signed {
		overflow, err = lhs.SAddOverflow(rhs)
	} else {
		overflow, err = lhs.UAddOverflow(rhs)
	}
	return result, overflow, err
}

func subOverflow(lhs, rhs expr.Expr, signed bool) (expr.Expr, expr.Expr, error) {
	result, err := lhs.Sub(rhs)
	if err != nil {
		return expr.Expr{}, expr.Expr{}, err
	}
	var overflow expr.Expr
	if signed {
		overflow, err = lhs.SSubOverflow(rhs)
	} else {
		overflow, err = lhs.USubOverflow(rhs)
	}
	return result, overflow, err
}

func mulOverflow(lhs, rhs expr.Expr, signed bool) (expr.Expr, expr.Expr, error) {
	result, err := lhs.Mul(rhs)
	if err != nil {
		return expr.Expr{}, expr.Expr{}, err
	}
	var overflow expr.Expr
	if signed {
		overflow, err = lhs.SMulOverflow(rhs)
	} else {
		overflow, err = lhs.UMulOverflow(rhs)
	}
	return result, overflow, err
}

// overflowHook builds the hook for one of the llvm.{s,u}{add,sub,mul}.with.overflow.*
// intrinsics: the result is a {result, overflow} pair packed into a
// single bit-vector with the arithmetic result in the low-order bits and
// the i1 overflow flag in the high bit, matching how the struct{iN, i1}
// return type is laid out (spec.md §4.7 "with.overflow").
func overflowHook(op overflowOp, signed bool) Hook {
	return func(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, vals []project.Value) (Call, error) {
		if len(vals) != 2 {
			return Call{}, &ErrWrongArgCount{Name: "with.overflow", Expected: 2, Got: len(vals)}
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
		result, overflow, err := op(lhs, rhs, signed)
		if err != nil {
			return Call{}, err
		}
		packed := overflow.Concat(result)
		return Call{Value: &packed}, nil
	}
}

// satHook builds the hook for one of the llvm.{s,u}{add,sub}.sat.*
// intrinsics.
func satHook(op func(expr.Expr, expr.Expr) (expr.Expr, error)) Hook {
	return func(st *state.ExecutionState, lw *operand.Lowerer, f *state.Frame, vals []project.Value) (Call, error) {
		if len(vals) != 2 {
			return Call{}, &ErrWrongArgCount{Name: "sat", Expected: 2, Got: len(vals)}
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
		result, err := op(lhs, rhs)
		if err != nil {
			return Call{}, err
		}
		return Call{Value: &result}, nil
	}
}
