package exec

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	llvalue "github.com/llir/llvm/ir/value"

	"symex/src/expr"
	"symex/src/project"
	"symex/src/state"
)

// ---------------------
// ----- Functions -----
// ---------------------

// packLanes concatenates per-lane results back into one bit-vector, lane 0
// in the low-order bits and the last lane in the high-order bits — the
// same convention operand.FieldOffset and memory.Memory.Read use, so a
// vector's in-register and in-memory layouts agree (spec.md §4.2 "byte
// layout").
func packLanes(lanes []expr.Expr) expr.Expr {
	acc := lanes[0]
	for _, e := range lanes[1:] {
		acc = e.Concat(acc)
	}
	return acc
}

// perLane applies op to lhs and rhs either whole (t is scalar) or lane by
// lane (t is a vector), repacking per-lane results in place (spec.md §4.4
// "vector instructions operate lane-wise").
func (ex *Executor) perLane(t project.Type, lhs, rhs expr.Expr, op func(expr.Expr, expr.Expr) (expr.Expr, error)) (expr.Expr, error) {
	if t.Kind() != project.KindVector {
		return op(lhs, rhs)
	}
	n := t.Len()
	elemBits, err := ex.Oracle.BitSize(t.Elem())
	if err != nil {
		return expr.Expr{}, err
	}
	w := uint32(elemBits)
	lanes := make([]expr.Expr, n)
	for i := uint64(0); i < n; i++ {
		lo := uint32(i) * w
		a, err := lhs.Slice(lo, lo+w-1)
		if err != nil {
			return expr.Expr{}, err
		}
		b, err := rhs.Slice(lo, lo+w-1)
		if err != nil {
			return expr.Expr{}, err
		}
		r, err := op(a, b)
		if err != nil {
			return expr.Expr{}, err
		}
		lanes[i] = r
	}
	return packLanes(lanes), nil
}

// bindBinary evaluates a two-operand instruction with op and binds its
// result to resultV's register.
func (ex *Executor) bindBinary(st *state.ExecutionState, f *state.Frame, resultV llvalue.Value, xv, yv llvalue.Value, op func(expr.Expr, expr.Expr) (expr.Expr, error)) error {
	lhs, err := ex.get(st, f, xv)
	if err != nil {
		return err
	}
	rhs, err := ex.get(st, f, yv)
	if err != nil {
		return err
	}
	t := project.WrapType(xv.Type())
	result, err := ex.perLane(t, lhs, rhs, op)
	if err != nil {
		return err
	}
	f.Bind(project.WrapValue(resultV), result)
	return nil
}

// icmpOp maps an icmp predicate to the matching Expr comparison.
func icmpOp(pred enum.IPred) (func(expr.Expr, expr.Expr) (expr.Expr, error), error) {
	switch pred {
	case enum.IPredEQ:
		return expr.Expr.Eq, nil
	case enum.IPredNE:
		return expr.Expr.Ne, nil
	case enum.IPredUGT:
		return expr.Expr.Ugt, nil
	case enum.IPredUGE:
		return expr.Expr.Uge, nil
	case enum.IPredULT:
		return expr.Expr.Ult, nil
	case enum.IPredULE:
		return expr.Expr.Ule, nil
	case enum.IPredSGT:
		return expr.Expr.Sgt, nil
	case enum.IPredSGE:
		return expr.Expr.Sge, nil
	case enum.IPredSLT:
		return expr.Expr.Slt, nil
	case enum.IPredSLE:
		return expr.Expr.Sle, nil
	default:
		return nil, &ErrMalformedIR{Reason: "icmp: unknown predicate"}
	}
}

func (ex *Executor) stepICmp(st *state.ExecutionState, f *state.Frame, x *ir.InstICmp) error {
	op, err := icmpOp(x.Pred)
	if err != nil {
		return err
	}
	return ex.bindBinary(st, f, x, x.X, x.Y, op)
}
