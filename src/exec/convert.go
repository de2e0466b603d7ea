package exec

import (
	llvalue "github.com/llir/llvm/ir/value"

	"symex/src/expr"
	"symex/src/project"
	"symex/src/state"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// convertOp narrows or widens one lane to width bits.
type convertOp func(e expr.Expr, width uint32) (expr.Expr, error)

// ---------------------
// ----- Functions -----
// ---------------------

func truncOp(e expr.Expr, width uint32) (expr.Expr, error) {
	return e.Slice(0, width-1)
}

func zextOp(e expr.Expr, width uint32) (expr.Expr, error) {
	return e.ZExt(width)
}

func sextOp(e expr.Expr, width uint32) (expr.Expr, error) {
	return e.SExt(width)
}

// resizeOp is ptrtoint/inttoptr's conversion: an unsigned resize to the
// destination width (spec.md §4.4 "ptrtoint/inttoptr are unsigned resizes").
func resizeOp(e expr.Expr, width uint32) (expr.Expr, error) {
	return e.Resize(width), nil
}

// convertPerLane applies op to fromV's value either whole (fromType is
// scalar) or lane by lane, preserving vector lane structure across the
// conversion (spec.md §4.4 "conversions preserve vector lane structure").
func (ex *Executor) convertPerLane(fromType, toType project.Type, v expr.Expr, op convertOp) (expr.Expr, error) {
	if fromType.Kind() != project.KindVector {
		outWidth, err := ex.Oracle.BitSize(toType)
		if err != nil {
			return expr.Expr{}, err
		}
		return op(v, uint32(outWidth))
	}

	n := fromType.Len()
	inBits, err := ex.Oracle.BitSize(fromType.Elem())
	if err != nil {
		return expr.Expr{}, err
	}
	outBits, err := ex.Oracle.BitSize(toType.Elem())
	if err != nil {
		return expr.Expr{}, err
	}
	lanes := make([]expr.Expr, n)
	for i := uint64(0); i < n; i++ {
		lo := uint32(i) * uint32(inBits)
		lane, err := v.Slice(lo, lo+uint32(inBits)-1)
		if err != nil {
			return expr.Expr{}, err
		}
		r, err := op(lane, uint32(outBits))
		if err != nil {
			return expr.Expr{}, err
		}
		lanes[i] = r
	}
	return packLanes(lanes), nil
}

func (ex *Executor) stepConvert(st *state.ExecutionState, f *state.Frame, resultV llvalue.Value, fromV llvalue.Value, toType project.Type, op convertOp) error {
	v, err := ex.get(st, f, fromV)
	if err != nil {
		return err
	}
	fromType := project.WrapType(fromV.Type())
	result, err := ex.convertPerLane(fromType, toType, v, op)
	if err != nil {
		return err
	}
	f.Bind(project.WrapValue(resultV), result)
	return nil
}

// stepIdentity implements bitcast/addrspacecast: a pure reinterpretation
// with no change to the underlying bits (spec.md §4.4 "bitcast and
// addrspacecast are identity on the bit-vector representation").
func (ex *Executor) stepIdentity(st *state.ExecutionState, f *state.Frame, resultV llvalue.Value, fromV llvalue.Value) error {
	v, err := ex.get(st, f, fromV)
	if err != nil {
		return err
	}
	f.Bind(project.WrapValue(resultV), v)
	return nil
}
