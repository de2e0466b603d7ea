package exec

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"

	"symex/src/expr"
	"symex/src/operand"
	"symex/src/project"
	"symex/src/state"
)

// ---------------------
// ----- Functions -----
// ---------------------

func (ex *Executor) stepExtractValue(st *state.ExecutionState, f *state.Frame, x *ir.InstExtractValue) error {
	agg, err := ex.get(st, f, x.X)
	if err != nil {
		return err
	}
	aggType := project.WrapType(x.X.Type())
	offset, fieldType, err := operand.FieldOffset(ex.Oracle, aggType, x.Indices)
	if err != nil {
		return err
	}
	width, err := ex.Oracle.BitSize(fieldType)
	if err != nil {
		return err
	}
	if width == 0 {
		return nil // zero-sized field: nothing to bind.
	}
	result, err := agg.Slice(uint32(offset), uint32(offset)+uint32(width)-1)
	if err != nil {
		return err
	}
	f.Bind(project.WrapValue(x), result)
	return nil
}

func (ex *Executor) stepInsertValue(st *state.ExecutionState, f *state.Frame, x *ir.InstInsertValue) error {
	agg, err := ex.get(st, f, x.X)
	if err != nil {
		return err
	}
	aggType := project.WrapType(x.X.Type())
	offset, fieldType, err := operand.FieldOffset(ex.Oracle, aggType, x.Indices)
	if err != nil {
		return err
	}
	width, err := ex.Oracle.BitSize(fieldType)
	if err != nil {
		return err
	}
	if width == 0 {
		f.Bind(project.WrapValue(x), agg)
		return nil
	}
	elem, err := ex.get(st, f, x.Elem)
	if err != nil {
		return err
	}
	result, err := agg.ReplacePart(uint32(offset), elem)
	if err != nil {
		return err
	}
	f.Bind(project.WrapValue(x), result)
	return nil
}

func (ex *Executor) stepExtractElement(st *state.ExecutionState, f *state.Frame, x *ir.InstExtractElement) error {
	vec, err := ex.get(st, f, x.X)
	if err != nil {
		return err
	}
	idxExpr, err := ex.get(st, f, x.Index)
	if err != nil {
		return err
	}
	idx, ok := idxExpr.GetConstant()
	if !ok {
		return &ErrMalformedIR{Reason: "extractelement: symbolic index is not supported"}
	}
	vecType := project.WrapType(x.X.Type())
	offset, elemType, err := ex.Oracle.FieldOffset(vecType, idx.Uint64())
	if err != nil {
		return err
	}
	width, err := ex.Oracle.BitSize(elemType)
	if err != nil {
		return err
	}
	result, err := vec.Slice(uint32(offset), uint32(offset)+uint32(width)-1)
	if err != nil {
		return err
	}
	f.Bind(project.WrapValue(x), result)
	return nil
}

func (ex *Executor) stepInsertElement(st *state.ExecutionState, f *state.Frame, x *ir.InstInsertElement) error {
	vec, err := ex.get(st, f, x.X)
	if err != nil {
		return err
	}
	idxExpr, err := ex.get(st, f, x.Index)
	if err != nil {
		return err
	}
	idx, ok := idxExpr.GetConstant()
	if !ok {
		return &ErrMalformedIR{Reason: "insertelement: symbolic index is not supported"}
	}
	vecType := project.WrapType(x.X.Type())
	offset, _, err := ex.Oracle.FieldOffset(vecType, idx.Uint64())
	if err != nil {
		return err
	}
	elem, err := ex.get(st, f, x.Elem)
	if err != nil {
		return err
	}
	result, err := vec.ReplacePart(uint32(offset), elem)
	if err != nil {
		return err
	}
	f.Bind(project.WrapValue(x), result)
	return nil
}

func (ex *Executor) stepShuffleVector(st *state.ExecutionState, f *state.Frame, x *ir.InstShuffleVector) error {
	xv, err := ex.get(st, f, x.X)
	if err != nil {
		return err
	}
	yv, err := ex.get(st, f, x.Y)
	if err != nil {
		return err
	}
	vecType := project.WrapType(x.X.Type())
	n := vecType.Len()
	elemBits, err := ex.Oracle.BitSize(vecType.Elem())
	if err != nil {
		return err
	}
	w := uint32(elemBits)

	mask, ok := x.Mask.(*constant.Vector)
	if !ok {
		return &ErrMalformedIR{Reason: "shufflevector: mask is not a constant vector"}
	}

	lanes := make([]expr.Expr, len(mask.Elems))
	for i, m := range mask.Elems {
		idxConst, ok := m.(*constant.Int)
		var idx uint64
		if ok {
			idx = idxConst.X.Uint64()
		} // an undef mask element picks lane 0, matching the constant-expr path.

		var lane expr.Expr
		var err error
		if idx < n {
			lane, err = xv.Slice(uint32(idx)*w, uint32(idx)*w+w-1)
		} else {
			lane, err = yv.Slice(uint32(idx-n)*w, uint32(idx-n)*w+w-1)
		}
		if err != nil {
			return err
		}
		lanes[i] = lane
	}
	f.Bind(project.WrapValue(x), packLanes(lanes))
	return nil
}
