package exec

import (
	"github.com/llir/llvm/ir"

	"symex/src/expr"
	"symex/src/project"
	"symex/src/state"
)

// ---------------------
// ----- Functions -----
// ---------------------

func (ex *Executor) stepSelect(st *state.ExecutionState, f *state.Frame, x *ir.InstSelect) error {
	cond, err := ex.get(st, f, x.Cond)
	if err != nil {
		return err
	}
	tVal, err := ex.get(st, f, x.X)
	if err != nil {
		return err
	}
	fVal, err := ex.get(st, f, x.Y)
	if err != nil {
		return err
	}

	condType := project.WrapType(x.Cond.Type())
	if condType.Kind() != project.KindVector {
		result, err := cond.Ite(tVal, fVal)
		if err != nil {
			return err
		}
		f.Bind(project.WrapValue(x), result)
		return nil
	}

	n := condType.Len()
	elemType := project.WrapType(x.X.Type()).Elem()
	w, err := ex.Oracle.BitSize(elemType)
	if err != nil {
		return err
	}
	lanes := make([]expr.Expr, n)
	for i := uint64(0); i < n; i++ {
		c, err := cond.Slice(uint32(i), uint32(i))
		if err != nil {
			return err
		}
		t, err := tVal.Slice(uint32(i)*uint32(w), uint32(i)*uint32(w)+uint32(w)-1)
		if err != nil {
			return err
		}
		fv, err := fVal.Slice(uint32(i)*uint32(w), uint32(i)*uint32(w)+uint32(w)-1)
		if err != nil {
			return err
		}
		lanes[i], err = c.Ite(t, fv)
		if err != nil {
			return err
		}
	}
	f.Bind(project.WrapValue(x), packLanes(lanes))
	return nil
}

func (ex *Executor) stepPhi(st *state.ExecutionState, f *state.Frame, x *ir.InstPhi) error {
	if f.Loc.PrevBlock == nil {
		return &ErrMalformedIR{Reason: "phi reached with no previous block recorded"}
	}
	for _, inc := range x.Incs {
		if inc.Pred == f.Loc.PrevBlock {
			v, err := ex.get(st, f, inc.X)
			if err != nil {
				return err
			}
			f.Bind(project.WrapValue(x), v)
			return nil
		}
	}
	return &ErrMalformedIR{Reason: "phi has no incoming value for the block actually taken"}
}
