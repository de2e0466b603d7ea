package operand

import (
	"symex/src/expr"
	"symex/src/project"
	"symex/src/sizeof"
)

// ---------------------
// ----- Functions -----
// ---------------------

// GEPAddress computes the pointer produced by indexing into an aggregate
// of type baseType starting at address base (spec.md §4.4
// "getelementptr"): the first index scales by the size of baseType itself
// (pointer arithmetic); each subsequent index navigates one level into a
// nested Structure (which requires a constant index), Array, or Vector.
// Indices are already-lowered expressions, shared between the constant
// GetElementPtr expression below and the instruction of the same name.
func GEPAddress(ctx *expr.Context, oracle *sizeof.Oracle, ptrWidth uint32, base expr.Expr, baseType project.Type, indices []expr.Expr) (expr.Expr, error) {
	if len(indices) == 0 {
		return base, nil
	}

	elemSize, err := oracle.ByteSize(baseType)
	if err != nil {
		return expr.Expr{}, err
	}
	first, err := scaleIndex(ctx, ptrWidth, indices[0], elemSize)
	if err != nil {
		return expr.Expr{}, err
	}
	addr, err := base.Add(first)
	if err != nil {
		return expr.Expr{}, err
	}

	cur := baseType
	for _, idx := range indices[1:] {
		switch cur.Kind() {
		case project.KindStruct:
			c, ok := idx.GetConstant()
			if !ok {
				return expr.Expr{}, &ErrMalformedInstruction{Reason: "symbolic index into a structure field"}
			}
			offBytes, field, err := oracle.ByteOffsetConstant(cur, c.Uint64())
			if err != nil {
				return expr.Expr{}, err
			}
			offset := ctx.Const(offBytes, ptrWidth)
			if addr, err = addr.Add(offset); err != nil {
				return expr.Expr{}, err
			}
			cur = field
		case project.KindArray, project.KindVector:
			elem := cur.Elem()
			sz, err := oracle.ByteSize(elem)
			if err != nil {
				return expr.Expr{}, err
			}
			scaled, err := scaleIndex(ctx, ptrWidth, idx, sz)
			if err != nil {
				return expr.Expr{}, err
			}
			if addr, err = addr.Add(scaled); err != nil {
				return expr.Expr{}, err
			}
			cur = elem
		default:
			return expr.Expr{}, &ErrMalformedInstruction{Reason: "cannot index into " + cur.Kind().String() + " type"}
		}
	}
	return addr, nil
}

// scaleIndex sign-extends or truncates idx to the pointer width (GEP
// indices are signed) and scales it by elemBytes.
func scaleIndex(ctx *expr.Context, ptrWidth uint32, idx expr.Expr, elemBytes uint64) (expr.Expr, error) {
	adjusted, err := adjustToWidth(idx, ptrWidth)
	if err != nil {
		return expr.Expr{}, err
	}
	scale := ctx.Const(elemBytes, ptrWidth)
	return adjusted.Mul(scale)
}

func adjustToWidth(idx expr.Expr, width uint32) (expr.Expr, error) {
	switch {
	case idx.Width() == width:
		return idx, nil
	case idx.Width() < width:
		return idx.SExt(width)
	default:
		return idx.Slice(0, width-1)
	}
}
