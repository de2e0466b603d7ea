// Package operand lowers LLVM IR operands and constants into bit-vector
// expressions (spec.md §4.3): registers are looked up in the active
// activation record, globals/functions resolve through the global
// environment, and constants (including constant expressions) are
// recursively folded into Expr trees.
package operand

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"

	"symex/src/expr"
	"symex/src/project"
	"symex/src/sizeof"
	"symex/src/state"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Lowerer lowers operands and constants for one project, sharing a size
// oracle and global environment across every path.
type Lowerer struct {
	oracle   *sizeof.Oracle
	globals  *state.GlobalEnv
	ptrWidth uint32
}

// ---------------------
// ----- Functions -----
// ---------------------

// New returns a Lowerer for a project with the given pointer width.
func New(oracle *sizeof.Oracle, globals *state.GlobalEnv, ptrWidth uint32) *Lowerer {
	return &Lowerer{oracle: oracle, globals: globals, ptrWidth: ptrWidth}
}

// Get lowers v, looking up Instruction/Argument operands in f's register
// file (spec.md §4.3 "get_expr"). v must not be zero-sized.
func (lw *Lowerer) Get(st *state.ExecutionState, f *state.Frame, v project.Value) (expr.Expr, error) {
	e, err := lw.getZeroSize(st, f, v)
	if err != nil {
		return expr.Expr{}, err
	}
	if e == nil {
		return expr.Expr{}, &ErrUnexpectedZeroSize{}
	}
	return *e, nil
}

// GetZeroSize is Get's zero-size-tolerant variant: it returns a nil
// *Expr, rather than an error, for zero-sized operands.
func (lw *Lowerer) GetZeroSize(st *state.ExecutionState, f *state.Frame, v project.Value) (*expr.Expr, error) {
	return lw.getZeroSize(st, f, v)
}

func (lw *Lowerer) getZeroSize(st *state.ExecutionState, f *state.Frame, v project.Value) (*expr.Expr, error) {
	switch v.Kind() {
	case project.KindInstructionValue, project.KindArgument:
		e, ok := f.Get(v)
		if !ok {
			return nil, &ErrLocalNotFound{Name: v.String()}
		}
		return &e, nil
	case project.KindGlobal, project.KindFunction:
		return lw.globalAddress(st, v)
	case project.KindConstant:
		c, _ := v.AsConstant()
		return lw.constToExprZeroSize(st, c)
	default:
		return nil, &ErrUnsupportedConstant{Kind: v.String()}
	}
}

// globalAddress returns v's concrete address, materializing its
// initializer into st.Memory first if v is a global variable that this
// path has not yet touched (spec.md §3 "A global's initializer is
// materialized into memory at most once per state"). Function addresses
// are never materialized: a function has no initializer, only code.
func (lw *Lowerer) globalAddress(st *state.ExecutionState, v project.Value) (*expr.Expr, error) {
	addr, ok := lw.globals.Address(v)
	if !ok {
		return nil, &ErrMalformedInstruction{Reason: "no address assigned to " + v.String()}
	}

	g, isGlobal := v.AsGlobal()
	if !isGlobal || g.Init == nil || st.IsGlobalMaterialized(v) {
		return &addr, nil
	}

	init, err := lw.constToExprZeroSize(st, g.Init)
	if err != nil {
		return nil, err
	}
	if init != nil {
		c, ok := addr.GetConstant()
		if !ok {
			return nil, &ErrMalformedInstruction{Reason: "global address is not concrete"}
		}
		if err := st.Memory.Write(c.Uint64(), *init); err != nil {
			return nil, err
		}
	}
	st.MarkGlobalMaterialized(v)
	return &addr, nil
}

// ConstToExpr lowers a constant that must not be zero-sized (spec.md
// §4.3 "const_to_expr").
func (lw *Lowerer) ConstToExpr(st *state.ExecutionState, c constant.Constant) (expr.Expr, error) {
	e, err := lw.constToExprZeroSize(st, c)
	if err != nil {
		return expr.Expr{}, err
	}
	if e == nil {
		return expr.Expr{}, &ErrUnexpectedZeroSize{}
	}
	return *e, nil
}

// ConstToExprZeroSize lowers any constant, tolerating a zero-sized result
// (returned as a nil *Expr) — the variant aggregate members must use,
// since a Structure or Array may legally contain zero-sized fields.
func (lw *Lowerer) ConstToExprZeroSize(st *state.ExecutionState, c constant.Constant) (*expr.Expr, error) {
	return lw.constToExprZeroSize(st, c)
}

func (lw *Lowerer) constToExprZeroSize(st *state.ExecutionState, c constant.Constant) (*expr.Expr, error) {
	ctx := st.Ctx
	switch x := c.(type) {
	case *ir.Global:
		return lw.globalAddress(st, project.WrapValue(x))
	case *ir.Func:
		return lw.globalAddress(st, project.WrapValue(x))

	case *constant.Int:
		e := ctx.ConstBig(x.X, project.WrapType(x.Typ).IntBits())
		return &e, nil

	case *constant.Null:
		return lw.zeroOf(ctx, project.WrapType(x.Typ))
	case *constant.ZeroInitializer:
		return lw.zeroOf(ctx, project.WrapType(x.Typ))
	case *constant.Undef:
		// Undef is modeled as the zero bit-pattern: any well-behaved
		// program must tolerate every concrete value, so zero is as
		// valid a witness as any other and keeps the solver simple.
		return lw.zeroOf(ctx, project.WrapType(x.Typ))
	case *constant.Poison:
		return lw.zeroOf(ctx, project.WrapType(x.Typ))

	case *constant.CharArray:
		elems := make([]*expr.Expr, len(x.X))
		for i, b := range x.X {
			e := ctx.Const(uint64(b), 8)
			elems[i] = &e
		}
		return concatPacked(elems), nil
	case *constant.Array:
		return lw.lowerAggregate(st, x.Elems)
	case *constant.Vector:
		return lw.lowerAggregate(st, x.Elems)
	case *constant.Struct:
		return lw.lowerAggregate(st, x.Fields)

	case *constant.ExprAdd:
		return lw.binConst(st, x.X, x.Y, expr.Expr.Add)
	case *constant.ExprSub:
		return lw.binConst(st, x.X, x.Y, expr.Expr.Sub)
	case *constant.ExprMul:
		return lw.binConst(st, x.X, x.Y, expr.Expr.Mul)
	case *constant.ExprUDiv:
		return lw.binConst(st, x.X, x.Y, expr.Expr.UDiv)
	case *constant.ExprSDiv:
		return lw.binConst(st, x.X, x.Y, expr.Expr.SDiv)
	case *constant.ExprURem:
		return lw.binConst(st, x.X, x.Y, expr.Expr.URem)
	case *constant.ExprSRem:
		return lw.binConst(st, x.X, x.Y, expr.Expr.SRem)
	case *constant.ExprAnd:
		return lw.binConst(st, x.X, x.Y, expr.Expr.And)
	case *constant.ExprOr:
		return lw.binConst(st, x.X, x.Y, expr.Expr.Or)
	case *constant.ExprXor:
		return lw.binConst(st, x.X, x.Y, expr.Expr.Xor)
	case *constant.ExprShl:
		return lw.binConst(st, x.X, x.Y, expr.Expr.Shl)
	case *constant.ExprLShr:
		return lw.binConst(st, x.X, x.Y, expr.Expr.LShr)
	case *constant.ExprAShr:
		return lw.binConst(st, x.X, x.Y, expr.Expr.AShr)

	case *constant.ExprICmp:
		return lw.icmpConst(st, x.Pred, x.X, x.Y)

	case *constant.ExprTrunc:
		return lw.castConst(st, x.From, project.WrapType(x.To), func(e expr.Expr, w uint32) (expr.Expr, error) {
			return e.Slice(0, w-1)
		})
	case *constant.ExprZExt:
		return lw.castConst(st, x.From, project.WrapType(x.To), expr.Expr.ZExt)
	case *constant.ExprSExt:
		return lw.castConst(st, x.From, project.WrapType(x.To), expr.Expr.SExt)
	case *constant.ExprPtrToInt:
		return lw.castConst(st, x.From, project.WrapType(x.To), func(e expr.Expr, w uint32) (expr.Expr, error) {
			return e.Resize(w), nil
		})
	case *constant.ExprIntToPtr:
		return lw.castConst(st, x.From, project.WrapType(x.To), func(e expr.Expr, w uint32) (expr.Expr, error) {
			return e.Resize(w), nil
		})
	case *constant.ExprBitCast:
		return lw.constToExprZeroSize(st, x.From)
	case *constant.ExprAddrSpaceCast:
		return lw.constToExprZeroSize(st, x.From)

	case *constant.ExprExtractValue:
		agg, err := lw.ConstToExpr(st, x.X)
		if err != nil {
			return nil, err
		}
		aggType := project.WrapType(x.X.Type())
		offset, field, err := FieldOffset(lw.oracle, aggType, x.Indices)
		if err != nil {
			return nil, err
		}
		width, err := lw.oracle.BitSize(field)
		if err != nil {
			return nil, err
		}
		if width == 0 {
			return nil, nil
		}
		e, err := agg.Slice(uint32(offset), uint32(offset+width-1))
		if err != nil {
			return nil, err
		}
		return &e, nil

	case *constant.ExprInsertValue:
		agg, err := lw.ConstToExpr(st, x.X)
		if err != nil {
			return nil, err
		}
		elem, err := lw.ConstToExpr(st, x.Elem)
		if err != nil {
			return nil, err
		}
		aggType := project.WrapType(x.X.Type())
		offset, _, err := FieldOffset(lw.oracle, aggType, x.Indices)
		if err != nil {
			return nil, err
		}
		e, err := agg.ReplacePart(uint32(offset), elem)
		if err != nil {
			return nil, err
		}
		return &e, nil

	case *constant.ExprExtractElement:
		vec, err := lw.ConstToExpr(st, x.X)
		if err != nil {
			return nil, err
		}
		idx, ok := x.Index.(*constant.Int)
		if !ok {
			return nil, &ErrMalformedInstruction{Reason: "symbolic extractelement index"}
		}
		vecType := project.WrapType(x.X.Type())
		offset, field, err := FieldOffset(lw.oracle, vecType, []uint64{idx.X.Uint64()})
		if err != nil {
			return nil, err
		}
		width, err := lw.oracle.BitSize(field)
		if err != nil {
			return nil, err
		}
		e, err := vec.Slice(uint32(offset), uint32(offset+width-1))
		if err != nil {
			return nil, err
		}
		return &e, nil

	case *constant.ExprInsertElement:
		vec, err := lw.ConstToExpr(st, x.X)
		if err != nil {
			return nil, err
		}
		elem, err := lw.ConstToExpr(st, x.Elem)
		if err != nil {
			return nil, err
		}
		idx, ok := x.Index.(*constant.Int)
		if !ok {
			return nil, &ErrMalformedInstruction{Reason: "symbolic insertelement index"}
		}
		vecType := project.WrapType(x.X.Type())
		offset, _, err := FieldOffset(lw.oracle, vecType, []uint64{idx.X.Uint64()})
		if err != nil {
			return nil, err
		}
		e, err := vec.ReplacePart(uint32(offset), elem)
		if err != nil {
			return nil, err
		}
		return &e, nil

	case *constant.ExprShuffleVector:
		return lw.shuffleConst(st, x)

	case *constant.ExprSelect:
		cond, err := lw.ConstToExpr(st, x.Cond)
		if err != nil {
			return nil, err
		}
		b, ok := cond.GetConstantBool()
		if !ok {
			return nil, &ErrMalformedInstruction{Reason: "non-constant select condition in a constant expression"}
		}
		if b {
			return lw.constToExprZeroSize(st, x.X)
		}
		return lw.constToExprZeroSize(st, x.Y)

	case *constant.ExprGetElementPtr:
		base, err := lw.ConstToExpr(st, x.Src)
		if err != nil {
			return nil, err
		}
		baseType := project.WrapType(x.Src.Type()).Elem()
		indices := make([]expr.Expr, len(x.Indices))
		for i, ic := range x.Indices {
			v, err := lw.ConstToExpr(st, ic)
			if err != nil {
				return nil, err
			}
			indices[i] = v
		}
		e, err := GEPAddress(ctx, lw.oracle, lw.ptrWidth, base, baseType, indices)
		if err != nil {
			return nil, err
		}
		return &e, nil

	default:
		return nil, &ErrUnsupportedConstant{Kind: c.Ident()}
	}
}

func (lw *Lowerer) lowerAggregate(st *state.ExecutionState, fields []constant.Constant) (*expr.Expr, error) {
	elems := make([]*expr.Expr, len(fields))
	for i, f := range fields {
		e, err := lw.constToExprZeroSize(st, f)
		if err != nil {
			return nil, err
		}
		elems[i] = e
	}
	return concatPacked(elems), nil
}

func (lw *Lowerer) binConst(st *state.ExecutionState, x, y constant.Constant, op func(expr.Expr, expr.Expr) (expr.Expr, error)) (*expr.Expr, error) {
	lhs, err := lw.ConstToExpr(st, x)
	if err != nil {
		return nil, err
	}
	rhs, err := lw.ConstToExpr(st, y)
	if err != nil {
		return nil, err
	}
	e, err := op(lhs, rhs)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (lw *Lowerer) icmpConst(st *state.ExecutionState, pred enum.IPred, x, y constant.Constant) (*expr.Expr, error) {
	lhs, err := lw.ConstToExpr(st, x)
	if err != nil {
		return nil, err
	}
	rhs, err := lw.ConstToExpr(st, y)
	if err != nil {
		return nil, err
	}
	var e expr.Expr
	switch pred {
	case enum.IPredEQ:
		e, err = lhs.Eq(rhs)
	case enum.IPredNE:
		e, err = lhs.Ne(rhs)
	case enum.IPredUGT:
		e, err = lhs.Ugt(rhs)
	case enum.IPredUGE:
		e, err = lhs.Uge(rhs)
	case enum.IPredULT:
		e, err = lhs.Ult(rhs)
	case enum.IPredULE:
		e, err = lhs.Ule(rhs)
	case enum.IPredSGT:
		e, err = lhs.Sgt(rhs)
	case enum.IPredSGE:
		e, err = lhs.Sge(rhs)
	case enum.IPredSLT:
		e, err = lhs.Slt(rhs)
	case enum.IPredSLE:
		e, err = lhs.Sle(rhs)
	default:
		return nil, &ErrUnsupportedConstant{Kind: "floating-point icmp predicate"}
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (lw *Lowerer) castConst(st *state.ExecutionState, from constant.Constant, to project.Type, op func(expr.Expr, uint32) (expr.Expr, error)) (*expr.Expr, error) {
	v, err := lw.ConstToExpr(st, from)
	if err != nil {
		return nil, err
	}
	width, err := lw.oracle.BitSize(to)
	if err != nil {
		return nil, err
	}
	e, err := op(v, uint32(width))
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (lw *Lowerer) shuffleConst(st *state.ExecutionState, x *constant.ExprShuffleVector) (*expr.Expr, error) {
	xv, ok := x.X.(*constant.Vector)
	if !ok {
		return nil, &ErrMalformedInstruction{Reason: "shufflevector operand is not a constant vector"}
	}
	yv, ok := x.Y.(*constant.Vector)
	if !ok {
		return nil, &ErrMalformedInstruction{Reason: "shufflevector operand is not a constant vector"}
	}
	mask, ok := x.Mask.(*constant.Vector)
	if !ok {
		return nil, &ErrMalformedInstruction{Reason: "shufflevector mask is not constant"}
	}

	combined := append(append([]constant.Constant{}, xv.Elems...), yv.Elems...)
	picked := make([]constant.Constant, len(mask.Elems))
	for i, m := range mask.Elems {
		idxConst, ok := m.(*constant.Int)
		if !ok {
			// An undef mask element: reuse the first source element's
			// type by picking index 0, matching "value is unspecified".
			picked[i] = combined[0]
			continue
		}
		idx := idxConst.X.Uint64()
		if idx >= uint64(len(combined)) {
			return nil, &ErrMalformedInstruction{Reason: "shufflevector mask index out of range"}
		}
		picked[i] = combined[idx]
	}
	return lw.lowerAggregate(st, picked)
}

func (lw *Lowerer) zeroOf(ctx *expr.Context, t project.Type) (*expr.Expr, error) {
	width, err := lw.oracle.BitSize(t)
	if err != nil {
		return nil, err
	}
	if width == 0 {
		return nil, nil
	}
	e := ctx.Zero(uint32(width))
	return &e, nil
}
