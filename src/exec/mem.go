package exec

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"

	"symex/src/expr"
	"symex/src/operand"
	"symex/src/pathsel"
	"symex/src/project"
	"symex/src/state"
)

// ---------------------
// ----- Functions -----
// ---------------------

// pinAddress asserts that addr equals concrete on st's solver, so a later
// resolution of the same symbolic address on this path is forced to this
// one value.
func (ex *Executor) pinAddress(st *state.ExecutionState, addr expr.Expr, concrete uint64) error {
	eq, err := addr.Eq(st.Memory.AddressConst(concrete))
	if err != nil {
		return err
	}
	st.Solver.Assert(eq)
	return nil
}

// resolveAddress concretizes addr to one address for this step, forking a
// suspended continuation of the same instruction onto paths for every
// other candidate the solver offers (spec.md §4.4 "Address resolution"):
// st continues with the first candidate asserted, each forked state
// carries one of the rest.
func (ex *Executor) resolveAddress(st *state.ExecutionState, addr expr.Expr, paths *pathsel.Stack) (uint64, error) {
	addrs, _, err := st.Memory.ResolveAddresses(st.Solver, addr, ex.Limits.AddrUpperBound)
	if err != nil {
		return 0, err
	}
	if len(addrs) == 0 {
		return 0, &ErrUnsat{}
	}
	if _, isConst := addr.GetConstant(); isConst {
		return addrs[0], nil
	}
	for _, a := range addrs[1:] {
		clone := st.Clone()
		if err := ex.pinAddress(clone, addr, a); err != nil {
			return 0, err
		}
		paths.Push(clone)
	}
	if err := ex.pinAddress(st, addr, addrs[0]); err != nil {
		return 0, err
	}
	return addrs[0], nil
}

func (ex *Executor) stepAlloca(st *state.ExecutionState, f *state.Frame, x *ir.InstAlloca) error {
	elemType := project.WrapType(x.ElemType)
	n := uint64(1)
	if x.NElems != nil {
		nExpr, err := ex.get(st, f, x.NElems)
		if err != nil {
			return err
		}
		c, ok := nExpr.GetConstant()
		if !ok {
			return &ErrMalformedIR{Reason: "alloca: symbolic element count is not supported"}
		}
		n = c.Uint64()
	}
	elemBits, err := ex.Oracle.BitSize(elemType)
	if err != nil {
		return err
	}
	sizeBits := elemBits * n
	if sizeBits == 0 {
		sizeBits = uint64(ex.ptrWidth) // a zero-sized alloca still returns a unique, usable pointer.
	}
	alignBytes := uint64(x.Align)
	if alignBytes == 0 {
		alignBytes = 1
	}
	addr, err := st.Memory.Allocate(sizeBits, alignBytes)
	if err != nil {
		return err
	}
	f.Bind(project.WrapValue(x), addr)
	return nil
}

func (ex *Executor) stepGEP(st *state.ExecutionState, f *state.Frame, x *ir.InstGetElementPtr) error {
	base, err := ex.get(st, f, x.Src)
	if err != nil {
		return err
	}
	baseType := project.WrapType(x.Src.Type()).Elem()
	indices := make([]expr.Expr, len(x.Indices))
	for i, iv := range x.Indices {
		e, err := ex.get(st, f, iv)
		if err != nil {
			return err
		}
		indices[i] = e
	}
	addr, err := operand.GEPAddress(st.Ctx, ex.Oracle, ex.ptrWidth, base, baseType, indices)
	if err != nil {
		return err
	}
	f.Bind(project.WrapValue(x), addr)
	return nil
}

func (ex *Executor) stepLoad(st *state.ExecutionState, f *state.Frame, x *ir.InstLoad, paths *pathsel.Stack) error {
	addr, err := ex.get(st, f, x.Src)
	if err != nil {
		return err
	}
	concrete, err := ex.resolveAddress(st, addr, paths)
	if err != nil {
		return err
	}
	width, err := ex.Oracle.BitSize(project.WrapType(x.Type()))
	if err != nil {
		return err
	}
	val, err := st.Memory.Read(concrete, uint32(width))
	if err != nil {
		return err
	}
	f.Bind(project.WrapValue(x), val)
	return nil
}

func (ex *Executor) stepStore(st *state.ExecutionState, f *state.Frame, x *ir.InstStore, paths *pathsel.Stack) error {
	val, err := ex.get(st, f, x.Src)
	if err != nil {
		return err
	}
	addr, err := ex.get(st, f, x.Dst)
	if err != nil {
		return err
	}
	concrete, err := ex.resolveAddress(st, addr, paths)
	if err != nil {
		return err
	}
	return st.Memory.Write(concrete, val)
}

func (ex *Executor) stepCmpXchg(st *state.ExecutionState, f *state.Frame, x *ir.InstCmpXchg, paths *pathsel.Stack) error {
	ptr, err := ex.get(st, f, x.Ptr)
	if err != nil {
		return err
	}
	expected, err := ex.get(st, f, x.Cmp)
	if err != nil {
		return err
	}
	newVal, err := ex.get(st, f, x.New)
	if err != nil {
		return err
	}
	concrete, err := ex.resolveAddress(st, ptr, paths)
	if err != nil {
		return err
	}
	old, err := st.Memory.Read(concrete, expected.Width())
	if err != nil {
		return err
	}
	cond, err := old.Eq(expected)
	if err != nil {
		return err
	}
	toWrite, err := cond.Ite(newVal, old)
	if err != nil {
		return err
	}
	if err := st.Memory.Write(concrete, toWrite); err != nil {
		return err
	}
	f.Bind(project.WrapValue(x), cond.Concat(old))
	return nil
}

func (ex *Executor) atomicOp(op enum.AtomicOp, old, val expr.Expr) (expr.Expr, error) {
	switch op {
	case enum.AtomicOpXchg:
		return val, nil
	case enum.AtomicOpAdd:
		return old.Add(val)
	case enum.AtomicOpSub:
		return old.Sub(val)
	case enum.AtomicOpAnd:
		return old.And(val)
	case enum.AtomicOpNand:
		and, err := old.And(val)
		if err != nil {
			return expr.Expr{}, err
		}
		return and.Not(), nil
	case enum.AtomicOpOr:
		return old.Or(val)
	case enum.AtomicOpXor:
		return old.Xor(val)
	case enum.AtomicOpMax:
		cond, err := old.Sge(val)
		if err != nil {
			return expr.Expr{}, err
		}
		return cond.Ite(old, val)
	case enum.AtomicOpMin:
		cond, err := old.Sle(val)
		if err != nil {
			return expr.Expr{}, err
		}
		return cond.Ite(old, val)
	case enum.AtomicOpUMax:
		cond, err := old.Uge(val)
		if err != nil {
			return expr.Expr{}, err
		}
		return cond.Ite(old, val)
	case enum.AtomicOpUMin:
		cond, err := old.Ule(val)
		if err != nil {
			return expr.Expr{}, err
		}
		return cond.Ite(old, val)
	default:
		return expr.Expr{}, &ErrUnsupportedInstruction{Kind: "floating-point atomicrmw"}
	}
}

func (ex *Executor) stepAtomicRMW(st *state.ExecutionState, f *state.Frame, x *ir.InstAtomicRMW, paths *pathsel.Stack) error {
	ptr, err := ex.get(st, f, x.Dst)
	if err != nil {
		return err
	}
	val, err := ex.get(st, f, x.X)
	if err != nil {
		return err
	}
	concrete, err := ex.resolveAddress(st, ptr, paths)
	if err != nil {
		return err
	}
	old, err := st.Memory.Read(concrete, val.Width())
	if err != nil {
		return err
	}
	newVal, err := ex.atomicOp(x.Op, old, val)
	if err != nil {
		return err
	}
	if err := st.Memory.Write(concrete, newVal); err != nil {
		return err
	}
	f.Bind(project.WrapValue(x), old)
	return nil
}
