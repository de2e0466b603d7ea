package exec

import (
	"fmt"

	"github.com/llir/llvm/ir"
	llvalue "github.com/llir/llvm/ir/value"

	"symex/src/expr"
	"symex/src/pathresult"
	"symex/src/pathsel"
	"symex/src/project"
	"symex/src/state"
)

// ---------------------
// ----- Functions -----
// ---------------------

// Step advances st's active path by exactly one instruction or terminator.
// A nil *pathresult.Result with a nil error means st should be stepped
// again; a non-nil Result means this path has finished (returned, failed,
// or been suppressed) and st should be discarded. Forking decisions push
// newly-cloned suspended states directly onto paths.
func (ex *Executor) Step(st *state.ExecutionState, paths *pathsel.Stack) (*pathresult.Result, error) {
	f := st.Active()
	if f == nil {
		return nil, fmt.Errorf("exec: step called with no active activation")
	}

	if f.Loc.AtTerminator() {
		return ex.stepTerminator(st, f, paths)
	}

	inst := f.Loc.Block.Insts[f.Loc.InstIndex]

	// These five need access to the path stack: a symbolic address may
	// resolve to several concrete candidates, each explored as its own
	// forked continuation of this same instruction (spec.md §4.4
	// "Address resolution").
	switch x := inst.(type) {
	case *ir.InstCall:
		return ex.stepCall(st, f, x, paths)
	case *ir.InstLoad:
		if err := ex.stepLoad(st, f, x, paths); err != nil {
			return nil, err
		}
		f.Loc.InstIndex++
		return nil, nil
	case *ir.InstStore:
		if err := ex.stepStore(st, f, x, paths); err != nil {
			return nil, err
		}
		f.Loc.InstIndex++
		return nil, nil
	case *ir.InstCmpXchg:
		if err := ex.stepCmpXchg(st, f, x, paths); err != nil {
			return nil, err
		}
		f.Loc.InstIndex++
		return nil, nil
	case *ir.InstAtomicRMW:
		if err := ex.stepAtomicRMW(st, f, x, paths); err != nil {
			return nil, err
		}
		f.Loc.InstIndex++
		return nil, nil
	}

	if err := ex.stepInstruction(st, f, inst); err != nil {
		return nil, err
	}
	f.Loc.InstIndex++
	return nil, nil
}

// get lowers operand v against f's register file (spec.md §4.3 "Operand
// resolution"). A zero-sized operand is an error here; getZeroSize is the
// variant for operands that can legally be zero-sized.
func (ex *Executor) get(st *state.ExecutionState, f *state.Frame, v llvalue.Value) (expr.Expr, error) {
	return ex.Lowerer.Get(st, f, project.WrapValue(v))
}

// getZeroSize is like get but tolerates a zero-sized operand, returning a
// nil *expr.Expr rather than an error (spec.md §4.3's "absent value for
// zero-sized operands").
func (ex *Executor) getZeroSize(st *state.ExecutionState, f *state.Frame, v llvalue.Value) (*expr.Expr, error) {
	return ex.Lowerer.GetZeroSize(st, f, project.WrapValue(v))
}

// stepInstruction executes a single non-call, non-terminator instruction
// in place, binding its result register if it produces one.
func (ex *Executor) stepInstruction(st *state.ExecutionState, f *state.Frame, inst ir.Instruction) error {
	switch x := inst.(type) {
	case *ir.InstAdd:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.Add)
	case *ir.InstSub:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.Sub)
	case *ir.InstMul:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.Mul)
	case *ir.InstUDiv:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.UDiv)
	case *ir.InstSDiv:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.SDiv)
	case *ir.InstURem:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.URem)
	case *ir.InstSRem:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.SRem)
	case *ir.InstAnd:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.And)
	case *ir.InstOr:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.Or)
	case *ir.InstXor:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.Xor)
	case *ir.InstShl:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.Shl)
	case *ir.InstLShr:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.LShr)
	case *ir.InstAShr:
		return ex.bindBinary(st, f, x, x.X, x.Y, expr.Expr.AShr)
	case *ir.InstICmp:
		return ex.stepICmp(st, f, x)

	case *ir.InstTrunc:
		return ex.stepConvert(st, f, x, x.From, project.WrapType(x.To), truncOp)
	case *ir.InstZExt:
		return ex.stepConvert(st, f, x, x.From, project.WrapType(x.To), zextOp)
	case *ir.InstSExt:
		return ex.stepConvert(st, f, x, x.From, project.WrapType(x.To), sextOp)
	case *ir.InstPtrToInt:
		return ex.stepConvert(st, f, x, x.From, project.WrapType(x.To), resizeOp)
	case *ir.InstIntToPtr:
		return ex.stepConvert(st, f, x, x.From, project.WrapType(x.To), resizeOp)
	case *ir.InstBitCast:
		return ex.stepIdentity(st, f, x, x.From)
	case *ir.InstAddrSpaceCast:
		return ex.stepIdentity(st, f, x, x.From)

	case *ir.InstExtractValue:
		return ex.stepExtractValue(st, f, x)
	case *ir.InstInsertValue:
		return ex.stepInsertValue(st, f, x)
	case *ir.InstExtractElement:
		return ex.stepExtractElement(st, f, x)
	case *ir.InstInsertElement:
		return ex.stepInsertElement(st, f, x)
	case *ir.InstShuffleVector:
		return ex.stepShuffleVector(st, f, x)

	case *ir.InstSelect:
		return ex.stepSelect(st, f, x)
	case *ir.InstPhi:
		return ex.stepPhi(st, f, x)

	case *ir.InstAlloca:
		return ex.stepAlloca(st, f, x)
	case *ir.InstGetElementPtr:
		return ex.stepGEP(st, f, x)
	case *ir.InstFence:
		return nil

	case *ir.InstFAdd, *ir.InstFSub, *ir.InstFMul, *ir.InstFDiv, *ir.InstFRem, *ir.InstFNeg, *ir.InstFCmp:
		return &ErrUnsupportedInstruction{Kind: "floating point"}
	case *ir.InstFreeze:
		return &ErrUnsupportedInstruction{Kind: "freeze"}
	case *ir.InstVAArg:
		return &ErrUnsupportedInstruction{Kind: "va_arg"}
	case *ir.InstLandingPad, *ir.InstCatchPad, *ir.InstCleanupPad:
		return &ErrUnsupportedInstruction{Kind: "exception-handling pad"}

	default:
		return &ErrUnsupportedInstruction{Kind: fmt.Sprintf("%T", inst)}
	}
}
