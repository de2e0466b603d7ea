package exec

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"symex/src/expr"
	"symex/src/intrinsics"
	"symex/src/pathresult"
	"symex/src/pathsel"
	"symex/src/project"
	"symex/src/state"
)

// ---------------------
// ----- Functions -----
// ---------------------

// branchTo moves f's instruction pointer to the start of target, charging
// one entry against the block-entry-count throttle (spec.md §4.4
// "Basic-block entry-count throttle"). The source block is checked against
// target's statically known predecessors first: every branch the executor
// itself takes must correspond to a real CFG edge, so a mismatch here means
// the IR terminator and the project's own block graph disagree.
func (ex *Executor) branchTo(st *state.ExecutionState, f *state.Frame, target *ir.Block) error {
	source := f.Loc.Block
	if source != nil {
		preds := st.Project.Predecessors(f.Func, target)
		found := false
		for _, p := range preds {
			if p == source {
				found = true
				break
			}
		}
		if !found {
			return &ErrMalformedIR{Reason: fmt.Sprintf("block %s branched to %s, which does not list it as a predecessor", source.Name(), target.Name())}
		}
	}
	n := f.EnterBlock(target)
	if n > ex.Limits.MaxIterCount {
		return &ErrLoopBoundExceeded{Limit: ex.Limits.MaxIterCount}
	}
	f.Loc = state.Location{Block: target, InstIndex: 0, PrevBlock: source}
	return nil
}

// doReturn pops the active activation and, if a caller remains, binds its
// pending call/invoke result register and lets it resume where it already
// parked its Location (spec.md §4.5 "Return").
func (ex *Executor) doReturn(st *state.ExecutionState, retVal *expr.Expr) (*pathresult.Result, error) {
	st.PopFrame()
	caller := st.Active()
	if caller == nil {
		r := pathresult.Return(retVal)
		return &r, nil
	}
	if pending, ok := caller.TakePendingResult(); ok && retVal != nil {
		caller.Bind(pending, *retVal)
	}
	return nil, nil
}

func (ex *Executor) stepTerminator(st *state.ExecutionState, f *state.Frame, paths *pathsel.Stack) (*pathresult.Result, error) {
	switch term := f.Loc.Block.Term.(type) {
	case *ir.TermRet:
		var retVal *expr.Expr
		if term.X != nil {
			v, err := ex.get(st, f, term.X)
			if err != nil {
				return nil, err
			}
			retVal = &v
		}
		return ex.doReturn(st, retVal)

	case *ir.TermBr:
		if err := ex.branchTo(st, f, term.Target); err != nil {
			return nil, err
		}
		return nil, nil

	case *ir.TermCondBr:
		return ex.stepCondBr(st, f, term, paths)

	case *ir.TermSwitch:
		return ex.stepSwitch(st, f, term, paths)

	case *ir.TermUnreachable:
		r := pathresult.Fail(&ErrUnreachable{})
		return &r, nil

	case *ir.TermInvoke:
		return ex.stepInvoke(st, f, term, paths)

	default:
		r := pathresult.Fail(&ErrUnsupportedInstruction{Kind: fmt.Sprintf("%T", term)})
		return &r, nil
	}
}

// stepCondBr implements the fork point at a conditional branch (spec.md
// §4.6 "Path Fork & Selection"): if both arms are satisfiable, the
// not-taken arm is saved as a new suspended state with its guard asserted,
// and the current state continues down the taken arm with its own guard
// asserted.
func (ex *Executor) stepCondBr(st *state.ExecutionState, f *state.Frame, term *ir.TermCondBr, paths *pathsel.Stack) (*pathresult.Result, error) {
	cond, err := ex.get(st, f, term.Cond)
	if err != nil {
		return nil, err
	}
	cond = cond.Simplify()

	if b, ok := cond.GetConstantBool(); ok {
		target := term.TargetFalse
		if b {
			target = term.TargetTrue
		}
		if err := ex.branchTo(st, f, target); err != nil {
			return nil, err
		}
		return nil, nil
	}

	notCond := cond.Not()
	satTrue, err := st.Solver.IsSatWithConstraint(cond)
	if err != nil {
		return nil, err
	}
	satFalse, err := st.Solver.IsSatWithConstraint(notCond)
	if err != nil {
		return nil, err
	}

	switch {
	case satTrue && satFalse:
		clone := st.Clone()
		cloneFrame := clone.Active()
		clone.Solver.Assert(notCond)
		if err := ex.branchTo(st, cloneFrame, term.TargetFalse); err == nil {
			paths.Push(clone)
		}
		st.Solver.Assert(cond)
		if err := ex.branchTo(st, f, term.TargetTrue); err != nil {
			return nil, err
		}
		return nil, nil
	case satTrue:
		if err := ex.branchTo(st, f, term.TargetTrue); err != nil {
			return nil, err
		}
		return nil, nil
	case satFalse:
		if err := ex.branchTo(st, f, term.TargetFalse); err != nil {
			return nil, err
		}
		return nil, nil
	default:
		r := pathresult.Fail(&ErrUnsat{})
		return &r, nil
	}
}

// switchCandidate pairs a case's guard (cond == case value, or the
// conjunction of all inequalities for the default case) with its target.
type switchCandidate struct {
	guard  expr.Expr
	target *ir.Block
}

// stepSwitch is the same save/continue fork logic as stepCondBr, extended
// to a switch's N+1 arms: every satisfiable arm but one is saved with its
// own guard asserted, and the remaining one continues with its guard
// asserted on the current state.
func (ex *Executor) stepSwitch(st *state.ExecutionState, f *state.Frame, term *ir.TermSwitch, paths *pathsel.Stack) (*pathresult.Result, error) {
	cond, err := ex.get(st, f, term.X)
	if err != nil {
		return nil, err
	}

	candidates := make([]switchCandidate, 0, len(term.Cases)+1)
	noneMatched := st.Ctx.Bool(true)
	for _, cs := range term.Cases {
		v, err := ex.get(st, f, cs.X)
		if err != nil {
			return nil, err
		}
		eq, err := cond.Eq(v)
		if err != nil {
			return nil, err
		}
		ne, err := cond.Ne(v)
		if err != nil {
			return nil, err
		}
		noneMatched, err = noneMatched.And(ne)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, switchCandidate{guard: eq, target: cs.Target})
	}
	candidates = append(candidates, switchCandidate{guard: noneMatched, target: term.TargetDefault})

	var satisfiable []int
	for i, c := range candidates {
		ok, err := st.Solver.IsSatWithConstraint(c.guard)
		if err != nil {
			return nil, err
		}
		if ok {
			satisfiable = append(satisfiable, i)
		}
	}
	if len(satisfiable) == 0 {
		r := pathresult.Fail(&ErrUnsat{})
		return &r, nil
	}

	chosen := satisfiable[0]
	for _, idx := range satisfiable[1:] {
		clone := st.Clone()
		cloneFrame := clone.Active()
		clone.Solver.Assert(candidates[idx].guard)
		if err := ex.branchTo(st, cloneFrame, candidates[idx].target); err == nil {
			paths.Push(clone)
		}
	}
	st.Solver.Assert(candidates[chosen].guard)
	if err := ex.branchTo(st, f, candidates[chosen].target); err != nil {
		return nil, err
	}
	return nil, nil
}

// stepInvoke lowers invoke to a call followed by an unconditional branch
// to the normal return destination: the unwind edge is never taken, a
// deliberate redesign documented in the design ledger rather than
// modeling exception propagation.
func (ex *Executor) stepInvoke(st *state.ExecutionState, f *state.Frame, term *ir.TermInvoke, paths *pathsel.Stack) (*pathresult.Result, error) {
	fn, err := ex.resolveCallee(st, f, term.Invokee, paths)
	if err != nil {
		return nil, err
	}
	name := fn.Name()

	hook, hasHook := ex.Intrinsics.Lookup(name)
	useHook := intrinsics.IsIntrinsic(name) || (hasHook && len(fn.Blocks) == 0)

	if useHook {
		if !hasHook {
			return nil, &ErrFunctionNotFound{Name: name}
		}
		args := make([]project.Value, len(term.Args))
		for i, a := range term.Args {
			args[i] = project.WrapValue(a)
		}
		call, err := hook(st, ex.Lowerer, f, args)
		if err != nil {
			return nil, err
		}
		if call.Terminate {
			return &call.Result, nil
		}
		if call.Value != nil {
			f.Bind(project.WrapValue(term), *call.Value)
		}
		if err := ex.branchTo(st, f, term.NormalRetTarget); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if len(fn.Blocks) == 0 {
		return nil, &ErrFunctionNotFound{Name: name + ": declaration with no body and no hook"}
	}
	if st.Depth() >= ex.Limits.CallDepth {
		return nil, &ErrCallDepthExceeded{Limit: ex.Limits.CallDepth}
	}

	argExprs := make([]expr.Expr, len(term.Args))
	for i, a := range term.Args {
		v, err := ex.get(st, f, a)
		if err != nil {
			return nil, err
		}
		argExprs[i] = v
	}

	if err := ex.branchTo(st, f, term.NormalRetTarget); err != nil {
		return nil, err
	}
	f.SetPendingResult(project.WrapValue(term))

	callee := st.PushFrame(fn)
	for i, p := range fn.Params {
		if i < len(argExprs) {
			callee.Bind(project.WrapValue(p), argExprs[i])
		}
	}
	return nil, nil
}
