package state

import (
	"github.com/llir/llvm/ir"

	"symex/src/expr"
	"symex/src/project"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// regLayer is a copy-on-write generation of a register file: lookup walks
// from the newest layer to the oldest. Cloning a Frame freezes the current
// layer instead of copying every binding, the same structural-sharing
// trick memory.Memory uses for its byte store (spec.md §9 "State cloning").
type regLayer struct {
	local  map[project.Value]expr.Expr
	parent *regLayer
}

func (l *regLayer) get(v project.Value) (expr.Expr, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		if e, ok := cur.local[v]; ok {
			return e, true
		}
	}
	return expr.Expr{}, false
}

// Location is the instruction pointer within a Frame (spec.md §3
// "Location"): the current basic block, the index of the next instruction
// to execute within it, and the previously-executed block, consulted when
// resolving a phi.
type Location struct {
	Block     *ir.Block
	InstIndex int
	PrevBlock *ir.Block
}

// Frame is one activation record (spec.md §3 "Activation record (stack
// frame)"): the function being executed, its register file mapping Value
// to the bit-vector expression computed for it so far, and the current
// Location.
type Frame struct {
	Func *ir.Func
	Loc  Location
	regs *regLayer

	// entries counts how many times each block has been entered in this
	// activation, consulted by the block-entry-count throttle (spec.md
	// §4.4 "Basic-block entry-count throttle").
	entries map[*ir.Block]int

	// pendingResult, when pendingResultSet, is the call instruction or
	// invoke terminator whose result register should be bound to the
	// return value of the activation about to be pushed above this one.
	// Set by the caller just before PushFrame, consumed once the callee
	// returns — this is what lets a call (resumes in the same block at
	// the next instruction) and an invoke (resumes in its normal-return
	// block) share one return path.
	pendingResult    project.Value
	pendingResultSet bool
}

// ---------------------
// ----- Functions -----
// ---------------------

// AtTerminator reports whether l has advanced past the block's body
// instructions onto its terminator.
func (l Location) AtTerminator() bool {
	return l.Block != nil && l.InstIndex >= len(l.Block.Insts)
}

// NewFrame starts a fresh activation for fn at the entry of its first
// block.
func NewFrame(fn *ir.Func) *Frame {
	var entry *ir.Block
	if len(fn.Blocks) > 0 {
		entry = fn.Blocks[0]
	}
	return &Frame{
		Func:    fn,
		Loc:     Location{Block: entry},
		regs:    &regLayer{local: make(map[project.Value]expr.Expr)},
		entries: make(map[*ir.Block]int),
	}
}

// EnterBlock records entry into b and returns the number of times this
// activation has now entered it (1 on first entry). The block-entry-count
// throttle uses this to bound loop iterations per call, independent of
// whatever budget any other activation of the same function has used.
func (f *Frame) EnterBlock(b *ir.Block) int {
	n := f.entries[b] + 1
	f.entries[b] = n
	return n
}

// SetPendingResult records v as the call or invoke whose register should
// receive the return value of the activation about to be pushed above f.
func (f *Frame) SetPendingResult(v project.Value) {
	f.pendingResult = v
	f.pendingResultSet = true
}

// TakePendingResult returns and clears the pending result set by
// SetPendingResult.
func (f *Frame) TakePendingResult() (project.Value, bool) {
	v, ok := f.pendingResult, f.pendingResultSet
	f.pendingResult, f.pendingResultSet = project.Value{}, false
	return v, ok
}

// Get looks up the expression bound to v, an Instruction or Argument
// Value (spec.md §4.3's "Instruction / Argument" operand-lowering case).
func (f *Frame) Get(v project.Value) (expr.Expr, bool) {
	return f.regs.get(v)
}

// Bind records e as the result of the instruction whose result register
// is v.
func (f *Frame) Bind(v project.Value, e expr.Expr) {
	f.regs.local[v] = e
}

// Clone returns an independent Frame sharing every register bound so far;
// subsequent Binds on either copy are invisible to the other.
func (f *Frame) Clone() *Frame {
	frozen := f.regs
	f.regs = &regLayer{local: make(map[project.Value]expr.Expr), parent: frozen}

	entries := make(map[*ir.Block]int, len(f.entries))
	for b, n := range f.entries {
		entries[b] = n
	}

	return &Frame{
		Func:             f.Func,
		Loc:              f.Loc,
		regs:             &regLayer{local: make(map[project.Value]expr.Expr), parent: frozen},
		entries:          entries,
		pendingResult:    f.pendingResult,
		pendingResultSet: f.pendingResultSet,
	}
}
