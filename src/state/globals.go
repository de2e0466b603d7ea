package state

import (
	"fmt"
	"sync"

	"github.com/llir/llvm/ir"

	"symex/src/expr"
	"symex/src/memory"
	"symex/src/project"
	"symex/src/sizeof"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// addrTab is a symbol table mapping a global or function to its concrete
// address, guarded by a read/write mutex so it can be consulted from
// several concurrently-explored paths (teacher's src/ir/llvm/transform.go
// symTab idiom, generalized from strings to arbitrary LLVM value keys).
type addrTab struct {
	m map[interface{}]expr.Expr
	sync.RWMutex
}

// GlobalEnv is the bijection between globals/functions and concrete
// addresses (spec.md §3 "Global environment"). Addresses are assigned
// once, deterministically, at project load, and the bijection is then
// read-only and shared unmodified by every state cloned thereafter.
//
// Which globals have had their initializer materialized into memory is
// NOT tracked here: spec.md's Execution State description folds that set
// into the per-path state, not the (singly-shared) global environment, so
// it lives on ExecutionState instead (see IsGlobalMaterialized) — two
// paths that fork before either has touched a global must each decide for
// themselves, against their own cloned Memory, whether to write its
// initializer.
type GlobalEnv struct {
	addrs addrTab

	// funcsByAddr is the inverse of addrs restricted to functions, built
	// once at load time since the bijection never changes afterward.
	funcsByAddr map[uint64]*ir.Func
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewGlobalEnv assigns a concrete address to every global variable and
// function in p, in declaration order, allocating their backing storage
// out of mem. Function addresses are opaque one-byte placeholders: the
// engine never dereferences a function address, only compares it for
// call-target resolution (spec.md §3 "Global environment... Function
// addresses are used for function-pointer operands").
func NewGlobalEnv(p *project.Project, mem *memory.Memory, oracle *sizeof.Oracle) (*GlobalEnv, error) {
	env := &GlobalEnv{
		addrs:       addrTab{m: make(map[interface{}]expr.Expr)},
		funcsByAddr: make(map[uint64]*ir.Func),
	}

	for _, g := range p.Globals() {
		elem := project.WrapType(g.ContentType)
		bits, err := oracle.BitSize(elem)
		if err != nil || bits == 0 {
			bits = 8 // opaque or zero-sized content still needs an address.
		}
		addr, err := mem.Allocate(bits, 1)
		if err != nil {
			return nil, fmt.Errorf("state: allocate global %s: %w", g.Ident(), err)
		}
		env.addrs.m[g] = addr
	}

	for _, f := range p.Functions() {
		addr, err := mem.Allocate(8, 1)
		if err != nil {
			return nil, fmt.Errorf("state: allocate function %s: %w", f.Ident(), err)
		}
		env.addrs.m[f] = addr
		if c, ok := addr.GetConstant(); ok {
			env.funcsByAddr[c.Uint64()] = f
		}
	}

	return env, nil
}

// FunctionAt reverse-looks-up the function whose address is addr, used
// when resolving a call through a function-pointer value (spec.md §4.5
// "Call resolution").
func (env *GlobalEnv) FunctionAt(addr uint64) (*ir.Func, bool) {
	env.addrs.RLock()
	defer env.addrs.RUnlock()
	f, ok := env.funcsByAddr[addr]
	return f, ok
}

// Address returns the concrete address assigned to v, which must wrap a
// *ir.Global or *ir.Func.
func (env *GlobalEnv) Address(v project.Value) (expr.Expr, bool) {
	env.addrs.RLock()
	defer env.addrs.RUnlock()

	if g, ok := v.AsGlobal(); ok {
		a, ok := env.addrs.m[g]
		return a, ok
	}
	if f, ok := v.AsFunction(); ok {
		a, ok := env.addrs.m[f]
		return a, ok
	}
	return expr.Expr{}, false
}
