package project

import (
	"github.com/llir/llvm/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Project is a read-only set of loaded LLVM IR modules, the unit the
// executor operates over (spec.md §3 "Module / function / basic block /
// instruction").
type Project struct {
	modules      []*ir.Module
	pointerWidth uint32

	predecessors map[*ir.Func]map[*ir.Block][]*ir.Block
}

// ---------------------
// ----- Constants -----
// ---------------------

// DefaultPointerWidth is used by callers that do not know the target
// data layout; 64 matches every mainstream LLVM target triple.
const DefaultPointerWidth = 64

// ---------------------
// ----- Functions -----
// ---------------------

// NewProject returns an empty project with the given pointer width in bits.
func NewProject(pointerWidth uint32) *Project {
	return &Project{
		pointerWidth: pointerWidth,
		predecessors: make(map[*ir.Func]map[*ir.Block][]*ir.Block),
	}
}

// AddModule appends m to the project.
func (p *Project) AddModule(m *ir.Module) {
	p.modules = append(p.modules, m)
}

// Modules returns every loaded module.
func (p *Project) Modules() []*ir.Module {
	return p.modules
}

// PointerWidth returns the project's pointer width in bits.
func (p *Project) PointerWidth() uint32 {
	return p.pointerWidth
}

// LookupFunction returns the first function named name across every loaded
// module that has a body (non-declaration), matching spec.md §6's
// "entry-function lookup by textual name".
func (p *Project) LookupFunction(name string) (*ir.Func, bool) {
	for _, m := range p.modules {
		for _, f := range m.Funcs {
			if f.Name() == name && len(f.Blocks) > 0 {
				return f, true
			}
		}
	}
	return nil, false
}

// LookupFunctionInModule returns the function named name in the named
// module, matching spec.md §6's "function lookup by (name, module)".
func (p *Project) LookupFunctionInModule(name, module string) (*ir.Func, bool) {
	for _, m := range p.modules {
		if m.SourceFilename != module {
			continue
		}
		for _, f := range m.Funcs {
			if f.Name() == name {
				return f, true
			}
		}
	}
	return nil, false
}

// LookupGlobal returns the global variable named name across every loaded
// module.
func (p *Project) LookupGlobal(name string) (*ir.Global, bool) {
	for _, m := range p.modules {
		for _, g := range m.Globals {
			if g.Name() == name {
				return g, true
			}
		}
	}
	return nil, false
}

// Functions returns every function (declarations included) across every
// loaded module.
func (p *Project) Functions() []*ir.Func {
	var out []*ir.Func
	for _, m := range p.modules {
		out = append(out, m.Funcs...)
	}
	return out
}

// Globals returns every global variable across every loaded module.
func (p *Project) Globals() []*ir.Global {
	var out []*ir.Global
	for _, m := range p.modules {
		out = append(out, m.Globals...)
	}
	return out
}

// Predecessors returns the basic blocks of f that branch to blk, computed
// once per function and cached. Used by the executor's branch check, which
// rejects a branch whose edge is not in f's control-flow graph.
func (p *Project) Predecessors(f *ir.Func, blk *ir.Block) []*ir.Block {
	preds, ok := p.predecessors[f]
	if !ok {
		preds = computePredecessors(f)
		p.predecessors[f] = preds
	}
	return preds[blk]
}

func computePredecessors(f *ir.Func) map[*ir.Block][]*ir.Block {
	preds := make(map[*ir.Block][]*ir.Block, len(f.Blocks))
	addEdge := func(from, to *ir.Block) {
		if to == nil {
			return
		}
		preds[to] = append(preds[to], from)
	}
	for _, b := range f.Blocks {
		switch term := b.Term.(type) {
		case *ir.TermBr:
			addEdge(b, term.Target)
		case *ir.TermCondBr:
			addEdge(b, term.TargetTrue)
			addEdge(b, term.TargetFalse)
		case *ir.TermSwitch:
			addEdge(b, term.TargetDefault)
			for _, c := range term.Cases {
				addEdge(b, c.Target)
			}
		case *ir.TermInvoke:
			addEdge(b, term.NormalRetTarget)
		}
	}
	return preds
}

// Concrete addresses for functions and globals are assigned and owned by
// the global environment (state package); Project itself knows nothing
// about addresses.
