package engine

import (
	"fmt"

	"symex/src/expr"
	"symex/src/memory"
	"symex/src/project"
	"symex/src/sizeof"
	"symex/src/state"
)

// ---------------------
// ----- Functions -----
// ---------------------

// NewInitialState builds the single starting path for entryName (spec.md
// §3 "its parameters ... are treated as symbolic inputs"): every
// parameter of the entry function becomes a fresh free variable named
// after its register, and the call stack starts with one activation for
// entryName with those parameters already bound. ctx, mem and solver must
// already share the same expr.Context the caller built mem with.
func NewInitialState(p *project.Project, ctx *expr.Context, oracle *sizeof.Oracle, globals *state.GlobalEnv, mem *memory.Memory, solver expr.Solver, entryName string) (*state.ExecutionState, error) {
	entry, ok := p.LookupFunction(entryName)
	if !ok {
		return nil, fmt.Errorf("engine: entry function %q not found", entryName)
	}

	st := state.NewExecutionState(p, ctx, solver, mem, globals)

	f := st.PushFrame(entry)
	for _, param := range entry.Params {
		pt := project.WrapType(param.Type())
		width, err := oracle.BitSize(pt)
		if err != nil {
			return nil, fmt.Errorf("engine: entry parameter %s: %w", param.Name(), err)
		}
		if width == 0 {
			continue
		}
		name := param.Name()
		if name == "" {
			name = fmt.Sprintf("arg%d", len(st.SymbolicInputs))
		}
		sym := ctx.Symbol(name, uint32(width))
		st.MarkSymbolicInput(name)
		f.Bind(project.WrapValue(param), sym)
	}

	return st, nil
}
