package project

import (
	"fmt"

	"github.com/llir/llvm/asm"
)

// ---------------------
// ----- Functions -----
// ---------------------

// Load parses every path as LLVM IR assembly (.ll) and returns the
// resulting Project. This is the engine's entire "bitcode parser" surface:
// parsing itself is delegated to github.com/llir/llvm/asm, matching
// spec.md §1's "deliberately out of scope... consumes a read-only project".
func Load(pointerWidth uint32, paths ...string) (*Project, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("project: no input modules given")
	}
	p := NewProject(pointerWidth)
	for _, path := range paths {
		m, err := asm.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("project: parse %s: %w", path, err)
		}
		p.AddModule(m)
	}
	return p, nil
}
