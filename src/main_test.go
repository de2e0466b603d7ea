package main

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"symex/src/engine"
	"symex/src/exec"
	"symex/src/expr"
	"symex/src/intrinsics"
	"symex/src/memory"
	"symex/src/operand"
	"symex/src/project"
	"symex/src/sizeof"
	"symex/src/state"
)

// writeModule writes src to a temporary .ll file and returns its path.
func writeModule(t *testing.T, name, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("could not write module: %s", err)
	}
	return path
}

// buildAndRun wires the same pipeline run() does, without going through
// config.ParseArgs, so tests can supply an entry and module directly.
func buildAndRun(t *testing.T, path, entry string, limits exec.Limits) *engine.Report {
	t.Helper()
	p, err := project.Load(project.DefaultPointerWidth, path)
	if err != nil {
		t.Fatalf("project.Load: %s", err)
	}

	ctx := expr.NewContext()
	mem := memory.New(ctx, p.PointerWidth(), false)
	oracle := sizeof.NewOracle(p.PointerWidth())

	globals, err := state.NewGlobalEnv(p, mem, oracle)
	if err != nil {
		t.Fatalf("state.NewGlobalEnv: %s", err)
	}

	lowerer := operand.New(oracle, globals, p.PointerWidth())
	table := intrinsics.NewDefault()
	ex := exec.New(oracle, lowerer, table, limits)

	initial, err := engine.NewInitialState(p, ctx, oracle, globals, mem, expr.NewRangeSolver(), entry)
	if err != nil {
		t.Fatalf("engine.NewInitialState: %s", err)
	}

	eng := engine.New(ex)
	return engine.Collect(eng.Run(initial))
}

// TestRunReturnsConstant exercises the full load/build/explore pipeline on
// a function with no branches: there should be exactly one returned path
// with the literal return value.
func TestRunReturnsConstant(t *testing.T) {
	path := writeModule(t, "const.ll", `
define i32 @main() {
entry:
  ret i32 42
}
`)
	report := buildAndRun(t, path, "main", exec.DefaultLimits())

	if len(report.Failed) != 0 {
		t.Fatalf("expected no failed paths, got %d: %v", len(report.Failed), report.Failed)
	}
	if len(report.Returned) != 1 {
		t.Fatalf("expected exactly one returned path, got %d", len(report.Returned))
	}
	v := report.Returned[0].Value
	if v == nil {
		t.Fatalf("expected a non-void return value")
	}
	c, ok := v.GetConstant()
	if !ok {
		t.Fatalf("expected a constant return value, got a symbolic one")
	}
	if c.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("expected 42, got %s", c)
	}
}

// TestRunForksOnSymbolicBranch checks that branching on a symbolic input
// produces two returned paths, one per arm.
func TestRunForksOnSymbolicBranch(t *testing.T) {
	path := writeModule(t, "branch.ll", `
define i32 @main(i32 %x) {
entry:
  %c = icmp sgt i32 %x, 0
  br i1 %c, label %pos, label %neg
pos:
  ret i32 1
neg:
  ret i32 0
}
`)
	report := buildAndRun(t, path, "main", exec.DefaultLimits())

	if len(report.Failed) != 0 {
		t.Fatalf("expected no failed paths, got %d: %v", len(report.Failed), report.Failed)
	}
	if len(report.Returned) != 2 {
		t.Fatalf("expected two returned paths, got %d", len(report.Returned))
	}

	seen := map[int64]bool{}
	for _, r := range report.Returned {
		c, ok := r.Value.GetConstant()
		if !ok {
			t.Fatalf("expected a constant return value per path")
		}
		seen[c.Int64()] = true
	}
	if !seen[0] || !seen[1] {
		t.Fatalf("expected both return values 0 and 1 to appear, got %v", seen)
	}
}
