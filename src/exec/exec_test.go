package exec

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"symex/src/expr"
	"symex/src/intrinsics"
	"symex/src/memory"
	"symex/src/operand"
	"symex/src/pathresult"
	"symex/src/pathsel"
	"symex/src/project"
	"symex/src/sizeof"
	"symex/src/state"
)

// loadModule parses src as a standalone LLVM IR module and returns a fresh
// Executor plus one ExecutionState positioned at entry, with every scalar
// parameter of entry bound to a freshly introduced symbolic input.
func loadModule(t *testing.T, src, entry string) (*Executor, *state.ExecutionState) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "m.ll")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("write module: %s", err)
	}

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
	ex := New(oracle, lowerer, intrinsics.NewDefault(), DefaultLimits())

	fn, ok := p.LookupFunction(entry)
	if !ok {
		t.Fatalf("entry function %q not found", entry)
	}
	st := state.NewExecutionState(p, ctx, expr.NewRangeSolver(), mem, globals)
	f := st.PushFrame(fn)
	for _, param := range fn.Params {
		pt := project.WrapType(param.Type())
		width, err := oracle.BitSize(pt)
		if err != nil {
			t.Fatalf("param width: %s", err)
		}
		sym := ctx.Symbol(param.Name(), uint32(width))
		st.MarkSymbolicInput(param.Name())
		f.Bind(project.WrapValue(param), sym)
	}
	return ex, st
}

// runToCompletion drives every path reachable from initial to a terminal
// result, single-threaded and in-process (no engine package dependency),
// for tests that only need to assert on the resulting outcomes.
func runToCompletion(t *testing.T, ex *Executor, initial *state.ExecutionState) []pathresult.Result {
	t.Helper()
	var results []pathresult.Result
	paths := &pathsel.Stack{}
	paths.Push(initial)
	for {
		st := paths.Pop()
		if st == nil {
			return results
		}
		for {
			r, err := ex.Step(st, paths)
			if err != nil {
				results = append(results, pathresult.Fail(err))
				break
			}
			if r != nil {
				results = append(results, *r)
				break
			}
		}
	}
}

func constOf(t *testing.T, r pathresult.Result) *big.Int {
	t.Helper()
	if r.Outcome != pathresult.Returned {
		t.Fatalf("expected a returned outcome, got %v (%v)", r.Outcome, r.Err)
	}
	if r.Value == nil {
		t.Fatalf("expected a non-void return value")
	}
	c, ok := r.Value.GetConstant()
	if !ok {
		t.Fatalf("expected a constant return value")
	}
	return c
}

func TestArithmeticAndICmp(t *testing.T) {
	ex, st := loadModule(t, `
define i32 @f(i32 %a, i32 %b) {
entry:
  %s = add i32 %a, %b
  %c = icmp eq i32 %s, 10
  %r = select i1 %c, i32 1, i32 0
  ret i32 %r
}
`, "f")
	results := runToCompletion(t, ex, st)
	if len(results) != 1 {
		t.Fatalf("expected 1 path (select does not fork), got %d", len(results))
	}
	if results[0].Outcome != pathresult.Returned || results[0].Value == nil {
		t.Fatalf("expected a returned value, got %v (%v)", results[0].Outcome, results[0].Err)
	}
	for _, c := range []struct{ a, b, want int64 }{{4, 6, 1}, {3, 5, 0}} {
		got, ok := results[0].Value.Eval(map[string]*big.Int{"a": big.NewInt(c.a), "b": big.NewInt(c.b)}).GetConstant()
		if !ok || got.Int64() != c.want {
			t.Fatalf("a=%d, b=%d: expected %d, got %v", c.a, c.b, c.want, got)
		}
	}
}

func TestGEPLoadStoreAlloca(t *testing.T) {
	ex, st := loadModule(t, `
define i32 @f() {
entry:
  %p = alloca [4 x i32]
  %e1 = getelementptr [4 x i32], [4 x i32]* %p, i32 0, i32 2
  store i32 7, i32* %e1
  %v = load i32, i32* %e1
  ret i32 %v
}
`, "f")
	results := runToCompletion(t, ex, st)
	if len(results) != 1 {
		t.Fatalf("expected exactly one path, got %d", len(results))
	}
	if c := constOf(t, results[0]); c.Int64() != 7 {
		t.Fatalf("expected 7, got %s", c)
	}
}

func TestSymbolicAddressForks(t *testing.T) {
	ex, st := loadModule(t, `
define i32 @f(i32 %i) {
entry:
  %p = alloca [2 x i32]
  %e0 = getelementptr [2 x i32], [2 x i32]* %p, i32 0, i32 0
  %e1 = getelementptr [2 x i32], [2 x i32]* %p, i32 0, i32 1
  store i32 10, i32* %e0
  store i32 20, i32* %e1
  %clamp = and i32 %i, 1
  %addr = getelementptr [2 x i32], [2 x i32]* %p, i32 0, i32 %clamp
  %v = load i32, i32* %addr
  ret i32 %v
}
`, "f")
	results := runToCompletion(t, ex, st)
	if len(results) != 2 {
		t.Fatalf("expected 2 paths (index 0 or 1), got %d", len(results))
	}
	seen := map[int64]bool{}
	for _, r := range results {
		seen[constOf(t, r).Int64()] = true
	}
	if !seen[10] || !seen[20] {
		t.Fatalf("expected both 10 and 20 to appear, got %v", seen)
	}
}

func TestSwitchForksEveryCase(t *testing.T) {
	ex, st := loadModule(t, `
define i32 @f(i32 %x) {
entry:
  switch i32 %x, label %def [ i32 0, label %zero
                               i32 1, label %one ]
zero:
  ret i32 100
one:
  ret i32 200
def:
  ret i32 300
}
`, "f")
	results := runToCompletion(t, ex, st)
	if len(results) != 3 {
		t.Fatalf("expected 3 paths, got %d", len(results))
	}
	seen := map[int64]bool{}
	for _, r := range results {
		seen[constOf(t, r).Int64()] = true
	}
	if !seen[100] || !seen[200] || !seen[300] {
		t.Fatalf("expected 100, 200, and 300 to appear, got %v", seen)
	}
}

func TestCallBindsReturnValue(t *testing.T) {
	ex, st := loadModule(t, `
define i32 @callee(i32 %a) {
entry:
  %r = add i32 %a, 1
  ret i32 %r
}

define i32 @f() {
entry:
  %v = call i32 @callee(i32 41)
  ret i32 %v
}
`, "f")
	results := runToCompletion(t, ex, st)
	if len(results) != 1 {
		t.Fatalf("expected exactly one path, got %d", len(results))
	}
	if c := constOf(t, results[0]); c.Int64() != 42 {
		t.Fatalf("expected 42, got %s", c)
	}
}

func TestCallDepthExceeded(t *testing.T) {
	ex, st := loadModule(t, `
define i32 @rec(i32 %n) {
entry:
  %r = call i32 @rec(i32 %n)
  ret i32 %r
}

define i32 @f() {
entry:
  %v = call i32 @rec(i32 0)
  ret i32 %v
}
`, "f")
	ex.Limits.CallDepth = 4
	results := runToCompletion(t, ex, st)
	if len(results) != 1 {
		t.Fatalf("expected exactly one path, got %d", len(results))
	}
	if results[0].Outcome != pathresult.Failed {
		t.Fatalf("expected the path to fail on call-depth, got %v", results[0].Outcome)
	}
	if _, ok := results[0].Err.(*ErrCallDepthExceeded); !ok {
		t.Fatalf("expected ErrCallDepthExceeded, got %T: %v", results[0].Err, results[0].Err)
	}
}

func TestGlobalInitializerMaterializedOnFirstLoad(t *testing.T) {
	ex, st := loadModule(t, `
@g = global i32 7

define i32 @f() {
entry:
  %v = load i32, i32* @g
  ret i32 %v
}
`, "f")
	results := runToCompletion(t, ex, st)
	if len(results) != 1 {
		t.Fatalf("expected exactly one path, got %d", len(results))
	}
	if c := constOf(t, results[0]); c.Int64() != 7 {
		t.Fatalf("expected the global's initializer 7, got %s", c)
	}
}

// TestMemcpySymbolicLengthConcretizesAndPins checks that llvm.memcpy with a
// symbolic length does not reject the path outright: the length is
// concretized to the one witness the path's constraints already pin it
// to, and the copy proceeds for that many bytes.
func TestMemcpySymbolicLengthConcretizesAndPins(t *testing.T) {
	ex, st := loadModule(t, `
define i32 @f(i64 %n) {
entry:
  %eq = icmp eq i64 %n, 3
  br i1 %eq, label %copy, label %skip
copy:
  %src = alloca i8, i64 4
  %dst = alloca i8, i64 4
  %s0 = getelementptr i8, i8* %src, i32 0
  store i8 1, i8* %s0
  %s1 = getelementptr i8, i8* %src, i32 1
  store i8 2, i8* %s1
  %s2 = getelementptr i8, i8* %src, i32 2
  store i8 3, i8* %s2
  call void @llvm.memcpy.p0i8.p0i8.i64(i8* %dst, i8* %src, i64 %n, i1 false)
  %d2 = getelementptr i8, i8* %dst, i32 2
  %v = load i8, i8* %d2
  %r = zext i8 %v to i32
  ret i32 %r
skip:
  ret i32 -1
}

declare void @llvm.memcpy.p0i8.p0i8.i64(i8*, i8*, i64, i1)
`, "f")
	results := runToCompletion(t, ex, st)
	if len(results) != 2 {
		t.Fatalf("expected 2 paths (n == 3 or not), got %d", len(results))
	}
	seen := map[int64]bool{}
	for _, r := range results {
		seen[constOf(t, r).Int64()] = true
	}
	if !seen[3] {
		t.Fatalf("expected the copy path to read back byte 3, got %v", seen)
	}
	if !seen[0xffffffff] {
		t.Fatalf("expected the skip path to return -1 (0xffffffff as an unsigned i32), got %v", seen)
	}
}

func TestUnreachableFails(t *testing.T) {
	ex, st := loadModule(t, `
define i32 @f() {
entry:
  unreachable
}
`, "f")
	results := runToCompletion(t, ex, st)
	if len(results) != 1 {
		t.Fatalf("expected exactly one path, got %d", len(results))
	}
	if results[0].Outcome != pathresult.Failed {
		t.Fatalf("expected a failed outcome, got %v", results[0].Outcome)
	}
	if _, ok := results[0].Err.(*ErrUnreachable); !ok {
		t.Fatalf("expected ErrUnreachable, got %T", results[0].Err)
	}
}
