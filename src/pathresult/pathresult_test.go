package pathresult

import (
	"errors"
	"testing"

	"symex/src/expr"
)

func TestReturnCarriesValue(t *testing.T) {
	ctx := expr.NewContext()
	v := ctx.Const(7, 32)
	r := Return(&v)
	if r.Outcome != Returned {
		t.Fatalf("expected Returned, got %v", r.Outcome)
	}
	if r.Value == nil {
		t.Fatalf("expected a non-nil return value")
	}
	c, ok := r.Value.GetConstant()
	if !ok || c.Int64() != 7 {
		t.Fatalf("expected the return value to round-trip unchanged, got %v", c)
	}
}

func TestReturnVoid(t *testing.T) {
	r := Return(nil)
	if r.Outcome != Returned {
		t.Fatalf("expected Returned, got %v", r.Outcome)
	}
	if r.Value != nil {
		t.Fatalf("expected a nil value for a void return")
	}
}

func TestFailCarriesError(t *testing.T) {
	err := errors.New("boom")
	r := Fail(err)
	if r.Outcome != Failed {
		t.Fatalf("expected Failed, got %v", r.Outcome)
	}
	if r.Err != err {
		t.Fatalf("expected the error to round-trip unchanged")
	}
}

func TestSuppress(t *testing.T) {
	r := Suppress()
	if r.Outcome != Suppressed {
		t.Fatalf("expected Suppressed, got %v", r.Outcome)
	}
}
