package diag

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"symex/src/engine"
	"symex/src/expr"
	"symex/src/pathresult"
)

func TestCollectorBuffersMessages(t *testing.T) {
	c := NewCollector(0)
	c.Logf("path %d explored", 1)
	c.Logf("path %d explored", 2)
	c.Stop()

	entries := c.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0] != "path 1 explored" || entries[1] != "path 2 explored" {
		t.Fatalf("unexpected entries: %v", entries)
	}
	if c.Len() != 2 {
		t.Fatalf("expected Len() == 2, got %d", c.Len())
	}
}

func TestPrintReportFormatsOutcomes(t *testing.T) {
	ctx := expr.NewContext()
	v := ctx.Const(5, 32)

	report := &engine.Report{
		Returned:   []pathresult.Result{pathresult.Return(&v)},
		Failed:     []pathresult.Result{pathresult.Fail(errors.New("division by zero"))},
		Suppressed: 2,
	}

	var buf bytes.Buffer
	PrintReport(&buf, report)

	out := buf.String()
	if !strings.Contains(out, "returned 5") {
		t.Fatalf("expected report to mention the returned value, got: %s", out)
	}
	if !strings.Contains(out, "division by zero") {
		t.Fatalf("expected report to mention the failure reason, got: %s", out)
	}
	if !strings.Contains(out, "1 returned, 1 failed, 2 suppressed") {
		t.Fatalf("expected totals line, got: %s", out)
	}
}
