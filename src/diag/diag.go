// Package diag collects and prints diagnostics for one symbolic execution
// run, following the teacher's channel-based parallel listener shape
// (src/util/perror.go) generalized from collecting plain errors to
// collecting arbitrary diagnostic messages emitted by concurrent workers.
package diag

import (
	"fmt"
	"io"
	"sync"

	"symex/src/engine"
	"symex/src/expr"
	"symex/src/pathresult"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Collector buffers messages reported from worker goroutines, readable
// once collection is stopped.
type Collector struct {
	listen  chan string
	stop    chan struct{}
	entries []string
	sync.Mutex
}

// ----------------------
// ----- Constants ------
// ----------------------

const defaultBufferSize = 16

// ---------------------
// ----- functions -----
// ---------------------

// NewCollector returns a Collector with n pre-allocated slots.
func NewCollector(n int) *Collector {
	if n < 1 {
		n = defaultBufferSize
	}
	c := &Collector{
		listen:  make(chan string),
		stop:    make(chan struct{}),
		entries: make([]string, 0, n),
	}
	go c.run()
	return c
}

func (c *Collector) run() {
	defer close(c.listen)
	for {
		select {
		case msg := <-c.listen:
			c.Lock()
			c.entries = append(c.entries, msg)
			c.Unlock()
		case <-c.stop:
			return
		}
	}
}

// Logf formats and reports one diagnostic message.
func (c *Collector) Logf(format string, args ...interface{}) {
	c.listen <- fmt.Sprintf(format, args...)
}

// Stop signals the collector to stop listening. Entries must not be
// appended after Stop.
func (c *Collector) Stop() {
	defer close(c.stop)
	c.stop <- struct{}{}
}

// Len returns the number of buffered entries.
func (c *Collector) Len() int {
	c.Lock()
	defer c.Unlock()
	return len(c.entries)
}

// Entries returns the buffered messages in report order.
func (c *Collector) Entries() []string {
	c.Lock()
	defer c.Unlock()
	out := make([]string, len(c.entries))
	copy(out, c.entries)
	return out
}

// PrintReport writes a human-readable summary of a completed run to w: one
// line per returned path's value (the constant, "void", or "<symbolic>"
// when it is not a constant) and one line per failed path's reason,
// finishing with totals.
func PrintReport(w io.Writer, r *engine.Report) {
	for i, res := range r.Returned {
		fmt.Fprintf(w, "path %d: returned %s\n", i, formatValue(res.Value))
	}
	for i, res := range r.Failed {
		fmt.Fprintf(w, "path %d: failed: %v\n", i, res.Err)
	}
	fmt.Fprintf(w, "%d returned, %d failed, %d suppressed\n", len(r.Returned), len(r.Failed), r.Suppressed)
}

// PrintStream prints each result to w as it arrives off ch, rather than
// waiting for the whole run to finish (engine.Engine.Run's channel is a
// live stream, not a pre-collected batch), and returns the same kind of
// summary PrintReport would have printed from a finished engine.Report.
func PrintStream(w io.Writer, ch <-chan pathresult.Result) *engine.Report {
	report := &engine.Report{}
	i := 0
	for res := range ch {
		switch res.Outcome {
		case pathresult.Returned:
			fmt.Fprintf(w, "path %d: returned %s\n", i, formatValue(res.Value))
			report.Returned = append(report.Returned, res)
		case pathresult.Failed:
			fmt.Fprintf(w, "path %d: failed: %v\n", i, res.Err)
			report.Failed = append(report.Failed, res)
		case pathresult.Suppressed:
			fmt.Fprintf(w, "path %d: suppressed\n", i)
			report.Suppressed++
		}
		i++
	}
	fmt.Fprintf(w, "%d returned, %d failed, %d suppressed\n", len(report.Returned), len(report.Failed), report.Suppressed)
	return report
}

func formatValue(v *expr.Expr) string {
	if v == nil {
		return "void"
	}
	if c, ok := v.GetConstant(); ok {
		return c.String()
	}
	return "<symbolic>"
}
