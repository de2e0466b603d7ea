// Package engine schedules symbolic execution across every path reachable
// from one entry function (spec.md §5 "Scheduling"): it pops suspended
// states off a pathsel.Stack, steps each with an exec.Executor until it
// terminates, and streams the resulting pathresult.Results as they are
// produced.
package engine

import (
	"symex/src/exec"
	"symex/src/pathresult"
	"symex/src/pathsel"
	"symex/src/state"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Report is the accumulated outcome of every path explored during one run.
type Report struct {
	Returned   []pathresult.Result
	Failed     []pathresult.Result
	Suppressed int
}

// Engine drives path exploration with a fixed instruction executor.
type Engine struct {
	Exec *exec.Executor
}

// ---------------------
// ----- Functions -----
// ---------------------

// New returns an Engine driven by ex.
func New(ex *exec.Executor) *Engine {
	return &Engine{Exec: ex}
}

// drive steps st until exec.Executor.Step reports a terminal result or
// returns an error, in which case the path is reported failed rather than
// aborting the whole run.
func (ex *Engine) drive(st *state.ExecutionState, stack *pathsel.Stack) pathresult.Result {
	for {
		r, err := ex.Exec.Step(st, stack)
		if err != nil {
			return pathresult.Fail(err)
		}
		if r != nil {
			return *r
		}
	}
}

// Run explores every path reachable from initial, one at a time, strictly
// in LIFO (depth-first) order off one pathsel.Stack (spec.md §5
// "Scheduling... single-threaded and strictly sequential per path"): a
// single goroutine pops a state, drives it to a terminal result (pushing
// any children it forks along the way), streams that result onto the
// returned channel, and repeats until the stack is empty, at which point
// the channel is closed.
//
// Run itself returns immediately; the exploration happens on its own
// goroutine so a caller can begin consuming results before the whole run
// finishes (spec.md §5 "a stream of results").
func (ex *Engine) Run(initial *state.ExecutionState) <-chan pathresult.Result {
	out := make(chan pathresult.Result)
	go func() {
		defer close(out)
		stack := &pathsel.Stack{}
		stack.Push(initial)
		for {
			st := stack.Pop()
			if st == nil {
				return
			}
			out <- ex.drive(st, stack)
		}
	}()
	return out
}

// Collect drains ch into a Report, for callers that want the whole-run
// summary rather than the live stream.
func Collect(ch <-chan pathresult.Result) *Report {
	report := &Report{}
	for r := range ch {
		switch r.Outcome {
		case pathresult.Returned:
			report.Returned = append(report.Returned, r)
		case pathresult.Failed:
			report.Failed = append(report.Failed, r)
		case pathresult.Suppressed:
			report.Suppressed++
		}
	}
	return report
}
