package main

import (
	"fmt"
	"os"

	"symex/src/config"
	"symex/src/diag"
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

// run loads cfg's input modules, builds the initial path at its entry
// function, and explores every reachable path, returning an error when any
// path failed. Behaviour is defined by the config.Config structure.
func run(cfg config.Config) error {
	p, err := project.Load(project.DefaultPointerWidth, cfg.Inputs...)
	if err != nil {
		return fmt.Errorf("could not load input modules: %w", err)
	}

	ctx := expr.NewContext()
	mem := memory.New(ctx, p.PointerWidth(), cfg.NullCheck)
	oracle := sizeof.NewOracle(p.PointerWidth())

	globals, err := state.NewGlobalEnv(p, mem, oracle)
	if err != nil {
		return fmt.Errorf("could not initialise globals: %w", err)
	}

	lowerer := operand.New(oracle, globals, p.PointerWidth())
	table := intrinsics.NewDefault()
	ex := exec.New(oracle, lowerer, table, cfg.Limits)

	initial, err := engine.NewInitialState(p, ctx, oracle, globals, mem, expr.NewRangeSolver(), cfg.Entry)
	if err != nil {
		return fmt.Errorf("could not build initial state: %w", err)
	}

	if cfg.Verbose {
		fmt.Printf("exploring from %s\n", cfg.Entry)
	}

	eng := engine.New(ex)
	report := diag.PrintStream(os.Stdout, eng.Run(initial))
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d path(s) failed", len(report.Failed))
	}
	return nil
}

func main() {
	cfg, err := config.ParseArgs()
	if err != nil {
		fmt.Printf("command line argument error: %s\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
}
