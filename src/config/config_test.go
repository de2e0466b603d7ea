package config

import (
	"os"
	"testing"
)

// withArgs runs fn with os.Args replaced by args for the duration of the
// call, restoring the original afterwards (ParseArgs, like the teacher's
// util.ParseArgs, reads os.Args directly rather than taking a slice).
func withArgs(args []string, fn func()) {
	orig := os.Args
	os.Args = append([]string{orig[0]}, args...)
	defer func() { os.Args = orig }()
	fn()
}

func TestParseArgsDefaults(t *testing.T) {
	var cfg Config
	var err error
	withArgs([]string{"module.ll"}, func() {
		cfg, err = ParseArgs()
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(cfg.Inputs) != 1 || cfg.Inputs[0] != "module.ll" {
		t.Fatalf("expected inputs [module.ll], got %v", cfg.Inputs)
	}
	if cfg.Entry != "main" {
		t.Fatalf("expected default entry 'main', got %q", cfg.Entry)
	}
}

func TestParseArgsEntry(t *testing.T) {
	var cfg Config
	var err error
	withArgs([]string{"-entry", "run", "module.ll"}, func() {
		cfg, err = ParseArgs()
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.Entry != "run" {
		t.Fatalf("expected entry 'run', got %q", cfg.Entry)
	}
}

func TestParseArgsRejectsNoInputs(t *testing.T) {
	var err error
	withArgs([]string{"-entry", "main"}, func() {
		_, err = ParseArgs()
	})
	if err == nil {
		t.Fatalf("expected an error when no input modules are given")
	}
}

func TestParseArgsLimits(t *testing.T) {
	var cfg Config
	var err error
	withArgs([]string{"-call-depth", "10", "-max-iter", "20", "module.ll"}, func() {
		cfg, err = ParseArgs()
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.Limits.CallDepth != 10 {
		t.Fatalf("expected call depth 10, got %d", cfg.Limits.CallDepth)
	}
	if cfg.Limits.MaxIterCount != 20 {
		t.Fatalf("expected max iter count 20, got %d", cfg.Limits.MaxIterCount)
	}
}
