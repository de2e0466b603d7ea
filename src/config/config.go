// Package config parses the command-line configuration for one symbolic
// execution run, in the same manual flag-loop shape the teacher used for
// its compiler driver (src/util/args.go).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"symex/src/exec"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Config is everything the driver needs to load a project and run it.
type Config struct {
	Inputs []string // Paths to LLVM IR assembly (.ll) modules.
	Entry  string    // Name of the entry function.

	Limits    exec.Limits
	NullCheck bool // Reject load/store addresses the solver cannot prove non-null.
	Verbose   bool
}

// ---------------------
// ----- Constants -----
// ---------------------

const appVersion = "symex 1.0"

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses os.Args, exiting the process for -h/-help and
// -v/-version same as the teacher's driver did.
func ParseArgs() (Config, error) {
	cfg := Config{Limits: exec.DefaultLimits()}
	if len(os.Args) < 2 {
		return cfg, fmt.Errorf("no input modules given")
	}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-entry":
			if i1+1 >= len(args) {
				return cfg, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			cfg.Entry = args[i1+1]
			i1++
		case "-call-depth":
			n, err := nextInt(args, &i1)
			if err != nil {
				return cfg, err
			}
			cfg.Limits.CallDepth = n
		case "-max-iter":
			n, err := nextInt(args, &i1)
			if err != nil {
				return cfg, err
			}
			cfg.Limits.MaxIterCount = n
		case "-addr-bound":
			n, err := nextInt(args, &i1)
			if err != nil {
				return cfg, err
			}
			cfg.Limits.AddrUpperBound = n
		case "-fnptr-bound":
			n, err := nextInt(args, &i1)
			if err != nil {
				return cfg, err
			}
			cfg.Limits.MaxFnPtrResolutions = n
		case "-null-check":
			cfg.NullCheck = true
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-vb":
			cfg.Verbose = true
		default:
			if strings.HasPrefix(args[i1], "-") {
				return cfg, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			cfg.Inputs = append(cfg.Inputs, args[i1])
		}
	}
	if len(cfg.Inputs) == 0 {
		return cfg, fmt.Errorf("no input modules given")
	}
	if cfg.Entry == "" {
		cfg.Entry = "main"
	}
	return cfg, nil
}

// nextInt consumes the flag argument following args[*i1] as an integer,
// advancing *i1 past it.
func nextInt(args []string, i1 *int) (int, error) {
	if *i1+1 >= len(args) {
		return 0, fmt.Errorf("got flag %s but no argument", args[*i1])
	}
	n, err := strconv.Atoi(args[*i1+1])
	if err != nil {
		return 0, fmt.Errorf("expected integer argument for %s, got: %s", args[*i1], args[*i1+1])
	}
	*i1++
	return n, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits.")
	_, _ = fmt.Fprintln(w, "-entry\tName of the entry function to explore. Defaults to 'main'.")
	_, _ = fmt.Fprintln(w, "-call-depth\tMaximum call-stack depth before a path fails.")
	_, _ = fmt.Fprintln(w, "-max-iter\tMaximum entries into one basic block before a path fails.")
	_, _ = fmt.Fprintln(w, "-addr-bound\tMaximum number of concrete addresses a symbolic pointer is allowed to resolve to.")
	_, _ = fmt.Fprintln(w, "-fnptr-bound\tMaximum number of concrete callees a symbolic call target is allowed to resolve to.")
	_, _ = fmt.Fprintln(w, "-null-check\tReject addresses the solver cannot prove non-null.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits.")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: print progress to stdout.")
	_ = w.Flush()
}
