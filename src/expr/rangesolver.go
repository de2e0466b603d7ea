package expr

import (
	"fmt"
	"math/big"
)

// varAtom is a single constraint of the shape "symbol OP constant".
type varAtom struct {
	name   string
	width  uint32
	kind   atomKind
	bound  *big.Int
}

// frame is one assertion-stack level: every Assert call in this frame,
// split into atoms the solver can reduce to per-variable interval
// constraints and an opaque residual it cannot.
type frame struct {
	atoms  []varAtom
	opaque []Expr
}

// rangeSolver is the engine's shipped Solver backend (see DESIGN.md for why
// it is stdlib-only). It tracks, per free variable, the conjunction of
// every asserted interval/(in)equality atom that mentions it, and answers
// IsSat/GetValue/GetValues from the resulting feasible set. Constraints
// that do not reduce to "symbol OP constant" (e.g. a comparison between two
// symbols) are kept but never used to prune the feasible set — a documented,
// sound-for-the-common-case approximation rather than a full decision
// procedure.
type rangeSolver struct {
	frames []frame
}

// NewRangeSolver returns the default Solver implementation.
func NewRangeSolver() Solver {
	return &rangeSolver{frames: []frame{{}}}
}

// ---------------------
// ----- Functions -----
// ---------------------

// Push creates a new assertion frame.
func (s *rangeSolver) Push() {
	s.frames = append(s.frames, frame{})
}

// Pop discards the most recently pushed assertion frame.
func (s *rangeSolver) Pop() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
		return
	}
	s.frames[0] = frame{}
}

// Assert adds e as a persistent fact of the current frame.
func (s *rangeSolver) Assert(e Expr) {
	top := len(s.frames) - 1
	if atom, ok := exprToAtom(e); ok {
		s.frames[top].atoms = append(append([]varAtom(nil), s.frames[top].atoms...), atom)
		return
	}
	s.frames[top].opaque = append(append([]Expr(nil), s.frames[top].opaque...), e)
}

// IsSat reports whether every asserted fact can hold simultaneously.
func (s *rangeSolver) IsSat() (bool, error) {
	return s.isSat(nil)
}

// IsSatWithConstraint checks satisfiability with e additionally assumed,
// without persisting it.
func (s *rangeSolver) IsSatWithConstraint(e Expr) (bool, error) {
	extra, ok := exprToAtom(e)
	if !ok {
		if v, isConst := e.GetConstantBool(); isConst {
			if !v {
				return false, nil
			}
			return s.isSat(nil)
		}
		return s.isSat(nil) // opaque: cannot refute, approximate as sat
	}
	return s.isSat([]varAtom{extra})
}

func (s *rangeSolver) isSat(extra []varAtom) (bool, error) {
	sets := s.feasibleSets(extra)
	for _, set := range sets {
		if isEmpty(set) {
			return false, nil
		}
	}
	return true, nil
}

// feasibleSets returns, per free variable referenced by any atom, the set
// of unsigned codes consistent with every atom mentioning it.
func (s *rangeSolver) feasibleSets(extra []varAtom) map[string][]ivl {
	widths := make(map[string]uint32)
	grouped := make(map[string][]varAtom)
	for _, fr := range s.frames {
		for _, a := range fr.atoms {
			grouped[a.name] = append(grouped[a.name], a)
			widths[a.name] = a.width
		}
	}
	for _, a := range extra {
		grouped[a.name] = append(grouped[a.name], a)
		widths[a.name] = a.width
	}
	out := make(map[string][]ivl, len(grouped))
	for name, atoms := range grouped {
		set := fullSet(widths[name])
		for _, a := range atoms {
			set = intersectSets(set, atomToSet(a.kind, a.bound, a.width))
			if isEmpty(set) {
				break
			}
		}
		out[name] = set
	}
	return out
}

// GetValue returns one concrete value of e consistent with every asserted
// fact.
func (s *rangeSolver) GetValue(e Expr) (*big.Int, error) {
	if v, ok := e.GetConstant(); ok {
		return v, nil
	}
	free := e.FreeVariables()
	if len(free) == 0 {
		return nil, fmt.Errorf("get_value: expression has no free variables but is not constant")
	}
	sets := s.feasibleSets(nil)
	assignment := make(map[string]*big.Int, len(free))
	for name, width := range free {
		set, ok := sets[name]
		if !ok {
			set = fullSet(width)
		}
		if isEmpty(set) {
			return nil, &ErrUnknown{Reason: fmt.Sprintf("variable %q has no feasible value", name)}
		}
		assignment[name] = new(big.Int).Set(set[0].lo)
	}
	result := e.Eval(assignment)
	v, ok := result.GetConstant()
	if !ok {
		return nil, fmt.Errorf("get_value: expression did not evaluate to a constant")
	}
	return v, nil
}

// GetValues enumerates up to upperBound distinct concrete values of e
// consistent with every asserted fact.
func (s *rangeSolver) GetValues(e Expr, upperBound int) ([]*big.Int, bool, error) {
	if upperBound <= 0 {
		return nil, true, nil
	}
	if v, ok := e.GetConstant(); ok {
		return []*big.Int{v}, true, nil
	}
	free := e.FreeVariables()
	if len(free) == 0 {
		return nil, true, fmt.Errorf("get_values: expression has no free variables but is not constant")
	}
	sets := s.feasibleSets(nil)

	if len(free) == 1 {
		var name string
		var width uint32
		for n, w := range free {
			name, width = n, w
		}
		set, ok := sets[name]
		if !ok {
			set = fullSet(width)
		}
		return enumerateSingleVar(e, name, set, upperBound)
	}
	return enumerateMultiVar(e, free, sets, upperBound)
}

func enumerateSingleVar(e Expr, name string, set []ivl, upperBound int) ([]*big.Int, bool, error) {
	seen := make(map[string]bool)
	var results []*big.Int
	exact := true
	budget := upperBound * 4 // sample a bit past upperBound to notice "more exist"
	if budget < upperBound {
		budget = upperBound
	}
	tried := 0
	for _, rng := range set {
		v := new(big.Int).Set(rng.lo)
		for v.Cmp(rng.hi) <= 0 {
			if tried >= budget {
				exact = false
				break
			}
			tried++
			assignment := map[string]*big.Int{name: v}
			r := e.Eval(assignment)
			cv, ok := r.GetConstant()
			if ok {
				key := cv.String()
				if !seen[key] {
					seen[key] = true
					results = append(results, cv)
					if len(results) > upperBound {
						results = results[:upperBound]
						exact = false
					}
				}
			}
			v = new(big.Int).Add(v, big1)
		}
		if !exact {
			break
		}
	}
	return results, exact, nil
}

func enumerateMultiVar(e Expr, free map[string]uint32, sets map[string][]ivl, upperBound int) ([]*big.Int, bool, error) {
	// Sample interval boundaries per variable; true exhaustive multi-variable
	// enumeration is not attempted by this backend (see type doc), so the
	// result is always reported inexact unless it is provably empty.
	names := make([]string, 0, len(free))
	for n := range free {
		names = append(names, n)
	}
	samples := make(map[string][]*big.Int, len(names))
	for _, n := range names {
		set, ok := sets[n]
		if !ok {
			set = fullSet(free[n])
		}
		if isEmpty(set) {
			return nil, true, nil
		}
		var vs []*big.Int
		for _, rng := range set {
			vs = append(vs, rng.lo, rng.hi)
			if len(vs) >= 8 {
				break
			}
		}
		samples[n] = vs
	}

	seen := make(map[string]bool)
	var results []*big.Int
	var walk func(i int, assignment map[string]*big.Int)
	walk = func(i int, assignment map[string]*big.Int) {
		if len(results) >= upperBound {
			return
		}
		if i == len(names) {
			r := e.Eval(assignment)
			if cv, ok := r.GetConstant(); ok {
				key := cv.String()
				if !seen[key] {
					seen[key] = true
					results = append(results, cv)
				}
			}
			return
		}
		for _, v := range samples[names[i]] {
			assignment[names[i]] = v
			walk(i+1, assignment)
			if len(results) >= upperBound {
				return
			}
		}
	}
	walk(0, make(map[string]*big.Int, len(names)))
	if len(results) > upperBound {
		results = results[:upperBound]
	}
	return results, false, nil
}

// Clone returns an independent handle sharing this solver's current facts.
func (s *rangeSolver) Clone() Solver {
	frames := make([]frame, len(s.frames))
	copy(frames, s.frames)
	return &rangeSolver{frames: frames}
}

// exprToAtom attempts to reduce e (a width-1 boolean expression) to a
// single-variable constraint atom.
func exprToAtom(e Expr) (varAtom, bool) {
	if e.width != 1 {
		return varAtom{}, false
	}
	switch e.op {
	case OpSymbol:
		return varAtom{name: e.name, width: e.width, kind: atomEq, bound: big1}, true
	case OpNot:
		if e.args[0].op == OpSymbol {
			return varAtom{name: e.args[0].name, width: e.args[0].width, kind: atomEq, bound: big0}, true
		}
		return varAtom{}, false
	case OpEq, OpNe, OpUgt, OpUge, OpUlt, OpUle, OpSgt, OpSge, OpSlt, OpSle:
		a, b := e.args[0], e.args[1]
		var sym, con Expr
		flipped := false
		switch {
		case a.op == OpSymbol && b.op == OpConst:
			sym, con = a, b
		case a.op == OpConst && b.op == OpSymbol:
			sym, con, flipped = b, a, true
		default:
			return varAtom{}, false
		}
		return varAtom{name: sym.name, width: sym.width, kind: opToAtomKind(e.op, flipped), bound: con.constant}, true
	}
	return varAtom{}, false
}

func opToAtomKind(op Op, flipped bool) atomKind {
	switch op {
	case OpEq:
		return atomEq
	case OpNe:
		return atomNe
	case OpUgt:
		if flipped {
			return atomUlt
		}
		return atomUgt
	case OpUge:
		if flipped {
			return atomUle
		}
		return atomUge
	case OpUlt:
		if flipped {
			return atomUgt
		}
		return atomUlt
	case OpUle:
		if flipped {
			return atomUge
		}
		return atomUle
	case OpSgt:
		if flipped {
			return atomSlt
		}
		return atomSgt
	case OpSge:
		if flipped {
			return atomSle
		}
		return atomSge
	case OpSlt:
		if flipped {
			return atomSgt
		}
		return atomSlt
	case OpSle:
		if flipped {
			return atomSge
		}
		return atomSle
	}
	return atomEq
}
