package expr

import "math/big"

// ivl is an inclusive interval of unsigned bit-vector codes [lo, hi].
type ivl struct {
	lo, hi *big.Int
}

var (
	big0 = big.NewInt(0)
	big1 = big.NewInt(1)
)

func twoPow(n uint32) *big.Int {
	return new(big.Int).Lsh(big1, uint(n))
}

func maxUnsigned(width uint32) *big.Int {
	return new(big.Int).Sub(twoPow(width), big1)
}

// fullSet returns the interval set covering every representable code of the
// given width.
func fullSet(width uint32) []ivl {
	return []ivl{{lo: new(big.Int), hi: maxUnsigned(width)}}
}

func emptySet() []ivl { return nil }

// normalize sorts and merges adjacent/overlapping intervals.
func normalize(set []ivl) []ivl {
	if len(set) < 2 {
		return set
	}
	sorted := append([]ivl(nil), set...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].lo.Cmp(sorted[j].lo) > 0; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	out := sorted[:1]
	for _, cur := range sorted[1:] {
		last := &out[len(out)-1]
		// Merge if cur starts at or before last.hi+1.
		adjacent := new(big.Int).Add(last.hi, big1)
		if cur.lo.Cmp(adjacent) <= 0 {
			if cur.hi.Cmp(last.hi) > 0 {
				last.hi = cur.hi
			}
			continue
		}
		out = append(out, cur)
	}
	return out
}

// intersectSets returns the intersection of two interval sets.
func intersectSets(a, b []ivl) []ivl {
	var out []ivl
	for _, x := range a {
		for _, y := range b {
			lo := x.lo
			if y.lo.Cmp(lo) > 0 {
				lo = y.lo
			}
			hi := x.hi
			if y.hi.Cmp(hi) < 0 {
				hi = y.hi
			}
			if lo.Cmp(hi) <= 0 {
				out = append(out, ivl{lo: new(big.Int).Set(lo), hi: new(big.Int).Set(hi)})
			}
		}
	}
	return normalize(out)
}

// subtractPoint removes a single value from an interval set, possibly
// splitting an interval in two.
func subtractPoint(set []ivl, v *big.Int) []ivl {
	var out []ivl
	for _, x := range set {
		if v.Cmp(x.lo) < 0 || v.Cmp(x.hi) > 0 {
			out = append(out, x)
			continue
		}
		if x.lo.Cmp(v) == 0 && x.hi.Cmp(v) == 0 {
			continue // whole interval removed
		}
		if x.lo.Cmp(v) == 0 {
			out = append(out, ivl{lo: new(big.Int).Add(v, big1), hi: x.hi})
			continue
		}
		if x.hi.Cmp(v) == 0 {
			out = append(out, ivl{lo: x.lo, hi: new(big.Int).Sub(v, big1)})
			continue
		}
		out = append(out, ivl{lo: x.lo, hi: new(big.Int).Sub(v, big1)})
		out = append(out, ivl{lo: new(big.Int).Add(v, big1), hi: x.hi})
	}
	return out
}

func isEmpty(set []ivl) bool { return len(set) == 0 }

// shiftIntervalMod returns the image of the contiguous interval [lo, hi]
// (0 <= lo <= hi < modulus) under the map u -> (u + shift) mod modulus, as a
// normalized set of at most two intervals within [0, modulus).
func shiftIntervalMod(lo, hi, shift, modulus *big.Int) []ivl {
	length := new(big.Int).Sub(hi, lo)
	length.Add(length, big1)

	newLo := new(big.Int).Add(lo, shift)
	newLo.Mod(newLo, modulus)

	newHi := new(big.Int).Add(newLo, length)
	newHi.Sub(newHi, big1)

	if newHi.Cmp(modulus) < 0 {
		return []ivl{{lo: newLo, hi: newHi}}
	}
	wrappedHi := new(big.Int).Sub(newHi, modulus)
	top := new(big.Int).Sub(modulus, big1)
	return normalize([]ivl{{lo: newLo, hi: top}, {lo: new(big.Int), hi: wrappedHi}})
}

// atomKind identifies the shape of a single-variable constraint atom.
type atomKind uint8

const (
	atomEq atomKind = iota
	atomNe
	atomUlt
	atomUle
	atomUgt
	atomUge
	atomSlt
	atomSle
	atomSgt
	atomSge
)

// atomToSet converts a single atom (variable OP bound, width w) into the
// unsigned-code interval set of values of the variable that satisfy it.
func atomToSet(kind atomKind, bound *big.Int, width uint32) []ivl {
	v := mask(bound, width)
	top := maxUnsigned(width)
	switch kind {
	case atomEq:
		return []ivl{{lo: v, hi: v}}
	case atomNe:
		return subtractPoint(fullSet(width), v)
	case atomUlt:
		if v.Sign() == 0 {
			return emptySet()
		}
		return []ivl{{lo: big.NewInt(0), hi: new(big.Int).Sub(v, big1)}}
	case atomUle:
		return []ivl{{lo: big.NewInt(0), hi: v}}
	case atomUgt:
		if v.Cmp(top) >= 0 {
			return emptySet()
		}
		return []ivl{{lo: new(big.Int).Add(v, big1), hi: top}}
	case atomUge:
		return []ivl{{lo: v, hi: top}}
	case atomSlt, atomSle, atomSgt, atomSge:
		return signedAtomToSet(kind, v, width)
	}
	return fullSet(width)
}

// signedAtomToSet implements signed comparisons by mapping through the
// standard "bias" trick: bias(u) = (u + 2^(w-1)) mod 2^w is a monotonic
// bijection from signed order to unsigned order, so a signed constraint
// becomes a contiguous range in bias-space, which is mapped back to
// u-space with shiftIntervalMod.
func signedAtomToSet(kind atomKind, v *big.Int, width uint32) []ivl {
	modulus := twoPow(width)
	signBit := twoPow(width - 1)
	bv := new(big.Int).Add(v, signBit)
	bv.Mod(bv, modulus)
	top := new(big.Int).Sub(modulus, big1)

	var biasLo, biasHi *big.Int
	switch kind {
	case atomSlt:
		if bv.Sign() == 0 {
			return emptySet()
		}
		biasLo, biasHi = big.NewInt(0), new(big.Int).Sub(bv, big1)
	case atomSle:
		biasLo, biasHi = big.NewInt(0), bv
	case atomSgt:
		if bv.Cmp(top) >= 0 {
			return emptySet()
		}
		biasLo, biasHi = new(big.Int).Add(bv, big1), top
	case atomSge:
		biasLo, biasHi = bv, top
	default:
		return fullSet(width)
	}
	return shiftIntervalMod(biasLo, biasHi, signBit, modulus)
}
