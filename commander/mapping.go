// Package commander runs two Nodes side by side: the real game (the source
// of truth for cards and chips) and an abstract mirror restricted to the
// action abstraction's sizes, used to index a trained policy. It maps
// live bet sizes into the abstraction via pseudo-harmonic mapping and
// samples fishbait's own moves from a loaded policy.
package commander

import "math/rand"

// PseudoHarmonicMap picks between two abstract pot-proportions a<b that
// bracket the actual proportion x, matching the expected value of betting
// x by randomizing between the two in-abstraction neighbors. Returns a
// with probability f = ((b-x)(1+a)) / ((b-a)(1+x)), else b.
//
// Edge cases: a==b returns a (the size is already in the abstraction); the
// caller is responsible for clamping x to the smallest/largest abstract
// size when no bracketing pair exists.
func PseudoHarmonicMap(a, b, x float64, rng *rand.Rand) float64 {
	if a == b {
		return a
	}
	f := ((b - x) * (1 + a)) / ((b - a) * (1 + x))
	if rng.Float64() < f {
		return a
	}
	return b
}

// NearestAbstractSizes returns the tightest bracketing pair (a,b) from
// sizes (assumed sorted ascending) such that a<=x<=b, clamping to the
// smallest or largest size when x falls outside the range. ok is false
// only when sizes is empty.
func NearestAbstractSizes(sizes []float64, x float64) (a, b float64, ok bool) {
	if len(sizes) == 0 {
		return 0, 0, false
	}
	if x <= sizes[0] {
		return sizes[0], sizes[0], true
	}
	last := sizes[len(sizes)-1]
	if x >= last {
		return last, last, true
	}
	for i := 1; i < len(sizes); i++ {
		if sizes[i] >= x {
			return sizes[i-1], sizes[i], true
		}
	}
	return last, last, true
}

// MapProportion resolves an actual pot-proportion x into one of sizes via
// NearestAbstractSizes + PseudoHarmonicMap.
func MapProportion(sizes []float64, x float64, rng *rand.Rand) (float64, bool) {
	a, b, ok := NearestAbstractSizes(sizes, x)
	if !ok {
		return 0, false
	}
	return PseudoHarmonicMap(a, b, x, rng), true
}
