package solver

import (
	"math/rand"
	randv2 "math/rand/v2"
)

// NewFastRandV2 creates a math/rand.Rand backed by rand/v2's PCG source,
// used by the trainer to seed each table's deck-shuffling RNG (node.Config.Rng)
// instead of the default math/rand source.
func NewFastRandV2(seed int64) *rand.Rand {
	src := randv2.NewPCG(uint64(seed), uint64(seed))
	return rand.New(&v2Wrapper{src: src})
}

// v2Wrapper adapts rand/v2.Source to rand.Source interface
type v2Wrapper struct {
	src *randv2.PCG
}

func (w *v2Wrapper) Int63() int64 {
	return int64(w.src.Uint64() >> 1)
}

func (w *v2Wrapper) Seed(seed int64) {
	// PCG has no in-place Seed, so reinitialize it instead.
	*w.src = *randv2.NewPCG(uint64(seed), uint64(seed))
}
