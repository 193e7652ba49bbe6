// Package shuffle produces uniformly random permutations for question ordering.
package shuffle

import "math/rand/v2"

// Source yields integers in [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Default returns the process-wide source. It is safe for concurrent use.
func Default() Source {
	return globalSource{}
}

// Seeded returns a deterministic source. It is not safe for concurrent use.
func Seeded(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Shuffle returns a Fisher-Yates permutation of items. The input slice is not
// modified. A nil src uses Default.
func Shuffle[T any](items []T, src Source) []T {
	if src == nil {
		src = Default()
	}
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
