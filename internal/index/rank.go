package index

import (
	"math"
	"sort"

	"github.com/kailas-cloud/newsrec/internal/domain/search/result"
)

// Rank scores every entry against query by cosine similarity and returns the
// top k, highest first. Equal scores keep the order of entries. k <= 0 yields
// an empty result. Neither query nor entries are modified.
func Rank(query []float32, entries []Entry, k int) []result.Result {
	if k <= 0 || len(entries) == 0 {
		return []result.Result{}
	}

	qNorm := norm(query)
	scored := make([]result.Result, len(entries))
	for i, e := range entries {
		scored[i] = result.New(e.ID, cosine(query, qNorm, e.Vector))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score() > scored[j].Score()
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// Cosine returns dot(a, b) / (|a| * |b|). A zero-norm vector on either side,
// or vectors of different lengths, score 0.
func Cosine(a, b []float32) float64 {
	return cosine(a, norm(a), b)
}

func cosine(a []float32, aNorm float64, b []float32) float64 {
	if len(a) != len(b) || aNorm == 0 {
		return 0
	}

	var dot, bb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		bb += y * y
	}
	if bb == 0 {
		return 0
	}

	sim := dot / (aNorm * math.Sqrt(bb))
	// Rounding can push identical vectors a hair past 1.
	return math.Max(-1, math.Min(1, sim))
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		f := float64(x)
		sum += f * f
	}
	return math.Sqrt(sum)
}
