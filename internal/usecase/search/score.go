package search

import (
	"math"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

// scoreMatrix computes the query x chunk similarity matrix. NaN scores from
// degenerate vectors are replaced with -1 so they never win a top-k slot.
func scoreMatrix(fn domain.ScoreFunction, queries, chunk [][]float32) [][]float64 {
	out := make([][]float64, len(queries))
	for qi, q := range queries {
		row := make([]float64, len(chunk))
		for ci, c := range chunk {
			var s float64
			switch fn {
			case domain.ScoreCosine:
				s = cosSim(q, c)
			case domain.ScoreDot:
				s = dotScore(q, c)
			}
			if math.IsNaN(s) {
				s = -1
			}
			row[ci] = s
		}
		out[qi] = row
	}
	return out
}

// cosSim returns the cosine similarity of two vectors. A zero vector on
// either side yields NaN, which the caller maps to the sentinel score.
func cosSim(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func dotScore(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
