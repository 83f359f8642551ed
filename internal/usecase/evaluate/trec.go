package evaluate

import (
	"math"
	"sort"
)

// rankDocs orders a query's retrieved documents by score descending; equal
// scores break toward the lower document id.
func rankDocs(docs map[string]float64) []string {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := docs[ids[i]], docs[ids[j]]
		if si != sj {
			return si > sj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// ndcgAt computes NDCG at cutoff k with linear gain and log2(rank+1)
// discount. The ideal ordering is taken from the full judgment set, not just
// the retrieved documents.
func ndcgAt(ranking []string, rels map[string]int, k int) float64 {
	var dcg float64
	for i := 0; i < len(ranking) && i < k; i++ {
		if g := rels[ranking[i]]; g > 0 {
			dcg += float64(g) / math.Log2(float64(i+2))
		}
	}

	grades := make([]int, 0, len(rels))
	for _, g := range rels {
		if g > 0 {
			grades = append(grades, g)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(grades)))

	var idcg float64
	for i := 0; i < len(grades) && i < k; i++ {
		idcg += float64(grades[i]) / math.Log2(float64(i+2))
	}

	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// apAt computes average precision at cutoff k. The denominator is the total
// number of relevant documents in the judgments, not min(k, relevant).
func apAt(ranking []string, rels map[string]int, k int) float64 {
	numRel := relevantCount(rels)
	if numRel == 0 {
		return 0
	}

	var hits int
	var sum float64
	for i := 0; i < len(ranking) && i < k; i++ {
		if rels[ranking[i]] > 0 {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	return sum / float64(numRel)
}

// recallAt computes the fraction of all relevant documents retrieved in the
// top k.
func recallAt(ranking []string, rels map[string]int, k int) float64 {
	numRel := relevantCount(rels)
	if numRel == 0 {
		return 0
	}

	var hits int
	for i := 0; i < len(ranking) && i < k; i++ {
		if rels[ranking[i]] > 0 {
			hits++
		}
	}
	return float64(hits) / float64(numRel)
}

// precisionAt computes the fraction of the top k that is relevant. The
// denominator is k even when fewer documents were retrieved.
func precisionAt(ranking []string, rels map[string]int, k int) float64 {
	if k == 0 {
		return 0
	}

	var hits int
	for i := 0; i < len(ranking) && i < k; i++ {
		if rels[ranking[i]] > 0 {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

func relevantCount(rels map[string]int) int {
	var n int
	for _, g := range rels {
		if g > 0 {
			n++
		}
	}
	return n
}
