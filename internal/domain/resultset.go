package domain

// ResultSet maps query id -> corpus id -> similarity score. It holds at most
// top_k entries per query and is sealed once search finishes: downstream
// consumers copy before filtering, never mutate the original.
type ResultSet map[string]map[string]float64

// Clone returns a deep copy of the result set.
func (rs ResultSet) Clone() ResultSet {
	out := make(ResultSet, len(rs))
	for qid, docs := range rs {
		cp := make(map[string]float64, len(docs))
		for pid, score := range docs {
			cp[pid] = score
		}
		out[qid] = cp
	}
	return out
}

// Qrels maps query id -> corpus id -> integer relevance grade. Ground truth,
// supplied by the caller and never mutated by the core.
type Qrels map[string]map[string]int
