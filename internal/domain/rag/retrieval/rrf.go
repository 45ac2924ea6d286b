package retrieval

// RRFConstant is the smoothing constant `c` in `score(d)=Σ 1/(c+rank)`.
const RRFConstant = 60

// Fuse combines multiple ranked id lists (best first) via Reciprocal
// Rank Fusion and returns ids ordered by descending fused score.
// Callers pass parallel rank lists (e.g. dense then BM25); an id
// absent from a list simply contributes nothing from that list.
func Fuse(rankedLists ...[]string) []string {
	scores := make(map[string]float64)
	order := make([]string, 0)
	seen := make(map[string]bool)
	for _, list := range rankedLists {
		for rank, id := range list {
			scores[id] += 1.0 / float64(RRFConstant+rank+1)
			if !seen[id] {
				seen[id] = true
				order = append(order, id)
			}
		}
	}
	// stable insertion sort by descending score, ties broken by first
	// appearance order (dense list precedence).
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && scores[order[j]] > scores[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}
