// Package retrieval implements hybrid dense+BM25 search, Reciprocal
// Rank Fusion, parent-block projection, and cross-encoder reranking.
package retrieval

import (
	"math"
	"strings"
	"unicode"
)

// bm25K1 and bm25B are the standard Okapi BM25 tuning constants.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// BM25Doc is one scorable unit of the sparse index: a child chunk's
// tokenized content plus the identity carried through ranking.
type BM25Doc struct {
	ChunkID  string
	ParentID string
	Tokens   []string
}

// BM25Index is an in-memory sparse index built fresh per retrieval
// call from a tenant's full chunk corpus. No BM25 library exists
// anywhere in the reference corpus, so this is a direct, minimal
// implementation of the scoring formula rather than an external
// dependency.
type BM25Index struct {
	docs       []BM25Doc
	docFreq    map[string]int
	avgDocLen  float64
	docLengths []int
}

// NewBM25Index tokenizes and indexes a corpus.
func NewBM25Index(docs []BM25Doc) *BM25Index {
	idx := &BM25Index{docs: docs, docFreq: make(map[string]int), docLengths: make([]int, len(docs))}
	var totalLen int
	for i, d := range docs {
		idx.docLengths[i] = len(d.Tokens)
		totalLen += len(d.Tokens)
		seen := make(map[string]bool, len(d.Tokens))
		for _, t := range d.Tokens {
			if !seen[t] {
				idx.docFreq[t]++
				seen[t] = true
			}
		}
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(docs))
	}
	return idx
}

// Search scores every document in the index against the query tokens
// and returns indices into the original corpus sorted by descending
// score, truncated to k.
func (idx *BM25Index) Search(queryTokens []string, k int) []int {
	n := len(idx.docs)
	if n == 0 {
		return nil
	}
	scores := make([]float64, n)
	for _, qt := range queryTokens {
		df := idx.docFreq[qt]
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
		for i, d := range idx.docs {
			tf := termFreq(qt, d.Tokens)
			if tf == 0 {
				continue
			}
			denom := tf + bm25K1*(1-bm25B+bm25B*float64(idx.docLengths[i])/nonZero(idx.avgDocLen))
			scores[i] += idf * (tf * (bm25K1 + 1)) / denom
		}
	}
	order := argsortDesc(scores)
	if k > 0 && len(order) > k {
		order = order[:k]
	}
	return order
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func termFreq(term string, tokens []string) float64 {
	count := 0.0
	for _, t := range tokens {
		if t == term {
			count++
		}
	}
	return count
}

func argsortDesc(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && scores[order[j]] > scores[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}

// Tokenize lowercases and splits on non-letter/non-digit runes,
// falling back to per-rune splitting for CJK text (which carries no
// whitespace word boundaries) so a Chinese query still finds overlap.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
