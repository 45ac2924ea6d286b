package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize_SplitsHanPerRuneAndWordsByRun(t *testing.T) {
	tokens := Tokenize("Hello 世界 foo123 bar")
	require.Equal(t, []string{"hello", "世", "界", "foo123", "bar"}, tokens)
}

func TestBM25Index_RanksExactTermMatchAbovePartial(t *testing.T) {
	docs := []BM25Doc{
		{ChunkID: "a", Tokens: Tokenize("the quick brown fox jumps")},
		{ChunkID: "b", Tokens: Tokenize("a slow turtle crawls")},
		{ChunkID: "c", Tokens: Tokenize("fox fox fox everywhere in this document")},
	}
	idx := NewBM25Index(docs)
	order := idx.Search(Tokenize("fox"), 3)

	require.NotEmpty(t, order)
	// doc c repeats the query term three times and should outrank doc a.
	require.Equal(t, "c", docs[order[0]].ChunkID)
}

func TestBM25Index_EmptyCorpusReturnsNil(t *testing.T) {
	idx := NewBM25Index(nil)
	require.Nil(t, idx.Search(Tokenize("anything"), 5))
}

func TestBM25Index_UnknownQueryTermsScoreZeroButDontPanic(t *testing.T) {
	docs := []BM25Doc{{ChunkID: "a", Tokens: Tokenize("apples and oranges")}}
	idx := NewBM25Index(docs)
	order := idx.Search(Tokenize("zzz"), 5)
	require.Len(t, order, 1)
}
