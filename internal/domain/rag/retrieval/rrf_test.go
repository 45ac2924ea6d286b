package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFuse_CombinesRankAcrossLists(t *testing.T) {
	dense := []string{"a", "b", "c"}
	bm25 := []string{"c", "a", "d"}

	fused := Fuse(dense, bm25)

	require.Contains(t, fused, "a")
	require.Contains(t, fused, "b")
	require.Contains(t, fused, "c")
	require.Contains(t, fused, "d")
	// "a" appears at rank 0 in dense and rank 1 in bm25; "c" appears at
	// rank 2 in dense and rank 0 in bm25 — both should outrank "d",
	// which only appears once at the tail of bm25.
	dIdx := indexOf(fused, "d")
	require.Greater(t, dIdx, indexOf(fused, "a"))
	require.Greater(t, dIdx, indexOf(fused, "c"))
}

func TestFuse_SingleListPreservesOrder(t *testing.T) {
	fused := Fuse([]string{"x", "y", "z"})
	require.Equal(t, []string{"x", "y", "z"}, fused)
}

func TestFuse_NoListsReturnsEmpty(t *testing.T) {
	require.Empty(t, Fuse())
}

func indexOf(list []string, target string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return -1
}
