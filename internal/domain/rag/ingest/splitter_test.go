package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSplitParents_FiltersShortAndHeaderOnlyBlocks(t *testing.T) {
	short := "too short"
	header := "# Section One\n## 1.1"
	prose := strings.Repeat("word content for the parent block here. ", 20)

	text := strings.Join([]string{short, header, prose}, "\n\n\n")
	parents := SplitParents(text)

	for _, p := range parents {
		require.GreaterOrEqual(t, utf8.RuneCountInString(p.Content), ParentMinLen)
		require.False(t, isPureHeaderBlock(p.Content))
		require.NotEmpty(t, p.ParentID)
	}
}

func TestSplitParents_MergesTowardTargetSizeWithOverlap(t *testing.T) {
	paragraph := strings.Repeat("sentence with several words. ", 10)
	text := strings.Repeat(paragraph+"\n\n", 15)

	parents := SplitParents(text)
	require.NotEmpty(t, parents)
	for _, p := range parents {
		require.LessOrEqual(t, utf8.RuneCountInString(p.Content), ParentTargetSize+ParentOverlap)
	}
}

func TestSplitChildren_NumbersSequentiallyFromStart(t *testing.T) {
	content := strings.Repeat("alpha beta gamma delta epsilon. ", 40)
	children := SplitChildren("parent-1", content, 5)

	require.NotEmpty(t, children)
	for i, c := range children {
		require.Equal(t, "parent-1", c.ParentID)
		require.Equal(t, 5+i, c.ChunkID)
		require.GreaterOrEqual(t, utf8.RuneCountInString(c.Content), ChildMinLen)
	}
}

func TestIsPureHeaderBlock(t *testing.T) {
	require.True(t, isPureHeaderBlock("# Title #\n## Subtitle ##"))
	require.False(t, isPureHeaderBlock("# Title\nSome actual prose follows here."))
	require.False(t, isPureHeaderBlock(""))
}

func TestRecursiveSplit_FallsBackToRuneSplitWhenNoSeparatorMatches(t *testing.T) {
	text := strings.Repeat("a", ChildTargetSize*2)
	pieces := recursiveSplit(text, nil)
	require.Len(t, pieces, 2)
}

func TestMergeBySize_CarriesOverlapIntoNextWindow(t *testing.T) {
	pieces := []string{strings.Repeat("x", 100), strings.Repeat("y", 100), strings.Repeat("z", 100)}
	merged := mergeBySize(pieces, 150, 20)
	require.GreaterOrEqual(t, len(merged), 2)
	require.True(t, strings.HasPrefix(merged[1], strings.Repeat("x", 20)))
}
