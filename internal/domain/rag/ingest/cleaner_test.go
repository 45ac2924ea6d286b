package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClean_StripsNulBytesAndHTMLTags(t *testing.T) {
	out := Clean("hello\x00 <b>world</b>")
	require.Equal(t, "hello world", out)
}

func TestClean_CollapsesExcessNewlines(t *testing.T) {
	out := Clean("paragraph one\n\n\n\n\nparagraph two")
	require.Equal(t, "paragraph one\n\nparagraph two", out)
}

func TestClean_CollapsesIntraLineWhitespaceRuns(t *testing.T) {
	out := Clean("word1     word2\t\tword3")
	require.Equal(t, "word1 word2 word3", out)
}

func TestClean_TrimsTrailingWhitespacePerLineAndOverall(t *testing.T) {
	out := Clean("  line one   \nline two   \n\n  ")
	require.Equal(t, "line one\nline two", out)
}
