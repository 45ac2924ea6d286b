package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSystemPrompt_AppendsDirectiveOnce(t *testing.T) {
	first := BuildSystemPrompt("")
	require.Equal(t, queryOrRespondDirective, first)

	withExisting := BuildSystemPrompt("You are helpful.")
	require.Contains(t, withExisting, "You are helpful.")
	require.Contains(t, withExisting, queryOrRespondDirective)

	idempotent := BuildSystemPrompt(withExisting)
	require.Equal(t, withExisting, idempotent)
	require.Equal(t, 1, strings.Count(idempotent, queryOrRespondDirective))
}

func TestBuildGradePrompt_InterpolatesQueryAndContent(t *testing.T) {
	out := BuildGradePrompt("what is X?", "X is defined as...")
	require.Contains(t, out, "what is X?")
	require.Contains(t, out, "X is defined as...")
}

func TestCleanRewrite_StripsKnownPrefixesAndQuotesAndExcessLength(t *testing.T) {
	require.Equal(t, "What is the capital of France", CleanRewrite("Improved question: What is the capital of France"))
	require.Equal(t, "foo", CleanRewrite(`"foo"`))
	require.Equal(t, "line one", CleanRewrite("line one\nline two"))

	long := strings.Repeat("a", 250)
	require.LessOrEqual(t, len(CleanRewrite(long)), 200)
}

func TestBuildAnswerPrompt_IncludesContextAndQuestion(t *testing.T) {
	out := BuildAnswerPrompt("some context", "a question")
	require.Contains(t, out, "some context")
	require.Contains(t, out, "a question")
}

func TestBuildNoRelevantPrompt_IncludesQuery(t *testing.T) {
	out := BuildNoRelevantPrompt("obscure query")
	require.Contains(t, out, "obscure query")
}
