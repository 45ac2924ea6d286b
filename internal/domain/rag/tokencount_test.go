package rag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenEstimator_EmptyTextCountsZero(t *testing.T) {
	e := NewTokenEstimator()
	require.Equal(t, 0, e.Count(""))
}

func TestTokenEstimator_CJKHeavyUsesHeuristicFormula(t *testing.T) {
	e := NewTokenEstimator()
	// 3 CJK runes * 1.8 = 5.4 -> rounds to 5.
	require.Equal(t, 5, e.Count("你好吗"))
}

func TestTokenEstimator_MixedTextWithMoreCJKUsesHeuristic(t *testing.T) {
	e := NewTokenEstimator()
	// 2 CJK (3.6) + 2 non-space ascii (0.8) = 4.4 -> rounds to 4.
	require.Equal(t, 4, e.Count("你a好b"))
}

func TestTokenEstimator_CountMessagesAddsPerMessageOverhead(t *testing.T) {
	e := NewTokenEstimator()
	msgs := []Message{{Role: RoleUser, Content: ""}, {Role: RoleAssistant, Content: ""}}
	require.Equal(t, 8, e.CountMessages(msgs))
}

func TestIsCJKHeavy(t *testing.T) {
	require.True(t, isCJKHeavy("这是一段中文文本"))
	require.False(t, isCJKHeavy("this is english text"))
	require.False(t, isCJKHeavy(""))
}
