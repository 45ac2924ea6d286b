package rag

import (
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEstimator counts tokens for the retrieval graph's budget
// decisions (the summarization trigger and completion token counts).
// CJK-heavy text is counted with a CJK-aware heuristic (tiktoken
// under-counts CJK relative to the provider's actual tokenizer for
// double-byte scripts); other text uses a tiktoken encoding, or a
// whitespace word count when the encoding is unavailable.
type TokenEstimator struct {
	encoder *tiktoken.Tiktoken
}

// NewTokenEstimator constructs an estimator, following the teacher's
// chunker pattern of tolerating a missing encoding table.
func NewTokenEstimator() *TokenEstimator {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		enc = nil
	}
	return &TokenEstimator{encoder: enc}
}

// Count estimates the token count of text.
func (e *TokenEstimator) Count(text string) int {
	if text == "" {
		return 0
	}
	if isCJKHeavy(text) {
		return heuristicCJKTokens(text)
	}
	if e.encoder != nil {
		return len(e.encoder.Encode(text, nil, nil))
	}
	return len(strings.Fields(text))
}

// CountMessages estimates the combined token count of a message list,
// used by the summarization trigger.
func (e *TokenEstimator) CountMessages(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += e.Count(m.Content) + 4 // role/framing overhead, matches provider chat-format padding
	}
	return total
}

func isCJKHeavy(text string) bool {
	var cjk, other int
	for _, r := range text {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r) {
			cjk++
		} else if !unicode.IsSpace(r) {
			other++
		}
	}
	return cjk > 0 && cjk >= other
}

// heuristicCJKTokens applies the estimate: each CJK character counts
// as 1.8 tokens, every other non-space rune counts as 0.4 tokens.
func heuristicCJKTokens(text string) int {
	var score float64
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r):
			score += 1.8
		case unicode.IsSpace(r):
			// whitespace contributes nothing
		default:
			score += 0.4
		}
	}
	return int(score + 0.5)
}
