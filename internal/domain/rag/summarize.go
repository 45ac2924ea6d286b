package rag

import (
	"context"
	"strings"
)

// SummarizeOptions configures the message-history compaction trigger.
type SummarizeOptions struct {
	Enabled          bool
	TokenThreshold   int
	KeepMessages     int
	MaxSummaryTokens int
}

// Summarizer compacts old conversation history into a single system
// message section once a thread's message list grows past budget.
type Summarizer struct {
	llm       LLM
	estimator *TokenEstimator
}

// NewSummarizer constructs the summarization stage.
func NewSummarizer(llm LLM, estimator *TokenEstimator) *Summarizer {
	return &Summarizer{llm: llm, estimator: estimator}
}

// Summarize implements the boundary-repair algorithm: partition into
// system/non-system, split non-system into old/new at the keep
// boundary, repair orphaned tool messages across the boundary,
// compress old into a summary, and replace the system message.
func (s *Summarizer) Summarize(ctx context.Context, messages []Message, opts SummarizeOptions) ([]Message, error) {
	if !opts.Enabled {
		return messages, nil
	}
	if s.estimator.CountMessages(messages) <= opts.TokenThreshold {
		return messages, nil
	}

	var systemMsgs, nonSystem []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			systemMsgs = append(systemMsgs, m)
		} else {
			nonSystem = append(nonSystem, m)
		}
	}
	if len(nonSystem) <= opts.KeepMessages {
		return messages, nil
	}

	splitAt := len(nonSystem) - opts.KeepMessages
	old := append([]Message(nil), nonSystem[:splitAt]...)
	newer := append([]Message(nil), nonSystem[splitAt:]...)

	old, newer = repairSummaryBoundary(old, newer)

	summaryText, err := s.compress(ctx, old, opts.MaxSummaryTokens)
	if err != nil {
		return messages, err
	}

	systemText := buildSystemWithSummary(systemMsgs, summaryText)
	result := append([]Message{{Role: RoleSystem, Content: systemText}}, newer...)
	return RepairToolCalls(result), nil
}

// repairSummaryBoundary moves a matching assistant forward (or drops
// the leading orphan tool message) so `new` never opens mid tool-call,
// then sweeps the remainder of `new` for orphans the same way,
// finally stripping or dropping unmatched assistant tool-calls left
// behind in `old`.
func repairSummaryBoundary(old, newer []Message) ([]Message, []Message) {
	// Step 1: repair a leading orphan tool message in `new`.
	for len(newer) > 0 && newer[0].Role == RoleTool {
		id := newer[0].ToolCallID
		idx := findAssistantWithCall(old, id)
		if idx < 0 {
			newer = newer[1:]
			continue
		}
		assistant := old[idx]
		old = append(old[:idx], old[idx+1:]...)
		newer = append([]Message{assistant}, newer...)
		break
	}

	// Step 2: sweep the rest of `new` for orphan tool messages.
	repairedNew := make([]Message, 0, len(newer))
	for i := 0; i < len(newer); i++ {
		m := newer[i]
		if m.Role != RoleTool {
			repairedNew = append(repairedNew, m)
			continue
		}
		if hasMatchingAssistant(repairedNew, m.ToolCallID) {
			repairedNew = append(repairedNew, m)
			continue
		}
		if idx := findAssistantWithCall(old, m.ToolCallID); idx >= 0 {
			assistant := old[idx]
			old = append(old[:idx], old[idx+1:]...)
			repairedNew = append(repairedNew, assistant, m)
			continue
		}
		// unresolved orphan: drop
	}
	newer = repairedNew

	// Step 3: strip or drop unmatched assistant tool_calls left in `old`.
	repairedOld := make([]Message, 0, len(old))
	for _, m := range old {
		if m.Role == RoleAssistant && len(m.ToolCalls) > 0 {
			if allCallsAnsweredElsewhere(m.ToolCalls, old, newer) {
				repairedOld = append(repairedOld, m)
				continue
			}
			if strings.TrimSpace(m.Content) != "" {
				m.ToolCalls = nil
				repairedOld = append(repairedOld, m)
			}
			continue
		}
		repairedOld = append(repairedOld, m)
	}
	return repairedOld, newer
}

func findAssistantWithCall(msgs []Message, callID string) int {
	if callID == "" {
		return -1
	}
	for i, m := range msgs {
		if m.Role != RoleAssistant {
			continue
		}
		for _, tc := range m.ToolCalls {
			if tc.ID == callID {
				return i
			}
		}
	}
	return -1
}

func hasMatchingAssistant(msgs []Message, callID string) bool {
	return findAssistantWithCall(msgs, callID) >= 0
}

func allCallsAnsweredElsewhere(calls []ToolCall, old, newer []Message) bool {
	for _, tc := range calls {
		found := false
		for _, m := range old {
			if m.Role == RoleTool && m.ToolCallID == tc.ID {
				found = true
				break
			}
		}
		if !found {
			for _, m := range newer {
				if m.Role == RoleTool && m.ToolCallID == tc.ID {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	return len(calls) > 0
}

func (s *Summarizer) compress(ctx context.Context, old []Message, maxTokens int) (string, error) {
	if len(old) == 0 {
		return "", nil
	}
	prompt := []Message{
		{Role: RoleSystem, Content: summarizerSystemPrompt},
	}
	prompt = append(prompt, old...)
	prompt = append(prompt, Message{Role: RoleUser, Content: "Summarize the conversation above in a few concise sentences."})
	reply, err := s.llm.Invoke(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(reply.Content)
	if maxTokens > 0 {
		// Soft cap: a true token cap belongs on the request itself;
		// this guards against providers that ignore max_tokens.
		if len(text) > maxTokens*8 {
			text = text[:maxTokens*8]
		}
	}
	return text, nil
}

const summarizerSystemPrompt = "You compress conversation history into a brief, factual summary an assistant can use as context for continuing the conversation. Do not add commentary."

// buildSystemWithSummary creates or updates the single system message,
// replacing any existing summary section in place.
func buildSystemWithSummary(systemMsgs []Message, summary string) string {
	base := ""
	if len(systemMsgs) > 0 {
		base = systemMsgs[0].Content
	}
	section := SummaryMarker + "\n" + summary

	if idx := strings.Index(base, SummaryMarker); idx >= 0 {
		return strings.TrimSpace(base[:idx]) + "\n\n" + section
	}
	if strings.TrimSpace(base) == "" {
		return section
	}
	return strings.TrimSpace(base) + "\n\n" + section
}
