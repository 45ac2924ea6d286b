package rag

import "github.com/google/uuid"

// RepairToolCalls enforces the pairing invariant: every assistant
// tool_call must be matched by exactly one following tool message
// with an identical id before the next user or assistant turn.
// Unmatched tool messages are dropped; assistants left with no
// matched calls either lose their tool_calls (content kept) or are
// dropped outright (no content).
func RepairToolCalls(messages []Message) []Message {
	messages = normalizeToolCallIDs(messages)

	out := make([]Message, 0, len(messages))
	i := 0
	for i < len(messages) {
		m := messages[i]
		if m.Role != RoleAssistant || len(m.ToolCalls) == 0 {
			if m.Role == RoleTool {
				// Orphan tool message with no preceding assistant in
				// this pass's window: drop it.
				i++
				continue
			}
			out = append(out, m)
			i++
			continue
		}

		wanted := make(map[string]bool, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			wanted[tc.ID] = true
		}
		matched := make(map[string]bool, len(m.ToolCalls))

		j := i + 1
		var toolMessages []Message
		for j < len(messages) && messages[j].Role == RoleTool {
			tm := messages[j]
			if wanted[tm.ToolCallID] && !matched[tm.ToolCallID] {
				matched[tm.ToolCallID] = true
				toolMessages = append(toolMessages, tm)
			}
			j++
		}

		if len(matched) == len(m.ToolCalls) {
			out = append(out, m)
			out = append(out, toolMessages...)
		} else if m.Content != "" {
			kept := m
			kept.ToolCalls = filterMatched(m.ToolCalls, matched)
			out = append(out, kept)
			out = append(out, toolMessages...)
		} else {
			// Drop the assistant entirely; any matched tool messages
			// become orphans too since their call no longer exists.
		}
		i = j
	}
	return out
}

func filterMatched(calls []ToolCall, matched map[string]bool) []ToolCall {
	var kept []ToolCall
	for _, c := range calls {
		if matched[c.ID] {
			kept = append(kept, c)
		}
	}
	return kept
}

// normalizeToolCallIDs ensures every tool_call carries a non-empty
// string id, synthesizing one where the model omitted it.
func normalizeToolCallIDs(messages []Message) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)
	for i, m := range out {
		if m.Role != RoleAssistant || len(m.ToolCalls) == 0 {
			continue
		}
		calls := make([]ToolCall, len(m.ToolCalls))
		copy(calls, m.ToolCalls)
		for j, tc := range calls {
			if tc.ID == "" {
				tc.ID = uuid.NewString()
				calls[j] = tc
			}
		}
		out[i].ToolCalls = calls
	}
	return out
}
