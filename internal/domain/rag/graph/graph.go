// Package graph implements the agentic retrieval state machine:
// query_or_respond -> retrieve -> grade_documents -> (generate_answer
// | rewrite_question -> query_or_respond) -> END.
package graph

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
	"github.com/yanqian/ai-helloworld/internal/domain/rag/retrieval"
)

// Config carries the env-driven knobs a single run needs.
type Config struct {
	MaxRetryCount int // default 3; retry_count<2 rewrites, >=2 answers
	Retrieval     retrieval.Options
	Summarization rag.SummarizeOptions
}

// Runner drives one RetrievalState through the graph to completion,
// emitting StreamEvents as it goes.
type Runner struct {
	llm       rag.LLM
	retriever *retrieval.Retriever
	summarize *rag.Summarizer
	tokens    *rag.TokenEstimator
	logger    *slog.Logger
}

// NewRunner constructs a graph runner.
func NewRunner(llm rag.LLM, retriever *retrieval.Retriever, summarizer *rag.Summarizer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{llm: llm, retriever: retriever, summarize: summarizer, tokens: rag.NewTokenEstimator(), logger: logger.With("component", "rag.graph")}
}

// Run executes the full state machine for one user turn, streaming
// events on the returned channel. The channel is closed when the run
// reaches END (success or error). The returned state pointer is only
// safe to read once the events channel has been drained to closure:
// the run goroutine writes it before closing the channel, and the
// close establishes the happens-before edge for the reader.
func (r *Runner) Run(ctx context.Context, userID string, state rag.RetrievalState, cfg Config) (<-chan rag.StreamEvent, *rag.RetrievalState) {
	events := make(chan rag.StreamEvent, 16)
	final := &rag.RetrievalState{}
	go func() {
		defer close(events)
		*final = r.run(ctx, userID, state, cfg, events)
	}()
	return events, final
}

func (r *Runner) run(ctx context.Context, userID string, state rag.RetrievalState, cfg Config, events chan<- rag.StreamEvent) rag.RetrievalState {
	// Invariant: retry_count is request-scoped, reset on every new turn
	// regardless of any rehydrated checkpoint value.
	state.RetryCount = 0

	var lastToolOutput string
	var retrieved []rag.ScoredChunk
	var steps []rag.ThinkingStep

	think := func(node, description string) {
		ts := rag.ThinkingStep{Step: node, Action: node, Description: description}
		steps = append(steps, ts)
		events <- rag.StreamEvent{Type: rag.EventThinking, Node: node, Content: description, SessionID: state.SessionID, Data: []rag.ThinkingStep{ts}}
	}

	for step := 0; ; step++ {
		if cfg.Summarization.Enabled {
			repaired, err := r.summarize.Summarize(ctx, state.Messages, cfg.Summarization)
			if err != nil {
				r.emitError(events, "summarize_messages", err)
				return state
			}
			state.Messages = repaired
		}

		think("query_or_respond", "Deciding whether to search documents")
		assistantMsg, err := r.queryOrRespond(ctx, state)
		if err != nil {
			r.emitError(events, "query_or_respond", err)
			return state
		}
		state.Messages = append(state.Messages, assistantMsg)

		if len(assistantMsg.ToolCalls) == 0 {
			// Rare: forced-tool fallback failed to produce a call.
			state.Messages = rag.RepairToolCalls(state.Messages)
			r.emitComplete(events, assistantMsg.Content, nil, state, steps)
			return state
		}

		think("retrieve", "Searching documents for: "+state.CurrentQuery)
		toolOutput, rc, err := r.retriever.Retrieve(ctx, userID, state.CurrentQuery, cfg.Retrieval)
		if err != nil {
			r.emitError(events, "retrieve", err)
			return state
		}
		lastToolOutput = toolOutput
		retrieved = rc
		state.Messages = append(state.Messages, rag.Message{
			Role:       rag.RoleTool,
			Content:    toolOutput,
			ToolCallID: assistantMsg.ToolCalls[0].ID,
			Name:       rag.RetrievalToolName,
		})
		// The tool result is now in place for the call it answers, so
		// this is the first point at which the pairing invariant is
		// satisfiable; repairing any earlier leaves the just-created
		// tool_call with no following result and drops it.
		state.Messages = rag.RepairToolCalls(state.Messages)

		think("grade_documents", "Judging retrieval relevance")
		relevant, err := r.grade(ctx, state.CurrentQuery, toolOutput)
		if err != nil {
			r.logger.Warn("grader failed, defaulting to no", "error", err)
			relevant = false
		}

		if relevant || state.RetryCount >= cfg.MaxRetryCount-1 {
			answer, err := r.generateAnswer(ctx, state, toolOutput, relevant, events)
			if err != nil {
				r.emitError(events, "generate_answer", err)
				return state
			}
			state.Messages = append(state.Messages, rag.Message{Role: rag.RoleAssistant, Content: answer})
			state.RetryCount = 0
			r.emitComplete(events, answer, retrieved, state, steps)
			return state
		}

		think("rewrite_question", "Rewriting the search query")
		rewritten, err := r.rewrite(ctx, state.CurrentQuery)
		if err != nil {
			r.emitError(events, "rewrite_question", err)
			return state
		}
		state.CurrentQuery = rewritten
		state.RetryCount++
		state.Messages = append(state.Messages, rag.Message{Role: rag.RoleUser, Content: rewritten})

		if step > cfg.MaxRetryCount+2 {
			// Defensive bound; the retry_count check above always
			// terminates first under the spec's `<2 rewrite, >=2
			// answer` contract.
			answer := lastRelevantOrFallback(lastToolOutput)
			state.Messages = append(state.Messages, rag.Message{Role: rag.RoleAssistant, Content: answer})
			state.RetryCount = 0
			r.emitComplete(events, answer, retrieved, state, steps)
			return state
		}
	}
}

func lastRelevantOrFallback(toolOutput string) string {
	if strings.TrimSpace(toolOutput) == "" {
		return rag.NoRelevantDocuments
	}
	return toolOutput
}

// queryOrRespond binds the retrieval tool, mandates its use via the
// system prompt, and forces a synthetic call when the model fails to
// emit one in any recognized shape.
func (r *Runner) queryOrRespond(ctx context.Context, state rag.RetrievalState) (rag.Message, error) {
	messages := ensureSystemDirective(state.Messages)
	tools := []rag.ToolSpec{{
		Name:        rag.RetrievalToolName,
		Description: "Search the user's uploaded documents for passages relevant to a query.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
	}}

	reply, err := r.llm.Invoke(ctx, messages, tools)
	if err != nil {
		return rag.Message{}, err
	}

	if len(reply.ToolCalls) == 0 {
		reply = rag.Message{
			Role: rag.RoleAssistant,
			ToolCalls: []rag.ToolCall{{
				ID:        uuid.NewString(),
				Name:      rag.RetrievalToolName,
				Arguments: map[string]any{"query": state.CurrentQuery},
			}},
		}
		return reply, nil
	}

	// A rewrite must take effect even if the provider echoes a stale
	// query argument: always overwrite with current_query.
	for i := range reply.ToolCalls {
		if reply.ToolCalls[i].Name == rag.RetrievalToolName {
			if reply.ToolCalls[i].Arguments == nil {
				reply.ToolCalls[i].Arguments = map[string]any{}
			}
			reply.ToolCalls[i].Arguments["query"] = state.CurrentQuery
		}
	}
	return reply, nil
}

func ensureSystemDirective(messages []rag.Message) []rag.Message {
	out := make([]rag.Message, len(messages))
	copy(out, messages)
	for i, m := range out {
		if m.Role == rag.RoleSystem {
			out[i].Content = rag.BuildSystemPrompt(m.Content)
			return out
		}
	}
	return append([]rag.Message{{Role: rag.RoleSystem, Content: rag.BuildSystemPrompt("")}}, out...)
}

func (r *Runner) grade(ctx context.Context, query, toolOutput string) (bool, error) {
	if strings.TrimSpace(toolOutput) == "" || toolOutput == rag.NoRelevantDocuments {
		return false, nil
	}
	reply, err := r.llm.Invoke(ctx, []rag.Message{
		{Role: rag.RoleUser, Content: rag.BuildGradePrompt(query, toolOutput)},
	}, nil)
	if err != nil {
		return false, err
	}
	verdict := strings.ToLower(strings.TrimSpace(reply.Content))
	return strings.HasPrefix(verdict, "yes"), nil
}

func (r *Runner) rewrite(ctx context.Context, query string) (string, error) {
	reply, err := r.llm.Invoke(ctx, []rag.Message{
		{Role: rag.RoleUser, Content: rag.BuildRewritePrompt(query)},
	}, nil)
	if err != nil {
		return query, err
	}
	cleaned := rag.CleanRewrite(reply.Content)
	if cleaned == "" {
		return query, nil
	}
	return cleaned, nil
}

func (r *Runner) generateAnswer(ctx context.Context, state rag.RetrievalState, toolOutput string, relevant bool, events chan<- rag.StreamEvent) (string, error) {
	var prompt string
	if !relevant {
		prompt = rag.BuildNoRelevantPrompt(state.CurrentQuery)
	} else {
		prompt = rag.BuildAnswerPrompt(toolOutput, state.CurrentQuery)
	}

	chunks, errs := r.llm.Stream(ctx, []rag.Message{{Role: rag.RoleUser, Content: prompt}})
	var answer strings.Builder
	for chunks != nil || errs != nil {
		select {
		case c, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			answer.WriteString(c)
			events <- rag.StreamEvent{Type: rag.EventChunk, Content: c}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return "", err
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return answer.String(), nil
}

func (r *Runner) emitError(events chan<- rag.StreamEvent, node string, err error) {
	r.logger.Error("graph node failed", "node", node, "error", err)
	events <- rag.StreamEvent{Type: rag.EventError, Node: node, Error: err.Error()}
}

func (r *Runner) emitComplete(events chan<- rag.StreamEvent, answer string, retrieved []rag.ScoredChunk, state rag.RetrievalState, steps []rag.ThinkingStep) {
	docs := make([]rag.RetrievedDoc, 0, len(retrieved))
	for _, sc := range retrieved {
		docs = append(docs, rag.RetrievedDoc{
			DocumentID: sc.Chunk.DocumentID,
			ParentID:   sc.Chunk.ParentID,
			ChunkID:    sc.Chunk.ChunkID,
			Score:      sc.Score,
		})
	}
	events <- rag.StreamEvent{
		Type:            rag.EventComplete,
		Content:         answer,
		SessionID:       state.SessionID,
		RetrievedDocs:   docs,
		ThinkingProcess: steps,
		TokensUsed:      r.tokens.CountMessages(state.Messages),
	}
}
