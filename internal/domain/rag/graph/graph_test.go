package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
	"github.com/yanqian/ai-helloworld/internal/domain/rag/retrieval"
)

// fakeLLM scripts a deterministic sequence of Invoke replies (by call
// order) and a fixed streamed answer, mirroring how the graph calls
// query_or_respond, grade_documents, and generate_answer in turn.
type fakeLLM struct {
	invokeReplies []rag.Message
	invokeCount   int
	streamChunks  []string
}

func (f *fakeLLM) Invoke(ctx context.Context, messages []rag.Message, tools []rag.ToolSpec) (rag.Message, error) {
	reply := f.invokeReplies[f.invokeCount]
	f.invokeCount++
	return reply, nil
}

func (f *fakeLLM) Stream(ctx context.Context, messages []rag.Message) (<-chan string, <-chan error) {
	ch := make(chan string, len(f.streamChunks))
	errs := make(chan error, 1)
	for _, c := range f.streamChunks {
		ch <- c
	}
	close(ch)
	close(errs)
	return ch, errs
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeVectorStore struct {
	hits []rag.ScoredChunk
}

func (f *fakeVectorStore) Upsert(ctx context.Context, chunks []rag.ChildChunk) error { return nil }
func (f *fakeVectorStore) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	return nil
}
func (f *fakeVectorStore) SimilaritySearch(ctx context.Context, userID string, embedding []float32, k int) ([]rag.ScoredChunk, error) {
	return f.hits, nil
}

type fakeParentBlocks struct {
	blocks map[string]rag.ParentBlock
}

func (f *fakeParentBlocks) ReplaceAll(ctx context.Context, userID, documentID string, blocks []rag.ParentBlock) error {
	return nil
}
func (f *fakeParentBlocks) GetByIDs(ctx context.Context, userID string, ids []string) ([]rag.ParentBlock, error) {
	var out []rag.ParentBlock
	for _, id := range ids {
		if b, ok := f.blocks[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}
func (f *fakeParentBlocks) FullCorpus(ctx context.Context, userID string) ([]rag.ChildChunk, error) {
	return nil, nil
}

func drain(t *testing.T, events <-chan rag.StreamEvent) []rag.StreamEvent {
	t.Helper()
	var out []rag.StreamEvent
	for e := range events {
		out = append(out, e)
	}
	return out
}

func TestRunner_HappyPath_RetrievesGradesAndAnswers(t *testing.T) {
	llm := &fakeLLM{
		invokeReplies: []rag.Message{
			// query_or_respond: model calls the retrieval tool.
			{Role: rag.RoleAssistant, ToolCalls: []rag.ToolCall{{ID: "call-1", Name: rag.RetrievalToolName, Arguments: map[string]any{"query": "orig"}}}},
			// grade_documents: relevant.
			{Role: rag.RoleAssistant, Content: "yes"},
		},
		streamChunks: []string{"answer ", "text"},
	}
	vectors := &fakeVectorStore{hits: []rag.ScoredChunk{
		{Chunk: rag.ScoredChunkRef{ChunkID: "c1", ParentID: "p1", DocumentID: "d1"}, Score: 0.9},
	}}
	parents := &fakeParentBlocks{blocks: map[string]rag.ParentBlock{
		"p1": {ID: "p1", DocumentID: "d1", Content: "relevant content"},
	}}
	retriever := retrieval.NewRetriever(vectors, parents, fakeEmbedder{}, nil, nil)
	runner := NewRunner(llm, retriever, rag.NewSummarizer(llm, rag.NewTokenEstimator()), nil)

	state := rag.RetrievalState{
		ThreadID:     "t1",
		UserID:       "u1",
		CurrentQuery: "orig",
		Messages:     []rag.Message{{Role: rag.RoleUser, Content: "orig"}},
	}
	cfg := Config{
		MaxRetryCount: 3,
		Retrieval:     retrieval.Options{RetrievalK: 5, UseParentChild: true},
	}

	upstream, _ := runner.Run(context.Background(), "u1", state, cfg)
	events := drain(t, upstream)
	require.NotEmpty(t, events)

	var sawComplete bool
	var answer string
	for _, e := range events {
		if e.Type == rag.EventComplete {
			sawComplete = true
			answer = e.Content
			require.NotEmpty(t, e.RetrievedDocs)
			require.NotEmpty(t, e.ThinkingProcess)
			require.Positive(t, e.TokensUsed)
		}
		require.NotEqual(t, rag.EventError, e.Type)
	}
	require.True(t, sawComplete)
	require.Equal(t, "answer text", answer)
}

// TestRunner_ToolCallPairingSurvivesRetrieval asserts that the repaired
// message list after a run never contains an orphaned tool_calls entry
// or a tool message with no matching call: the integrity pass must run
// only once the retrieve step's tool result has actually been appended.
func TestRunner_ToolCallPairingSurvivesRetrieval(t *testing.T) {
	llm := &fakeLLM{
		invokeReplies: []rag.Message{
			{Role: rag.RoleAssistant, ToolCalls: []rag.ToolCall{{ID: "call-1", Name: rag.RetrievalToolName, Arguments: map[string]any{"query": "orig"}}}},
			{Role: rag.RoleAssistant, Content: "yes"},
		},
		streamChunks: []string{"answer"},
	}
	vectors := &fakeVectorStore{hits: []rag.ScoredChunk{
		{Chunk: rag.ScoredChunkRef{ChunkID: "c1", ParentID: "p1", DocumentID: "d1"}, Score: 0.9},
	}}
	parents := &fakeParentBlocks{blocks: map[string]rag.ParentBlock{
		"p1": {ID: "p1", DocumentID: "d1", Content: "relevant content"},
	}}
	retriever := retrieval.NewRetriever(vectors, parents, fakeEmbedder{}, nil, nil)
	runner := NewRunner(llm, retriever, rag.NewSummarizer(llm, rag.NewTokenEstimator()), nil)

	state := rag.RetrievalState{
		UserID:       "u1",
		CurrentQuery: "orig",
		Messages:     []rag.Message{{Role: rag.RoleUser, Content: "orig"}},
	}
	cfg := Config{MaxRetryCount: 3}

	upstream, final := runner.Run(context.Background(), "u1", state, cfg)
	drain(t, upstream)

	var pendingCalls map[string]bool
	for _, m := range final.Messages {
		if m.Role == rag.RoleAssistant && len(m.ToolCalls) > 0 {
			pendingCalls = make(map[string]bool, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				require.NotEmpty(t, tc.ID)
				pendingCalls[tc.ID] = true
			}
			continue
		}
		if m.Role == rag.RoleTool {
			require.True(t, pendingCalls[m.ToolCallID], "tool message %q must pair with a preceding assistant tool_call", m.ToolCallID)
			delete(pendingCalls, m.ToolCallID)
		}
	}
}

// TestRunner_RetryCountResetsAtStartOfRun seeds a RetrievalState with a
// leftover RetryCount from a prior, exhausted run and checks the graph
// still performs the full rewrite budget rather than treating the
// checkpointed value as already spent.
func TestRunner_RetryCountResetsAtStartOfRun(t *testing.T) {
	llm := &fakeLLM{
		invokeReplies: []rag.Message{
			{Role: rag.RoleAssistant, ToolCalls: []rag.ToolCall{{ID: "call-1", Name: rag.RetrievalToolName}}},
			{Role: rag.RoleAssistant, Content: "no"},
			{Role: rag.RoleAssistant, Content: "rewritten once"},
			{Role: rag.RoleAssistant, ToolCalls: []rag.ToolCall{{ID: "call-2", Name: rag.RetrievalToolName}}},
			{Role: rag.RoleAssistant, Content: "no"},
			{Role: rag.RoleAssistant, Content: "rewritten twice"},
			{Role: rag.RoleAssistant, ToolCalls: []rag.ToolCall{{ID: "call-3", Name: rag.RetrievalToolName}}},
			{Role: rag.RoleAssistant, Content: "no"},
		},
		streamChunks: []string{"no relevant content"},
	}
	vectors := &fakeVectorStore{hits: []rag.ScoredChunk{
		{Chunk: rag.ScoredChunkRef{ChunkID: "c1", ParentID: "p1", DocumentID: "d1"}, Score: 0.5},
	}}
	parents := &fakeParentBlocks{blocks: map[string]rag.ParentBlock{
		"p1": {ID: "p1", DocumentID: "d1", Content: "unrelated content"},
	}}
	retriever := retrieval.NewRetriever(vectors, parents, fakeEmbedder{}, nil, nil)
	runner := NewRunner(llm, retriever, rag.NewSummarizer(llm, rag.NewTokenEstimator()), nil)

	state := rag.RetrievalState{
		UserID:       "u1",
		CurrentQuery: "orig",
		RetryCount:   2, // leftover from a prior, already-exhausted checkpointed run
		Messages:     []rag.Message{{Role: rag.RoleUser, Content: "orig"}},
	}
	cfg := Config{MaxRetryCount: 3}

	upstream, final := runner.Run(context.Background(), "u1", state, cfg)
	events := drain(t, upstream)

	var rewrites int
	for _, e := range events {
		if e.Type == rag.EventThinking && e.Node == "rewrite_question" {
			rewrites++
		}
	}
	require.Equal(t, 2, rewrites, "a stale RetryCount must not shortcut the rewrite budget")
	require.Equal(t, 0, final.RetryCount, "retry_count resets to 0 once a run reaches generate_answer")
}

func TestRunner_MissingToolCall_ForcesSyntheticRetrieveCall(t *testing.T) {
	llm := &fakeLLM{
		invokeReplies: []rag.Message{
			// query_or_respond: model forgets to call the tool.
			{Role: rag.RoleAssistant, Content: "I think I know the answer already"},
			// grade_documents: irrelevant (corpus is empty).
			{Role: rag.RoleAssistant, Content: "no"},
		},
		streamChunks: []string{"fallback answer"},
	}
	retriever := retrieval.NewRetriever(&fakeVectorStore{}, &fakeParentBlocks{}, fakeEmbedder{}, nil, nil)
	runner := NewRunner(llm, retriever, rag.NewSummarizer(llm, rag.NewTokenEstimator()), nil)

	state := rag.RetrievalState{UserID: "u1", CurrentQuery: "hi", Messages: []rag.Message{{Role: rag.RoleUser, Content: "hi"}}}
	cfg := Config{MaxRetryCount: 1}

	upstream, _ := runner.Run(context.Background(), "u1", state, cfg)
	events := drain(t, upstream)
	require.NotEmpty(t, events)
	var sawRetrieve bool
	for _, e := range events {
		if e.Type == rag.EventThinking && e.Node == "retrieve" {
			sawRetrieve = true
		}
	}
	require.True(t, sawRetrieve, "a missing tool call must still be forced through the retrieve node")
	require.Equal(t, rag.EventComplete, events[len(events)-1].Type)
}
