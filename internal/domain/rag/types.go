// Package rag implements the multi-tenant ingestion pipeline and
// agentic retrieval graph shared by the Gateway and Worker binaries.
package rag

import "time"

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusExtracting DocumentStatus = "extracting"
	StatusChunking   DocumentStatus = "chunking"
	StatusEmbedding  DocumentStatus = "embedding"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
	StatusDeleted    DocumentStatus = "deleted"
)

// Document is the tenant-scoped unit of ingestion.
type Document struct {
	ID          string
	UserID      string
	Filename    string
	MimeType    string
	StorageKey  string
	SizeBytes   int64
	Status      DocumentStatus
	ChunkCount  int
	PageCount   int
	FailureInfo string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ParentBlock is the coarse-grained retrieval unit returned to the
// model: enough surrounding context to answer from directly.
type ParentBlock struct {
	ID         string
	DocumentID string
	UserID     string
	Index      int
	Content    string
	Title      string
	Author     string
	Source     string
	Page       int
	CreatedAt  time.Time
}

// ChildChunk is the fine-grained unit actually embedded and searched;
// it always projects back to its owning ParentBlock before being
// handed to the model.
type ChildChunk struct {
	ID         string
	ParentID   string
	DocumentID string
	UserID     string
	Index      int
	Content    string
	Embedding  []float32
}

// ScoredChunk pairs a chunk reference with a retrieval-stage score.
type ScoredChunk struct {
	Chunk ScoredChunkRef
	Score float64
}

// ScoredChunkRef is the minimal chunk identity carried through ranking
// stages, resolved to full content only at the point of use.
type ScoredChunkRef struct {
	ChunkID    string
	ParentID   string
	DocumentID string
}

// Role identifies the speaker of a Message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Message is the Go-native analogue of a LangChain message: a single
// turn in a thread's history, normalized across providers.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string // set only on RoleTool messages, pairs to a ToolCall.ID
	Name       string // tool name, set only on RoleTool messages
}

// RetrievalState is the mutable state threaded through every node of
// the retrieval graph for a single run.
type RetrievalState struct {
	ThreadID     string
	UserID       string
	SessionID    string
	Messages     []Message
	CurrentQuery string
	RetryCount   int
	Retrieved    []ScoredChunk
	Done         bool
}

// Conversation is the persisted, per-thread checkpoint of a retrieval
// run: the full message history plus bookkeeping needed to resume.
type Conversation struct {
	ThreadID   string
	UserID     string
	SessionID  string
	Messages   []Message
	RetryCount int
	UpdatedAt  time.Time
}

// StreamEventType enumerates the SSE event kinds emitted while a run
// is in progress.
type StreamEventType string

const (
	EventThinking StreamEventType = "thinking"
	EventChunk    StreamEventType = "chunk"
	EventComplete StreamEventType = "complete"
	EventError    StreamEventType = "error"
)

// StreamEvent is one frame of the `text/event-stream` response body.
type StreamEvent struct {
	Type            StreamEventType `json:"type"`
	Content         string          `json:"content,omitempty"`
	Node            string          `json:"node,omitempty"`
	Error           string          `json:"error,omitempty"`
	SessionID       string          `json:"session_id,omitempty"`
	Data            []ThinkingStep  `json:"data,omitempty"`
	RetrievedDocs   []RetrievedDoc  `json:"retrieved_docs,omitempty"`
	ThinkingProcess []ThinkingStep  `json:"thinking_process,omitempty"`
	TokensUsed      int             `json:"tokens_used,omitempty"`
}

// ThinkingStep is one entry of a thinking event's step log, and is
// also what a completion envelope's thinking_process trace is made of.
type ThinkingStep struct {
	Step        string `json:"step"`
	Action      string `json:"action"`
	Description string `json:"description"`
	Details     string `json:"details,omitempty"`
}

// RetrievedDoc summarizes one chunk surfaced to the model, echoed back
// to the caller in a completion envelope.
type RetrievedDoc struct {
	DocumentID string  `json:"document_id"`
	ParentID   string  `json:"parent_id"`
	ChunkID    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
}

// NoRelevantDocuments is the sentinel content returned by the retrieval
// tool when nothing in the tenant's corpus clears the bar.
const NoRelevantDocuments = "No relevant documents found."

// RetrievalToolName is the function name the graph exposes to the LLM.
const RetrievalToolName = "retrieve_documents"

// SummaryMarker delimits the injected conversation-history summary
// inside the single system message.
const SummaryMarker = "[对话历史总结]"
