package rag

import (
	"context"
	"io"
)

// BlobStore abstracts byte-level object storage (S3/R2/MinIO).
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Embedder produces dense vector embeddings for free-form text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Reranker scores a query against a batch of candidate texts with a
// cross-encoder, returning one score per candidate in input order.
type Reranker interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// LLM is the chat-completion port with tool binding and streaming,
// used identically by query_or_respond, grade, rewrite, and answer.
type LLM interface {
	Invoke(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error)
	Stream(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

// ToolSpec describes a function the model may call.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// VectorStore is the dense-index port; every call carries a mandatory
// tenant filter.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []ChildChunk) error
	DeleteByDocument(ctx context.Context, userID, documentID string) error
	SimilaritySearch(ctx context.Context, userID string, embedding []float32, k int) ([]ScoredChunk, error)
}

// DocumentRepository persists Document rows.
type DocumentRepository interface {
	Create(ctx context.Context, doc Document) error
	UpdateStatus(ctx context.Context, userID, documentID string, status DocumentStatus, chunkCount int, pageCount int, failureInfo string) error
	Get(ctx context.Context, userID, documentID string) (Document, bool, error)
	List(ctx context.Context, userID string) ([]Document, error)
	Delete(ctx context.Context, userID, documentID string) error
}

// ParentBlockRepository persists the parent map: transactional
// delete-then-insert per (user_id, doc_id), and lookup by id for the
// retrieval layer's parent projection.
type ParentBlockRepository interface {
	ReplaceAll(ctx context.Context, userID, documentID string, blocks []ParentBlock) error
	GetByIDs(ctx context.Context, userID string, parentIDs []string) ([]ParentBlock, error)
	FullCorpus(ctx context.Context, userID string) ([]ChildChunk, error)
}

// ConversationStore is the checkpoint port: one record per thread,
// last-writer-wins on full-record replace.
type ConversationStore interface {
	Load(ctx context.Context, threadID string) (Conversation, bool, error)
	Save(ctx context.Context, conv Conversation) error
}

// JobQueue dispatches ingestion jobs from Gateway to Worker.
type JobQueue interface {
	Enqueue(ctx context.Context, job IngestJob) error
}

// IngestJob is the payload a Gateway upload confirmation enqueues for
// the Worker's ingestion pipeline.
type IngestJob struct {
	UserID     string
	DocumentID string
	StorageKey string
	FileType   string
}
