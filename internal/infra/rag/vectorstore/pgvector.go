// Package vectorstore implements the dense similarity-search port on
// top of Postgres with the pgvector extension.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
)

// Store is the pgvector-backed VectorStore. Every query carries a
// mandatory user_id filter; no query path can cross tenants.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs the vector store adapter.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Upsert writes child chunk embeddings, replacing any existing row
// with the same id (idempotent under ingestion retries).
func (s *Store) Upsert(ctx context.Context, chunks []rag.ChildChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`
			INSERT INTO rag_child_chunks (id, parent_id, document_id, user_id, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding
		`, c.ID, c.ParentID, c.DocumentID, c.UserID, c.Index, c.Content, pgvector.NewVector(c.Embedding))
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

// DeleteByDocument removes every chunk belonging to one document,
// called before a re-ingest replaces it.
func (s *Store) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM rag_child_chunks WHERE user_id = $1 AND document_id = $2
	`, userID, documentID)
	return err
}

// SimilaritySearch returns the k nearest child chunks to embedding
// within the tenant's own corpus, scored as cosine similarity.
func (s *Store) SimilaritySearch(ctx context.Context, userID string, embedding []float32, k int) ([]rag.ScoredChunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, parent_id, document_id, 1 - (embedding <=> $1) AS score
		FROM rag_child_chunks
		WHERE user_id = $2
		ORDER BY embedding <=> $1 ASC
		LIMIT $3
	`, pgvector.NewVector(embedding), userID, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var out []rag.ScoredChunk
	for rows.Next() {
		var (
			chunkID, parentID, documentID string
			score                         float64
		)
		if err := rows.Scan(&chunkID, &parentID, &documentID, &score); err != nil {
			return nil, err
		}
		out = append(out, rag.ScoredChunk{
			Chunk: rag.ScoredChunkRef{ChunkID: chunkID, ParentID: parentID, DocumentID: documentID},
			Score: score,
		})
	}
	return out, rows.Err()
}

var _ rag.VectorStore = (*Store)(nil)
