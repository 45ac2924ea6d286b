// Package metadata persists Document rows and the parent block map in
// Postgres.
package metadata

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
)

// DocumentStore persists Document rows scoped to a tenant.
type DocumentStore struct {
	pool *pgxpool.Pool
}

// NewDocumentStore constructs the document repository.
func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

func (s *DocumentStore) Create(ctx context.Context, doc rag.Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rag_documents (id, user_id, filename, mime_type, storage_key, size_bytes, status, chunk_count, page_count, failure_info, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`, doc.ID, doc.UserID, doc.Filename, doc.MimeType, doc.StorageKey, doc.SizeBytes, doc.Status, doc.ChunkCount, doc.PageCount, doc.FailureInfo)
	return err
}

func (s *DocumentStore) UpdateStatus(ctx context.Context, userID, documentID string, status rag.DocumentStatus, chunkCount, pageCount int, failureInfo string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE rag_documents
		SET status = $1, chunk_count = $2, page_count = $3, failure_info = $4, updated_at = NOW()
		WHERE id = $5 AND user_id = $6
	`, status, chunkCount, pageCount, failureInfo, documentID, userID)
	return err
}

func (s *DocumentStore) Get(ctx context.Context, userID, documentID string) (rag.Document, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, filename, mime_type, storage_key, size_bytes, status, chunk_count, page_count, failure_info, created_at, updated_at
		FROM rag_documents
		WHERE id = $1 AND user_id = $2
		LIMIT 1
	`, documentID, userID)
	var doc rag.Document
	if err := row.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.MimeType, &doc.StorageKey, &doc.SizeBytes, &doc.Status, &doc.ChunkCount, &doc.PageCount, &doc.FailureInfo, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return rag.Document{}, false, nil
		}
		return rag.Document{}, false, err
	}
	return doc, true, nil
}

func (s *DocumentStore) List(ctx context.Context, userID string) ([]rag.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, filename, mime_type, storage_key, size_bytes, status, chunk_count, page_count, failure_info, created_at, updated_at
		FROM rag_documents
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []rag.Document
	for rows.Next() {
		var doc rag.Document
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.MimeType, &doc.StorageKey, &doc.SizeBytes, &doc.Status, &doc.ChunkCount, &doc.PageCount, &doc.FailureInfo, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *DocumentStore) Delete(ctx context.Context, userID, documentID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rag_documents WHERE id = $1 AND user_id = $2`, documentID, userID)
	return err
}

var _ rag.DocumentRepository = (*DocumentStore)(nil)

// ParentBlockStore persists the parent block map with transactional
// replace-on-reingest semantics.
type ParentBlockStore struct {
	pool *pgxpool.Pool
}

// NewParentBlockStore constructs the parent block repository.
func NewParentBlockStore(pool *pgxpool.Pool) *ParentBlockStore {
	return &ParentBlockStore{pool: pool}
}

// ReplaceAll deletes every existing parent block for the document and
// inserts the new set inside a single transaction, so a failed
// ingestion retry never leaves a half-written parent map visible.
func (s *ParentBlockStore) ReplaceAll(ctx context.Context, userID, documentID string, blocks []rag.ParentBlock) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM rag_parent_blocks WHERE user_id = $1 AND document_id = $2`, userID, documentID); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, b := range blocks {
		batch.Queue(`
			INSERT INTO rag_parent_blocks (id, document_id, user_id, block_index, content, title, author, source, page, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, b.ID, b.DocumentID, b.UserID, b.Index, b.Content, b.Title, b.Author, b.Source, b.Page, b.CreatedAt)
	}
	if len(blocks) > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *ParentBlockStore) GetByIDs(ctx context.Context, userID string, parentIDs []string) ([]rag.ParentBlock, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, user_id, block_index, content, title, author, source, page, created_at
		FROM rag_parent_blocks
		WHERE user_id = $1 AND id = ANY($2)
	`, userID, parentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanParentBlocks(rows)
}

// FullCorpus returns every child chunk owned by the tenant, used by
// the retrieval layer to build a fresh in-memory BM25 index per call.
func (s *ParentBlockStore) FullCorpus(ctx context.Context, userID string) ([]rag.ChildChunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, parent_id, document_id, user_id, chunk_index, content
		FROM rag_child_chunks
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rag.ChildChunk
	for rows.Next() {
		var c rag.ChildChunk
		if err := rows.Scan(&c.ID, &c.ParentID, &c.DocumentID, &c.UserID, &c.Index, &c.Content); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanParentBlocks(rows pgx.Rows) ([]rag.ParentBlock, error) {
	var out []rag.ParentBlock
	for rows.Next() {
		var b rag.ParentBlock
		if err := rows.Scan(&b.ID, &b.DocumentID, &b.UserID, &b.Index, &b.Content, &b.Title, &b.Author, &b.Source, &b.Page, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

var _ rag.ParentBlockRepository = (*ParentBlockStore)(nil)
