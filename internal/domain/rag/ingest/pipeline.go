package ingest

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
	apperrors "github.com/yanqian/ai-helloworld/pkg/errors"
)

// embedBatchSize is the fixed batch the spec mandates for the embed
// stage, independent of any token-budget heuristic.
const embedBatchSize = 50

// Pipeline runs the six ingestion stages against a single document:
// fetch & extract, clean, parent/child split, persist parent map,
// embed & upsert, finalize.
type Pipeline struct {
	blobs    rag.BlobStore
	parents  rag.ParentBlockRepository
	vectors  rag.VectorStore
	docs     rag.DocumentRepository
	embedder rag.Embedder
	logger   *slog.Logger
}

// NewPipeline constructs the ingestion pipeline.
func NewPipeline(blobs rag.BlobStore, parents rag.ParentBlockRepository, vectors rag.VectorStore, docs rag.DocumentRepository, embedder rag.Embedder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{blobs: blobs, parents: parents, vectors: vectors, docs: docs, embedder: embedder, logger: logger.With("component", "rag.ingest.pipeline")}
}

// Run executes all six stages for one job. Failures at any stage mark
// the document `error` with a bounded, NUL-stripped message and are
// isolated to this document — they never reach the chat flow.
func (p *Pipeline) Run(ctx context.Context, job rag.IngestJob) error {
	log := p.logger.With("user_id", job.UserID, "document_id", job.DocumentID)
	log.Info("ingest start")

	extracted, err := p.fetchAndExtract(ctx, job)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	cleaned := Clean(extracted.Text)
	if strings.TrimSpace(cleaned) == "" {
		return p.fail(ctx, job, apperrors.Wrap(apperrors.KindEmptyDocument, "no extractable text after cleaning", nil))
	}

	parentCandidates := SplitParents(cleaned)
	if len(parentCandidates) == 0 {
		return p.fail(ctx, job, apperrors.Wrap(apperrors.KindEmptyDocument, "no parent blocks produced", nil))
	}

	parents := make([]rag.ParentBlock, 0, len(parentCandidates))
	var allChildren []rag.ChildChunk
	for pi, pc := range parentCandidates {
		parents = append(parents, rag.ParentBlock{
			ID:         pc.ParentID,
			DocumentID: job.DocumentID,
			UserID:     job.UserID,
			Index:      pi,
			Content:    pc.Content,
			Source:     job.StorageKey,
		})
		children := SplitChildren(pc.ParentID, pc.Content, len(allChildren))
		for _, cc := range children {
			allChildren = append(allChildren, rag.ChildChunk{
				ID:         uuid.NewString(),
				ParentID:   cc.ParentID,
				DocumentID: job.DocumentID,
				UserID:     job.UserID,
				Index:      cc.ChunkID,
				Content:    cc.Content,
			})
		}
	}

	// Stage 4: persist the parent map transactionally, idempotent
	// under re-run via delete-then-insert.
	if err := p.parents.ReplaceAll(ctx, job.UserID, job.DocumentID, parents); err != nil {
		return p.fail(ctx, job, apperrors.Wrap(apperrors.KindDBConnectionFailed, "persist parent map", err))
	}

	// Idempotent re-ingestion: sweep any vectors from a prior run of
	// this document before upserting the fresh set.
	if err := p.vectors.DeleteByDocument(ctx, job.UserID, job.DocumentID); err != nil {
		log.Warn("pre-ingest vector sweep failed, continuing", "error", err)
	}

	upserted, err := p.embedAndUpsert(ctx, allChildren)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	if err := p.docs.UpdateStatus(ctx, job.UserID, job.DocumentID, rag.StatusReady, upserted, extracted.PageCount, ""); err != nil {
		return apperrors.Wrap(apperrors.KindDBConnectionFailed, "finalize document status", err)
	}
	log.Info("ingest complete", "chunks", upserted, "parents", len(parents))
	return nil
}

// DeleteVectors sweeps a document's vectors and parent blocks without
// touching its metadata row, used after a Gateway-side document delete
// has already marked the Document record deleted.
func (p *Pipeline) DeleteVectors(ctx context.Context, userID, documentID string) error {
	if err := p.vectors.DeleteByDocument(ctx, userID, documentID); err != nil {
		return apperrors.Wrap(apperrors.KindVectorUpsertFailed, "delete vectors", err)
	}
	if err := p.parents.ReplaceAll(ctx, userID, documentID, nil); err != nil {
		return apperrors.Wrap(apperrors.KindDBConnectionFailed, "clear parent map", err)
	}
	return nil
}

func (p *Pipeline) fetchAndExtract(ctx context.Context, job rag.IngestJob) (Extracted, error) {
	reader, err := p.blobs.Get(ctx, job.StorageKey)
	if err != nil {
		return Extracted{}, apperrors.Wrap(apperrors.KindBlobDownloadFailed, "download blob", err)
	}
	defer reader.Close()
	raw, err := io.ReadAll(reader)
	if err != nil {
		return Extracted{}, apperrors.Wrap(apperrors.KindBlobDownloadFailed, "read blob", err)
	}
	extracted, err := Extract(job.FileType, raw)
	if err != nil {
		return Extracted{}, err
	}
	return extracted, nil
}

// embedAndUpsert batches children at the fixed size the spec
// mandates, embeds each batch, and upserts into the vector store
// with the mandatory user_id filter attached via ChildChunk.UserID.
func (p *Pipeline) embedAndUpsert(ctx context.Context, children []rag.ChildChunk) (int, error) {
	total := 0
	for start := 0; start < len(children); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(children) {
			end = len(children)
		}
		batch := children[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return total, apperrors.Wrap(apperrors.KindEmbedFailed, "embed batch", err)
		}
		if len(embeddings) != len(batch) {
			return total, apperrors.Wrap(apperrors.KindEmbedFailed, "embedding count mismatch", nil)
		}
		for i := range batch {
			batch[i].Embedding = embeddings[i]
		}
		if err := p.vectors.Upsert(ctx, batch); err != nil {
			return total, apperrors.Wrap(apperrors.KindVectorUpsertFailed, "upsert batch", err)
		}
		total += len(batch)
		p.logger.Info("ingest batch upserted", "batch_size", len(batch), "total", total)
	}
	return total, nil
}

func (p *Pipeline) fail(ctx context.Context, job rag.IngestJob, cause error) error {
	msg := strings.ReplaceAll(cause.Error(), "\x00", "")
	if len(msg) > 500 {
		msg = msg[:500]
	}
	if err := p.docs.UpdateStatus(ctx, job.UserID, job.DocumentID, rag.StatusFailed, 0, 0, msg); err != nil {
		p.logger.Error("failed to record ingest failure status", "error", err)
	}
	p.logger.Error("ingest failed", "user_id", job.UserID, "document_id", job.DocumentID, "error", cause)
	return cause
}
