package rag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/ai-helloworld/pkg/errors"
)

// ExternalStatus is the four-value document lifecycle the Gateway's
// HTTP API exposes to end users, coarser than the pipeline's internal
// DocumentStatus.
type ExternalStatus string

const (
	ExternalProcessing ExternalStatus = "processing"
	ExternalActive     ExternalStatus = "active"
	ExternalError      ExternalStatus = "error"
	ExternalDeleted    ExternalStatus = "deleted"
)

// ToExternalStatus collapses the pipeline's per-stage status into the
// four values the upload/status endpoints document.
func ToExternalStatus(s DocumentStatus) ExternalStatus {
	switch s {
	case StatusReady:
		return ExternalActive
	case StatusFailed:
		return ExternalError
	case StatusDeleted:
		return ExternalDeleted
	default:
		return ExternalProcessing
	}
}

// BlobUploadURLIssuer mints a direct-to-blob upload URL for one key.
type BlobUploadURLIssuer interface {
	PresignedPutURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Bucket() string
	Endpoint() string
}

// DocumentWorker is the subset of the Worker client the Gateway's
// document flow calls into.
type DocumentWorker interface {
	ProcessDocument(ctx context.Context, job IngestJob) error
	DeleteDocumentVectors(ctx context.Context, userID, documentID string) error
}

// ChatWorker streams a chat turn from the Worker.
type ChatWorker interface {
	StreamChat(ctx context.Context, userID, sessionID, message string) (io.ReadCloser, error)
}

// GatewayConfig bounds upload intents.
type GatewayConfig struct {
	MaxFileSize      int64
	UploadURLExpiry  time.Duration
	AllowedFileTypes []string
}

// GatewayService implements the Gateway's document upload brokering and
// chat proxy: it never runs ingestion or retrieval itself, only hands
// off to the Worker over HTTP once its own metadata bookkeeping is done.
type GatewayService struct {
	cfg    GatewayConfig
	docs   DocumentRepository
	blobs  BlobStore
	upload BlobUploadURLIssuer
	queue  JobQueue
	worker DocumentWorker
	chat   ChatWorker
	logger *slog.Logger
}

// NewGatewayService wires the Gateway's document and chat surface.
func NewGatewayService(cfg GatewayConfig, docs DocumentRepository, blobs BlobStore, upload BlobUploadURLIssuer, queue JobQueue, worker DocumentWorker, chat ChatWorker, logger *slog.Logger) *GatewayService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UploadURLExpiry <= 0 {
		cfg.UploadURLExpiry = 15 * time.Minute
	}
	return &GatewayService{cfg: cfg, docs: docs, blobs: blobs, upload: upload, queue: queue, worker: worker, chat: chat, logger: logger.With("component", "rag.gateway")}
}

// UploadIntent is what a tus-init/upload-url call returns.
type UploadIntent struct {
	DocumentID string
	UploadURL  string
	Endpoint   string
	Bucket     string
	ObjectName string
	MaxSize    int64
}

func storageKey(userID, documentID, filename string) string {
	return fmt.Sprintf("user_%s/%s_%s", userID, documentID, filename)
}

var defaultAllowedExtensions = []string{".pdf", ".txt", ".md", ".docx"}

func (s *GatewayService) extensionAllowed(filename string) bool {
	allowed := s.cfg.AllowedFileTypes
	if len(allowed) == 0 {
		allowed = defaultAllowedExtensions
	}
	lower := strings.ToLower(filename)
	for _, ext := range allowed {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// InitiateUpload validates the intent, creates a processing Document
// row, and mints a direct-to-blob upload URL.
func (s *GatewayService) InitiateUpload(ctx context.Context, userID, filename string, fileSize int64, contentType string) (UploadIntent, error) {
	if strings.TrimSpace(userID) == "" {
		return UploadIntent{}, apperrors.Wrap(apperrors.KindUnauthorized, "missing user id", nil)
	}
	if strings.TrimSpace(filename) == "" {
		return UploadIntent{}, apperrors.Wrap(apperrors.KindInvalidInput, "filename required", nil)
	}
	if s.cfg.MaxFileSize > 0 && fileSize > s.cfg.MaxFileSize {
		return UploadIntent{}, apperrors.Wrap(apperrors.KindInvalidInput, "file exceeds maximum size", nil)
	}
	if !s.extensionAllowed(filename) {
		return UploadIntent{}, apperrors.Wrap(apperrors.KindInvalidInput, "unsupported file type", nil)
	}

	docID := uuid.NewString()
	key := storageKey(userID, docID, filename)

	doc := Document{
		ID:         docID,
		UserID:     userID,
		Filename:   filename,
		MimeType:   contentType,
		StorageKey: key,
		SizeBytes:  fileSize,
		Status:     StatusPending,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return UploadIntent{}, fmt.Errorf("create document: %w", err)
	}

	uploadURL, err := s.upload.PresignedPutURL(ctx, key, s.cfg.UploadURLExpiry)
	if err != nil {
		return UploadIntent{}, fmt.Errorf("presign upload url: %w", err)
	}

	return UploadIntent{
		DocumentID: docID,
		UploadURL:  uploadURL,
		Endpoint:   s.upload.Endpoint(),
		Bucket:     s.upload.Bucket(),
		ObjectName: key,
		MaxSize:    s.cfg.MaxFileSize,
	}, nil
}

// ConfirmUpload marks a document's bytes as landed and hands the
// ingestion job to the Worker.
func (s *GatewayService) ConfirmUpload(ctx context.Context, userID, documentID string) error {
	doc, found, err := s.docs.Get(ctx, userID, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if !found {
		return apperrors.Wrap(apperrors.KindInvalidInput, "document not found", nil)
	}

	if err := s.queue.Enqueue(ctx, IngestJob{
		UserID:     userID,
		DocumentID: documentID,
		StorageKey: doc.StorageKey,
		FileType:   doc.MimeType,
	}); err != nil {
		s.logger.Warn("enqueue ingest job failed, falling back to direct worker call", "document_id", documentID, "error", err)
		if s.worker != nil {
			return s.worker.ProcessDocument(ctx, IngestJob{
				UserID:     userID,
				DocumentID: documentID,
				StorageKey: doc.StorageKey,
				FileType:   doc.MimeType,
			})
		}
		return err
	}
	return nil
}

// DocumentStatusView is the Gateway's status-endpoint response shape.
type DocumentStatusView struct {
	DocumentID  string
	Status      ExternalStatus
	ChunkCount  int
	FailureInfo string
}

// Status reports a document's external status.
func (s *GatewayService) Status(ctx context.Context, userID, documentID string) (DocumentStatusView, error) {
	doc, found, err := s.docs.Get(ctx, userID, documentID)
	if err != nil {
		return DocumentStatusView{}, fmt.Errorf("load document: %w", err)
	}
	if !found {
		return DocumentStatusView{}, apperrors.Wrap(apperrors.KindInvalidInput, "document not found", nil)
	}
	return DocumentStatusView{
		DocumentID:  doc.ID,
		Status:      ToExternalStatus(doc.Status),
		ChunkCount:  doc.ChunkCount,
		FailureInfo: doc.FailureInfo,
	}, nil
}

// List returns every non-deleted document a tenant owns.
func (s *GatewayService) List(ctx context.Context, userID string) ([]Document, error) {
	all, err := s.docs.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(all))
	for _, doc := range all {
		if doc.Status == StatusDeleted {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DeleteDocument soft-deletes the document by marking its metadata row
// deleted, removes its blob, and asks the Worker to sweep the
// document's vectors.
func (s *GatewayService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	doc, found, err := s.docs.Get(ctx, userID, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if !found {
		return apperrors.Wrap(apperrors.KindInvalidInput, "document not found", nil)
	}
	if err := s.docs.UpdateStatus(ctx, userID, documentID, StatusDeleted, doc.ChunkCount, doc.PageCount, ""); err != nil {
		return fmt.Errorf("soft delete document row: %w", err)
	}
	if err := s.blobs.Delete(ctx, doc.StorageKey); err != nil {
		s.logger.Warn("blob delete failed after document marked deleted", "document_id", documentID, "error", err)
	}
	if s.worker != nil {
		if err := s.worker.DeleteDocumentVectors(ctx, userID, documentID); err != nil {
			s.logger.Warn("worker vector sweep failed after document marked deleted", "document_id", documentID, "error", err)
		}
	}
	return nil
}

// StreamChat proxies one chat turn to the Worker and returns the raw
// SSE body for the caller to relay to the browser.
func (s *GatewayService) StreamChat(ctx context.Context, userID, sessionID, message string) (io.ReadCloser, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.Wrap(apperrors.KindUnauthorized, "missing user id", nil)
	}
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "message cannot be empty", nil)
	}
	return s.chat.StreamChat(ctx, userID, sessionID, message)
}
