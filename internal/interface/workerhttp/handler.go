// Package workerhttp exposes the Worker's internal API: the small set
// of endpoints the Gateway calls to trigger ingestion and drive a chat
// turn. It is never exposed to end users directly.
package workerhttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
	apperrors "github.com/yanqian/ai-helloworld/pkg/errors"
)

// Handler binds the RAG domain service to the internal HTTP surface.
type Handler struct {
	svc    *rag.Service
	logger *slog.Logger
}

// NewHandler constructs the Worker's internal handler.
func NewHandler(svc *rag.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger.With("component", "workerhttp.handler")}
}

type chatMessageRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

// ChatMessage drives one retrieval-graph run. When the caller accepts
// `text/event-stream` (the Gateway's proxy always does) the run is
// streamed frame by frame; any other caller gets a single JSON ack
// once the run completes, matching the internal API's documented
// `{success, session_id}` shape for non-streaming callers such as
// health probes or batch tooling.
func (h *Handler) ChatMessage(c *gin.Context) {
	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.svc.Chat(c.Request.Context(), rag.ChatRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if apperrors.IsCode(err, apperrors.KindUnauthorized) {
			status = http.StatusUnauthorized
		}
		if apperrors.IsCode(err, apperrors.KindInvalidInput) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if !strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		for range events {
			// drain to completion before acking a non-streaming caller
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "session_id": req.SessionID})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	for evt := range events {
		payload, err := json.Marshal(evt)
		if err != nil {
			h.logger.Error("marshal stream event failed", "error", err)
			continue
		}
		c.Writer.Write([]byte("data: "))
		c.Writer.Write(payload)
		c.Writer.Write([]byte("\n\n"))
		flusher.Flush()
	}
}

type processDocumentRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	DocumentID string `json:"doc_id" binding:"required"`
	Filepath   string `json:"filepath" binding:"required"`
	FileType   string `json:"file_type" binding:"required"`
}

// ProcessDocument runs the ingestion pipeline for one already-uploaded
// document, isolating failures to that document's status row.
func (h *Handler) ProcessDocument(c *gin.Context) {
	var req processDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	docID := c.Param("doc_id")
	if docID == "" {
		docID = req.DocumentID
	}
	job := rag.IngestJob{
		UserID:     req.UserID,
		DocumentID: docID,
		StorageKey: req.Filepath,
		FileType:   req.FileType,
	}
	if err := h.svc.ProcessDocument(c.Request.Context(), job); err != nil {
		h.logger.Error("process document failed", "document_id", docID, "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "status": "error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "processing"})
}

// DeleteDocumentVectors sweeps a document's vectors and parent blocks.
func (h *Handler) DeleteDocumentVectors(c *gin.Context) {
	docID := c.Param("doc_id")
	userID := c.Query("user_id")
	if docID == "" || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "doc_id and user_id are required"})
		return
	}
	if err := h.svc.DeleteDocumentVectors(c.Request.Context(), userID, docID); err != nil {
		h.logger.Error("delete document vectors failed", "document_id", docID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Health reports readiness: embedding/reranker singletons are created
// eagerly at wiring time in this implementation, so readiness is
// equivalent to the process having started successfully.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
