package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
	apperrors "github.com/yanqian/ai-helloworld/pkg/errors"
)

// tenantID renders a Claims.UserID as the string key the rag domain's
// tenant-scoped stores key everything on.
func tenantID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

type tusInitRequest struct {
	Filename    string `json:"filename" binding:"required"`
	FileSize    int64  `json:"file_size" binding:"required"`
	ContentType string `json:"content_type"`
}

// TusInit issues a direct-to-blob upload URL and creates the document's
// processing metadata row.
func (h *Handler) TusInit(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing credentials", nil))
		return
	}
	var req tusInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	intent, err := h.ragSvc.InitiateUpload(c.Request.Context(), tenantID(claims.UserID), req.Filename, req.FileSize, req.ContentType)
	if err != nil {
		abortWithError(c, ragHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"endpoint":      intent.Endpoint,
		"bucket":        intent.Bucket,
		"object_name":   intent.ObjectName,
		"doc_id":        intent.DocumentID,
		"max_file_size": intent.MaxSize,
	})
}

// UploadURL is the simpler presigned-URL variant of the same intent.
func (h *Handler) UploadURL(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing credentials", nil))
		return
	}
	var req tusInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	intent, err := h.ragSvc.InitiateUpload(c.Request.Context(), tenantID(claims.UserID), req.Filename, req.FileSize, req.ContentType)
	if err != nil {
		abortWithError(c, ragHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"upload_url": intent.UploadURL,
		"doc_id":     intent.DocumentID,
		"status":     rag.ExternalProcessing,
	})
}

// ConfirmUpload hands the uploaded document off to the Worker for ingestion.
func (h *Handler) ConfirmUpload(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing credentials", nil))
		return
	}
	docID := c.Param("doc_id")
	if err := h.ragSvc.ConfirmUpload(c.Request.Context(), tenantID(claims.UserID), docID); err != nil {
		abortWithError(c, ragHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"doc_id": docID, "status": rag.ExternalProcessing})
}

// DocumentStatus reports a single document's ingestion progress.
func (h *Handler) DocumentStatus(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing credentials", nil))
		return
	}
	docID := c.Param("doc_id")
	view, err := h.ragSvc.Status(c.Request.Context(), tenantID(claims.UserID), docID)
	if err != nil {
		abortWithError(c, ragHTTPError(err))
		return
	}
	resp := gin.H{"doc_id": view.DocumentID, "status": view.Status, "chunk_count": view.ChunkCount}
	if view.FailureInfo != "" {
		resp["error_message"] = view.FailureInfo
	}
	c.JSON(http.StatusOK, resp)
}

// ListDocuments returns every document a tenant owns.
func (h *Handler) ListDocuments(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing credentials", nil))
		return
	}
	docs, err := h.ragSvc.List(c.Request.Context(), tenantID(claims.UserID))
	if err != nil {
		abortWithError(c, ragHTTPError(err))
		return
	}
	resp := make([]gin.H, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, gin.H{
			"doc_id":      doc.ID,
			"filename":    doc.Filename,
			"status":      rag.ToExternalStatus(doc.Status),
			"chunk_count": doc.ChunkCount,
			"created_at":  doc.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteDocument removes a tenant's document and its vectors.
func (h *Handler) DeleteDocument(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing credentials", nil))
		return
	}
	docID := c.Param("doc_id")
	if err := h.ragSvc.DeleteDocument(c.Request.Context(), tenantID(claims.UserID), docID); err != nil {
		abortWithError(c, ragHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type chatMessageRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

// ChatMessage relays one chat turn to the Worker and streams its SSE
// response back to the browser untouched.
func (h *Handler) ChatMessage(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing credentials", nil))
		return
	}
	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	body, err := h.ragSvc.StreamChat(c.Request.Context(), tenantID(claims.UserID), req.SessionID, req.Message)
	if err != nil {
		abortWithError(c, ragHTTPError(err))
		return
	}
	defer body.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		return
	}
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			c.Writer.Write(buf[:n])
			flusher.Flush()
		}
		if readErr != nil {
			if readErr != io.EOF {
				h.logger.Warn("worker stream read failed", "error", readErr)
			}
			return
		}
	}
}

func ragHTTPError(err error) *HTTPError {
	status := http.StatusInternalServerError
	code := "rag_failed"
	switch {
	case apperrors.IsCode(err, apperrors.KindUnauthorized):
		status = http.StatusUnauthorized
		code = "unauthorized"
	case apperrors.IsCode(err, apperrors.KindInvalidInput):
		status = http.StatusBadRequest
		code = "invalid_request"
	}
	return NewHTTPError(status, code, errMessage(err), err)
}
