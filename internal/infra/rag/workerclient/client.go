// Package workerclient lets the Gateway call the Worker's internal API:
// triggering ingestion, proxying a chat turn, and sweeping vectors on
// document delete.
package workerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
)

// Client is a thin HTTP client against one Worker instance.
type Client struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
}

// New constructs a Worker client. timeout bounds the short synchronous
// calls (process/delete); the streaming chat proxy has no client-side
// timeout of its own and relies on the caller's context instead.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}, stream: &http.Client{}}
}

// ProcessDocument asks the Worker to run the ingestion pipeline for an
// already-uploaded document.
func (c *Client) ProcessDocument(ctx context.Context, job rag.IngestJob) error {
	body, err := json.Marshal(map[string]string{
		"user_id":   job.UserID,
		"doc_id":    job.DocumentID,
		"filepath":  job.StorageKey,
		"file_type": job.FileType,
	})
	if err != nil {
		return err
	}
	target := fmt.Sprintf("%s/api/documents/%s/process", c.baseURL, job.DocumentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("worker process document: status %d", resp.StatusCode)
	}
	return nil
}

// DeleteDocumentVectors asks the Worker to sweep a document's vectors
// after the Gateway has marked the document deleted.
func (c *Client) DeleteDocumentVectors(ctx context.Context, userID, documentID string) error {
	target := fmt.Sprintf("%s/api/documents/%s/delete-vectors?user_id=%s", c.baseURL, documentID, url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("worker delete vectors: status %d", resp.StatusCode)
	}
	return nil
}

// StreamChat opens the Worker's chat endpoint with an SSE Accept header
// and returns the raw response body for the Gateway to relay frame by
// frame to the browser. The caller owns closing it.
func (c *Client) StreamChat(ctx context.Context, userID, sessionID, message string) (io.ReadCloser, error) {
	body, err := json.Marshal(map[string]string{
		"user_id":    userID,
		"session_id": sessionID,
		"message":    message,
	})
	if err != nil {
		return nil, err
	}
	target := c.baseURL + "/api/chat/message"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("worker chat message: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
