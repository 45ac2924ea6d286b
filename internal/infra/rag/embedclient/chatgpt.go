// Package embedclient adapts the OpenAI-compatible embeddings
// endpoint to the ingestion pipeline's Embedder port. Batching to the
// fixed size the pipeline and retriever expect is the caller's
// responsibility; this adapter embeds exactly the batch it is given.
package embedclient

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
	"github.com/yanqian/ai-helloworld/internal/infra/llm/chatgpt"
)

// Client calls the embeddings endpoint through the shared chat client.
type Client struct {
	client *chatgpt.Client
	model  string
	logger *slog.Logger
}

// New constructs the embedding adapter.
func New(client *chatgpt.Client, model string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{client: client, model: strings.TrimSpace(model), logger: logger.With("component", "rag.embedclient")}
}

// Embed requests vectors for a batch of texts in one request.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.client.CreateEmbedding(ctx, chatgpt.EmbeddingRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) != len(texts) {
		c.logger.Warn("embedding result count mismatch", "expected", len(texts), "got", len(resp.Data))
	}
	out := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		copy(vec, item.Embedding)
		out[i] = vec
	}
	return out, nil
}

var _ rag.Embedder = (*Client)(nil)
