// Package llmclient adapts the OpenAI-compatible chat completion
// client to the retrieval graph's LLM port, normalizing tool calls
// across providers into the graph's own Message shape.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
	"github.com/yanqian/ai-helloworld/internal/infra/llm/chatgpt"
)

// Client adapts *chatgpt.Client to rag.LLM.
type Client struct {
	client      *chatgpt.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

// New constructs the LLM adapter.
func New(client *chatgpt.Client, model string, temperature float32, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{client: client, model: model, temperature: temperature, logger: logger.With("component", "rag.llmclient")}
}

// Invoke sends one non-streaming chat completion, optionally offering
// tools, and normalizes the reply into a single Message.
func (c *Client) Invoke(ctx context.Context, messages []rag.Message, tools []rag.ToolSpec) (rag.Message, error) {
	req := chatgpt.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    toProviderMessages(messages),
		Tools:       toProviderTools(tools),
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return rag.Message{}, fmt.Errorf("invoke llm: %w", err)
	}
	if len(resp.Choices) == 0 {
		return rag.Message{}, errors.New("invoke llm: empty choices")
	}
	return fromProviderMessage(resp.Choices[0].Message), nil
}

// Stream sends a streaming chat completion and forwards content
// deltas, normalizing provider-specific framing into plain text
// chunks on the returned channel.
func (c *Client) Stream(ctx context.Context, messages []rag.Message) (<-chan string, <-chan error) {
	chunks := make(chan string)
	errs := make(chan error, 1)

	req := chatgpt.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    toProviderMessages(messages),
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		close(chunks)
		errs <- fmt.Errorf("stream llm: %w", err)
		close(errs)
		return chunks, errs
	}

	go func() {
		defer close(chunks)
		defer close(errs)
		defer stream.Close()
		for {
			chunk, err := stream.Recv()
			if err != nil {
				if err != io.EOF {
					errs <- err
				}
				return
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					select {
					case chunks <- choice.Delta.Content:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return chunks, errs
}

func toProviderMessages(messages []rag.Message) []chatgpt.Message {
	out := make([]chatgpt.Message, len(messages))
	for i, m := range messages {
		out[i] = chatgpt.Message{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
			ToolCalls:  toProviderToolCalls(m.ToolCalls),
		}
	}
	return out
}

func toProviderToolCalls(calls []rag.ToolCall) []chatgpt.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]chatgpt.ToolCall, len(calls))
	for i, tc := range calls {
		args, _ := json.Marshal(tc.Arguments)
		out[i] = chatgpt.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: chatgpt.ToolCallDefinition{
				Name:      tc.Name,
				Arguments: string(args),
			},
		}
	}
	return out
}

func toProviderTools(tools []rag.ToolSpec) []chatgpt.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]chatgpt.Tool, len(tools))
	for i, t := range tools {
		out[i] = chatgpt.Tool{
			Type: "function",
			Function: chatgpt.ToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}

// fromProviderMessage normalizes a provider reply into the graph's
// Message shape, tolerating both the standard OpenAI tool_calls array
// and providers that omit call ids entirely.
func fromProviderMessage(m chatgpt.Message) rag.Message {
	out := rag.Message{Role: rag.Role(m.Role), Content: m.Content}
	if m.Role == "" {
		out.Role = rag.RoleAssistant
	}
	for _, tc := range m.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		out.ToolCalls = append(out.ToolCalls, rag.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out
}

var _ rag.LLM = (*Client)(nil)
