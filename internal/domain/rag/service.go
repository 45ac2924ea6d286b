package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/yanqian/ai-helloworld/internal/domain/rag/graph"
	"github.com/yanqian/ai-helloworld/internal/domain/rag/ingest"
	"github.com/yanqian/ai-helloworld/internal/domain/rag/retrieval"
	apperrors "github.com/yanqian/ai-helloworld/pkg/errors"
)

// ServiceConfig mirrors the runtime knobs the Worker reads from its
// environment: retrieval strategy toggles and the summarization and
// retry budgets threaded into every graph run.
type ServiceConfig struct {
	MaxRetryCount int
	Retrieval     retrieval.Options
	Summarization SummarizeOptions
}

// Service is the Worker's domain entry point: it owns the ingestion
// pipeline and the retrieval graph runtime, and is the only thing the
// Worker's internal HTTP handlers call into.
type Service struct {
	cfg        ServiceConfig
	pipeline   *ingest.Pipeline
	runner     *graph.Runner
	checkpoint ConversationStore
	logger     *slog.Logger
}

// NewService wires the ingestion pipeline and retrieval graph into one
// orchestrator.
func NewService(cfg ServiceConfig, pipeline *ingest.Pipeline, runner *graph.Runner, checkpoint ConversationStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, pipeline: pipeline, runner: runner, checkpoint: checkpoint, logger: logger.With("component", "rag.service")}
}

// ProcessDocument runs the six-stage ingestion pipeline for one job,
// isolating failures to the document's own status row.
func (s *Service) ProcessDocument(ctx context.Context, job IngestJob) error {
	return s.pipeline.Run(ctx, job)
}

// DeleteDocumentVectors removes a document's vectors and parent blocks
// without touching its metadata row, used by the Gateway's document
// delete flow after it has already marked the Document record deleted.
func (s *Service) DeleteDocumentVectors(ctx context.Context, userID, documentID string) error {
	return s.pipeline.DeleteVectors(ctx, userID, documentID)
}

// ChatRequest is one inbound turn from the Gateway.
type ChatRequest struct {
	UserID    string
	SessionID string
	Message   string
}

// ThreadID derives the deterministic checkpoint key for a
// (user_id, session_id) pair: a truncated SHA-256 digest, matching the
// teacher's general preference for deterministic hashed ids over
// random ones wherever an identity is purely a function of its inputs.
func ThreadID(userID, sessionID string) string {
	sum := sha256.Sum256([]byte(userID + ":" + sessionID))
	return hex.EncodeToString(sum[:])[:32]
}

// Chat loads (or starts) the thread's checkpoint, appends the new user
// turn, and drives one retrieval-graph run to completion, persisting
// the updated conversation once the run finishes. retry_count always
// observes 0 at the start of the run regardless of what a prior run
// for the same thread left behind.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (<-chan StreamEvent, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, apperrors.Wrap(apperrors.KindUnauthorized, "missing user id", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "message cannot be empty", nil)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	threadID := ThreadID(req.UserID, sessionID)

	var messages []Message
	if s.checkpoint != nil {
		conv, found, err := s.checkpoint.Load(ctx, threadID)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		}
		if found {
			messages = conv.Messages
		}
	}
	messages = append(messages, Message{Role: RoleUser, Content: req.Message})

	state := RetrievalState{
		ThreadID:     threadID,
		UserID:       req.UserID,
		SessionID:    sessionID,
		Messages:     messages,
		CurrentQuery: req.Message,
	}

	cfg := graph.Config{
		MaxRetryCount: s.cfg.MaxRetryCount,
		Retrieval:     s.cfg.Retrieval,
		Summarization: s.cfg.Summarization,
	}

	upstream, final := s.runner.Run(ctx, req.UserID, state, cfg)
	out := make(chan StreamEvent, 16)
	go func() {
		defer close(out)
		sawError := false
		for evt := range upstream {
			out <- evt
			if evt.Type == EventError {
				sawError = true
			}
		}
		if sawError || s.checkpoint == nil || len(final.Messages) == 0 {
			return
		}
		if err := s.checkpoint.Save(ctx, Conversation{
			ThreadID:   threadID,
			UserID:     req.UserID,
			SessionID:  sessionID,
			Messages:   final.Messages,
			RetryCount: final.RetryCount,
		}); err != nil {
			s.logger.Error("save checkpoint failed", "thread_id", threadID, "error", err)
		}
	}()
	return out, nil
}
