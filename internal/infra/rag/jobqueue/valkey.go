// Package jobqueue implements the Gateway-to-Worker ingestion job
// handoff over a Valkey list.
package jobqueue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
)

// Handler processes one dequeued ingestion job.
type Handler func(ctx context.Context, job rag.IngestJob)

// Queue pushes ingestion jobs from the Gateway and, when given a
// handler, pops and dispatches them on the Worker side.
type Queue struct {
	client      valkey.Client
	queueKey    string
	handler     Handler
	logger      *slog.Logger
	stop        chan struct{}
	pollTimeout time.Duration
}

// NewQueue constructs a Valkey-backed ingestion job queue.
func NewQueue(client valkey.Client, queueKey string, logger *slog.Logger) *Queue {
	if queueKey == "" {
		queueKey = "rag:ingest:jobs"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		client:      client,
		queueKey:    queueKey,
		logger:      logger.With("component", "rag.jobqueue"),
		stop:        make(chan struct{}),
		pollTimeout: 5 * time.Second,
	}
}

// Enqueue pushes a job for a Worker to pick up.
func (q *Queue) Enqueue(ctx context.Context, job rag.IngestJob) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	cmd := q.client.B().Lpush().Key(q.queueKey).Element(string(encoded)).Build()
	return q.client.Do(ctx, cmd).Error()
}

// SetHandler starts the Worker-side consume loop. Call once at boot.
func (q *Queue) SetHandler(handler Handler) {
	q.handler = handler
	if handler == nil {
		return
	}
	go q.consume()
}

// Stop ends the consume loop.
func (q *Queue) Stop() {
	close(q.stop)
}

func (q *Queue) consume() {
	ctx := context.Background()
	for {
		select {
		case <-q.stop:
			return
		default:
		}
		resp := q.client.Do(ctx, q.client.B().Brpop().Key(q.queueKey).Timeout(q.pollTimeout.Seconds()).Build())
		values, err := resp.ToArray()
		if err != nil {
			if !valkey.IsValkeyNil(err) {
				q.logger.Warn("job queue pop failed", "error", err)
			}
			continue
		}
		if len(values) < 2 || q.handler == nil {
			continue
		}
		raw, err := values[1].ToString()
		if err != nil {
			q.logger.Warn("job queue payload decode failed", "error", err)
			continue
		}
		var job rag.IngestJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			q.logger.Warn("job queue unmarshal failed", "error", err)
			continue
		}
		q.handler(ctx, job)
	}
}

var _ rag.JobQueue = (*Queue)(nil)
