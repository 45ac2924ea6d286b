// Package checkpoint persists per-thread conversation state so a
// retrieval run can resume across requests.
package checkpoint

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
	"github.com/yanqian/ai-helloworld/pkg/util"
)

// Store persists one row per thread, replacing the full message
// history on every Save rather than appending, since the graph always
// reconstructs the complete repaired history before checkpointing.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs the checkpoint store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Load(ctx context.Context, threadID string) (rag.Conversation, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT thread_id, user_id, session_id, messages, retry_count, updated_at
		FROM rag_conversations
		WHERE thread_id = $1
		LIMIT 1
	`, threadID)

	var (
		conv    rag.Conversation
		rawJSON []byte
	)
	if err := row.Scan(&conv.ThreadID, &conv.UserID, &conv.SessionID, &rawJSON, &conv.RetryCount, &conv.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return rag.Conversation{}, false, nil
		}
		return rag.Conversation{}, false, err
	}
	if err := json.Unmarshal(rawJSON, &conv.Messages); err != nil {
		return rag.Conversation{}, false, err
	}
	return conv, true, nil
}

// Save replaces a thread's checkpoint wholesale; last writer wins.
func (s *Store) Save(ctx context.Context, conv rag.Conversation) error {
	encoded, err := json.Marshal(conv.Messages)
	if err != nil {
		return err
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = util.NowUTC()
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO rag_conversations (thread_id, user_id, session_id, messages, retry_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (thread_id) DO UPDATE SET
			messages = EXCLUDED.messages,
			retry_count = EXCLUDED.retry_count,
			updated_at = EXCLUDED.updated_at
	`, conv.ThreadID, conv.UserID, conv.SessionID, encoded, conv.RetryCount, conv.UpdatedAt)
	return err
}

var _ rag.ConversationStore = (*Store)(nil)
