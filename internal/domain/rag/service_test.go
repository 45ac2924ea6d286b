package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/ai-helloworld/pkg/errors"
)

func TestThreadID_DeterministicAndTenantScoped(t *testing.T) {
	a := ThreadID("user-1", "session-1")
	b := ThreadID("user-1", "session-1")
	c := ThreadID("user-2", "session-1")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 32)
}

func TestChat_RejectsMissingUser(t *testing.T) {
	svc := NewService(ServiceConfig{}, nil, nil, nil, nil)
	_, err := svc.Chat(context.Background(), ChatRequest{Message: "hi"})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.KindUnauthorized))
}

func TestChat_RejectsEmptyMessage(t *testing.T) {
	svc := NewService(ServiceConfig{}, nil, nil, nil, nil)
	_, err := svc.Chat(context.Background(), ChatRequest{UserID: "user-1", Message: "   "})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.KindInvalidInput))
}
