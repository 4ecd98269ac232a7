package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

func TestSessionLifecycle(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	sess := &types.Session{UserID: "u-1", Metadata: map[string]any{"client": "cli"}}
	require.NoError(t, s.CreateSession(ctx, sess))
	assert.NotEmpty(t, sess.ID)

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "cli", got.Metadata["client"])
	assert.Nil(t, got.ExpiresAt)

	require.NoError(t, s.UpdateSessionMetadata(ctx, sess.ID, map[string]any{"client": "web"}))
	got, err = s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "web", got.Metadata["client"])

	_, err = s.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSessionExpiry(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	expired := &types.Session{UserID: "u-1", ExpiresAt: &past}
	require.NoError(t, s.CreateSession(ctx, expired))

	future := time.Now().Add(time.Hour)
	live := &types.Session{UserID: "u-2", ExpiresAt: &future}
	require.NoError(t, s.CreateSession(ctx, live))

	// An expired session reads as not found
	_, err := s.GetSession(ctx, expired.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	// Messages cannot be appended to an expired session
	err = s.AddMessage(ctx, &types.Message{SessionID: expired.ID, Role: types.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	n, err := s.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetSession(ctx, live.ID)
	assert.NoError(t, err)
}

func TestMessages(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	sess := &types.Session{UserID: "u-1"}
	require.NoError(t, s.CreateSession(ctx, sess))

	for i, content := range []string{"where is the pump manual", "found 3 documents", "show the first"} {
		role := types.RoleUser
		if i == 1 {
			role = types.RoleAssistant
		}
		require.NoError(t, s.AddMessage(ctx, &types.Message{SessionID: sess.ID, Role: role, Content: content}))
	}

	msgs, err := s.GetSessionMessages(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	// Chronological order
	assert.Equal(t, "where is the pump manual", msgs[0].Content)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "show the first", msgs[2].Content)

	limited, err := s.GetSessionMessages(ctx, sess.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestAddMessageValidation(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	sess := &types.Session{UserID: "u-1"}
	require.NoError(t, s.CreateSession(ctx, sess))

	err := s.AddMessage(ctx, &types.Message{SessionID: sess.ID, Role: "robot", Content: "hi"})
	assert.ErrorIs(t, err, types.ErrValidation)

	err = s.AddMessage(ctx, &types.Message{SessionID: sess.ID, Role: types.RoleUser})
	assert.ErrorIs(t, err, types.ErrValidation)

	err = s.AddMessage(ctx, &types.Message{SessionID: "missing", Role: types.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}
