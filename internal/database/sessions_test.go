package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t, "session_user")

	live := CreateSessionParams{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: "live-refresh-token",
		UserAgent:    "go-test",
		ClientIP:     "127.0.0.1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	expired := live
	expired.ID = uuid.New()
	expired.RefreshToken = "expired-refresh-token"
	expired.ExpiresAt = time.Now().Add(-time.Hour)

	require.NoError(t, testStore.CreateSession(ctx, live))
	require.NoError(t, testStore.CreateSession(ctx, expired))

	found, err := testStore.GetUserByRefreshToken(ctx, live.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	found, err = testStore.GetUserByRefreshToken(ctx, expired.RefreshToken)
	require.NoError(t, err)
	require.Nil(t, found, "expired refresh tokens must not resolve")

	sessions, err := testStore.ListSessionsForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, live.ID, sessions[0].ID)

	session, err := testStore.GetSessionByRefreshToken(ctx, live.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, live.ID, session.ID)

	require.NoError(t, testStore.DeleteExpiredSessions(ctx, user.ID))
	session, err = testStore.GetSessionByRefreshToken(ctx, expired.RefreshToken)
	require.NoError(t, err)
	require.Nil(t, session)

	other := createTestUser(t, "session_other")
	deleted, err := testStore.DeleteSessionByID(ctx, live.ID, other.ID)
	require.NoError(t, err)
	require.False(t, deleted, "users cannot end sessions they do not own")

	deleted, err = testStore.DeleteSessionByRefreshToken(ctx, live.RefreshToken)
	require.NoError(t, err)
	require.True(t, deleted)

	sessions, err = testStore.ListSessionsForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestDeleteAllSessionsForUser(t *testing.T) {
	ctx := context.Background()
	user1 := createTestUser(t, "user_delete_all_1")
	user2 := createTestUser(t, "user_delete_all_2")

	for i := 0; i < 3; i++ {
		err := testStore.CreateSession(ctx, CreateSessionParams{
			ID:           uuid.New(),
			UserID:       user1.ID,
			RefreshToken: "u1_token_" + uuid.NewString(),
			ExpiresAt:    time.Now().Add(time.Hour),
		})
		require.NoError(t, err)
	}
	err := testStore.CreateSession(ctx, CreateSessionParams{
		ID:           uuid.New(),
		UserID:       user2.ID,
		RefreshToken: "u2_token_" + uuid.NewString(),
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	removed, err := testStore.DeleteAllSessionsForUser(ctx, user1.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), removed)

	sessions1, err := testStore.ListSessionsForUser(ctx, user1.ID)
	require.NoError(t, err)
	require.Empty(t, sessions1)

	sessions2, err := testStore.ListSessionsForUser(ctx, user2.ID)
	require.NoError(t, err)
	require.Len(t, sessions2, 1)
}
