package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/storage"
)

func createTestToken(userID, hash string, expiresAt time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		TokenHash: hash,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}

func TestTokenStorage_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)
	userID := createTestUser(t, s)

	expiresAt := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRefreshToken(ctx, createTestToken(userID, "hash-1", expiresAt)))

	token, err := s.GetRefreshToken(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, userID, token.UserID)
	assert.Equal(t, "hash-1", token.TokenHash)
	assert.True(t, expiresAt.Equal(token.ExpiresAt))

	_, err = s.GetRefreshToken(ctx, "unknown")
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)
}

func TestTokenStorage_SaveUnknownUser(t *testing.T) {
	s := setupTestStorage(t)

	// foreign key на users
	err := s.SaveRefreshToken(context.Background(), createTestToken("missing-user", "hash", time.Now().Add(time.Hour)))
	assert.Error(t, err)
}

func TestTokenStorage_DeleteRefreshToken(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)
	userID := createTestUser(t, s)

	require.NoError(t, s.SaveRefreshToken(ctx, createTestToken(userID, "hash-1", time.Now().Add(time.Hour))))
	require.NoError(t, s.DeleteRefreshToken(ctx, "hash-1"))

	_, err := s.GetRefreshToken(ctx, "hash-1")
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)
	assert.ErrorIs(t, s.DeleteRefreshToken(ctx, "hash-1"), storage.ErrTokenNotFound)
}

func TestTokenStorage_DeleteUserTokens(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)
	user1 := createTestUser(t, s)
	user2 := createTestUser(t, s)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.SaveRefreshToken(ctx, createTestToken(user1, "a", exp)))
	require.NoError(t, s.SaveRefreshToken(ctx, createTestToken(user1, "b", exp)))
	require.NoError(t, s.SaveRefreshToken(ctx, createTestToken(user2, "c", exp)))

	n, err := s.DeleteUserTokens(ctx, user1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.GetRefreshToken(ctx, "c")
	assert.NoError(t, err, "other users keep their tokens")

	n, err = s.DeleteUserTokens(ctx, user1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTokenStorage_DeleteExpiredTokens(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)
	userID := createTestUser(t, s)

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRefreshToken(ctx, createTestToken(userID, "expired-1", now.Add(-time.Hour))))
	require.NoError(t, s.SaveRefreshToken(ctx, createTestToken(userID, "expired-2", now.Add(-time.Minute))))
	require.NoError(t, s.SaveRefreshToken(ctx, createTestToken(userID, "valid", now.Add(time.Hour))))

	n, err := s.DeleteExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.GetRefreshToken(ctx, "valid")
	assert.NoError(t, err)
	_, err = s.GetRefreshToken(ctx, "expired-1")
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)
}
