package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/models"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	// in-memory база на одно соединение
	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func createTestUser(t *testing.T, s *Storage) string {
	t.Helper()
	userID := uuid.New().String()
	require.NoError(t, s.CreateUser(context.Background(), &models.User{
		ID:           userID,
		Username:     "user_" + userID[:8],
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}))
	return userID
}

func TestNew_FileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "authority.db")

	s, err := New(ctx, path)
	require.NoError(t, err)
	userID := createTestUser(t, s)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	// повторное открытие не применяет миграции заново и видит данные
	s, err = New(ctx, path)
	require.NoError(t, err)
	defer func() {
		_ = s.Close()
	}()

	user, err := s.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
}
