package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func TestSaveAndGetLastSyncTime(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	// Изначально синхронизации не было
	last, err := store.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	expected := time.Date(2026, 4, 2, 8, 15, 0, 123, time.UTC)
	require.NoError(t, store.SaveLastSyncTime(ctx, expected))

	got, err := store.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, expected.Equal(got))
}

func TestGetLastSyncTime_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketMetadata)
	})
	require.NoError(t, err)

	_, err = store.GetLastSyncTime(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "metadata bucket not found")
}

func TestSaveLastSyncTime_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketMetadata)
	})
	require.NoError(t, err)

	err = store.SaveLastSyncTime(ctx, time.Now())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "metadata bucket not found")
}
