package boltdb

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	keyLastSyncTime = "last_sync_time"
)

// SaveLastSyncTime saves the time of the last successful sync
func (s *Storage) SaveLastSyncTime(ctx context.Context, t time.Time) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		raw, err := t.UTC().MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to encode last sync time: %w", err)
		}

		if err := bucket.Put([]byte(keyLastSyncTime), raw); err != nil {
			return fmt.Errorf("failed to save last sync time: %w", err)
		}

		return nil
	})
}

// GetLastSyncTime retrieves the time of the last successful sync
// Returns the zero time if no sync has been performed yet
func (s *Storage) GetLastSyncTime(ctx context.Context) (time.Time, error) {
	var last time.Time

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		raw := bucket.Get([]byte(keyLastSyncTime))
		if raw == nil {
			// первая синхронизация еще не выполнялась
			return nil
		}

		return last.UnmarshalBinary(raw)
	})

	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return last, nil
}
