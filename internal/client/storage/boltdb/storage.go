package boltdb

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
)

var (
	// BoltDB bucket names
	bucketAuth     = []byte("auth")
	bucketMetadata = []byte("meta")
)

// SessionFileName is the file holding the client session, shared by all user scopes.
const SessionFileName = "session.db"

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db *bbolt.DB
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB; таймаут не дает зависнуть, если файл держит другой процесс
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	// Инициализируем buckets
	if err := storage.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Open opens the namespaced store of one user scope inside dir.
// Each scope gets its own file, so two users on one device never share state.
func Open(ctx context.Context, dir, scope string) (*Storage, error) {
	if scope == "" {
		return nil, fmt.Errorf("empty user scope")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return New(ctx, filepath.Join(dir, ScopeFileName(scope)))
}

// ScopeFileName derives a stable file name from the user scope.
func ScopeFileName(scope string) string {
	sum := blake2b.Sum256([]byte(scope))
	return "store-" + hex.EncodeToString(sum[:8]) + ".db"
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the database file path.
func (s *Storage) Path() string {
	if s.db == nil {
		return ""
	}
	return s.db.Path()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		// Создаем bucket для сессии
		if _, err := tx.CreateBucketIfNotExists(bucketAuth); err != nil {
			return fmt.Errorf("failed to create auth bucket: %w", err)
		}

		// Создаем bucket для метаданных синхронизации
		if _, err := tx.CreateBucketIfNotExists(bucketMetadata); err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}

		// По одному bucket на каждый тип сущности
		for _, t := range models.EntityTypes() {
			if _, err := tx.CreateBucketIfNotExists(documentBucket(t)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", t, err)
			}
		}

		return nil
	})
}

func (s *Storage) view(fn func(tx *bbolt.Tx) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.View(fn)
}

func (s *Storage) update(fn func(tx *bbolt.Tx) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.Update(fn)
}
