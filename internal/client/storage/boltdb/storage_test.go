package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
)

func allBuckets() [][]byte {
	buckets := [][]byte{bucketAuth, bucketMetadata}
	for _, t := range models.EntityTypes() {
		buckets = append(buckets, documentBucket(t))
	}
	return buckets
}

func TestNew_Success(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "testdb.db")

	ctx := context.Background()
	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer func() {
		require.NoError(t, store.Close())
	}()

	// Проверяем что файл БД действительно создан
	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, dbPath, store.Path())

	// Проверяем, что бакеты существуют
	err = store.db.View(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets() {
			if tx.Bucket(b) == nil {
				return os.ErrNotExist
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	ctx := context.Background()
	// каталога не существует
	store, err := New(ctx, filepath.Join(t.TempDir(), "missing", "dir", "db"))
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestOpen_ScopedFiles(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")

	alice, err := Open(ctx, dir, "https://authority.example|alice")
	require.NoError(t, err)
	defer alice.Close()

	bob, err := Open(ctx, dir, "https://authority.example|bob")
	require.NoError(t, err)
	defer bob.Close()

	assert.NotEqual(t, alice.Path(), bob.Path(), "each user scope must get its own file")
	assert.Equal(t, filepath.Join(dir, ScopeFileName("https://authority.example|alice")), alice.Path())

	_, err = Open(ctx, dir, "")
	assert.Error(t, err)
}

func TestScopeFileName_Stable(t *testing.T) {
	assert.Equal(t, ScopeFileName("alice"), ScopeFileName("alice"))
	assert.NotEqual(t, ScopeFileName("alice"), ScopeFileName("bob"))
	assert.Regexp(t, `^store-[0-9a-f]{16}\.db$`, ScopeFileName("alice"))
}

func TestClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "testdb.db")

	ctx := context.Background()
	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)

	err = store.Close()
	assert.NoError(t, err)

	// После закрытия поле db должно стать nil
	assert.Nil(t, store.db)

	// Второй вызов Close не должен падать
	err = store.Close()
	assert.NoError(t, err)

	// Операции после закрытия возвращают ErrStorageClosed
	_, err = store.LoadDocuments(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	_, err = store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestInitBuckets_CreatesBuckets(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "testdb.db")

	// Открываем БД вручную без создания бакетов
	db, err := bbolt.Open(dbPath, 0600, nil)
	require.NoError(t, err)
	defer db.Close()

	store := &Storage{db: db}

	err = store.initBuckets()
	assert.NoError(t, err)

	err = db.View(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets() {
			if tx.Bucket(b) == nil {
				return os.ErrNotExist
			}
		}
		return nil
	})
	assert.NoError(t, err)
}
