// Package pending keeps an in-memory index of documents that need to be synced.
// The index is a cache of models.IsPending; the document state stays the source of truth.
package pending

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/iudanet/fieldsync/internal/models"
)

// Source is the read side of the local store the index is derived from.
type Source interface {
	Lookup(entityType models.EntityType, id string) (*models.Document, bool)
	Snapshot(entityType models.EntityType) []*models.Document
}

// Index is the pending-change index.
type Index struct {
	src    Source
	logger *slog.Logger
	keys   map[models.Key]struct{}
	mu     sync.Mutex
}

// New creates an empty index over src. Call Refresh once the store is loaded.
func New(src Source, logger *slog.Logger) *Index {
	return &Index{
		src:    src,
		logger: logger,
		keys:   make(map[models.Key]struct{}),
	}
}

// Refresh clears the index and rescans every collection.
func (ix *Index) Refresh() {
	keys := make(map[models.Key]struct{})
	for _, t := range models.EntityTypes() {
		for _, doc := range ix.src.Snapshot(t) {
			if models.IsPending(doc) {
				keys[doc.Key()] = struct{}{}
			}
		}
	}

	ix.mu.Lock()
	ix.keys = keys
	ix.mu.Unlock()

	ix.logger.Debug("pending index rebuilt", "pending", len(keys))
}

// OnChange re-evaluates a single document. It is idempotent.
func (ix *Index) OnChange(key models.Key) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	doc, ok := ix.src.Lookup(key.Type, key.ID)
	if ok && models.IsPending(doc) {
		ix.keys[key] = struct{}{}
		return
	}
	delete(ix.keys, key)
}

// ListPending returns the pending documents, tombstones included.
// Entries that no longer satisfy the pending predicate are dropped silently.
func (ix *Index) ListPending() []*models.Document {
	ix.mu.Lock()
	keys := make([]models.Key, 0, len(ix.keys))
	for k := range ix.keys {
		keys = append(keys, k)
	}
	ix.mu.Unlock()

	// порядок не гарантируется контрактом, но стабильный порядок удобнее для логов и тестов
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	out := make([]*models.Document, 0, len(keys))
	var stale []models.Key
	for _, k := range keys {
		doc, ok := ix.src.Lookup(k.Type, k.ID)
		if !ok || !models.IsPending(doc) {
			stale = append(stale, k)
			continue
		}
		out = append(out, doc)
	}

	if len(stale) > 0 {
		ix.mu.Lock()
		for _, k := range stale {
			// повторная проверка: документ мог снова стать pending
			if doc, ok := ix.src.Lookup(k.Type, k.ID); !ok || !models.IsPending(doc) {
				delete(ix.keys, k)
			}
		}
		ix.mu.Unlock()
		ix.logger.Debug("dropped stale pending entries", "count", len(stale))
	}

	return out
}

// Count returns the number of indexed documents.
func (ix *Index) Count() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.keys)
}
