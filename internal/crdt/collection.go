package crdt

import (
	"sort"
	"sync"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
)

// Collection хранит документы одного типа по ID, включая tombstones.
// Удаленный документ остается в коллекции с Deleted = true до подтверждения authority.
type Collection struct {
	elements map[string]*models.Document // map[id]document
	mu       sync.RWMutex
}

// NewCollection создает пустую коллекцию.
func NewCollection() *Collection {
	return &Collection{
		elements: make(map[string]*models.Document),
	}
}

// Put безусловно записывает копию документа.
func (c *Collection) Put(doc *models.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.elements[doc.ID] = doc.Clone()
}

// Get возвращает копию документа (включая tombstone).
func (c *Collection) Get(id string) (*models.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.elements[id]
	if !ok {
		return nil, false
	}
	return doc.Clone(), true
}

// Live возвращает копии неудаленных документов, отсортированные по ID.
func (c *Collection) Live() []*models.Document {
	return c.filter(func(d *models.Document) bool { return !d.Deleted })
}

// All возвращает копии всех документов, включая tombstones, отсортированные по ID.
func (c *Collection) All() []*models.Document {
	return c.filter(func(*models.Document) bool { return true })
}

func (c *Collection) filter(keep func(*models.Document) bool) []*models.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*models.Document, 0, len(c.elements))
	for _, doc := range c.elements {
		if keep(doc) {
			out = append(out, doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PurgeTombstones удаляет подтвержденные tombstones, обновленные раньше cutoff.
// Неподтвержденные удаления остаются, пока не будут отправлены.
func (c *Collection) PurgeTombstones(cutoff time.Time) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var purged []string
	for id, doc := range c.elements {
		if doc.Deleted && !models.IsPending(doc) && doc.UpdatedAt.Before(cutoff) {
			delete(c.elements, id)
			purged = append(purged, id)
		}
	}
	sort.Strings(purged)
	return purged
}
