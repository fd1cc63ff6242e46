// Package store implements the local replicated store: one document collection per
// entity type, optimistic local writes, write-through persistence and change notifications.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/fieldsync/internal/crdt"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/validation"
)

// Store errors
var (
	// ErrNotFound indicates that the document does not exist or is deleted
	ErrNotFound = errors.New("document not found")

	// ErrInvalidDocument indicates an unknown entity type, an empty id or unacceptable fields
	ErrInvalidDocument = errors.New("invalid document")

	// ErrNoConflict indicates that a resolution was requested for a document without an open conflict
	ErrNoConflict = errors.New("document has no open conflict")
)

//go:generate moq -out persister_mock.go . Persister

// Persister is the durable side of the store. Every mutation is written through it.
type Persister interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, entityType models.EntityType, id string) error
}

// Loader returns previously persisted documents.
type Loader interface {
	LoadDocuments(ctx context.Context) ([]*models.Document, error)
}

// Connectivity reports the current network state.
type Connectivity interface {
	IsOnline() bool
}

// Origin tells listeners what caused a change.
type Origin int

const (
	OriginLocal  Origin = iota // Upsert, Delete, Resolve
	OriginRemote               // pull merge
	OriginSynced               // push acknowledged by the authority
	OriginPurged               // tombstone compaction
)

// Change is a store change notification.
type Change struct {
	Key    models.Key
	Origin Origin
}

// Listener receives change notifications synchronously, after the store lock is released.
type Listener func(Change)

// Store is the local replicated store. It is safe for concurrent use; all operations are
// atomic with respect to each other.
type Store struct {
	net         Connectivity
	persister   Persister
	clock       *crdt.Clock
	logger      *slog.Logger
	collections map[models.EntityType]*crdt.Collection
	idAliases   map[models.EntityType][]string
	listeners   map[int]Listener
	mu          sync.Mutex
	listenersMu sync.RWMutex
	nextID      int
}

// New creates an in-memory store. Attach adds durability.
func New(clock *crdt.Clock, net Connectivity, logger *slog.Logger) *Store {
	collections := make(map[models.EntityType]*crdt.Collection)
	for _, t := range models.EntityTypes() {
		collections[t] = crdt.NewCollection()
	}

	return &Store{
		net:         net,
		clock:       clock,
		logger:      logger,
		collections: collections,
		idAliases:   make(map[models.EntityType][]string),
		listeners:   make(map[int]Listener),
	}
}

// SetIDAliases sets the field names that carry the document id on the wire, per entity type.
// Such names are not accepted as document fields: the decoders on both sides strip them.
func (s *Store) SetIDAliases(aliases map[models.EntityType][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.idAliases = make(map[models.EntityType][]string, len(aliases))
	for t, names := range aliases {
		s.idAliases[t] = append([]string(nil), names...)
	}
}

// validate checks field names and values. Must be called with s.mu held.
func (s *Store) validate(entityType models.EntityType, fields models.Fields) error {
	if err := validation.ValidateFieldNames(fields, s.idAliases[entityType]...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := fields.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return nil
}

// Attach loads every persisted document into memory and enables write-through persistence.
// It returns only after the prior state is fully loaded. On error the store stays in-memory only.
func (s *Store) Attach(ctx context.Context, l Loader, p Persister) error {
	docs, err := l.LoadDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		c, ok := s.collections[doc.Type]
		if !ok {
			s.logger.Warn("skipping document of unknown type", "entity_type", doc.Type, "entity_id", doc.ID)
			continue
		}
		c.Put(doc)
		// метки времени не должны откатиться после перезапуска
		s.clock.Observe(doc.UpdatedAt)
		s.clock.Observe(doc.SyncedAt)
	}
	s.persister = p

	s.logger.Info("local store loaded", "documents", len(docs))
	return nil
}

// Durable reports whether writes are persisted.
func (s *Store) Durable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persister != nil
}

// Subscribe registers a change listener and returns its unsubscribe function.
func (s *Store) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(changes ...Change) {
	s.listenersMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	s.listenersMu.RUnlock()

	for _, c := range changes {
		for _, l := range listeners {
			l(c)
		}
	}
}

func (s *Store) collection(entityType models.EntityType) (*crdt.Collection, error) {
	c, ok := s.collections[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrInvalidDocument, entityType)
	}
	return c, nil
}

// persist writes the document through. Must be called with s.mu held.
func (s *Store) persist(doc *models.Document) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveDocument(context.Background(), doc); err != nil {
		s.degrade(err, doc.Key())
	}
}

// persistDelete removes a purged document. Must be called with s.mu held.
func (s *Store) persistDelete(key models.Key) {
	if s.persister == nil {
		return
	}
	if err := s.persister.DeleteDocument(context.Background(), key.Type, key.ID); err != nil {
		s.degrade(err, key)
	}
}

// degrade switches the store to in-memory operation after a persistence failure.
func (s *Store) degrade(err error, key models.Key) {
	s.logger.Error("persistence failed, continuing in memory only",
		"entity_type", key.Type, "entity_id", key.ID, "error", err)
	s.persister = nil
}

func (s *Store) online() bool {
	return s.net == nil || s.net.IsOnline()
}

// Upsert merges fields into the document (scalars overwritten, lists appended to) or creates it.
// A deleted document is recreated from fields alone. Fields named like an id alias of the type
// and non-finite numbers are rejected with ErrInvalidDocument.
func (s *Store) Upsert(entityType models.EntityType, id string, fields models.Fields) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDocument)
	}

	s.mu.Lock()
	c, err := s.collection(entityType)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.validate(entityType, fields); err != nil {
		s.mu.Unlock()
		return err
	}

	now := s.clock.Tick()
	doc, ok := c.Get(id)
	switch {
	case !ok:
		doc = &models.Document{
			ID:        id,
			Type:      entityType,
			Fields:    crdt.MergeFields(nil, fields),
			CreatedAt: now,
		}
	case doc.Deleted:
		// удаление еще не дошло до authority: старая версия там жива, и ее списки
		// не должны слиться с новыми полями
		doc.Recreated = doc.Recreated || (doc.HasSynced() && models.IsPending(doc))
		doc.Deleted = false
		doc.Fields = crdt.MergeFields(nil, fields)
		doc.Base = nil
		doc.CreatedAt = now
	default:
		doc.Fields = crdt.MergeFields(doc.Fields, fields)
	}
	doc.UpdatedAt = now
	doc.LocalOnly = !s.online()

	c.Put(doc)
	s.persist(doc)
	s.mu.Unlock()

	s.logger.Debug("document upserted", "entity_type", entityType, "entity_id", id, "local_only", doc.LocalOnly)
	s.notify(Change{Key: doc.Key(), Origin: OriginLocal})
	return nil
}

// Get returns the current merged state. Deleted documents are absent.
func (s *Store) Get(entityType models.EntityType, id string) (*models.Document, bool) {
	doc, ok := s.Lookup(entityType, id)
	if !ok || doc.Deleted {
		return nil, false
	}
	return doc, true
}

// Lookup returns the document including tombstones.
func (s *Store) Lookup(entityType models.EntityType, id string) (*models.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.collection(entityType)
	if err != nil {
		return nil, false
	}
	return c.Get(id)
}

// GetAll returns a snapshot of the live documents of one type.
func (s *Store) GetAll(entityType models.EntityType) []*models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.collection(entityType)
	if err != nil {
		return nil
	}
	return c.Live()
}

// Snapshot returns every document of one type, tombstones included.
func (s *Store) Snapshot(entityType models.EntityType) []*models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.collection(entityType)
	if err != nil {
		return nil
	}
	return c.All()
}

// Delete tombstones the document. Subsequent Get reports absence.
func (s *Store) Delete(entityType models.EntityType, id string) error {
	s.mu.Lock()
	c, err := s.collection(entityType)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	doc, ok := c.Get(id)
	if !ok || doc.Deleted {
		s.mu.Unlock()
		return ErrNotFound
	}

	doc.Deleted = true
	doc.Fields = nil
	doc.Remote = nil
	doc.UpdatedAt = s.clock.Tick()
	doc.LocalOnly = !s.online()

	c.Put(doc)
	s.persist(doc)
	s.mu.Unlock()

	s.logger.Debug("document deleted", "entity_type", entityType, "entity_id", id)
	s.notify(Change{Key: doc.Key(), Origin: OriginLocal})
	return nil
}

// MergeFunc decides the new state of a document given the local copy (nil if absent).
// It returns nil when nothing should change. The argument is a private copy.
type MergeFunc func(local *models.Document) *models.Document

// ApplyRemote runs merge atomically against the local copy and stores its result.
// It reports whether the document changed.
func (s *Store) ApplyRemote(entityType models.EntityType, id string, merge MergeFunc) (*models.Document, bool) {
	s.mu.Lock()
	c, err := s.collection(entityType)
	if err != nil {
		s.mu.Unlock()
		return nil, false
	}

	local, ok := c.Get(id)
	if !ok {
		local = nil
	}
	next := merge(local)
	if next == nil {
		s.mu.Unlock()
		return nil, false
	}

	next.Type = entityType
	next.ID = id
	s.clock.Observe(next.UpdatedAt)
	s.clock.Observe(next.SyncedAt)
	c.Put(next)
	s.persist(next)
	s.mu.Unlock()

	s.notify(Change{Key: next.Key(), Origin: OriginRemote})
	return next.Clone(), true
}

// MarkSynced records that the authority accepted snapshot. If the document was not modified
// since the snapshot it stops being pending; otherwise only the acknowledged state is recorded
// and the newer local edit stays pending. It reports whether the document is now fully synced.
func (s *Store) MarkSynced(snapshot *models.Document) bool {
	s.mu.Lock()
	c, err := s.collection(snapshot.Type)
	if err != nil {
		s.mu.Unlock()
		return false
	}

	doc, ok := c.Get(snapshot.ID)
	if !ok {
		s.mu.Unlock()
		return false
	}

	synced := doc.UpdatedAt.Equal(snapshot.UpdatedAt)
	if synced {
		doc.SyncedAt = s.clock.Tick()
		doc.LocalOnly = false
	} else if doc.SyncedAt.Before(snapshot.UpdatedAt) {
		// изменен во время отправки: authority знает версию snapshot, новая правка остается pending
		doc.SyncedAt = snapshot.UpdatedAt
	}
	if synced || snapshot.Recreated {
		// старая версия на authority уже удалена
		doc.Recreated = false
	}
	if !snapshot.Deleted {
		doc.Base = snapshot.Fields.Clone()
	}

	c.Put(doc)
	s.persist(doc)
	s.mu.Unlock()

	s.notify(Change{Key: doc.Key(), Origin: OriginSynced})
	return synced
}

// ConfirmDeleted records that the authority no longer holds a deleted document.
// The tombstone stays until PurgeTombstones removes it.
func (s *Store) ConfirmDeleted(snapshot *models.Document) bool {
	doc, ok := s.Lookup(snapshot.Type, snapshot.ID)
	if !ok || !doc.Deleted {
		return false
	}
	return s.MarkSynced(snapshot)
}

// Resolve replaces the fields of a conflicting document with the resolved set and clears
// the retained remote version. The document becomes a new pending local change.
func (s *Store) Resolve(entityType models.EntityType, id string, resolved models.Fields) (*models.Document, error) {
	s.mu.Lock()
	c, err := s.collection(entityType)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	doc, ok := c.Get(id)
	if !ok || doc.Deleted {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if doc.Remote == nil {
		s.mu.Unlock()
		return nil, ErrNoConflict
	}
	if err := s.validate(entityType, resolved); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	doc.Base = doc.Remote.Fields.Clone()
	doc.RemoteUpdatedAt = doc.Remote.UpdatedAt
	doc.Remote = nil
	doc.Fields = resolved.Clone()
	doc.UpdatedAt = s.clock.Tick()
	doc.LocalOnly = !s.online()

	c.Put(doc)
	s.persist(doc)
	s.mu.Unlock()

	s.logger.Info("conflict resolved", "entity_type", entityType, "entity_id", id)
	s.notify(Change{Key: doc.Key(), Origin: OriginLocal})
	return doc.Clone(), nil
}

// Conflicted returns every live document with an open conflict.
func (s *Store) Conflicted() []*models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Document
	for _, t := range models.EntityTypes() {
		for _, doc := range s.collections[t].Live() {
			if doc.HasConflict() {
				out = append(out, doc)
			}
		}
	}
	return out
}

// PurgeTombstones removes confirmed tombstones older than ttl and returns how many were removed.
func (s *Store) PurgeTombstones(ttl time.Duration) int {
	s.mu.Lock()
	cutoff := s.clock.Tick().Add(-ttl)

	var changes []Change
	for _, t := range models.EntityTypes() {
		for _, id := range s.collections[t].PurgeTombstones(cutoff) {
			key := models.Key{Type: t, ID: id}
			s.persistDelete(key)
			changes = append(changes, Change{Key: key, Origin: OriginPurged})
		}
	}
	s.mu.Unlock()

	if len(changes) > 0 {
		s.logger.Debug("tombstones purged", "count", len(changes))
		s.notify(changes...)
	}
	return len(changes)
}
