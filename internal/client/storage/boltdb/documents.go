package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
	"go.etcd.io/bbolt"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
)

func documentBucket(t models.EntityType) []byte {
	return []byte("docs:" + string(t))
}

// SaveDocument stores a document as snappy-compressed JSON
func (s *Storage) SaveDocument(ctx context.Context, doc *models.Document) error {
	if !doc.Type.Valid() {
		return fmt.Errorf("unknown entity type %q", doc.Type)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(documentBucket(doc.Type))
		if bucket == nil {
			return fmt.Errorf("%s bucket not found", doc.Type)
		}

		if err := bucket.Put([]byte(doc.ID), snappy.Encode(nil, data)); err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
		return nil
	})
}

// GetDocument retrieves a document by type and id
func (s *Storage) GetDocument(ctx context.Context, entityType models.EntityType, id string) (*models.Document, error) {
	var doc *models.Document

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(documentBucket(entityType))
		if bucket == nil {
			return fmt.Errorf("%s bucket not found", entityType)
		}

		raw := bucket.Get([]byte(id))
		if raw == nil {
			return storage.ErrDocumentNotFound
		}

		var err error
		doc, err = decodeDocument(raw)
		return err
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// DeleteDocument physically removes a document. Missing documents are not an error.
func (s *Storage) DeleteDocument(ctx context.Context, entityType models.EntityType, id string) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(documentBucket(entityType))
		if bucket == nil {
			return fmt.Errorf("%s bucket not found", entityType)
		}

		if err := bucket.Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		return nil
	})
}

// LoadDocuments returns every stored document of every known type
func (s *Storage) LoadDocuments(ctx context.Context) ([]*models.Document, error) {
	var docs []*models.Document

	err := s.view(func(tx *bbolt.Tx) error {
		for _, t := range models.EntityTypes() {
			bucket := tx.Bucket(documentBucket(t))
			if bucket == nil {
				continue
			}

			err := bucket.ForEach(func(k, v []byte) error {
				doc, err := decodeDocument(v)
				if err != nil {
					return fmt.Errorf("%s/%s: %w", t, k, err)
				}
				docs = append(docs, doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	return docs, nil
}

func decodeDocument(raw []byte) (*models.Document, error) {
	data, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress document: %w", err)
	}

	doc := &models.Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return doc, nil
}
