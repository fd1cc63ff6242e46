package storage

import (
	"context"

	"github.com/iudanet/fieldsync/internal/models"
)

//go:generate moq -out documentstorage_mock.go . DocumentStorage

// DocumentStorage is the durable side of the local replicated store.
// Tombstones are stored like any other document; DeleteDocument is reserved for purging them.
type DocumentStorage interface {
	// SaveDocument stores or replaces a document (including tombstones)
	SaveDocument(ctx context.Context, doc *models.Document) error

	// GetDocument retrieves a document by type and id
	// Returns ErrDocumentNotFound if the document doesn't exist
	GetDocument(ctx context.Context, entityType models.EntityType, id string) (*models.Document, error)

	// DeleteDocument physically removes a document
	DeleteDocument(ctx context.Context, entityType models.EntityType, id string) error

	// LoadDocuments returns every stored document of every type
	// Used once on startup to fill the in-memory store
	LoadDocuments(ctx context.Context) ([]*models.Document, error)
}
