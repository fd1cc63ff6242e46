package storage

import (
	"context"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
)

//go:generate moq -out document_mock.go . DocumentStorage

// DocumentStorage defines interface for the per-user entity collections
type DocumentStorage interface {
	// ListDocuments returns all live documents of one type owned by the user, ordered by id
	ListDocuments(ctx context.Context, userID string, entityType models.EntityType) ([]*models.StoredDocument, error)

	// GetDocument returns a live document
	// Returns ErrDocumentNotFound if the document doesn't exist or was deleted
	GetDocument(ctx context.Context, userID string, entityType models.EntityType, id string) (*models.StoredDocument, error)

	// UpsertDocument creates the document or replaces its fields. List-typed fields are
	// unioned with the stored list so no append is lost. A deleted document is revived.
	// Returns the stored state and true if the document was created.
	UpsertDocument(ctx context.Context, userID string, entityType models.EntityType, id string, fields models.Fields, now time.Time) (*models.StoredDocument, bool, error)

	// DeleteDocument tombstones a live document
	// Returns ErrDocumentNotFound if the document doesn't exist or was already deleted
	DeleteDocument(ctx context.Context, userID string, entityType models.EntityType, id string, now time.Time) error
}
