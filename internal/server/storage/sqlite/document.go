package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/fieldsync/internal/crdt"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/storage"
)

// ListDocuments returns live documents of one type owned by the user
func (s *Storage) ListDocuments(ctx context.Context, userID string, entityType models.EntityType) ([]*models.StoredDocument, error) {
	query := `
		SELECT id, fields, created_at, updated_at
		FROM documents
		WHERE user_id = ? AND entity_type = ? AND deleted_at IS NULL
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, userID, string(entityType))
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := make([]*models.StoredDocument, 0)
	for rows.Next() {
		doc := &models.StoredDocument{UserID: userID, Type: entityType}
		var raw []byte
		var createdAt, updatedAt int64
		if err := rows.Scan(&doc.ID, &raw, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := fillDocument(doc, raw, createdAt, updatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return docs, nil
}

// GetDocument returns a live document
func (s *Storage) GetDocument(ctx context.Context, userID string, entityType models.EntityType, id string) (*models.StoredDocument, error) {
	doc, deleted, err := getDocument(ctx, s.db, userID, entityType, id)
	if err != nil {
		return nil, err
	}
	if deleted {
		return nil, storage.ErrDocumentNotFound
	}
	return doc, nil
}

// UpsertDocument creates the document or replaces its fields, unioning list-typed fields
// with the stored ones
func (s *Storage) UpsertDocument(
	ctx context.Context,
	userID string,
	entityType models.EntityType,
	id string,
	fields models.Fields,
	now time.Time,
) (*models.StoredDocument, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, deleted, err := getDocument(ctx, tx, userID, entityType, id)
	if err != nil && !errors.Is(err, storage.ErrDocumentNotFound) {
		return nil, false, err
	}

	doc := &models.StoredDocument{
		UserID:    userID,
		Type:      entityType,
		ID:        id,
		Fields:    fields.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if doc.Fields == nil {
		doc.Fields = models.Fields{}
	}

	created := existing == nil || deleted
	if existing != nil && !deleted {
		doc.CreatedAt = existing.CreatedAt
		for name, v := range doc.Fields {
			cur, ok := existing.Fields[name]
			if ok && cur.Kind() == models.KindList {
				doc.Fields[name] = crdt.MergeValue(cur, v)
			}
		}
	}

	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := `
		INSERT INTO documents (user_id, entity_type, id, fields, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT (user_id, entity_type, id) DO UPDATE SET
			fields = excluded.fields,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted_at = NULL
	`

	if _, err := tx.ExecContext(ctx, query,
		userID,
		string(entityType),
		id,
		string(raw),
		doc.CreatedAt.UnixNano(),
		doc.UpdatedAt.UnixNano(),
	); err != nil {
		return nil, false, fmt.Errorf("failed to upsert document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit: %w", err)
	}

	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return doc, created, nil
}

// DeleteDocument tombstones a live document
func (s *Storage) DeleteDocument(ctx context.Context, userID string, entityType models.EntityType, id string, now time.Time) error {
	query := `
		UPDATE documents SET deleted_at = ?, updated_at = ?
		WHERE user_id = ? AND entity_type = ? AND id = ? AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, now.UnixNano(), now.UnixNano(), userID, string(entityType), id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrDocumentNotFound
	}

	return nil
}

// queryer общий интерфейс *sql.DB и *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getDocument возвращает документ вместе с признаком удаления
func getDocument(ctx context.Context, q queryer, userID string, entityType models.EntityType, id string) (*models.StoredDocument, bool, error) {
	query := `
		SELECT fields, created_at, updated_at, deleted_at
		FROM documents
		WHERE user_id = ? AND entity_type = ? AND id = ?
	`

	doc := &models.StoredDocument{UserID: userID, Type: entityType, ID: id}
	var raw []byte
	var createdAt, updatedAt int64
	var deletedAt sql.NullInt64

	err := q.QueryRowContext(ctx, query, userID, string(entityType), id).Scan(&raw, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, storage.ErrDocumentNotFound
		}
		return nil, false, fmt.Errorf("failed to get document: %w", err)
	}

	if err := fillDocument(doc, raw, createdAt, updatedAt); err != nil {
		return nil, false, err
	}

	return doc, deletedAt.Valid, nil
}

func fillDocument(doc *models.StoredDocument, raw []byte, createdAt, updatedAt int64) error {
	var fields models.Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("failed to unmarshal fields of %s/%s: %w", doc.Type, doc.ID, err)
	}
	if fields == nil {
		fields = models.Fields{}
	}
	doc.Fields = fields
	doc.CreatedAt = time.Unix(0, createdAt).UTC()
	doc.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return nil
}
