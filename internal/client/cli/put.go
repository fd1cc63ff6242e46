package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/validation"
)

// runPut создает или дополняет документ.
// Скалярные поля перезаписываются, списки дополняются.
func (c *Cli) runPut(ctx context.Context, typeArg, id string, assignments []string) error {
	entityType, err := models.ParseEntityType(typeArg)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return errors.New("no fields given. Usage: fieldsync put <type> [id] name=value...")
	}

	fields, err := parseAssignments(assignments, c.app.Config.IDAliases()[entityType]...)
	if err != nil {
		return err
	}

	if id == "" {
		id = uuid.New().String()
	}
	if err := validation.ValidateDocumentID(id); err != nil {
		return err
	}

	if err := c.app.Store.Upsert(entityType, id, fields); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	doc, _ := c.app.Store.Get(entityType, id)
	c.io.Printf("✓ Saved %s (%s)\n", doc.Key(), docState(doc))
	return nil
}
