package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/fieldsync/internal/client/store"
	"github.com/iudanet/fieldsync/internal/models"
)

func (c *Cli) runDelete(ctx context.Context, typeArg, id string) error {
	entityType, err := models.ParseEntityType(typeArg)
	if err != nil {
		return err
	}

	if err := c.app.Store.Delete(entityType, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("document not found: %s/%s", entityType, id)
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}

	c.io.Printf("✓ Deleted %s/%s\n", entityType, id)
	c.io.Println("The deletion is sent to the server on the next sync.")
	return nil
}
