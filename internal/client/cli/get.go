package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
)

func (c *Cli) runGet(ctx context.Context, typeArg, id string) error {
	entityType, err := models.ParseEntityType(typeArg)
	if err != nil {
		return err
	}

	doc, ok := c.app.Store.Get(entityType, id)
	if !ok {
		return fmt.Errorf("document not found: %s/%s", entityType, id)
	}

	c.io.Printf("=== %s ===\n", doc.Key())
	c.io.Println()
	c.io.Printf("State:   %s\n", docState(doc))
	c.io.Printf("Created: %s\n", doc.CreatedAt.Format(time.RFC3339))
	c.io.Printf("Updated: %s\n", doc.UpdatedAt.Format(time.RFC3339))
	if doc.HasSynced() {
		c.io.Printf("Synced:  %s\n", doc.SyncedAt.Format(time.RFC3339))
	} else {
		c.io.Println("Synced:  never")
	}

	c.io.Println()
	names := make([]string, 0, len(doc.Fields))
	for name := range doc.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		c.io.Printf("  %s = %s\n", name, formatValue(doc.Fields[name]))
	}

	if doc.HasConflict() {
		c.io.Println()
		c.io.Printf("⚠️  Open conflict. Run 'fieldsync conflicts' to inspect it.\n")
	}
	return nil
}
