package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
)

func (c *Cli) runList(ctx context.Context, typeArg string) error {
	entityType, err := models.ParseEntityType(typeArg)
	if err != nil {
		return err
	}

	c.io.Printf("=== %s ===\n", entityType)
	c.io.Println()

	docs := c.app.Store.GetAll(entityType)
	if len(docs) == 0 {
		c.io.Println("No documents found.")
		c.io.Println()
		c.io.Printf("Use 'fieldsync put %s name=value' to add one.\n", entityType)
		return nil
	}
	sortByID(docs)

	c.io.Printf("Found %d document(s):\n", len(docs))
	c.io.Println()

	tw := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tUPDATED\tFIELDS")
	for _, doc := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", doc.ID, docState(doc), doc.UpdatedAt.Format(time.DateTime), fieldNames(doc))
	}
	return tw.Flush()
}

func sortByID(docs []*models.Document) {
	slices.SortFunc(docs, func(a, b *models.Document) int {
		return strings.Compare(a.ID, b.ID)
	})
}

func fieldNames(doc *models.Document) string {
	names := make([]string, 0, len(doc.Fields))
	for name := range doc.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ",")
}
