package uiapi

import (
	"time"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/pkg/api"
)

func toDocument(doc *models.Document) api.Document {
	out := api.Document{
		ID:        doc.ID,
		Type:      string(doc.Type),
		Fields:    doc.Fields.ToMap(),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		LocalOnly: doc.LocalOnly,
		Pending:   models.IsPending(doc),
		Conflict:  doc.HasConflict(),
	}
	if doc.HasSynced() {
		synced := doc.SyncedAt
		out.SyncedAt = &synced
	}
	return out
}

func toConflict(c models.Conflict) api.Conflict {
	return api.Conflict{
		EntityType:            string(c.EntityType),
		EntityID:              c.EntityID,
		LocalFields:           c.LocalFields.ToMap(),
		RemoteFields:          c.RemoteFields.ToMap(),
		LocalTimestamp:        c.LocalTimestamp,
		RemoteTimestamp:       c.RemoteTimestamp,
		ConflictingFieldNames: c.ConflictingFieldNames,
	}
}

func toConflicts(cs []models.Conflict) []api.Conflict {
	out := make([]api.Conflict, 0, len(cs))
	for _, c := range cs {
		out = append(out, toConflict(c))
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
