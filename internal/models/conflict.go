package models

import "time"

// Conflict describes a field-level divergence between a locally pending document and
// the authority's version of it. It is computed, never stored on its own.
type Conflict struct {
	LocalTimestamp        time.Time  `json:"localTimestamp"`
	RemoteTimestamp       time.Time  `json:"remoteTimestamp"`
	LocalFields           Fields     `json:"localFields"`
	RemoteFields          Fields     `json:"remoteFields"`
	EntityType            EntityType `json:"entityType"`
	EntityID              string     `json:"entityId"`
	ConflictingFieldNames []string   `json:"conflictingFieldNames"`
}

// Key returns the key of the conflicting document.
func (c *Conflict) Key() Key {
	return Key{Type: c.EntityType, ID: c.EntityID}
}
