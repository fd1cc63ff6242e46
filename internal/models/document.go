package models

import "time"

// Key identifies a document across collections.
type Key struct {
	Type EntityType
	ID   string
}

// String renders the key as "type/id".
func (k Key) String() string {
	return string(k.Type) + "/" + k.ID
}

// RemoteVersion is the authority's copy of a document retained as the comparison
// basis while a conflict is open.
type RemoteVersion struct {
	UpdatedAt time.Time `json:"updated_at"`
	Fields    Fields    `json:"fields"`
}

// Clone returns a deep copy.
func (r *RemoteVersion) Clone() *RemoteVersion {
	if r == nil {
		return nil
	}
	return &RemoteVersion{UpdatedAt: r.UpdatedAt, Fields: r.Fields.Clone()}
}

// Document is the unit of synchronization.
type Document struct {
	CreatedAt       time.Time      `json:"created_at"`        // CreatedAt время первой локальной записи
	UpdatedAt       time.Time      `json:"updated_at"`        // UpdatedAt время последнего изменения
	SyncedAt        time.Time      `json:"synced_at"`         // SyncedAt нулевое значение = ни разу не синхронизирован
	RemoteUpdatedAt time.Time      `json:"remote_updated_at"` // RemoteUpdatedAt метка версии authority, на которой основан документ
	Fields          Fields         `json:"fields"`
	Base            Fields         `json:"base,omitempty"`   // Base последнее подтвержденное authority состояние полей
	Remote          *RemoteVersion `json:"remote,omitempty"` // Remote расходящаяся версия authority (открытый конфликт)
	ID              string         `json:"id"`
	Type            EntityType     `json:"type"`
	LocalOnly       bool           `json:"local_only"`
	Deleted         bool           `json:"deleted"`             // Deleted tombstone
	Recreated       bool           `json:"recreated,omitempty"` // Recreated authority еще хранит удаленную версию: push сначала удаляет ее
}

// Key returns the document key.
func (d *Document) Key() Key {
	return Key{Type: d.Type, ID: d.ID}
}

// HasSynced reports whether the authority ever confirmed the document.
func (d *Document) HasSynced() bool {
	return !d.SyncedAt.IsZero()
}

// HasConflict reports whether a divergent remote version is retained.
func (d *Document) HasConflict() bool {
	return d.Remote != nil
}

// Clone creates a deep copy of the document.
func (d *Document) Clone() *Document {
	cp := *d
	cp.Fields = d.Fields.Clone()
	cp.Base = d.Base.Clone()
	cp.Remote = d.Remote.Clone()
	return &cp
}

// IsPending is the single source of truth for "needs sync": the document was written
// while offline, was never confirmed by the authority, or changed after the last confirmation.
func IsPending(d *Document) bool {
	if d == nil {
		return false
	}
	return d.LocalOnly || d.SyncedAt.IsZero() || d.UpdatedAt.After(d.SyncedAt)
}
