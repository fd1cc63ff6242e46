package api

import "time"

// StatusResponse is the sync status shown by the UI
type StatusResponse struct {
	LastSyncTime *time.Time `json:"lastSyncTime"`
	LastError    string     `json:"lastError,omitempty"`
	Conflicts    []Conflict `json:"conflicts"`
	PendingCount int        `json:"pendingCount"`
	IsOnline     bool       `json:"isOnline"`
	IsSyncing    bool       `json:"isSyncing"`
	Durable      bool       `json:"durable"`
}

// Conflict is the structured diff of a conflicting document
type Conflict struct {
	LocalTimestamp        time.Time      `json:"localTimestamp"`
	RemoteTimestamp       time.Time      `json:"remoteTimestamp"`
	LocalFields           map[string]any `json:"localFields"`
	RemoteFields          map[string]any `json:"remoteFields"`
	EntityType            string         `json:"entityType"`
	EntityID              string         `json:"entityId"`
	ConflictingFieldNames []string       `json:"conflictingFieldNames"`
}

// Document is a local document as exposed to the UI
type Document struct {
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	SyncedAt  *time.Time     `json:"syncedAt,omitempty"`
	Fields    map[string]any `json:"fields"`
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	LocalOnly bool           `json:"localOnly"`
	Pending   bool           `json:"pending"`
	Conflict  bool           `json:"conflict"`
}

// NetworkRequest reports a connectivity change from the platform
type NetworkRequest struct {
	Online bool `json:"online"`
}

// ResolveRequest carries a conflict resolution decision
type ResolveRequest struct {
	Pick     map[string]string `json:"pick,omitempty"`     // field -> "local" | "remote"
	Override map[string]any    `json:"override,omitempty"` // field -> value
	Strategy string            `json:"strategy"`           // "local" | "remote" | "merge"
}

// SyncResponse is the result of a forced sync cycle
type SyncResponse struct {
	Error     string `json:"error,omitempty"`
	Pushed    int    `json:"pushed"`
	Failed    int    `json:"failed"`
	Pulled    int    `json:"pulled"`
	Merged    int    `json:"merged"`
	Conflicts int    `json:"conflicts"`
}

// EventMessage is one event streamed to the UI over WebSocket
type EventMessage struct {
	Data any    `json:"data,omitempty"`
	Type string `json:"type"`
}
