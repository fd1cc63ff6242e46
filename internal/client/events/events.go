// Package events is the typed publish/subscribe channel between the sync engine,
// the local store and UI observers.
package events

import (
	"time"

	"github.com/iudanet/fieldsync/internal/models"
)

// Kind is the wire name of an event variant.
type Kind string

// Event kinds.
const (
	KindSyncStart    Kind = "sync:start"
	KindSyncComplete Kind = "sync:complete"
	KindSyncError    Kind = "sync:error"
	KindSyncConflict Kind = "sync:conflict"
	KindLocalChange  Kind = "change:local"
	KindRemoteChange Kind = "change:remote"
)

// Event is one of the variants declared in this package. The set is closed.
type Event interface {
	Kind() Kind
	isEvent()
}

// SyncStarted is published when a push cycle begins.
type SyncStarted struct {
	Count int `json:"count"` // pending documents at cycle start
}

// SyncCompleted is published after a successful cycle.
type SyncCompleted struct {
	Count     int           `json:"count"` // documents accepted by the authority
	Failed    int           `json:"failed"`
	Pulled    int           `json:"pulled"`
	Conflicts int           `json:"conflicts"`
	Duration  time.Duration `json:"duration"`
}

// SyncFailed is published when a cycle aborts.
type SyncFailed struct {
	Err error `json:"-"`
}

// ConflictRaised is published when a pull detects a new or changed conflict.
type ConflictRaised struct {
	Conflict models.Conflict `json:"conflict"`
}

// LocalChanged is published for every local write.
type LocalChanged struct {
	Type    models.EntityType `json:"entityType"`
	ID      string            `json:"entityId"`
	Deleted bool              `json:"deleted"`
}

// RemoteChanged is published once per entity type after a pull.
type RemoteChanged struct {
	Type  models.EntityType `json:"entityType"`
	Count int               `json:"count"`
}

func (SyncStarted) Kind() Kind    { return KindSyncStart }
func (SyncCompleted) Kind() Kind  { return KindSyncComplete }
func (SyncFailed) Kind() Kind     { return KindSyncError }
func (ConflictRaised) Kind() Kind { return KindSyncConflict }
func (LocalChanged) Kind() Kind   { return KindLocalChange }
func (RemoteChanged) Kind() Kind  { return KindRemoteChange }

func (SyncStarted) isEvent()    {}
func (SyncCompleted) isEvent()  {}
func (SyncFailed) isEvent()     {}
func (ConflictRaised) isEvent() {}
func (LocalChanged) isEvent()   {}
func (RemoteChanged) isEvent()  {}

// Error returns the failure message, used when the event is serialized.
func (e SyncFailed) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
