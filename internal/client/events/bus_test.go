package events

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/models"
)

func createTestBus() (*Bus, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewBus(slog.New(slog.NewTextHandler(&buf, nil))), &buf
}

func TestBus_SubscribeAll(t *testing.T) {
	bus, _ := createTestBus()

	var got []Kind
	bus.Subscribe(func(e Event) { got = append(got, e.Kind()) })

	bus.Publish(SyncStarted{Count: 3})
	bus.Publish(SyncCompleted{Count: 3})
	bus.Publish(RemoteChanged{Type: models.EntityTrial, Count: 2})

	assert.Equal(t, []Kind{KindSyncStart, KindSyncComplete, KindRemoteChange}, got)
}

func TestBus_SubscribeKind(t *testing.T) {
	bus, _ := createTestBus()

	var conflicts []models.Conflict
	bus.SubscribeKind(KindSyncConflict, func(e Event) {
		c, ok := e.(ConflictRaised)
		require.True(t, ok)
		conflicts = append(conflicts, c.Conflict)
	})

	bus.Publish(SyncStarted{Count: 1})
	bus.Publish(ConflictRaised{Conflict: models.Conflict{EntityID: "obs-1", ConflictingFieldNames: []string{"value"}}})

	require.Len(t, conflicts, 1)
	assert.Equal(t, "obs-1", conflicts[0].EntityID)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus, _ := createTestBus()

	calls := 0
	unsubscribe := bus.Subscribe(func(Event) { calls++ })
	assert.Equal(t, 1, bus.Len())

	bus.Publish(SyncStarted{})
	unsubscribe()
	bus.Publish(SyncStarted{})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.Len())
}

func TestBus_PanicIsolated(t *testing.T) {
	bus, logs := createTestBus()

	delivered := 0
	bus.Subscribe(func(Event) { panic("broken observer") })
	bus.Subscribe(func(Event) { delivered++ })

	assert.NotPanics(t, func() {
		bus.Publish(SyncFailed{Err: errors.New("boom")})
	})
	assert.Equal(t, 1, delivered, "healthy handler must still receive the event")
	assert.Contains(t, logs.String(), "event handler panicked")
	assert.Contains(t, logs.String(), "broken observer")
}

func TestBus_NoSubscribers(t *testing.T) {
	bus, _ := createTestBus()
	assert.NotPanics(t, func() { bus.Publish(LocalChanged{Type: models.EntityObservation, ID: "obs-1"}) })
}

func TestEvent_Kinds(t *testing.T) {
	tests := []struct {
		event Event
		want  Kind
	}{
		{SyncStarted{}, "sync:start"},
		{SyncCompleted{}, "sync:complete"},
		{SyncFailed{}, "sync:error"},
		{ConflictRaised{}, "sync:conflict"},
		{LocalChanged{}, "change:local"},
		{RemoteChanged{}, "change:remote"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.event.Kind())
	}

	assert.Equal(t, "boom", SyncFailed{Err: errors.New("boom")}.Error())
	assert.Empty(t, SyncFailed{}.Error())
}
