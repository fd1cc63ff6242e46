package network

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func createTestMonitor(initial bool) *Monitor {
	return New(initial, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMonitor_InitialState(t *testing.T) {
	assert.True(t, createTestMonitor(true).IsOnline())
	assert.False(t, createTestMonitor(false).IsOnline())
}

func TestMonitor_EdgeTriggered(t *testing.T) {
	m := createTestMonitor(false)

	var got []bool
	m.OnChange(func(online bool) { got = append(got, online) })

	assert.True(t, m.Set(true))
	assert.False(t, m.Set(true), "repeated signal is not a transition")
	assert.True(t, m.Set(false))
	assert.False(t, m.Set(false))

	assert.Equal(t, []bool{true, false}, got)
	assert.False(t, m.IsOnline())
}

func TestMonitor_Unsubscribe(t *testing.T) {
	m := createTestMonitor(true)

	calls := 0
	unsubscribe := m.OnChange(func(bool) { calls++ })
	m.Set(false)
	unsubscribe()
	m.Set(true)

	assert.Equal(t, 1, calls)
}

func TestMonitor_HandlerSeesNewState(t *testing.T) {
	m := createTestMonitor(false)

	var seen bool
	m.OnChange(func(bool) { seen = m.IsOnline() })
	m.Set(true)

	assert.True(t, seen)
}

func TestMonitor_Watch(t *testing.T) {
	m := createTestMonitor(false)
	signals := make(chan bool)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.Watch(ctx, signals)
		close(done)
	}()

	signals <- true
	assert.Eventually(t, m.IsOnline, time.Second, 10*time.Millisecond)

	close(signals)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after channel close")
	}
}
