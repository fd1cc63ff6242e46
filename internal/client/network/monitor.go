// Package network tracks device connectivity and notifies subscribers on transitions.
package network

import (
	"context"
	"log/slog"
	"sync"
)

// Handler is called with the new state on every transition.
type Handler func(online bool)

// Monitor is the single source of truth for connectivity. It is driven by platform
// connectivity events through Set or Watch and never polls.
type Monitor struct {
	logger   *slog.Logger
	handlers map[int]Handler
	nextID   int
	mu       sync.RWMutex
	online   bool
}

// New creates a monitor with the platform's current connectivity state.
func New(initial bool, logger *slog.Logger) *Monitor {
	return &Monitor{
		logger:   logger,
		online:   initial,
		handlers: make(map[int]Handler),
	}
}

// IsOnline returns the current state.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Set records a connectivity signal. Handlers run only when the state actually changes.
// It reports whether a transition happened.
func (m *Monitor) Set(online bool) bool {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online

	handlers := make([]Handler, 0, len(m.handlers))
	for id := 0; id < m.nextID; id++ {
		if h, ok := m.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	m.mu.Unlock()

	if online {
		m.logger.Info("network online")
	} else {
		m.logger.Info("network offline")
	}

	for _, h := range handlers {
		h(online)
	}
	return true
}

// OnChange registers a transition handler and returns its unsubscribe function.
func (m *Monitor) OnChange(h Handler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.handlers[id] = h

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, id)
	}
}

// Watch feeds connectivity events from signals into the monitor until ctx is done
// or the channel is closed.
func (m *Monitor) Watch(ctx context.Context, signals <-chan bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-signals:
			if !ok {
				return
			}
			m.Set(online)
		}
	}
}
