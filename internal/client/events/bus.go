package events

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Handler observes events.
type Handler func(Event)

type subscription struct {
	handler Handler
	kind    Kind // пусто = все события
}

// Bus delivers events synchronously, in-process, best-effort.
// A panicking handler is logged and does not affect other handlers or the publisher.
type Bus struct {
	logger *slog.Logger
	subs   *xsync.MapOf[uint64, subscription]
	nextID atomic.Uint64
}

// NewBus creates an event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   xsync.NewMapOf[uint64, subscription](),
	}
}

// Subscribe registers h for every event and returns its unsubscribe function.
func (b *Bus) Subscribe(h Handler) func() {
	return b.add(subscription{handler: h})
}

// SubscribeKind registers h for one event kind.
func (b *Bus) SubscribeKind(kind Kind, h Handler) func() {
	return b.add(subscription{handler: h, kind: kind})
}

func (b *Bus) add(s subscription) func() {
	id := b.nextID.Add(1)
	b.subs.Store(id, s)
	return func() { b.subs.Delete(id) }
}

// Publish delivers e to the current subscribers. Late subscribers only see future events.
func (b *Bus) Publish(e Event) {
	b.subs.Range(func(id uint64, s subscription) bool {
		if s.kind == "" || s.kind == e.Kind() {
			b.deliver(id, s.handler, e)
		}
		return true
	})
}

func (b *Bus) deliver(id uint64, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"subscription", id,
				"event", e.Kind(),
				"error", fmt.Sprint(r),
			)
		}
	}()
	h(e)
}

// Len returns the number of subscriptions.
func (b *Bus) Len() int {
	return b.subs.Size()
}
