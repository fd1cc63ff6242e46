package uiapi

import (
	"net/http"
	"time"

	"github.com/iudanet/fieldsync/internal/client/events"
	"github.com/iudanet/fieldsync/pkg/api"
)

const (
	writeWait    = 10 * time.Second
	eventBacklog = 64
)

// Events обрабатывает GET /events
// Транслирует события шины в WebSocket. Медленный клиент теряет события, шина не блокируется.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	queue := make(chan api.EventMessage, eventBacklog)
	unsubscribe := h.app.Bus.Subscribe(func(e events.Event) {
		select {
		case queue <- toEventMessage(e):
		default:
			h.logger.Warn("event dropped for slow websocket client", "kind", e.Kind())
		}
	})
	defer unsubscribe()
	h.logger.Debug("event stream opened", "subscribers", h.app.Bus.Len())

	// читаем только для обнаружения закрытия соединения
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg := <-queue:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func toEventMessage(e events.Event) api.EventMessage {
	msg := api.EventMessage{Type: string(e.Kind())}
	switch ev := e.(type) {
	case events.SyncFailed:
		msg.Data = map[string]string{"error": ev.Error()}
	case events.ConflictRaised:
		msg.Data = toConflict(ev.Conflict)
	default:
		msg.Data = ev
	}
	return msg
}
