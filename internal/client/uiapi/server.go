// Package uiapi serves the local HTTP API used by the PWA shell: status, forced sync,
// connectivity events, document CRUD, conflict resolution and a WebSocket event stream.
package uiapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/fieldsync/internal/client/app"
	"github.com/iudanet/fieldsync/internal/server/middleware"
	"github.com/iudanet/fieldsync/pkg/api"
)

// Handler обрабатывает запросы локального UI
type Handler struct {
	app      *app.App
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler создает handler поверх собранного приложения
func NewHandler(a *app.App, logger *slog.Logger) *Handler {
	return &Handler{
		app:    a,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// API слушает только loopback, страница PWA приходит с другого origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes returns the router wrapped in recovery and logging middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", h.Status)
	mux.HandleFunc("POST /sync", h.Sync)
	mux.HandleFunc("POST /network", h.Network)

	mux.HandleFunc("GET /docs/{type}", h.ListDocuments)
	mux.HandleFunc("POST /docs/{type}", h.CreateDocument)
	mux.HandleFunc("GET /docs/{type}/{id}", h.GetDocument)
	mux.HandleFunc("PUT /docs/{type}/{id}", h.PutDocument)
	mux.HandleFunc("DELETE /docs/{type}/{id}", h.DeleteDocument)

	mux.HandleFunc("GET /conflicts", h.Conflicts)
	mux.HandleFunc("POST /conflicts/{type}/{id}/resolve", h.Resolve)

	mux.HandleFunc("GET /events", h.Events)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.app.Registry, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = middleware.LoggingWithSkip(h.logger, []string{"/metrics", "/status", "/events"})(handler)
	handler = middleware.RecoveryMiddleware(h.logger)(handler)
	return handler
}

// sendJSON отправляет JSON ответ
func (h *Handler) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// sendError отправляет ошибку в формате JSON
func (h *Handler) sendError(w http.ResponseWriter, message string, statusCode int) {
	h.sendJSON(w, api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}, statusCode)
}
