package uiapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iudanet/fieldsync/internal/client/api"
	"github.com/iudanet/fieldsync/internal/client/conflict"
	"github.com/iudanet/fieldsync/internal/client/store"
	"github.com/iudanet/fieldsync/internal/client/sync"
	"github.com/iudanet/fieldsync/internal/models"
	pkgapi "github.com/iudanet/fieldsync/pkg/api"
)

// Status обрабатывает GET /status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	s := h.app.Engine.Status()
	h.sendJSON(w, pkgapi.StatusResponse{
		LastSyncTime: timePtr(s.LastSyncTime),
		LastError:    s.LastError,
		Conflicts:    toConflicts(s.Conflicts),
		PendingCount: s.PendingCount,
		IsOnline:     s.IsOnline,
		IsSyncing:    s.IsSyncing,
		Durable:      s.Durable,
	}, http.StatusOK)
}

// Sync обрабатывает POST /sync
// Выполняет push и затем pull
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.app.Engine.ForceSync(r.Context())

	resp := pkgapi.SyncResponse{
		Pushed:    res.Pushed,
		Failed:    res.Failed,
		Pulled:    res.Pulled,
		Merged:    res.Merged,
		Conflicts: res.Conflicts,
	}
	if err == nil {
		h.sendJSON(w, resp, http.StatusOK)
		return
	}

	resp.Error = err.Error()
	switch {
	case errors.Is(err, sync.ErrOffline), errors.Is(err, sync.ErrBusy):
		h.sendJSON(w, resp, http.StatusConflict)
	case errors.Is(err, sync.ErrNoCredentials), errors.Is(err, api.ErrUnauthorized):
		h.sendJSON(w, resp, http.StatusUnauthorized)
	default:
		h.sendJSON(w, resp, http.StatusBadGateway)
	}
}

// Network обрабатывает POST /network
// Платформа сообщает об изменении сетевого подключения
func (h *Handler) Network(w http.ResponseWriter, r *http.Request) {
	var req pkgapi.NetworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.app.Network.Set(req.Online)
	w.WriteHeader(http.StatusNoContent)
}

// Conflicts обрабатывает GET /conflicts
func (h *Handler) Conflicts(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, toConflicts(h.app.Engine.Conflicts()), http.StatusOK)
}

// Resolve обрабатывает POST /conflicts/{type}/{id}/resolve
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	t, ok := h.entityType(w, r)
	if !ok {
		return
	}

	var req pkgapi.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resolution, err := toResolution(req)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.app.Engine.Resolve(t, r.PathValue("id"), resolution)
	switch {
	case err == nil:
		h.sendJSON(w, toDocument(doc), http.StatusOK)
	case errors.Is(err, store.ErrNotFound):
		h.sendError(w, "document not found", http.StatusNotFound)
	case errors.Is(err, store.ErrNoConflict):
		h.sendError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, conflict.ErrUnresolvedField), errors.Is(err, conflict.ErrUnknownStrategy),
		errors.Is(err, store.ErrInvalidDocument):
		h.sendError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("failed to resolve conflict", "entity_type", t, "error", err)
		h.sendError(w, "internal server error", http.StatusInternalServerError)
	}
}

func toResolution(req pkgapi.ResolveRequest) (conflict.Resolution, error) {
	strategy, err := conflict.ParseStrategy(req.Strategy)
	if err != nil {
		return conflict.Resolution{}, err
	}

	r := conflict.Resolution{Strategy: strategy}
	if len(req.Pick) > 0 {
		r.Pick = make(map[string]conflict.Side, len(req.Pick))
		for name, side := range req.Pick {
			r.Pick[name] = conflict.Side(side)
		}
	}
	if len(req.Override) > 0 {
		r.Override, err = models.FieldsFromMap(req.Override)
		if err != nil {
			return conflict.Resolution{}, err
		}
	}
	return r, nil
}
