package uiapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/iudanet/fieldsync/internal/client/store"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/validation"
	"github.com/iudanet/fieldsync/pkg/api"
)

// maxBodySize ограничивает размер тела запроса с документом
const maxBodySize = 1 << 20

// ListDocuments обрабатывает GET /docs/{type}
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	t, ok := h.entityType(w, r)
	if !ok {
		return
	}

	docs := h.app.Store.GetAll(t)
	out := make([]api.Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocument(doc))
	}
	h.sendJSON(w, out, http.StatusOK)
}

// GetDocument обрабатывает GET /docs/{type}/{id}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	t, ok := h.entityType(w, r)
	if !ok {
		return
	}

	doc, found := h.app.Store.Get(t, r.PathValue("id"))
	if !found {
		h.sendError(w, "document not found", http.StatusNotFound)
		return
	}
	h.sendJSON(w, toDocument(doc), http.StatusOK)
}

// CreateDocument обрабатывает POST /docs/{type}
// id генерируется, если не передан в поле "id"
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	t, ok := h.entityType(w, r)
	if !ok {
		return
	}

	fields, err := decodeFields(r)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := uuid.New().String()
	if v, ok := fields["id"].AsString(); ok {
		id = v
		delete(fields, "id")
	}

	h.upsert(w, t, id, fields, http.StatusCreated)
}

// PutDocument обрабатывает PUT /docs/{type}/{id}
// Поля сливаются с существующим документом: скаляры перезаписываются, списки дополняются
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	t, ok := h.entityType(w, r)
	if !ok {
		return
	}

	fields, err := decodeFields(r)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.upsert(w, t, r.PathValue("id"), fields, http.StatusOK)
}

// DeleteDocument обрабатывает DELETE /docs/{type}/{id}
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	t, ok := h.entityType(w, r)
	if !ok {
		return
	}

	if err := h.app.Store.Delete(t, r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendError(w, "document not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete document", "error", err)
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) upsert(w http.ResponseWriter, t models.EntityType, id string, fields models.Fields, status int) {
	if err := validation.ValidateDocumentID(id); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.app.Store.Upsert(t, id, fields); err != nil {
		if errors.Is(err, store.ErrInvalidDocument) {
			h.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to upsert document", "entity_type", t, "entity_id", id, "error", err)
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	doc, _ := h.app.Store.Get(t, id)
	h.sendJSON(w, toDocument(doc), status)
}

func (h *Handler) entityType(w http.ResponseWriter, r *http.Request) (models.EntityType, bool) {
	t, err := models.ParseEntityType(r.PathValue("type"))
	if err != nil {
		h.sendError(w, err.Error(), http.StatusNotFound)
		return "", false
	}
	return t, true
}

// decodeFields читает JSON объект полей документа
func decodeFields(r *http.Request) (models.Fields, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if err := validation.ValidateFieldNames(raw); err != nil {
		return nil, err
	}

	fields, err := models.FieldsFromMap(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid fields: %w", err)
	}
	return fields, nil
}
