package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/storage"
	"github.com/iudanet/fieldsync/internal/validation"
	"github.com/iudanet/fieldsync/pkg/api"
)

// MaxDocumentBodySize ограничивает размер тела POST/PUT
const MaxDocumentBodySize = 1 << 20

// DocumentHandler обслуживает BrAPI коллекции: одна коллекция на тип сущности.
// POST и PUT идемпотентны: оба создают или обновляют документ.
// Требует AuthMiddleware, документы видны только владельцу.
type DocumentHandler struct {
	logger      *slog.Logger
	storage     storage.DocumentStorage
	collections map[models.EntityType]api.Collection
	now         func() time.Time
}

// NewDocumentHandler создает handler для коллекций. Ключи collections должны быть
// известными типами сущностей.
func NewDocumentHandler(logger *slog.Logger, st storage.DocumentStorage, collections map[string]api.Collection) (*DocumentHandler, error) {
	h := &DocumentHandler{
		logger:      logger,
		storage:     st,
		collections: make(map[models.EntityType]api.Collection, len(collections)),
		now:         time.Now,
	}

	for name, c := range collections {
		et := models.EntityType(name)
		if !et.Valid() {
			return nil, fmt.Errorf("unknown entity type %q", name)
		}
		if c.Path == "" || len(c.IDAliases) == 0 {
			return nil, fmt.Errorf("collection %q needs a path and at least one id alias", name)
		}
		h.collections[et] = c
	}

	return h, nil
}

// EntityTypes returns the served entity types in a stable order.
func (h *DocumentHandler) EntityTypes() []models.EntityType {
	out := make([]models.EntityType, 0, len(h.collections))
	for et := range h.collections {
		out = append(out, et)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Collection returns the collection of an entity type.
func (h *DocumentHandler) Collection(et models.EntityType) (api.Collection, bool) {
	c, ok := h.collections[et]
	return c, ok
}

// List обрабатывает GET {path}
func (h *DocumentHandler) List(et models.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, ok := GetUserID(ctx)
		if !ok {
			sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
			return
		}

		docs, err := h.storage.ListDocuments(ctx, userID, et)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to list documents", slog.String("entity_type", string(et)), slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}

		items := make([]json.RawMessage, 0, len(docs))
		for _, doc := range docs {
			item, err := json.Marshal(h.item(doc))
			if err != nil {
				h.logger.ErrorContext(ctx, "failed to encode document", slog.String("entity_id", doc.ID), slog.Any("error", err))
				sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
				return
			}
			items = append(items, item)
		}

		resp := api.ListResponse{
			Metadata: api.Metadata{Pagination: api.Pagination{
				CurrentPage: 0,
				PageSize:    len(items),
				TotalCount:  len(items),
				TotalPages:  1,
			}},
			Result: api.ListResult{Data: items},
		}

		h.logger.DebugContext(ctx, "documents listed",
			slog.String("user_id", userID),
			slog.String("entity_type", string(et)),
			slog.Int("count", len(items)))

		sendJSON(h.logger, w, resp, http.StatusOK)
	}
}

// Get обрабатывает GET {path}/{id}
func (h *DocumentHandler) Get(et models.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, ok := GetUserID(ctx)
		if !ok {
			sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id := r.PathValue("id")
		doc, err := h.storage.GetDocument(ctx, userID, et, id)
		if err != nil {
			if errors.Is(err, storage.ErrDocumentNotFound) {
				sendError(h.logger, w, "document not found", http.StatusNotFound)
				return
			}
			h.logger.ErrorContext(ctx, "failed to get document", slog.String("entity_id", id), slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}

		h.sendItem(w, doc, http.StatusOK)
	}
}

// Create обрабатывает POST {path}. id берется из тела под одним из алиасов.
func (h *DocumentHandler) Create(et models.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.upsert(w, r, et, "")
	}
}

// Update обрабатывает PUT {path}/{id}. id из пути важнее id в теле.
func (h *DocumentHandler) Update(et models.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.upsert(w, r, et, r.PathValue("id"))
	}
}

// Delete обрабатывает DELETE {path}/{id}
func (h *DocumentHandler) Delete(et models.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, ok := GetUserID(ctx)
		if !ok {
			sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id := r.PathValue("id")
		if err := h.storage.DeleteDocument(ctx, userID, et, id, h.now()); err != nil {
			if errors.Is(err, storage.ErrDocumentNotFound) {
				sendError(h.logger, w, "document not found", http.StatusNotFound)
				return
			}
			h.logger.ErrorContext(ctx, "failed to delete document", slog.String("entity_id", id), slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}

		h.logger.InfoContext(ctx, "document deleted",
			slog.String("user_id", userID),
			slog.String("entity_type", string(et)),
			slog.String("entity_id", id))

		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *DocumentHandler) upsert(w http.ResponseWriter, r *http.Request, et models.EntityType, pathID string) {
	ctx := r.Context()
	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	collection := h.collections[et]
	bodyID, fields, err := decodeDocument(http.MaxBytesReader(w, r.Body, MaxDocumentBodySize), collection.IDAliases)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid document body", slog.String("entity_type", string(et)), slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	id := pathID
	if id == "" {
		id = bodyID
	}
	if err := validation.ValidateDocumentID(id); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, created, err := h.storage.UpsertDocument(ctx, userID, et, id, fields, h.now())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to save document", slog.String("entity_id", id), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "document saved",
		slog.String("user_id", userID),
		slog.String("entity_type", string(et)),
		slog.String("entity_id", id),
		slog.Bool("created", created))

	status := http.StatusOK
	if created && r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	h.sendItem(w, doc, status)
}

func (h *DocumentHandler) sendItem(w http.ResponseWriter, doc *models.StoredDocument, status int) {
	item, err := json.Marshal(h.item(doc))
	if err != nil {
		h.logger.Error("failed to encode document", slog.String("entity_id", doc.ID), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}
	sendJSON(h.logger, w, api.ItemResponse{
		Metadata: api.Metadata{Pagination: api.Pagination{PageSize: 1, TotalCount: 1, TotalPages: 1}},
		Result:   item,
	}, status)
}

// item раскладывает документ в плоский BrAPI объект: поля, id под основным алиасом и метки времени
func (h *DocumentHandler) item(doc *models.StoredDocument) map[string]any {
	out := doc.Fields.ToMap()
	out[h.collections[doc.Type].IDAliases[0]] = doc.ID
	out[api.KeyCreatedAt] = doc.CreatedAt.UTC().Format(time.RFC3339Nano)
	out[api.KeyUpdatedAt] = doc.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return out
}

// decodeDocument читает JSON объект, извлекает id по первому найденному алиасу и
// отбрасывает алиасы и служебные ключи из полей. Разные значения под двумя алиасами отклоняются.
func decodeDocument(body io.Reader, aliases []string) (string, models.Fields, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read body: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return "", nil, errors.New("body must be a JSON object")
	}
	if obj == nil {
		return "", nil, errors.New("body must be a JSON object")
	}

	var id, idAlias string
	for _, alias := range aliases {
		v, ok := obj[alias]
		if !ok {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		}
		switch {
		case id == "":
			id, idAlias = s, alias
		case s != id:
			// второй алиас был бы молча отброшен вместе со значением
			return "", nil, fmt.Errorf("conflicting ids under %q and %q", idAlias, alias)
		}
		delete(obj, alias)
	}
	delete(obj, api.KeyCreatedAt)
	delete(obj, api.KeyUpdatedAt)

	if err := validation.ValidateFieldNames(obj); err != nil {
		return "", nil, err
	}

	fields, err := models.FieldsFromMap(obj)
	if err != nil {
		return "", nil, err
	}

	return id, fields, nil
}
