package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/pkg/api"
)

// RemoteDocument is one item of an authority collection.
type RemoteDocument struct {
	UpdatedAt time.Time
	CreatedAt time.Time
	Fields    models.Fields
	ID        string
}

// payload flattens fields into a BrAPI style object with the id under the primary alias.
func payload(ep Endpoint, id string, fields models.Fields) map[string]any {
	out := fields.ToMap()
	alias := "id"
	if len(ep.IDAliases) > 0 {
		alias = ep.IDAliases[0]
	}
	out[alias] = id
	return out
}

// decodeList accepts {"result":{"data":[...]}}, {"data":[...]} and a bare array.
func decodeList(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode list: %w", err)
		}
		return items, nil
	}

	var envelope struct {
		Result *api.ListResult   `json:"result"`
		Data   []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if envelope.Result != nil {
		return envelope.Result.Data, nil
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	return nil, errors.New("response has no result.data")
}

// decodeItem resolves the id under the first matching alias and strips aliases and
// reserved keys from the fields.
func decodeItem(raw json.RawMessage, aliases []string) (RemoteDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return RemoteDocument{}, fmt.Errorf("failed to decode item: %w", err)
	}

	var doc RemoteDocument
	for _, alias := range aliases {
		v, ok := obj[alias]
		if !ok {
			continue
		}
		if id := idString(v); id != "" && doc.ID == "" {
			doc.ID = id
		}
		delete(obj, alias)
	}
	if doc.ID == "" {
		return RemoteDocument{}, fmt.Errorf("item has no id under any of %s", strings.Join(aliases, ", "))
	}

	doc.UpdatedAt = parseTime(obj[api.KeyUpdatedAt])
	doc.CreatedAt = parseTime(obj[api.KeyCreatedAt])
	delete(obj, api.KeyUpdatedAt)
	delete(obj, api.KeyCreatedAt)

	fields, err := models.FieldsFromMap(obj)
	if err != nil {
		return RemoteDocument{}, err
	}
	doc.Fields = fields
	return doc, nil
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func parseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
