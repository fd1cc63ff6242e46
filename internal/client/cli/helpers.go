package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/validation"
)

// parseAssignments разбирает аргументы вида name=value.
// Значение читается как JSON (число, bool, список, объект), иначе как строка.
// reserved: алиасы id типа, они не могут быть полями.
func parseAssignments(args []string, reserved ...string) (models.Fields, error) {
	fields := make(models.Fields, len(args))
	for _, arg := range args {
		name, raw, ok := cutAssignment(arg)
		if !ok {
			return nil, fmt.Errorf("expected name=value, got %q", arg)
		}
		if err := validation.ValidateFieldName(name, reserved...); err != nil {
			return nil, err
		}
		fields[name] = parseValue(raw)
	}
	return fields, nil
}

func cutAssignment(arg string) (string, string, bool) {
	name, value, ok := strings.Cut(arg, "=")
	return strings.TrimSpace(name), value, ok && strings.TrimSpace(name) != ""
}

func parseValue(raw string) models.Value {
	var v models.Value
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return models.String(raw)
}

// docState возвращает краткое состояние документа для таблиц
func docState(doc *models.Document) string {
	switch {
	case doc.HasConflict():
		return "conflict"
	case doc.LocalOnly:
		return "local-only"
	case models.IsPending(doc):
		return "pending"
	default:
		return "synced"
	}
}

// formatValue печатает значение поля в JSON
func formatValue(v models.Value) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "?"
	}
	return string(data)
}
