package validation

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

const (
	// MaxDocumentIDLen максимальная длина id документа
	MaxDocumentIDLen = 128
	// MaxFieldNameLen максимальная длина имени поля
	MaxFieldNameLen = 64
)

// ValidateDocumentID проверяет id документа: непустой, без "/" и управляющих символов,
// не длиннее MaxDocumentIDLen байт. id становится частью URL {endpoint}/{id}.
func ValidateDocumentID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("document id cannot be empty")
	}

	if len(id) > MaxDocumentIDLen {
		return fmt.Errorf("document id must not exceed %d characters", MaxDocumentIDLen)
	}

	if strings.Contains(id, "/") {
		return fmt.Errorf("document id cannot contain '/'")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("document id cannot contain control characters")
		}
	}

	return nil
}

// ValidateFieldName проверяет имя поля документа.
// reserved: дополнительно запрещенные имена, например алиасы id коллекции, которые authority
// и клиент отбрасывают из полей при разборе записи.
func ValidateFieldName(name string, reserved ...string) error {
	if name == "" {
		return fmt.Errorf("field name cannot be empty")
	}

	if len(name) > MaxFieldNameLen {
		return fmt.Errorf("field name must not exceed %d characters", MaxFieldNameLen)
	}

	// зарезервированы для метаданных в ответах authority
	if name == "updatedAt" || name == "createdAt" {
		return fmt.Errorf("field name %q is reserved", name)
	}

	if slices.Contains(reserved, name) {
		return fmt.Errorf("field name %q is reserved for the document id", name)
	}

	return nil
}

// ValidateFieldNames проверяет имена всех полей документа
func ValidateFieldNames[V any](fields map[string]V, reserved ...string) error {
	for name := range fields {
		if err := ValidateFieldName(name, reserved...); err != nil {
			return err
		}
	}
	return nil
}
