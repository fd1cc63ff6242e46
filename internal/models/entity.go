package models

import (
	"fmt"
	"strings"
)

// EntityType is the kind of record a document holds. Each type is its own collection
// locally and its own endpoint on the authority.
type EntityType string

// Entity types known to the field collection app.
const (
	EntityGermplasm   EntityType = "germplasm"
	EntityObservation EntityType = "observation"
	EntityTrial       EntityType = "trial"
	EntityStudy       EntityType = "study"
	EntityCross       EntityType = "cross"
	EntitySeedLot     EntityType = "seedlot"
)

var entityTypes = []EntityType{
	EntityGermplasm,
	EntityObservation,
	EntityTrial,
	EntityStudy,
	EntityCross,
	EntitySeedLot,
}

// EntityTypes returns every entity type in a fixed order.
func EntityTypes() []EntityType {
	out := make([]EntityType, len(entityTypes))
	copy(out, entityTypes)
	return out
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	for _, known := range entityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseEntityType parses a user supplied type name. Case and "-"/"_" separators are ignored,
// and plural forms are accepted ("observations", "seed-lots").
func ParseEntityType(s string) (EntityType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "").Replace(norm)
	switch {
	case norm == "crosses":
		norm = "cross"
	case norm == "studies":
		norm = "study"
	default:
		norm = strings.TrimSuffix(norm, "s")
	}

	t := EntityType(norm)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}
