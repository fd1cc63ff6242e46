package api

import (
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/pkg/api"
)

// Endpoint is the authority collection of one entity type.
type Endpoint struct {
	// Path of the collection, e.g. /brapi/v2/observations
	Path string `yaml:"endpoint"`
	// IDAliases are the field names the item id may be carried under, in priority order.
	// The first alias is used when sending documents.
	IDAliases []string `yaml:"id_aliases"`
}

// DefaultEndpoints returns the BrAPI v2 collections shared with the authority.
func DefaultEndpoints() map[models.EntityType]Endpoint {
	out := make(map[models.EntityType]Endpoint)
	for name, c := range api.DefaultCollections() {
		out[models.EntityType(name)] = Endpoint{
			Path:      c.Path,
			IDAliases: append([]string(nil), c.IDAliases...),
		}
	}
	return out
}
