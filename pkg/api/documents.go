package api

import "encoding/json"

// Reserved keys of a document payload. Everything else is a document field.
const (
	KeyUpdatedAt = "updatedAt"
	KeyCreatedAt = "createdAt"
)

// ListResponse is the collection envelope returned by GET {endpoint}:
//
//	{"metadata": {...}, "result": {"data": [ {...}, ... ]}}
type ListResponse struct {
	Metadata Metadata   `json:"metadata"`
	Result   ListResult `json:"result"`
}

// ListResult holds the collection items.
type ListResult struct {
	Data []json.RawMessage `json:"data"`
}

// ItemResponse is the single item envelope returned by POST and PUT.
type ItemResponse struct {
	Metadata Metadata        `json:"metadata"`
	Result   json.RawMessage `json:"result"`
}

// Metadata is the BrAPI response metadata.
type Metadata struct {
	Pagination Pagination `json:"pagination"`
}

// Pagination describes the page returned.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalCount  int `json:"totalCount"`
	TotalPages  int `json:"totalPages"`
}

// Collection is the authority endpoint of one entity type.
type Collection struct {
	// Path of the collection, e.g. /brapi/v2/observations
	Path string
	// IDAliases are the item keys the id may be carried under, in priority order.
	IDAliases []string
}

// DefaultCollections returns the BrAPI v2 collections keyed by entity type name, with
// the id aliases still in use by older deployments.
func DefaultCollections() map[string]Collection {
	return map[string]Collection{
		"germplasm": {
			Path:      "/brapi/v2/germplasm",
			IDAliases: []string{"germplasmDbId", "germplasm_id", "id"},
		},
		"observation": {
			Path:      "/brapi/v2/observations",
			IDAliases: []string{"observationDbId", "observation_id", "id"},
		},
		"trial": {
			Path:      "/brapi/v2/trials",
			IDAliases: []string{"trialDbId", "trial_id", "id"},
		},
		"study": {
			Path:      "/brapi/v2/studies",
			IDAliases: []string{"studyDbId", "study_id", "id"},
		},
		"cross": {
			Path:      "/brapi/v2/crosses",
			IDAliases: []string{"crossDbId", "cross_id", "id"},
		},
		"seedlot": {
			Path:      "/brapi/v2/seedlots",
			IDAliases: []string{"seedLotDbId", "seedlotDbId", "seed_lot_id", "seedlot_id", "id"},
		},
	}
}
