// Package conflict detects field-level divergence between a pending local document and the
// authority's version of it, folds non-conflicting remote changes and applies resolutions.
package conflict

import (
	"sort"

	"github.com/iudanet/fieldsync/internal/crdt"
	"github.com/iudanet/fieldsync/internal/models"
)

type slot struct {
	v  models.Value
	ok bool
}

func get(f models.Fields, name string) slot {
	v, ok := f[name]
	return slot{v: v, ok: ok}
}

func (s slot) equal(o slot) bool {
	if s.ok != o.ok {
		return false
	}
	return !s.ok || s.v.Equal(o.v)
}

// listField reports whether the field merges by union: present on both sides, at least one
// side is a list and neither side is null.
func listField(a, b slot) bool {
	if !a.ok || !b.ok || a.v.Kind() == models.KindNull || b.v.Kind() == models.KindNull {
		return false
	}
	return a.v.Kind() == models.KindList || b.v.Kind() == models.KindList
}

func names(sets ...models.Fields) []string {
	seen := make(map[string]struct{})
	for _, f := range sets {
		for n := range f {
			seen[n] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Detect returns the sorted names of conflicting fields.
//
// With a base (the field set last acknowledged by the authority) a field conflicts when local
// and remote both changed it since base and disagree. Without a base any field present on both
// sides with different values conflicts. List fields never conflict: they merge by union,
// a scalar on the other side counts as one item.
func Detect(base, local, remote models.Fields) []string {
	var out []string
	for _, name := range names(local, remote) {
		l, r := get(local, name), get(remote, name)
		if l.equal(r) || listField(l, r) {
			continue
		}

		if base == nil {
			if l.ok && r.ok {
				out = append(out, name)
			}
			continue
		}

		b := get(base, name)
		if !l.equal(b) && !r.equal(b) {
			out = append(out, name)
		}
	}
	return out
}

// Fold merges remote into local, field by field:
//   - conflicting fields keep the local value;
//   - list fields are unioned, remote items first; a scalar joins the list as an item;
//   - a field changed locally since base keeps the local value;
//   - otherwise the remote value wins.
func Fold(base, local, remote models.Fields, conflicting []string) models.Fields {
	skip := make(map[string]struct{}, len(conflicting))
	for _, n := range conflicting {
		skip[n] = struct{}{}
	}

	out := make(models.Fields)
	for _, name := range names(local, remote) {
		l, r := get(local, name), get(remote, name)

		switch _, isConflict := skip[name]; {
		case isConflict && l.ok:
			out[name] = l.v.Clone()
		case !l.ok:
			out[name] = r.v.Clone()
		case !r.ok:
			out[name] = l.v.Clone()
		case listField(l, r):
			out[name] = models.List(crdt.UnionList(crdt.Items(r.v), crdt.Items(l.v))...)
		case base != nil && !l.equal(get(base, name)):
			out[name] = l.v.Clone()
		default:
			out[name] = r.v.Clone()
		}
	}
	return out
}

// New builds the conflict view of a document holding a retained remote version.
func New(doc *models.Document) (models.Conflict, bool) {
	if doc == nil || doc.Remote == nil {
		return models.Conflict{}, false
	}

	fields := Detect(doc.Base, doc.Fields, doc.Remote.Fields)
	if len(fields) == 0 {
		return models.Conflict{}, false
	}

	return models.Conflict{
		EntityType:            doc.Type,
		EntityID:              doc.ID,
		LocalFields:           doc.Fields.Clone(),
		RemoteFields:          doc.Remote.Fields.Clone(),
		LocalTimestamp:        doc.UpdatedAt,
		RemoteTimestamp:       doc.Remote.UpdatedAt,
		ConflictingFieldNames: fields,
	}, true
}
