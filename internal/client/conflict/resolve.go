package conflict

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/fieldsync/internal/crdt"
	"github.com/iudanet/fieldsync/internal/models"
)

// Errors returned by Resolve.
var (
	ErrUnresolvedField = errors.New("conflicting field left unresolved")
	ErrUnknownStrategy = errors.New("unknown resolution strategy")
)

// Strategy selects how a conflict is resolved.
type Strategy string

// Resolution strategies.
const (
	KeepLocal  Strategy = "local"
	KeepRemote Strategy = "remote"
	PerField   Strategy = "merge"
)

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case KeepLocal, KeepRemote, PerField:
		return st, nil
	case "keep-local", "ours":
		return KeepLocal, nil
	case "keep-remote", "theirs":
		return KeepRemote, nil
	case "per-field", "fields":
		return PerField, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Side names the version a field is taken from.
type Side string

// Sides for per-field selection.
const (
	SideLocal  Side = "local"
	SideRemote Side = "remote"
)

// Resolution is an explicit decision for one conflict.
type Resolution struct {
	Pick     map[string]Side // PerField: side per conflicting field
	Override models.Fields   // PerField: user supplied values, applied last
	Strategy Strategy
}

// Resolve produces the canonical field set for a conflicting document.
//
// KeepLocal and KeepRemote take every field from one side. List fields are still unioned
// with the other side, so an append is never lost through a resolution. PerField folds the
// non-conflicting fields and takes each conflicting field from Pick or Override; a conflicting
// field mentioned in neither is an error.
func Resolve(doc *models.Document, r Resolution) (models.Fields, error) {
	if doc.Remote == nil {
		return nil, errors.New("document has no remote version")
	}
	local, remote := doc.Fields, doc.Remote.Fields

	switch r.Strategy {
	case KeepLocal:
		return preferring(local, remote), nil
	case KeepRemote:
		return preferring(remote, local), nil
	case PerField:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, r.Strategy)
	}

	conflicting := Detect(doc.Base, local, remote)
	out := Fold(doc.Base, local, remote, conflicting)

	for _, name := range conflicting {
		if _, ok := r.Override[name]; ok {
			continue
		}
		switch r.Pick[name] {
		case SideLocal:
			setOrDelete(out, name, local)
		case SideRemote:
			setOrDelete(out, name, remote)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedField, name)
		}
	}

	for name, v := range r.Override {
		out[name] = v.Clone()
	}
	return out, nil
}

// preferring returns winner's fields; winner's lists take other's items and
// fields only other has are dropped unless they are lists.
func preferring(winner, other models.Fields) models.Fields {
	out := winner.Clone()
	if out == nil {
		out = make(models.Fields)
	}
	for name, ov := range other {
		wv, ok := out[name]
		switch {
		case !ok && ov.Kind() == models.KindList:
			out[name] = ov.Clone()
		case ok && wv.Kind() == models.KindList:
			out[name] = crdt.MergeValue(wv, ov)
		}
	}
	return out
}

func setOrDelete(out models.Fields, name string, from models.Fields) {
	if v, ok := from[name]; ok {
		out[name] = v.Clone()
		return
	}
	delete(out, name)
}
