package conflict

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/models"
)

func num(f float64) models.Value { return models.Number(f) }

func str(s string) models.Value { return models.String(s) }

func list(items ...string) models.Value {
	out := make([]models.Value, len(items))
	for i, s := range items {
		out[i] = models.String(s)
	}
	return models.List(out...)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		base   models.Fields
		local  models.Fields
		remote models.Fields
		name   string
		want   []string
	}{
		{
			name:   "no base, differing scalar",
			local:  models.Fields{"value": num(7)},
			remote: models.Fields{"value": num(9)},
			want:   []string{"value"},
		},
		{
			name:   "no base, equal values",
			local:  models.Fields{"value": num(7)},
			remote: models.Fields{"value": num(7)},
		},
		{
			name:   "no base, field only on one side",
			local:  models.Fields{"note": str("wet")},
			remote: models.Fields{"value": num(9)},
		},
		{
			name:   "both changed since base",
			base:   models.Fields{"value": num(5)},
			local:  models.Fields{"value": num(7)},
			remote: models.Fields{"value": num(9)},
			want:   []string{"value"},
		},
		{
			name:   "only local changed since base",
			base:   models.Fields{"value": num(5), "note": str("a")},
			local:  models.Fields{"value": num(7), "note": str("a")},
			remote: models.Fields{"value": num(5), "note": str("b")},
		},
		{
			name:   "both changed to the same value",
			base:   models.Fields{"value": num(5)},
			local:  models.Fields{"value": num(9)},
			remote: models.Fields{"value": num(9)},
		},
		{
			name:   "lists never conflict",
			base:   models.Fields{"media": list()},
			local:  models.Fields{"media": list("photo1.jpg")},
			remote: models.Fields{"media": list("photo0.jpg")},
		},
		{
			name:   "scalar against list is appended, not a conflict",
			base:   models.Fields{"media": list("photo0.jpg")},
			local:  models.Fields{"media": list("photo0.jpg", "photo1.jpg")},
			remote: models.Fields{"media": str("photo2.jpg")},
		},
		{
			name:   "field added on both sides",
			base:   models.Fields{},
			local:  models.Fields{"height": num(110)},
			remote: models.Fields{"height": num(112)},
			want:   []string{"height"},
		},
		{
			name:   "sorted output",
			local:  models.Fields{"b": num(1), "a": num(1)},
			remote: models.Fields{"b": num(2), "a": num(2)},
			want:   []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.base, tt.local, tt.remote))
		})
	}
}

func TestFold(t *testing.T) {
	base := models.Fields{"value": num(5), "note": str("a"), "media": list("x")}
	local := models.Fields{"value": num(7), "note": str("a"), "media": list("x", "photo1.jpg"), "plot": str("A1")}
	remote := models.Fields{"value": num(9), "note": str("b"), "media": list("x", "photo0.jpg"), "row": num(3)}

	conflicting := Detect(base, local, remote)
	require.Equal(t, []string{"value"}, conflicting)

	got := Fold(base, local, remote, conflicting)

	assert.True(t, got["value"].Equal(num(7)), "conflicting field keeps local value")
	assert.True(t, got["note"].Equal(str("b")), "remote-only change is taken")
	assert.True(t, got["media"].Equal(list("x", "photo0.jpg", "photo1.jpg")), "lists are unioned")
	assert.True(t, got["plot"].Equal(str("A1")))
	assert.True(t, got["row"].Equal(num(3)))
}

func TestFold_ScalarJoinsList(t *testing.T) {
	base := models.Fields{"media": list("photo0.jpg")}
	local := models.Fields{"media": list("photo0.jpg", "photo1.jpg")}
	remote := models.Fields{"media": str("photo2.jpg")}

	got := Fold(base, local, remote, Detect(base, local, remote))
	assert.True(t, got["media"].Equal(list("photo2.jpg", "photo0.jpg", "photo1.jpg")), "got %v", got["media"].Any())
}

func TestFold_LocalChangeSurvives(t *testing.T) {
	base := models.Fields{"value": num(5)}
	local := models.Fields{"value": num(7)}
	remote := models.Fields{"value": num(5)}

	got := Fold(base, local, remote, Detect(base, local, remote))
	assert.True(t, got["value"].Equal(num(7)))
}

func conflictingDoc() *models.Document {
	t0 := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	return &models.Document{
		ID:        "obs-1",
		Type:      models.EntityObservation,
		UpdatedAt: t0.Add(time.Minute),
		Base:      models.Fields{"value": num(5), "note": str("a")},
		Fields:    models.Fields{"value": num(7), "note": str("a"), "media": list("photo1.jpg"), "plot": str("A1")},
		Remote: &models.RemoteVersion{
			UpdatedAt: t0.Add(2 * time.Minute),
			Fields:    models.Fields{"value": num(9), "note": str("b"), "media": list("photo0.jpg")},
		},
	}
}

func TestNew(t *testing.T) {
	doc := conflictingDoc()

	c, ok := New(doc)
	require.True(t, ok)
	assert.Equal(t, models.EntityObservation, c.EntityType)
	assert.Equal(t, "obs-1", c.EntityID)
	assert.Equal(t, []string{"value"}, c.ConflictingFieldNames)
	assert.Equal(t, doc.UpdatedAt, c.LocalTimestamp)
	assert.Equal(t, doc.Remote.UpdatedAt, c.RemoteTimestamp)

	doc.Remote = nil
	_, ok = New(doc)
	assert.False(t, ok)
}

func TestResolve_KeepLocal(t *testing.T) {
	got, err := Resolve(conflictingDoc(), Resolution{Strategy: KeepLocal})
	require.NoError(t, err)

	assert.True(t, got["value"].Equal(num(7)))
	assert.True(t, got["note"].Equal(str("a")))
	assert.True(t, got["media"].Equal(list("photo1.jpg", "photo0.jpg")), "remote appends are not lost")
	assert.True(t, got["plot"].Equal(str("A1")))
}

func TestResolve_KeepRemote(t *testing.T) {
	got, err := Resolve(conflictingDoc(), Resolution{Strategy: KeepRemote})
	require.NoError(t, err)

	assert.True(t, got["value"].Equal(num(9)))
	assert.True(t, got["note"].Equal(str("b")))
	assert.True(t, got["media"].Equal(list("photo0.jpg", "photo1.jpg")), "local appends are not lost")
	_, hasPlot := got["plot"]
	assert.False(t, hasPlot)
}

func TestResolve_PerField(t *testing.T) {
	doc := conflictingDoc()

	_, err := Resolve(doc, Resolution{Strategy: PerField})
	assert.ErrorIs(t, err, ErrUnresolvedField)

	got, err := Resolve(doc, Resolution{Strategy: PerField, Pick: map[string]Side{"value": SideRemote}})
	require.NoError(t, err)
	assert.True(t, got["value"].Equal(num(9)))
	assert.True(t, got["note"].Equal(str("b")), "non-conflicting fields are folded")
	assert.True(t, got["plot"].Equal(str("A1")))

	got, err = Resolve(doc, Resolution{
		Strategy: PerField,
		Override: models.Fields{"value": num(8), "comment": str("averaged")},
	})
	require.NoError(t, err)
	assert.True(t, got["value"].Equal(num(8)))
	assert.True(t, got["comment"].Equal(str("averaged")))
}

func TestResolve_Errors(t *testing.T) {
	doc := conflictingDoc()

	_, err := Resolve(doc, Resolution{Strategy: "coin-flip"})
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	doc.Remote = nil
	_, err = Resolve(doc, Resolution{Strategy: KeepLocal})
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{
		"local":      KeepLocal,
		"keep-local": KeepLocal,
		"REMOTE":     KeepRemote,
		"theirs":     KeepRemote,
		"merge":      PerField,
		"per-field":  PerField,
	} {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStrategy("newest")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestWriteText(t *testing.T) {
	c, ok := New(conflictingDoc())
	require.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, c))

	g := goldie.New(t)
	g.Assert(t, "conflict_text", buf.Bytes())
}
