package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPending(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		doc  *Document
		name string
		want bool
	}{
		{name: "nil document", doc: nil, want: false},
		{name: "never synced", doc: &Document{UpdatedAt: t0}, want: true},
		{name: "local only", doc: &Document{UpdatedAt: t0, SyncedAt: t0, LocalOnly: true}, want: true},
		{name: "changed after sync", doc: &Document{UpdatedAt: t0.Add(time.Second), SyncedAt: t0}, want: true},
		{name: "synced", doc: &Document{UpdatedAt: t0, SyncedAt: t0}, want: false},
		{name: "synced later than update", doc: &Document{UpdatedAt: t0, SyncedAt: t0.Add(time.Minute)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPending(tt.doc))
		})
	}
}

func TestDocument_Clone(t *testing.T) {
	doc := &Document{
		ID:     "obs-1",
		Type:   EntityObservation,
		Fields: Fields{"value": Number(7)},
		Base:   Fields{"value": Number(6)},
		Remote: &RemoteVersion{Fields: Fields{"value": Number(9)}},
	}

	cp := doc.Clone()
	cp.Fields["value"] = Number(1)
	cp.Base["value"] = Number(1)
	cp.Remote.Fields["value"] = Number(1)

	assert.True(t, doc.Fields["value"].Equal(Number(7)))
	assert.True(t, doc.Base["value"].Equal(Number(6)))
	assert.True(t, doc.Remote.Fields["value"].Equal(Number(9)))
	assert.Equal(t, Key{Type: EntityObservation, ID: "obs-1"}, cp.Key())
	assert.Equal(t, "observation/obs-1", cp.Key().String())
}

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		in   string
		want EntityType
	}{
		{in: "observation", want: EntityObservation},
		{in: "Observations", want: EntityObservation},
		{in: "seed-lot", want: EntitySeedLot},
		{in: "seed_lots", want: EntitySeedLot},
		{in: "crosses", want: EntityCross},
		{in: "studies", want: EntityStudy},
		{in: "germplasm", want: EntityGermplasm},
		{in: "trials", want: EntityTrial},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEntityType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseEntityType("sample")
	assert.Error(t, err)
}

func TestEntityTypes_ReturnsCopy(t *testing.T) {
	types := EntityTypes()
	require.Len(t, types, 6)
	types[0] = "broken"
	assert.Equal(t, EntityGermplasm, EntityTypes()[0])
}
