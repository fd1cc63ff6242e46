package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_JSON(t *testing.T) {
	tests := []struct {
		value Value
		name  string
		want  string
	}{
		{name: "null", value: Null(), want: `null`},
		{name: "string", value: String("plot 7"), want: `"plot 7"`},
		{name: "number", value: Number(7.5), want: `7.5`},
		{name: "bool", value: Bool(true), want: `true`},
		{name: "list", value: List(String("photo0.jpg"), Number(1)), want: `["photo0.jpg",1]`},
		{
			name:  "map with sorted keys",
			value: Map(map[string]Value{"b": Number(2), "a": String("x")}),
			want:  `{"a":"x","b":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var back Value
			require.NoError(t, json.Unmarshal(data, &back))
			assert.True(t, tt.value.Equal(back), "decoded value should equal original")
		})
	}
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Number(7).Equal(Number(7)))
	assert.False(t, Number(7).Equal(Number(8)))
	assert.False(t, Number(1).Equal(Bool(true)), "different kinds are never equal")
	assert.False(t, List(String("a"), String("b")).Equal(List(String("b"), String("a"))), "list order matters")
	assert.True(t,
		Map(map[string]Value{"x": List(Number(1))}).Equal(Map(map[string]Value{"x": List(Number(1))})))
}

func TestValue_CloneIsDeep(t *testing.T) {
	orig := Map(map[string]Value{"media": List(String("a.jpg"))})
	cp := orig.Clone()

	entries := cp.Entries()
	entries["media"] = List(String("b.jpg"))

	assert.True(t, orig.Equal(Map(map[string]Value{"media": List(String("a.jpg"))})))
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"value": 7,
		"media": []any{"photo0.jpg"},
		"ok":    true,
		"note":  nil,
	})
	require.NoError(t, err)
	require.Equal(t, KindMap, v.Kind())

	entries := v.Entries()
	n, ok := entries["value"].AsNumber()
	assert.True(t, ok)
	assert.InDelta(t, 7.0, n, 0)
	assert.Equal(t, KindList, entries["media"].Kind())
	assert.True(t, entries["note"].IsNull())

	_, err = FromAny(struct{}{})
	assert.Error(t, err)
}

func TestFromAny_RejectsNonFinite(t *testing.T) {
	tests := []struct {
		in   any
		name string
	}{
		{name: "NaN", in: math.NaN()},
		{name: "positive infinity", in: math.Inf(1)},
		{name: "negative float32 infinity", in: float32(math.Inf(-1))},
		{name: "nested in list", in: []any{1.0, math.NaN()}},
		{name: "nested in map", in: map[string]any{"value": math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromAny(tt.in)
			assert.ErrorIs(t, err, ErrNonFinite)
		})
	}
}

func TestFields_Validate(t *testing.T) {
	assert.NoError(t, Fields{"value": Number(7), "media": List(String("a.jpg"))}.Validate())

	err := Fields{"meta": Map(map[string]Value{"ratio": Number(math.NaN())})}.Validate()
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.Contains(t, err.Error(), `field "meta"`)

	assert.ErrorIs(t, Fields{"media": List(Number(math.Inf(1)))}.Validate(), ErrNonFinite)
}

func TestFields_UnmarshalPlainJSON(t *testing.T) {
	var f Fields
	require.NoError(t, json.Unmarshal([]byte(`{"value":7,"media":["photo0.jpg"],"meta":{"plot":"A1"}}`), &f))

	assert.Equal(t, []string{"media", "meta", "value"}, f.Names())
	assert.True(t, f["value"].Equal(Number(7)))
	assert.True(t, f["media"].Equal(List(String("photo0.jpg"))))
	assert.Equal(t, map[string]any{"plot": "A1"}, f["meta"].Any())
}

func TestFields_Equal(t *testing.T) {
	a := Fields{"value": Number(7)}
	assert.True(t, a.Equal(Fields{"value": Number(7)}))
	assert.False(t, a.Equal(Fields{"value": Number(8)}))
	assert.False(t, a.Equal(Fields{"value": Number(7), "extra": Null()}))
	assert.True(t, Fields(nil).Equal(Fields{}))
}
