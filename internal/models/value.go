package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNonFinite indicates a NaN or infinite number. JSON cannot carry it.
var ErrNonFinite = errors.New("number must be finite")

// ValueKind identifies the variant held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a document field value: string, number, boolean, ordered list or nested map.
// The zero Value is null.
//
// Values are encoded as plain JSON so that documents travel to the authority unchanged.
type Value struct {
	m    map[string]Value
	str  string
	list []Value
	num  float64
	kind ValueKind
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a number. NaN and infinities are not representable in JSON; FromAny rejects
// them and Validate reports them.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List wraps an ordered sequence. List-typed fields merge append-only.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	for i, it := range items {
		cp[i] = it.Clone()
	}
	return Value{kind: KindList, list: cp}
}

// Map wraps a nested map.
func Map(entries map[string]Value) Value {
	cp := make(map[string]Value, len(entries))
	for k, v := range entries {
		cp[k] = v.Clone()
	}
	return Value{kind: KindMap, m: cp}
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// Items returns a copy of the list items, nil for non-list values.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return List(v.list...).list
}

// Entries returns a copy of the map entries, nil for non-map values.
func (v Value) Entries() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return Map(v.m).m
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		return List(v.list...)
	case KindMap:
		return Map(v.m)
	default:
		return v
	}
}

// Equal reports deep equality. List order is significant.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, a := range v.m {
			b, ok := o.m[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// Any converts the value to plain Go types (string, float64, bool, []any, map[string]any, nil).
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, it := range v.list {
			out[i] = it.Any()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, it := range v.m {
			out[k] = it.Any()
		}
		return out
	default:
		return nil
	}
}

// FromAny converts decoded JSON (or equivalent plain Go values) into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t.Clone(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return finite(f)
	case []any:
		items := make([]Value, 0, len(t))
		for i, it := range t {
			v, err := FromAny(it)
			if err != nil {
				return Value{}, fmt.Errorf("item %d: %w", i, err)
			}
			items = append(items, v)
		}
		return Value{kind: KindList, list: items}, nil
	case []string:
		items := make([]Value, 0, len(t))
		for _, it := range t {
			items = append(items, String(it))
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, it := range t {
			v, err := FromAny(it)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = v
		}
		return Value{kind: KindMap, m: m}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

func finite(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: %v", ErrNonFinite, f)
	}
	return Number(f), nil
}

// Validate reports a non-finite number anywhere inside the value.
func (v Value) Validate() error {
	switch v.kind {
	case KindNumber:
		_, err := finite(v.num)
		return err
	case KindList:
		for i, it := range v.list {
			if err := it.Validate(); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	case KindMap:
		for k, it := range v.m {
			if err := it.Validate(); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
	}
	return nil
}

// MarshalJSON encodes the value as plain JSON. Map keys are emitted in sorted order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, it := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := it.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			b, err := v.m[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return json.Marshal(v.Any())
	}
}

// UnmarshalJSON decodes plain JSON into the matching variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Fields maps field names to values.
type Fields map[string]Value

// Clone returns a deep copy. A nil receiver yields nil.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v.Clone()
	}
	return out
}

// Equal reports whether both field sets hold the same names and values.
func (f Fields) Equal(o Fields) bool {
	if len(f) != len(o) {
		return false
	}
	for k, a := range f {
		b, ok := o[k]
		if !ok || !a.Equal(b) {
			return false
		}
	}
	return true
}

// Validate reports the first field holding a non-finite number.
func (f Fields) Validate() error {
	for name, v := range f {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	return nil
}

// Names returns the field names in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// FieldsFromMap converts decoded JSON objects into Fields.
func FieldsFromMap(m map[string]any) (Fields, error) {
	out := make(Fields, len(m))
	for k, raw := range m {
		v, err := FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// ToMap converts Fields into plain Go values suitable for JSON encoding.
func (f Fields) ToMap() map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = v.Any()
	}
	return out
}
