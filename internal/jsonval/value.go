// Package jsonval implements a tagged JSON value tree.
//
// A [Value] is one of null, bool, number, string, array or object. Numbers keep
// their textual form so that documents round trip byte-for-byte through the
// store without float conversion. Objects are backed by maps, so mutating the
// object returned by [Value.Object] mutates the tree in place.
package jsonval

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/invopop/jsonschema"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Kinds of JSON values.
const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    json.Number
	s    string
	arr  []Value
	obj  map[string]Value
}

// NullValue returns the JSON null.
func NullValue() Value { return Value{} }

// BoolValue returns a JSON boolean.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// NumberValue returns a JSON number.
func NumberValue(n json.Number) Value { return Value{kind: Number, n: n} }

// IntValue returns a JSON number holding an integer.
func IntValue(i int64) Value { return Value{kind: Number, n: json.Number(strconv.FormatInt(i, 10))} }

// FloatValue returns a JSON number holding a float.
func FloatValue(f float64) Value {
	return Value{kind: Number, n: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
}

// StringValue returns a JSON string.
func StringValue(s string) Value { return Value{kind: String, s: s} }

// ArrayValue returns a JSON array holding items.
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Array, arr: items}
}

// ObjectValue returns a JSON object backed by m. The map is not copied.
func ObjectValue(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: Object, obj: m}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == Null }

// Bool returns the boolean held by v, false for other kinds.
func (v Value) Bool() bool { return v.b }

// Number returns the number held by v, "" for other kinds.
func (v Value) Number() json.Number { return v.n }

// Str returns the string held by v, "" for other kinds.
func (v Value) Str() string { return v.s }

// Array returns the items held by v, nil for other kinds.
func (v Value) Array() []Value { return v.arr }

// Object returns the map held by v, nil for other kinds.
func (v Value) Object() map[string]Value { return v.obj }

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case Array:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Clone()
		}
		return Value{kind: Array, arr: items}
	case Object:
		return Value{kind: Object, obj: CloneObject(v.obj)}
	default:
		return v
	}
}

// CloneObject returns a deep copy of m.
func CloneObject(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	out := make(map[string]Value, len(m))
	for k, item := range m {
		out[k] = item.Clone()
	}
	return out
}

// Equal reports whether v and o are structurally equal. Numbers compare by
// value when both parse as float64, so 1 and 1.0 are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case Number:
		if v.n == o.n {
			return true
		}
		a, err1 := v.n.Float64()
		b, err2 := o.n.Float64()
		return err1 == nil && err2 == nil && a == b
	case String:
		return v.s == o.s
	case Array:
		return slices.EqualFunc(v.arr, o.arr, Value.Equal)
	case Object:
		return maps.EqualFunc(v.obj, o.obj, Value.Equal)
	default:
		return false
	}
}

// Interface converts v to plain Go values: nil, bool, int64 or float64,
// string, []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		if i, err := v.n.Int64(); err == nil {
			return i
		}
		if f, err := v.n.Float64(); err == nil {
			return f
		}
		return v.n.String()
	case String:
		return v.s
	case Array:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case Object:
		return ObjectInterface(v.obj)
	default:
		return nil
	}
}

// ObjectInterface converts an object map to map[string]any.
func ObjectInterface(m map[string]Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, item := range m {
		out[k] = item.Interface()
	}
	return out
}

// FromInterface converts plain Go values, as produced by encoding/json or
// written by hand, to a Value.
func FromInterface(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return t, nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Number:
		return NumberValue(t), nil
	case int:
		return IntValue(int64(t)), nil
	case int32:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case float32:
		return FloatValue(float64(t)), nil
	case float64:
		return FloatValue(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromInterface(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return ArrayValue(items...), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := FromInterface(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = v
		}
		return ObjectValue(m), nil
	default:
		// Anything else goes through encoding/json.
		raw, err := json.Marshal(x)
		if err != nil {
			return Value{}, err
		}
		var v Value
		if err := json.Unmarshal(raw, &v); err != nil {
			return Value{}, err
		}
		return v, nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Number:
		if v.n == "" {
			buf.WriteByte('0')
			return nil
		}
		if !json.Valid([]byte(v.n)) {
			return fmt.Errorf("invalid number %q", v.n)
		}
		buf.WriteString(string(v.n))
	case String:
		raw, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(raw)
	case Array:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		// Sorted keys keep the serialized form, and thus its size, stable.
		for i, k := range slices.Sorted(maps.Keys(v.obj)) {
			if i > 0 {
				buf.WriteByte(',')
			}
			raw, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(raw)
			buf.WriteByte(':')
			if err := v.obj[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown kind %s", v.kind)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	out, err := decode(d)
	if err != nil {
		return err
	}
	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	*v = out
	return nil
}

func decode(d *json.Decoder) (Value, error) {
	tok, err := d.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return NumberValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for d.More() {
				item, err := decode(d)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := d.Token(); err != nil {
				return Value{}, err
			}
			return ArrayValue(items...), nil
		case '{':
			m := map[string]Value{}
			for d.More() {
				keyTok, err := d.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				item, err := decode(d)
				if err != nil {
					return Value{}, err
				}
				m[key] = item
			}
			if _, err := d.Token(); err != nil {
				return Value{}, err
			}
			return ObjectValue(m), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

// JSONSchema implements jsonschema.JSONSchemer; a Value accepts any JSON.
func (Value) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Description: "Any JSON value."}
}
