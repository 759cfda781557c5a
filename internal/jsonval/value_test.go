package jsonval

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		kind Kind
	}{
		{name: "null", in: `null`, want: `null`, kind: Null},
		{name: "bool", in: `true`, want: `true`, kind: Bool},
		{name: "integer", in: `42`, want: `42`, kind: Number},
		{name: "big integer keeps digits", in: `12345678901234567890`, want: `12345678901234567890`, kind: Number},
		{name: "float", in: `1.50`, want: `1.50`, kind: Number},
		{name: "string", in: `"héllo"`, want: `"héllo"`, kind: String},
		{name: "array", in: `[1, "a", null]`, want: `[1,"a",null]`, kind: Array},
		{name: "object keys sorted", in: `{"b": 1, "a": {"y": [], "x": {}}}`, want: `{"a":{"x":{},"y":[]},"b":1}`, kind: Object},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.in), &v))
			assert.Equal(t, tt.kind, v.Kind())
			out, err := json.Marshal(v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestValueUnmarshalErrors(t *testing.T) {
	for _, in := range []string{`{"a":}`, `[1,`, `{"a":1} 2`} {
		t.Run(in, func(t *testing.T) {
			var v Value
			assert.Error(t, v.UnmarshalJSON([]byte(in)))
		})
	}
}

func TestValueEqual(t *testing.T) {
	a := ObjectValue(map[string]Value{
		"n":   IntValue(1),
		"arr": ArrayValue(StringValue("x"), NullValue()),
	})
	b := ObjectValue(map[string]Value{
		"n":   NumberValue("1.0"),
		"arr": ArrayValue(StringValue("x"), NullValue()),
	})
	assert.True(t, a.Equal(b))
	b.Object()["extra"] = BoolValue(false)
	assert.False(t, a.Equal(b))
	assert.False(t, StringValue("1").Equal(IntValue(1)))
}

func TestValueClone(t *testing.T) {
	orig := ObjectValue(map[string]Value{
		"nested": ObjectValue(map[string]Value{"k": StringValue("v")}),
	})
	cp := orig.Clone()
	cp.Object()["nested"].Object()["k"] = StringValue("changed")
	assert.Equal(t, "v", orig.Object()["nested"].Object()["k"].Str())
	assert.Equal(t, "changed", cp.Object()["nested"].Object()["k"].Str())
}

func TestInterfaceConversion(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"i":3,"f":2.5,"s":"x","b":true,"a":[1],"z":null}`), &v))
	got := v.Interface()
	want := map[string]any{
		"i": int64(3),
		"f": 2.5,
		"s": "x",
		"b": true,
		"a": []any{int64(1)},
		"z": nil,
	}
	assert.Equal(t, want, got)

	back, err := FromInterface(got)
	require.NoError(t, err)
	assert.True(t, v.Equal(back))
}

func TestFromInterfaceStruct(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	v, err := FromInterface(point{X: 1, Y: 2})
	require.NoError(t, err)
	require.Equal(t, Object, v.Kind())
	assert.Equal(t, json.Number("2"), v.Object()["y"].Number())
}

func TestMarshalInvalidNumber(t *testing.T) {
	_, err := json.Marshal(NumberValue("1e"))
	assert.Error(t, err)
}
