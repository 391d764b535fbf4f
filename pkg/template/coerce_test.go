package template

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name  string
		value any
		typ   Type
		want  any
	}{
		{name: "nil stays nil", value: nil, typ: TypeNumber, want: nil},
		{name: "number from string", value: "100", typ: TypeNumber, want: float64(100)},
		{name: "number from padded string", value: " 2.5 ", typ: TypeNumber, want: 2.5},
		{name: "number from empty string", value: "", typ: TypeNumber, want: float64(0)},
		{name: "number from int", value: 7, typ: TypeNumber, want: float64(7)},
		{name: "number from uint8", value: uint8(3), typ: TypeNumber, want: float64(3)},
		{name: "number from json.Number", value: json.Number("12"), typ: TypeNumber, want: float64(12)},
		{name: "number from bool", value: true, typ: TypeNumber, want: float64(1)},
		{name: "number from garbage", value: "abc", typ: TypeNumber, want: nil},
		{name: "number from NaN", value: math.NaN(), typ: TypeNumber, want: nil},
		{name: "number from object", value: map[string]any{}, typ: TypeNumber, want: nil},
		{name: "boolean false string", value: "false", typ: TypeBoolean, want: false},
		{name: "boolean FALSE string", value: "FaLsE", typ: TypeBoolean, want: false},
		{name: "boolean other string", value: "no", typ: TypeBoolean, want: true},
		{name: "boolean true string", value: "true", typ: TypeBoolean, want: true},
		{name: "boolean empty string", value: "", typ: TypeBoolean, want: false},
		{name: "boolean zero", value: 0, typ: TypeBoolean, want: false},
		{name: "boolean number", value: 2.5, typ: TypeBoolean, want: true},
		{name: "boolean native", value: false, typ: TypeBoolean, want: false},
		{name: "boolean empty array", value: []any{}, typ: TypeBoolean, want: true},
		{name: "json from string", value: `{"a":1}`, typ: TypeJSON, want: map[string]any{"a": float64(1)}},
		{name: "object from string", value: `[1,2]`, typ: TypeObject, want: []any{float64(1), float64(2)}},
		{name: "json keeps bad string", value: `{a:1}`, typ: TypeJSON, want: `{a:1}`},
		{name: "json keeps native value", value: map[string]any{"a": 1}, typ: TypeJSON, want: map[string]any{"a": 1}},
		{name: "string unchanged", value: 42, typ: TypeString, want: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.value, tt.typ))
		})
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{value: nil, want: ""},
		{value: "s", want: "s"},
		{value: true, want: "true"},
		{value: float64(1), want: "1"},
		{value: 0.25, want: "0.25"},
		{value: 1e21, want: "1e+21"},
		{value: 12, want: "12"},
		{value: json.Number("3.0"), want: "3.0"},
		{value: []any{"a", float64(1)}, want: `["a",1]`},
		{value: map[string]any{"k": "v"}, want: `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Stringify(tt.value))
		})
	}
}
