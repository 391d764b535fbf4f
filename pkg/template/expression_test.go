package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string // literal text or "expr:<name>"
	}{
		{name: "plain text", input: "http://localhost/x", want: []string{"http://localhost/x"}},
		{name: "single expression", input: "{p}", want: []string{"expr:p"}},
		{name: "interleaved", input: "/x/{p=100}/y/{q}", want: []string{"/x/", "expr:p", "/y/", "expr:q"}},
		{name: "adjacent", input: "{a}{b}", want: []string{"expr:a", "expr:b"}},
		{name: "dollar and underscore", input: "{$p}{_x}", want: []string{"expr:$p", "expr:_x"}},
		{name: "required markers", input: "{!p}-{^q}", want: []string{"expr:p", "-", "expr:q"}},
		{name: "invalid vars stay literal", input: "{x+y}{|}{0a}{=4}", want: []string{"{x+y}{|}{0a}{=4}"}},
		{name: "stringified json", input: `{"guid":{"region":"NW"}}`, want: []string{`{"guid":{"region":"NW"}}`}},
		{name: "nested braces", input: "{{x}}", want: []string{"{", "expr:x", "}"}},
		{name: "space before default", input: "{x =1}", want: []string{"expr:x"}},
		{name: "dangling brace", input: "abc{", want: []string{"abc{"}},
		{name: "empty", input: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, tok := range Scan(tt.input) {
				if tok.IsExpression() {
					got = append(got, "expr:"+tok.Expr.Name)
				} else {
					got = append(got, tok.Literal)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScan_ExpressionParts(t *testing.T) {
	tokens := Scan("a{!b=true:boolean}c")
	require.Len(t, tokens, 3)

	expr := tokens[1].Expr
	require.NotNil(t, expr)
	assert.Equal(t, "{!b=true:boolean}", expr.Raw)
	assert.Equal(t, "b", expr.Name)
	assert.True(t, expr.Required)
	assert.True(t, expr.HasDefault)
	assert.Equal(t, "true", expr.Default)
	assert.Equal(t, TypeBoolean, expr.Type)
	assert.Equal(t, "boolean", expr.TypeName)
}

func TestParseExpression(t *testing.T) {
	tests := []struct {
		input    string
		name     string
		required bool
		def      string
		typ      Type
	}{
		{input: "{x}", name: "x", typ: TypeString},
		{input: "x", name: "x", typ: TypeString},
		{input: "x=5", name: "x", def: "5", typ: TypeString},
		{input: "{^id=1:number}", name: "id", required: true, def: "1", typ: TypeNumber},
		{input: "!flag:Boolean", name: "flag", required: true, typ: TypeBoolean},
		{input: "doc:object", name: "doc", typ: TypeObject},
		{input: "when:date", name: "when", typ: TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr, err := ParseExpression(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.name, expr.Name)
			assert.Equal(t, tt.required, expr.Required)
			assert.Equal(t, tt.def, expr.Default)
			assert.Equal(t, tt.typ, expr.Type)
		})
	}
}

func TestParseExpression_Invalid(t *testing.T) {
	for _, input := range []string{"", "{}", "0a", "{x+y}", "x=", "x:", "a b", "{!}", "x=1}"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseExpression(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidVariableExpression))

			var invalid *InvalidVariableExpressionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, input, invalid.Raw)
		})
	}
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("abc"))
	assert.True(t, IsIdentifier("$a1"))
	assert.True(t, IsIdentifier("_"))
	assert.False(t, IsIdentifier(""))
	assert.False(t, IsIdentifier("1a"))
	assert.False(t, IsIdentifier("a-b"))
	assert.False(t, IsIdentifier("!a"))
}

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeNumber, ParseType("NUMBER"))
	assert.Equal(t, TypeJSON, ParseType("json"))
	assert.Equal(t, TypeObject, ParseType("Object"))
	assert.Equal(t, TypeString, ParseType(""))
	assert.Equal(t, TypeString, ParseType("uuid"))
	assert.True(t, TypeObject.IsJSON())
	assert.False(t, TypeString.IsJSON())
}
