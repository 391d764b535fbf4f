package template

import (
	"strings"
)

// Type is the declared type of a template variable.
type Type string

const (
	// TypeString leaves values unchanged. It is the default type.
	TypeString Type = "string"
	// TypeNumber converts values to float64.
	TypeNumber Type = "number"
	// TypeBoolean converts values by truthiness, with "false" strings as false.
	TypeBoolean Type = "boolean"
	// TypeJSON parses string values as JSON.
	TypeJSON Type = "json"
	// TypeObject is an alias of TypeJSON.
	TypeObject Type = "object"
)

// ParseType maps a type annotation to a Type. Matching is case-insensitive
// and anything unrecognized falls back to TypeString.
func ParseType(name string) Type {
	switch Type(strings.ToLower(name)) {
	case TypeNumber:
		return TypeNumber
	case TypeBoolean:
		return TypeBoolean
	case TypeJSON:
		return TypeJSON
	case TypeObject:
		return TypeObject
	default:
		return TypeString
	}
}

// IsJSON reports whether values of this type are parsed as JSON.
func (t Type) IsJSON() bool {
	return t == TypeJSON || t == TypeObject
}

// Expression is one parsed {[!|^]name[=default][:type]} placeholder.
type Expression struct {
	// Raw is the matched text including the braces
	Raw string

	// Name is the variable name without the required marker
	Name string

	// Required is set by a leading ! or ^
	Required bool

	// Default is the literal default text; only meaningful when HasDefault is set
	Default string

	// HasDefault reports whether an =default part was present
	HasDefault bool

	// Type is the type annotation, TypeString when absent
	Type Type

	// TypeName is the annotation as written, empty when absent
	TypeName string
}

// Token is a scanned segment of a string: either literal text or an expression.
type Token struct {
	// Literal holds the text of a literal token
	Literal string

	// Expr is non-nil for expression tokens
	Expr *Expression
}

// IsExpression reports whether the token is a variable expression.
func (t Token) IsExpression() bool {
	return t.Expr != nil
}

// Scan splits s into literal and expression tokens, left to right.
// Brace spans that do not satisfy the expression grammar stay literal, so
// stringified JSON and text such as "{x+y}" pass through untouched.
// Adjacent literal text is merged into a single token.
func Scan(s string) []Token {
	var tokens []Token
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, Token{Literal: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(s) {
		open := strings.IndexByte(s[i:], '{')
		if open < 0 {
			lit.WriteString(s[i:])
			break
		}
		open += i
		lit.WriteString(s[i:open])

		expr, end, reason := parseExpression(s, open+1, true)
		if reason != "" {
			// Not an expression at this brace; retry from the next byte.
			lit.WriteByte('{')
			i = open + 1
			continue
		}
		expr.Raw = s[open:end]
		flush()
		e := expr
		tokens = append(tokens, Token{Expr: &e})
		i = end
	}
	flush()

	return tokens
}

// HasExpression reports whether s contains at least one variable expression.
func HasExpression(s string) bool {
	for _, tok := range Scan(s) {
		if tok.IsExpression() {
			return true
		}
	}
	return false
}

// ParseExpression parses a single declaration. Both the braced form
// "{!id=1:number}" and the bare form "id=1:number" are accepted; the text
// must be consumed entirely.
func ParseExpression(s string) (Expression, error) {
	braced := len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}'

	var (
		expr   Expression
		end    int
		reason string
	)
	if braced {
		expr, end, reason = parseExpression(s, 1, true)
	} else {
		expr, end, reason = parseExpression(s, 0, false)
	}
	if reason == "" && end != len(s) {
		reason = "unexpected trailing text"
	}
	if reason != "" {
		return Expression{}, &InvalidVariableExpressionError{Raw: s, Reason: reason}
	}

	expr.Raw = s
	return expr, nil
}

// IsIdentifier reports whether name satisfies the variable name grammar:
// a letter, '$' or '_' followed by word characters or '$'.
func IsIdentifier(name string) bool {
	if name == "" || !isNameStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isNameChar(name[i]) {
			return false
		}
	}
	return true
}

// parseExpression parses the body of an expression starting at pos, just
// past the opening brace when braced is set. It returns the expression, the
// offset one past the last consumed byte and a non-empty reason on failure.
//
// The grammar is ([!^]?[A-Za-z$_][\w$]*)\s*(=[^:{}]+)?(:\w+)? followed by
// '}' when braced, or by the end of input otherwise.
func parseExpression(s string, pos int, braced bool) (Expression, int, string) {
	var expr Expression
	i := pos

	if i < len(s) && (s[i] == '!' || s[i] == '^') {
		expr.Required = true
		i++
	}

	if i >= len(s) || !isNameStart(s[i]) {
		return expr, i, "variable name must start with a letter, '$' or '_'"
	}
	start := i
	for i < len(s) && isNameChar(s[i]) {
		i++
	}
	expr.Name = s[start:i]

	for i < len(s) && isSpace(s[i]) {
		i++
	}

	if i < len(s) && s[i] == '=' {
		i++
		start = i
		for i < len(s) && s[i] != ':' && s[i] != '{' && s[i] != '}' {
			i++
		}
		if i == start {
			return expr, i, "empty default value"
		}
		expr.Default = s[start:i]
		expr.HasDefault = true
	}

	expr.Type = TypeString
	if i < len(s) && s[i] == ':' {
		i++
		start = i
		for i < len(s) && isWordChar(s[i]) {
			i++
		}
		if i == start {
			return expr, i, "empty type annotation"
		}
		expr.TypeName = s[start:i]
		expr.Type = ParseType(expr.TypeName)
	}

	if braced {
		if i >= len(s) || s[i] != '}' {
			return expr, i, "expected closing brace"
		}
		i++
	}

	return expr, i, ""
}

func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '$' || c == '_'
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func isNameChar(c byte) bool {
	return isWordChar(c) || c == '$'
}

// isSpace matches the \s class of RE2.
func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\f' || c == '\r'
}
