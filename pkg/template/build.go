package template

import (
	"sort"
	"strings"

	"github.com/mohae/deepcopy"
)

// builder carries the state of a single Build call.
type builder struct {
	schema Schema
	params Params
}

func (b *builder) node(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return b.leaf(x)
	case map[string]any:
		return b.object(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			built, err := b.node(item)
			if err != nil {
				return nil, err
			}
			out[i] = built
		}
		return out, nil
	default:
		// Numbers, booleans and null are immutable.
		return x, nil
	}
}

// object rebuilds an object. Plain keys are written first, then templated
// keys in lexical order, so a templated key resolving to an existing key
// replaces that member.
func (b *builder) object(obj map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(obj))

	var templated []string
	for k, item := range obj {
		if HasExpression(k) {
			templated = append(templated, k)
			continue
		}
		built, err := b.node(item)
		if err != nil {
			return nil, err
		}
		out[k] = built
	}

	sort.Strings(templated)
	for _, k := range templated {
		key, err := b.leaf(k)
		if err != nil {
			return nil, err
		}
		built, err := b.node(obj[k])
		if err != nil {
			return nil, err
		}
		out[Stringify(key)] = built
	}

	return out, nil
}

// leaf substitutes every expression of a string. A string that is exactly
// one resolved expression yields the coerced value with its native type;
// anything else is concatenated into a string.
func (b *builder) leaf(s string) (any, error) {
	tokens := Scan(s)

	segments := make([]any, 0, len(tokens))
	resolved := 0
	for _, tok := range tokens {
		if !tok.IsExpression() {
			segments = append(segments, tok.Literal)
			continue
		}

		value, ok, err := b.resolve(tok.Expr)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Unknown names pass through as literal text.
			segments = append(segments, tok.Expr.Raw)
			continue
		}
		segments = append(segments, value)
		resolved++
	}

	if resolved == 0 {
		return s, nil
	}
	if len(tokens) == 1 {
		return segments[0], nil
	}

	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(Stringify(seg))
	}
	return sb.String(), nil
}

// resolve looks up and coerces the value of one expression. It reports
// false when the name is not part of the schema.
func (b *builder) resolve(expr *Expression) (any, bool, error) {
	v, ok := b.schema[expr.Name]
	if !ok {
		return nil, false, nil
	}

	var raw any
	if value, present := b.params[expr.Name]; present && value != nil {
		raw = value
	} else if v.HasDefault {
		raw = v.Default
	}

	if raw == nil {
		if expr.Required || v.Required {
			return nil, true, &MissingRequiredVariableError{Name: expr.Name}
		}
		return nil, true, nil
	}

	// Results never alias caller values or the template's own defaults.
	return Coerce(deepcopy.Copy(raw), v.Type), true, nil
}
