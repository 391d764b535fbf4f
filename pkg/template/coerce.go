package template

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coerce converts a raw variable value according to typ.
//
//   - number: numeric conversion; values with no numeric reading become nil
//   - boolean: strings are false only when they read "false" in any case
//     (or are empty), other values use their truthiness
//   - json/object: strings are parsed as JSON, keeping the string on failure
//   - string and anything else: unchanged
//
// A nil value is returned unchanged for every type.
func Coerce(value any, typ Type) any {
	if value == nil {
		return nil
	}

	switch {
	case typ == TypeNumber:
		if f, ok := toNumber(value); ok {
			return f
		}
		return nil
	case typ == TypeBoolean:
		return toBoolean(value)
	case typ.IsJSON():
		s, ok := value.(string)
		if !ok {
			return value
		}
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return s
		}
		return parsed
	default:
		return value
	}
}

func toNumber(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if v {
			f = 1
		}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	// NaN and infinities have no JSON encoding.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toBoolean(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != "" && strings.ToLower(v) != "false"
	case nil:
		return false
	}
	if f, ok := toNumber(value); ok {
		return f != 0
	}
	if _, isNumber := value.(float64); isNumber {
		// NaN
		return false
	}
	return true
}

// Stringify renders a value for concatenation with literal text.
// Null renders as the empty string, objects and arrays as JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v)
	case float32:
		return formatNumber(float64(v))
	case json.Number:
		return v.String()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}

func formatNumber(f float64) string {
	if math.Abs(f) >= 1e21 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
