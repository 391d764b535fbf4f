package template

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/mohae/deepcopy"
	"github.com/tidwall/jsonc"
)

// Params maps variable names to caller-supplied values for one build.
type Params map[string]any

// Template is an immutable JSON document with embedded variable expressions.
//
// The schema is compiled at most once, on the first call to Compile or
// Build, and is safe to read from any number of goroutines afterwards.
// Build may be called concurrently; every call produces a fresh document.
type Template struct {
	doc any

	once   sync.Once
	schema Schema
	err    error
}

// New creates a template from a JSON-like document. The document is copied
// into the canonical form produced by encoding/json (map[string]any, []any,
// string, float64, bool, nil); values of other Go types are converted through
// a JSON round trip. Later changes to doc do not affect the template.
func New(doc any) (*Template, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	normalized, err := normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize template document: %w", err)
	}
	return &Template{doc: normalized}, nil
}

// MustNew is like New but panics on error. It is intended for templates
// declared as package-level literals.
func MustNew(doc any) *Template {
	t, err := New(doc)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse creates a template from JSON text. Comments and trailing commas are
// allowed.
func Parse(data []byte) (*Template, error) {
	var doc any
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Template{doc: doc}, nil
}

// ParseFile reads and parses a template file.
func ParseFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %q: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("template file %q: %w", path, err)
	}
	return t, nil
}

// Document returns a deep copy of the template document.
func (t *Template) Document() any {
	return deepcopy.Copy(t.doc)
}

// Compile returns the variable schema of the template, computing it on the
// first call. Every later call returns the same Schema, or the same error if
// compilation failed.
func (t *Template) Compile() (Schema, error) {
	t.once.Do(func() {
		t.schema, t.err = compileSchema(t.doc)
		if t.err == nil {
			slog.Debug("template compiled", "variables", t.schema.Names())
		}
	})
	return t.schema, t.err
}

// Build produces a concrete document by substituting params into a fresh
// copy of the template. It fails with a MissingRequiredVariableError when a
// required variable has neither a value nor a default, and returns no
// partial document in that case.
func (t *Template) Build(params Params) (any, error) {
	schema, err := t.Compile()
	if err != nil {
		return nil, err
	}

	b := &builder{schema: schema, params: params}
	result, err := b.node(t.doc)
	if err != nil {
		return nil, err
	}

	slog.Debug("template built", "params", len(params))
	return result, nil
}

// BuildObject is Build for templates whose root is an object.
func (t *Template) BuildObject(params Params) (map[string]any, error) {
	result, err := t.Build(params)
	if err != nil {
		return nil, err
	}
	obj, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("template root is %T, not an object", result)
	}
	return obj, nil
}

// normalize copies v into canonical JSON form.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, float64, bool:
		return x, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
