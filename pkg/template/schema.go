package template

import (
	"fmt"
	"sort"
	"strconv"
)

// VariablesKey is the root-level key of the variable override map.
const VariablesKey = "variables"

// Variable is the compiled schema entry of one template variable.
type Variable struct {
	// Name is the variable name
	Name string `json:"name" yaml:"name"`

	// Type is the declared or defaulted type
	Type Type `json:"type" yaml:"type"`

	// Required reports whether a build fails when the variable has no value
	Required bool `json:"required" yaml:"required"`

	// Default is used when the caller supplies no value. Inline defaults are
	// strings; defaults from the override map keep their JSON type.
	Default any `json:"default,omitempty" yaml:"default,omitempty"`

	// HasDefault distinguishes an absent default from a null one
	HasDefault bool `json:"-" yaml:"-"`

	// Root is the top-level key under which the variable was first seen
	Root string `json:"root" yaml:"root"`

	// Description comes from the override map ("description" or "doc")
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Extra holds any other override fields verbatim
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Schema maps variable names to their compiled entries.
// A Schema returned by Template.Compile is shared and must not be modified.
type Schema map[string]Variable

// Lookup returns the entry for name.
func (s Schema) Lookup(name string) (Variable, bool) {
	v, ok := s[name]
	return v, ok
}

// Names returns the variable names in lexical order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Required returns the names of required variables in lexical order.
func (s Schema) Required() []string {
	var names []string
	for _, name := range s.Names() {
		if s[name].Required {
			names = append(names, name)
		}
	}
	return names
}

// compileSchema walks doc depth first and derives its schema.
//
// Object members are visited in lexical key order and array elements by
// index. At each node the key is scanned before the string value. A later
// occurrence of a name replaces type, required flag and default of the
// entry; Root keeps the top-level key of the first occurrence.
func compileSchema(doc any) (Schema, error) {
	schema := make(Schema)

	c := &schemaCompiler{schema: schema}
	c.walk(doc, "", false, "", 0)

	if err := applyOverrides(schema, doc); err != nil {
		return nil, err
	}

	for name, v := range schema {
		if v.Type == "" {
			v.Type = TypeString
			schema[name] = v
		}
	}

	return schema, nil
}

type schemaCompiler struct {
	schema Schema
}

func (c *schemaCompiler) walk(node any, key string, hasKey bool, root string, depth int) {
	if hasKey {
		c.record(key, root)
	}

	switch v := node.(type) {
	case string:
		c.record(v, root)
	case map[string]any:
		for _, k := range sortedKeys(v) {
			r := root
			if depth == 0 {
				r = k
			}
			c.walk(v[k], k, true, r, depth+1)
		}
	case []any:
		for i, item := range v {
			r := root
			if depth == 0 {
				r = strconv.Itoa(i)
			}
			c.walk(item, "", false, r, depth+1)
		}
	}
}

func (c *schemaCompiler) record(s string, root string) {
	for _, tok := range Scan(s) {
		if !tok.IsExpression() {
			continue
		}
		expr := tok.Expr

		entry := Variable{
			Name:     expr.Name,
			Type:     expr.Type,
			Required: expr.Required,
			Root:     root,
		}
		if expr.TypeName == "" {
			entry.Type = ""
		}
		if expr.HasDefault {
			entry.Default = expr.Default
			entry.HasDefault = true
		}
		if prev, ok := c.schema[expr.Name]; ok {
			entry.Root = prev.Root
		}
		c.schema[expr.Name] = entry
	}
}

// applyOverrides merges the root "variables" map onto inferred entries.
// Names that were never inferred are ignored.
func applyOverrides(schema Schema, doc any) error {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := root[VariablesKey]
	if !ok || raw == nil {
		return nil
	}
	vars, ok := raw.(map[string]any)
	if !ok {
		return &InvalidVariableExpressionError{
			Raw:    VariablesKey,
			Reason: fmt.Sprintf("override map must be an object, got %T", raw),
		}
	}

	for _, name := range sortedKeys(vars) {
		if !IsIdentifier(name) {
			return &InvalidVariableExpressionError{
				Raw:    name,
				Reason: "override name is not a valid variable name",
			}
		}
		fields, ok := vars[name].(map[string]any)
		if !ok {
			return &InvalidVariableExpressionError{
				Raw:    name,
				Reason: fmt.Sprintf("override must be an object, got %T", vars[name]),
			}
		}

		entry, ok := schema[name]
		if !ok {
			continue
		}
		if err := mergeOverride(&entry, fields); err != nil {
			return err
		}
		schema[name] = entry
	}

	return nil
}

func mergeOverride(entry *Variable, fields map[string]any) error {
	for _, field := range sortedKeys(fields) {
		value := fields[field]
		switch field {
		case "type":
			s, ok := value.(string)
			if !ok {
				return &InvalidVariableExpressionError{
					Raw:    entry.Name,
					Reason: fmt.Sprintf("override type must be a string, got %T", value),
				}
			}
			entry.Type = ParseType(s)
		case "required":
			b, ok := value.(bool)
			if !ok {
				return &InvalidVariableExpressionError{
					Raw:    entry.Name,
					Reason: fmt.Sprintf("override required must be a boolean, got %T", value),
				}
			}
			entry.Required = b
		case "default":
			entry.Default = value
			entry.HasDefault = value != nil
		case "description", "doc":
			if s, ok := value.(string); ok {
				entry.Description = s
			}
		case "name", "root":
			// Derived from the template itself.
		default:
			if entry.Extra == nil {
				entry.Extra = make(map[string]any)
			}
			entry.Extra[field] = value
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
