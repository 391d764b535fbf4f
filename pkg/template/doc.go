// Package template implements typed JSON templates.
//
// A template is an arbitrary JSON document whose strings and object keys may
// embed variable expressions:
//
//	{[!|^]name[=default][:type]}
//
// A leading ! or ^ marks the variable as required. The default is literal
// text up to the next ':', '{' or '}'. The type is one of string (the
// default), number, boolean, json or object.
//
// # Compiling
//
// Compile walks the document once and infers a Schema: one Variable per
// name with its type, required flag, default and the top-level key it was
// first seen under. When a name occurs more than once the last occurrence
// in traversal order wins. A root-level "variables" object can refine
// entries after inference:
//
//	{
//	  "url": "/users/{id}",
//	  "variables": {"id": {"type": "number", "required": true}}
//	}
//
// # Building
//
// Build substitutes a Params map into a fresh copy of the document:
//
//	t := template.MustNew(map[string]any{
//	    "url":   "/geocode/{!address}",
//	    "query": map[string]any{"limit": "{limit=10:number}"},
//	})
//	doc, err := t.Build(template.Params{"address": "1 Main St"})
//	// {"url": "/geocode/1 Main St", "query": {"limit": 10}}
//
// A string that is exactly one expression takes the coerced value with its
// native type. Otherwise all segments are concatenated. Expressions naming
// variables unknown to the schema are left in place as literal text, as is
// any brace text that does not match the grammar.
//
// Templates are immutable. Compile is computed once and Build may be called
// from any number of goroutines.
package template
