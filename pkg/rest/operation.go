package rest

import (
	"context"
	"fmt"

	"mercator-hq/restconnector/pkg/template"
)

// Func invokes a request with positional arguments.
type Func func(ctx context.Context, args ...any) (*Result, error)

// binding is one positional parameter of an operation.
type binding struct {
	name       string
	def        any
	hasDefault bool
}

// Operation maps the builder to a function taking positional arguments.
// args[i] is bound to names[i]; extra arguments are ignored.
//
// A name may carry an inline default with an optional type, as in
// "limit=10:number". The default applies when the argument is missing or
// nil.
func (b *RequestBuilder) Operation(names ...string) (Func, error) {
	bindings := make([]binding, len(names))
	for i, name := range names {
		expr, err := template.ParseExpression(name)
		if err != nil {
			return nil, fmt.Errorf("invalid operation parameter %q: %w", name, err)
		}
		bindings[i] = binding{name: expr.Name}
		if expr.HasDefault {
			bindings[i].def = template.Coerce(expr.Default, expr.Type)
			bindings[i].hasDefault = true
		}
	}

	return func(ctx context.Context, args ...any) (*Result, error) {
		return b.Invoke(ctx, bind(bindings, args))
	}, nil
}

// MustOperation is like Operation but panics on an invalid name.
func (b *RequestBuilder) MustOperation(names ...string) Func {
	fn, err := b.Operation(names...)
	if err != nil {
		panic(err)
	}
	return fn
}

func bind(bindings []binding, args []any) template.Params {
	params := make(template.Params, len(bindings))
	for i, bnd := range bindings {
		var v any
		if i < len(args) {
			v = args[i]
		}
		if v == nil && bnd.hasDefault {
			v = bnd.def
		}
		if v != nil {
			params[bnd.name] = v
		}
	}
	return params
}
