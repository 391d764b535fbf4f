package connector

import (
	"strings"

	"mercator-hq/restconnector/pkg/config"
	"mercator-hq/restconnector/pkg/rest"
	"mercator-hq/restconnector/pkg/template"
)

// Source is where a remoting caller supplies an argument.
type Source string

const (
	SourceQuery  Source = "query"
	SourcePath   Source = "path"
	SourceHeader Source = "header"
	SourceBody   Source = "body"
)

// InvokeFunction is the name of the function that sends an operation's
// template with a raw parameter object.
const InvokeFunction = "invoke"

// SourceForRoot maps the top-level template key a variable appears under
// to the source its argument is read from.
func SourceForRoot(root string) Source {
	switch root {
	case rest.KeyHeaders:
		return SourceHeader
	case rest.KeyURL:
		return SourcePath
	case rest.KeyBody:
		return SourceBody
	default:
		return SourceQuery
	}
}

// Arg describes one accepted argument of a function.
type Arg struct {
	Name        string        `json:"arg" yaml:"arg"`
	Type        template.Type `json:"type" yaml:"type"`
	Required    bool          `json:"required" yaml:"required"`
	Source      Source        `json:"source" yaml:"source"`
	Default     any           `json:"default,omitempty" yaml:"default,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
}

// Returns describes the result of a function. Functions return the
// response body as their root value.
type Returns struct {
	Arg  string `json:"arg" yaml:"arg"`
	Type string `json:"type" yaml:"type"`
	Root bool   `json:"root" yaml:"root"`
}

// HTTP is the route a remoting server exposes a function at. Path segments
// of the form "/:name" are path arguments.
type HTTP struct {
	Verb string `json:"verb" yaml:"verb"`
	Path string `json:"path" yaml:"path"`
}

// Function is a named, positional binding of an operation's template.
type Function struct {
	Name    string  `json:"name" yaml:"name"`
	Accepts []Arg   `json:"accepts" yaml:"accepts"`
	Returns Returns `json:"returns" yaml:"returns"`
	HTTP    HTTP    `json:"http" yaml:"http"`

	// Operation is the label of the operation the function belongs to
	Operation string `json:"operation" yaml:"operation"`

	call rest.Func
}

// Params returns the ordered parameter names of f.
func (f *Function) Params() []string {
	names := make([]string, len(f.Accepts))
	for i, a := range f.Accepts {
		names[i] = a.Name
	}
	return names
}

// Args orders named values as the positional arguments of f. Missing
// names stay nil.
func (f *Function) Args(values map[string]any) []any {
	args := make([]any, len(f.Accepts))
	for i, a := range f.Accepts {
		args[i] = values[a.Name]
	}
	return args
}

var dataReturns = Returns{Arg: "data", Type: "object", Root: true}

// describe derives the remoting metadata of a function from its
// parameters and the operation's schema.
func describe(name, verb string, params []config.ParamConfig, schema template.Schema) Function {
	fn := Function{
		Name:    name,
		Accepts: make([]Arg, 0, len(params)),
		Returns: dataReturns,
		HTTP:    HTTP{Verb: strings.ToLower(verb), Path: "/" + name},
	}
	if fn.HTTP.Verb == "" {
		fn.HTTP.Verb = "get"
	}

	for _, p := range params {
		arg := Arg{Name: p.Name, Type: template.TypeString, Source: Source(p.Source)}
		if v, ok := schema.Lookup(p.Name); ok {
			arg.Type = v.Type
			arg.Required = v.Required
			arg.Description = v.Description
			if v.HasDefault && v.Default != nil {
				arg.Default = template.Coerce(v.Default, v.Type)
			}
			if arg.Source == "" {
				arg.Source = SourceForRoot(v.Root)
			}
		}
		if arg.Source == "" {
			arg.Source = SourceQuery
		}
		if arg.Source == SourcePath {
			fn.HTTP.Path += "/:" + arg.Name
		}
		fn.Accepts = append(fn.Accepts, arg)
	}

	return fn
}

// describeInvoke returns the metadata of an operation's invoke function.
func describeInvoke(operation string) Function {
	return Function{
		Name:      InvokeFunction,
		Accepts:   []Arg{{Name: "request", Type: template.TypeObject, Source: SourceBody}},
		Returns:   dataReturns,
		HTTP:      HTTP{Verb: "post", Path: "/" + InvokeFunction},
		Operation: operation,
	}
}
