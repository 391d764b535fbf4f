// Package openapi exports connector functions as an OpenAPI 3 document.
//
// Every function becomes one operation at its remoting route, with path
// segments ":name" rewritten to "{name}". Path, query and header arguments
// become parameters; body arguments are folded into a JSON request body
// object. The invoke function accepts the raw parameter object as its body.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"mercator-hq/restconnector/pkg/connector"
	"mercator-hq/restconnector/pkg/template"
)

// Version is the OpenAPI version of generated documents.
const Version = "3.0.3"

// Options describes the generated document.
type Options struct {
	// Title defaults to "REST connector"
	Title string

	// Version is the API version; it defaults to "1.0.0"
	Version string

	Description string

	// BasePath prefixes every route, as the remoting server does
	BasePath string

	// ServerURL adds a servers entry when set
	ServerURL string
}

// Generate builds and validates a document describing fns.
func Generate(ctx context.Context, fns []*connector.Function, opts Options) (*openapi3.T, error) {
	if opts.Title == "" {
		opts.Title = "REST connector"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:       opts.Title,
			Version:     opts.Version,
			Description: opts.Description,
		},
		Paths: openapi3.NewPaths(),
	}
	if opts.ServerURL != "" {
		doc.Servers = openapi3.Servers{{URL: opts.ServerURL}}
	}

	for _, fn := range fns {
		doc.AddOperation(Path(opts.BasePath, fn.HTTP.Path), strings.ToUpper(fn.HTTP.Verb), operation(fn))
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("generated document is invalid: %w", err)
	}
	return doc, nil
}

// Path joins basePath and a remoting route and rewrites ":name" segments as
// "{name}".
func Path(basePath, route string) string {
	segments := strings.Split(route, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			segments[i] = "{" + seg[1:] + "}"
		}
	}
	p := strings.Join(segments, "/")
	if basePath != "" {
		p = path.Join("/", basePath, p)
	}
	return p
}

func operation(fn *connector.Function) *openapi3.Operation {
	op := &openapi3.Operation{
		OperationID: fn.Name,
		Summary:     fmt.Sprintf("Call %s", fn.Name),
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
				Value: openapi3.NewResponse().
					WithDescription("Response body").
					WithJSONSchema(openapi3.NewSchema()),
			}),
			openapi3.WithName("default", &openapi3.ResponseRef{
				Value: openapi3.NewResponse().
					WithDescription("Error").
					WithJSONSchema(errorSchema()),
			}),
		),
	}
	if fn.Operation != "" {
		op.Tags = []string{fn.Operation}
	}

	body := openapi3.NewObjectSchema()
	var bodyRequired bool
	var bodyArgs int

	for _, arg := range fn.Accepts {
		schema := Schema(arg)

		var param *openapi3.Parameter
		switch arg.Source {
		case connector.SourcePath:
			param = openapi3.NewPathParameter(arg.Name)
		case connector.SourceHeader:
			param = openapi3.NewHeaderParameter(arg.Name)
		case connector.SourceBody:
			if fn.Name == connector.InvokeFunction {
				body = schema
			} else {
				body.WithProperty(arg.Name, schema)
				if arg.Required {
					body.Required = append(body.Required, arg.Name)
				}
			}
			bodyRequired = bodyRequired || arg.Required
			bodyArgs++
			continue
		default:
			param = openapi3.NewQueryParameter(arg.Name)
		}

		param = param.WithSchema(schema).WithDescription(arg.Description)
		if arg.Required {
			param = param.WithRequired(true)
		}
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: param})
	}

	if bodyArgs > 0 {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithJSONSchema(body).
				WithRequired(bodyRequired),
		}
	}
	return op
}

// Schema maps an argument to its JSON schema.
func Schema(arg connector.Arg) *openapi3.Schema {
	var s *openapi3.Schema
	switch arg.Type {
	case template.TypeNumber:
		s = openapi3.NewFloat64Schema()
	case template.TypeBoolean:
		s = openapi3.NewBoolSchema()
	case template.TypeJSON, template.TypeObject:
		s = openapi3.NewObjectSchema()
	default:
		s = openapi3.NewStringSchema()
	}
	s.Description = arg.Description
	if arg.Default != nil {
		s.Default = arg.Default
	}
	return s
}

func errorSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().WithProperty("error",
		openapi3.NewObjectSchema().
			WithProperty("message", openapi3.NewStringSchema()).
			WithProperty("status", openapi3.NewIntegerSchema()),
	)
}

// Marshal encodes doc as "json" (indented) or "yaml".
func Marshal(doc *openapi3.T, format string) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case "", "json":
		return append(data, '\n'), nil
	case "yaml", "yml":
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return yaml.Marshal(v)
	}
	return nil, fmt.Errorf("unsupported format %q: must be 'json' or 'yaml'", format)
}
