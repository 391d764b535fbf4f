// Package resource is a CRUD client for a REST collection such as
// http://host/api/users.
//
// Each operation maps to one HTTP call:
//
//	Create     POST   /users
//	Update     PUT    /users/{id}
//	Delete     DELETE /users/{id}
//	DeleteAll  DELETE /users
//	Find       GET    /users/{id}
//	Query      GET    /users?filter
//
// Responses with status 400 or above are returned as *transport.StatusError
// (or a wrapper of it) carrying the status, headers and body.
package resource

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"mercator-hq/restconnector/pkg/rest"
	"mercator-hq/restconnector/pkg/template"
	"mercator-hq/restconnector/pkg/transport"
)

// Resource is a CRUD client bound to one collection URL.
type Resource struct {
	url    string
	client *transport.Client
	logger *slog.Logger
}

// Option configures a Resource.
type Option func(*Resource)

// WithClient sets the HTTP client.
func WithClient(c *transport.Client) Option {
	return func(r *Resource) {
		if c != nil {
			r.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resource) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a resource for the collection plural under baseURL.
func New(baseURL, plural string, opts ...Option) *Resource {
	r := &Resource{
		url:    JoinURL(baseURL, plural),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = transport.NewClient(transport.Config{}, transport.WithLogger(r.logger))
	}
	return r
}

// JoinURL appends a path segment to base with exactly one slash between.
func JoinURL(base, segment string) string {
	if strings.HasSuffix(base, "/") {
		return base + segment
	}
	return base + "/" + segment
}

// URL returns the collection URL.
func (r *Resource) URL() string {
	return r.url
}

// Create sends POST <url> with obj as the JSON body.
func (r *Resource) Create(ctx context.Context, obj any) (*rest.Result, error) {
	return r.do(ctx, http.MethodPost, r.url, nil, obj)
}

// Update sends PUT <url>/<id> with obj as the JSON body.
func (r *Resource) Update(ctx context.Context, id any, obj any) (*rest.Result, error) {
	return r.do(ctx, http.MethodPut, r.itemURL(id), nil, obj)
}

// Delete sends DELETE <url>/<id>.
func (r *Resource) Delete(ctx context.Context, id any) (*rest.Result, error) {
	return r.do(ctx, http.MethodDelete, r.itemURL(id), nil, nil)
}

// DeleteAll sends DELETE <url>.
func (r *Resource) DeleteAll(ctx context.Context) (*rest.Result, error) {
	return r.do(ctx, http.MethodDelete, r.url, nil, nil)
}

// Find sends GET <url>/<id>.
func (r *Resource) Find(ctx context.Context, id any) (*rest.Result, error) {
	return r.do(ctx, http.MethodGet, r.itemURL(id), nil, nil)
}

// Query sends GET <url> with filter as query parameters. Nested values are
// sent as JSON text.
func (r *Resource) Query(ctx context.Context, filter map[string]any) (*rest.Result, error) {
	return r.do(ctx, http.MethodGet, r.url, filter, nil)
}

// All is an alias of Query.
func (r *Resource) All(ctx context.Context, filter map[string]any) (*rest.Result, error) {
	return r.Query(ctx, filter)
}

func (r *Resource) itemURL(id any) string {
	return r.url + "/" + url.PathEscape(template.Stringify(id))
}

func (r *Resource) do(ctx context.Context, method, target string, query map[string]any, body any) (*rest.Result, error) {
	req := &transport.Request{
		Method: method,
		URL:    target,
		Query:  query,
		Body:   body,
		JSON:   true,
	}

	r.logger.DebugContext(ctx, "resource request", "method", method, "url", target)

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	decoded, err := resp.Decode(true)
	if err != nil {
		return nil, err
	}
	return &rest.Result{Body: decoded, Response: resp}, nil
}
