package rest

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"maps"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/mohae/deepcopy"

	"mercator-hq/restconnector/pkg/template"
	"mercator-hq/restconnector/pkg/transport"
)

// Request template keys.
const (
	KeyMethod       = "method"
	KeyURL          = "url"
	KeyQuery        = "query"
	KeyHeaders      = "headers"
	KeyBody         = "body"
	KeyAttachments  = "attachments"
	KeyTimeout      = "timeout"
	KeyMaxRedirects = "maxRedirects"
	KeyResponsePath = "responsePath"
)

// Parser post-processes a decoded response body. It replaces the
// responsePath selection when set.
type Parser func(body any, resp *transport.Response) (any, error)

// BuildRecorder receives template build metrics. It is satisfied by the
// metrics collector.
type BuildRecorder interface {
	RecordBuild(operation string, err error, duration time.Duration)
}

// RequestBuilder assembles a request template and invokes it.
//
// The fluent setters mutate the template document and are not safe for
// concurrent use. Build and Invoke are safe to call concurrently once the
// builder is no longer mutated.
type RequestBuilder struct {
	mu   sync.Mutex
	doc  map[string]any
	tmpl *template.Template

	name     string
	client   *transport.Client
	logger   *slog.Logger
	recorder BuildRecorder
	parser   Parser
	debug    bool
}

// Option configures a RequestBuilder.
type Option func(*RequestBuilder)

// WithClient sets the HTTP client used by Invoke.
func WithClient(c *transport.Client) Option {
	return func(b *RequestBuilder) {
		if c != nil {
			b.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *RequestBuilder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBuildRecorder sets the recorder for template build metrics.
func WithBuildRecorder(r BuildRecorder) Option {
	return func(b *RequestBuilder) { b.recorder = r }
}

// WithName labels the builder in logs and metrics.
func WithName(name string) Option {
	return func(b *RequestBuilder) { b.name = name }
}

// New creates a builder for method and url. An empty method means GET.
func New(method, rawURL string, opts ...Option) *RequestBuilder {
	if method == "" {
		method = http.MethodGet
	}
	doc := map[string]any{
		KeyMethod:      method,
		KeyURL:         rawURL,
		KeyQuery:       map[string]any{},
		KeyHeaders:     map[string]any{},
		KeyAttachments: []any{},
	}
	return newBuilder(doc, opts)
}

// Get creates a GET builder.
func Get(rawURL string, opts ...Option) *RequestBuilder {
	return New(http.MethodGet, rawURL, opts...)
}

// Post creates a POST builder.
func Post(rawURL string, opts ...Option) *RequestBuilder {
	return New(http.MethodPost, rawURL, opts...)
}

// Put creates a PUT builder.
func Put(rawURL string, opts ...Option) *RequestBuilder {
	return New(http.MethodPut, rawURL, opts...)
}

// Patch creates a PATCH builder.
func Patch(rawURL string, opts ...Option) *RequestBuilder {
	return New(http.MethodPatch, rawURL, opts...)
}

// Delete creates a DELETE builder.
func Delete(rawURL string, opts ...Option) *RequestBuilder {
	return New(http.MethodDelete, rawURL, opts...)
}

// Head creates a HEAD builder.
func Head(rawURL string, opts ...Option) *RequestBuilder {
	return New(http.MethodHead, rawURL, opts...)
}

// FromTemplate creates a builder from a request template document such as
// {"method": "GET", "url": "http://host/{id}", "query": {...}}. The root
// must be an object.
func FromTemplate(doc any, opts ...Option) (*RequestBuilder, error) {
	t, err := template.New(doc)
	if err != nil {
		return nil, err
	}
	root, ok := t.Document().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("request template must be an object, got %T", t.Document())
	}
	b := newBuilder(root, opts)
	b.tmpl = t
	return b, nil
}

func newBuilder(doc map[string]any, opts []Option) *RequestBuilder {
	b := &RequestBuilder{
		doc:    doc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		b.client = transport.NewClient(transport.Config{}, transport.WithLogger(b.logger))
	}
	return b
}

// Method sets the HTTP method.
func (b *RequestBuilder) Method(method string) *RequestBuilder {
	return b.set(KeyMethod, method)
}

// URL sets the request URL.
func (b *RequestBuilder) URL(rawURL string) *RequestBuilder {
	return b.set(KeyURL, rawURL)
}

// Header sets header name to value.
func (b *RequestBuilder) Header(name string, value any) *RequestBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.section(KeyHeaders)[name] = value
	b.tmpl = nil
	return b
}

// Headers sets several headers at once.
func (b *RequestBuilder) Headers(headers map[string]any) *RequestBuilder {
	for _, name := range sortedKeys(headers) {
		b.Header(name, headers[name])
	}
	return b
}

// Type sets the Content-Type header. Values containing "/" are used as is;
// shorthands such as "json", "form", "xml", "text" and "html" are expanded,
// and anything else is looked up as a file extension.
func (b *RequestBuilder) Type(contentType string) *RequestBuilder {
	return b.Header("Content-Type", LookupType(contentType))
}

var typeShorthands = map[string]string{
	"json":       transport.ContentTypeJSON,
	"form":       transport.ContentTypeForm,
	"urlencoded": transport.ContentTypeForm,
	"form-body":  transport.ContentTypeForm,
	"xml":        "application/xml",
	"text":       "text/plain",
	"txt":        "text/plain",
	"html":       "text/html",
}

// LookupType resolves a content type shorthand. Unknown names resolve to
// application/octet-stream.
func LookupType(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	ext := strings.ToLower(strings.TrimPrefix(name, "."))
	if t, ok := typeShorthands[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension("." + ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Cookie appends a cookie to the Cookie header.
func (b *RequestBuilder) Cookie(cookie string) *RequestBuilder {
	b.mu.Lock()
	headers := b.section(KeyHeaders)
	if existing, ok := headers["Cookie"].(string); ok && existing != "" {
		cookie = existing + ";" + cookie
	}
	b.mu.Unlock()
	return b.Header("Cookie", cookie)
}

// Query merges query parameters. It accepts a query string ("size=10&x=1"),
// url.Values or a map.
func (b *RequestBuilder) Query(params any) *RequestBuilder {
	var values map[string]any
	switch p := params.(type) {
	case string:
		parsed, err := url.ParseQuery(strings.TrimPrefix(p, "?"))
		if err != nil {
			b.logger.Warn("ignoring malformed query string", "query", p, "error", err)
		}
		values = valuesMap(parsed)
	case url.Values:
		values = valuesMap(p)
	case map[string]string:
		values = make(map[string]any, len(p))
		for k, v := range p {
			values[k] = v
		}
	case map[string]any:
		values = p
	case nil:
	default:
		b.logger.Warn("ignoring unsupported query value", "type", fmt.Sprintf("%T", params))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	maps.Copy(b.section(KeyQuery), values)
	b.tmpl = nil
	return b
}

// Body sets the request body.
//
// Objects are merged into an existing object body and default the content
// type to JSON. Strings default the content type to form encoding and are
// concatenated: with "&" under form encoding, directly otherwise. Any other
// value replaces the body.
func (b *RequestBuilder) Body(body any) *RequestBuilder {
	b.mu.Lock()
	contentType, _ := b.section(KeyHeaders)["Content-Type"].(string)
	b.mu.Unlock()

	if s, ok := body.(string); ok {
		if contentType == "" {
			b.Type("form")
			contentType = transport.ContentTypeForm
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		existing, _ := b.doc[KeyBody].(string)
		switch {
		case contentType == transport.ContentTypeForm && existing != "":
			b.doc[KeyBody] = existing + "&" + s
		default:
			b.doc[KeyBody] = existing + s
		}
		b.tmpl = nil
		return b
	}

	b.mu.Lock()
	obj, isMap := body.(map[string]any)
	if current, ok := b.doc[KeyBody].(map[string]any); ok && isMap {
		maps.Copy(current, obj)
	} else {
		b.doc[KeyBody] = deepcopy.Copy(body)
	}
	b.tmpl = nil
	b.mu.Unlock()

	if isObject(body) && contentType == "" {
		b.Type("json")
	}
	return b
}

// Auth sets Basic authorization for user and password.
func (b *RequestBuilder) Auth(user, password string) *RequestBuilder {
	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
	return b.Header("Authorization", "Basic "+token)
}

// Attach queues the file at path as a multipart attachment in field.
// An empty filename defaults to path.
func (b *RequestBuilder) Attach(field, path, filename string) *RequestBuilder {
	if filename == "" {
		filename = path
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	attachments, _ := b.doc[KeyAttachments].([]any)
	b.doc[KeyAttachments] = append(attachments, map[string]any{
		"field":    field,
		"path":     path,
		"filename": filename,
	})
	b.tmpl = nil
	return b
}

// Redirects limits the number of followed redirects; 0 disables them.
func (b *RequestBuilder) Redirects(n int) *RequestBuilder {
	return b.set(KeyMaxRedirects, n)
}

// Timeout sets the request timeout. It is stored in milliseconds.
func (b *RequestBuilder) Timeout(d time.Duration) *RequestBuilder {
	return b.set(KeyTimeout, d.Milliseconds())
}

// ResponsePath sets a JSONPath expression applied to the response body.
// The result of Invoke is then the list of matches.
func (b *RequestBuilder) ResponsePath(path string) *RequestBuilder {
	return b.set(KeyResponsePath, path)
}

// Parser sets a custom response parser.
func (b *RequestBuilder) Parser(fn Parser) *RequestBuilder {
	b.parser = fn
	return b
}

// Debug enables logging of every outgoing request at info level.
func (b *RequestBuilder) Debug(enabled bool) *RequestBuilder {
	b.debug = enabled
	return b
}

// JSON returns a copy of the request template document.
func (b *RequestBuilder) JSON() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return deepcopy.Copy(b.doc).(map[string]any)
}

// Template returns the compiled-on-demand template of the current document.
func (b *RequestBuilder) Template() (*template.Template, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tmpl == nil {
		t, err := template.New(b.doc)
		if err != nil {
			return nil, err
		}
		b.tmpl = t
	}
	return b.tmpl, nil
}

// Schema returns the variable schema of the request template.
func (b *RequestBuilder) Schema() (template.Schema, error) {
	t, err := b.Template()
	if err != nil {
		return nil, err
	}
	return t.Compile()
}

// Build expands the request template with params.
func (b *RequestBuilder) Build(params template.Params) (map[string]any, error) {
	t, err := b.Template()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	built, err := t.BuildObject(params)
	if b.recorder != nil {
		b.recorder.RecordBuild(b.Name(), err, time.Since(start))
	}
	return built, err
}

// Name returns the builder label, defaulting to "<METHOD> <url>".
func (b *RequestBuilder) Name() string {
	if b.name != "" {
		return b.name
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("%v %v", b.doc[KeyMethod], b.doc[KeyURL])
}

// Client returns the HTTP client used by Invoke.
func (b *RequestBuilder) Client() *transport.Client {
	return b.client
}

func (b *RequestBuilder) set(key string, value any) *RequestBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.doc[key] = value
	b.tmpl = nil
	return b
}

// section returns the object under key, replacing a missing or non-object
// value. The caller holds b.mu.
func (b *RequestBuilder) section(key string) map[string]any {
	m, ok := b.doc[key].(map[string]any)
	if !ok {
		m = map[string]any{}
		b.doc[key] = m
	}
	return m
}

func valuesMap(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		items := make([]any, len(vs))
		for i, v := range vs {
			items[i] = v
		}
		out[k] = items
	}
	return out
}

func isObject(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		_, raw := v.([]byte)
		return !raw
	default:
		return false
	}
}
