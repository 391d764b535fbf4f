package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mercator-hq/restconnector/pkg/template"
)

// Content types understood by the body encoder.
const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Request is a transport-level HTTP request, usually produced from a built
// request template.
type Request struct {
	// Method is the HTTP method (default GET)
	Method string

	// URL is the absolute request URL; Query is merged into its query string
	URL string

	// Query holds query parameters; arrays become repeated parameters and
	// null values are dropped
	Query map[string]any

	// Headers holds request headers; null values are dropped
	Headers map[string]any

	// Body is the request body, encoded according to the Content-Type header
	Body any

	// JSON requests JSON encoding of object bodies and decoding of responses
	JSON bool

	// Timeout overrides the client timeout when positive
	Timeout time.Duration

	// MaxRedirects limits followed redirects when non-nil
	MaxRedirects *int

	// Attachments switches the body to multipart/form-data
	Attachments []Attachment
}

// Attachment is a file uploaded as a multipart form part.
type Attachment struct {
	// Field is the form field name
	Field string `json:"field"`

	// Path is the file path, relative paths resolve against Config.BaseDir
	Path string `json:"path"`

	// Filename is the file name sent to the server (defaults to Path)
	Filename string `json:"filename,omitempty"`
}

// Header returns the value of a header using a case-insensitive lookup.
func (r *Request) Header(name string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) && v != nil {
			return template.Stringify(v)
		}
	}
	return ""
}

// buildURL merges Query into URL.
func (r *Request) buildURL() (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", r.URL, err)
	}
	if len(r.Query) == 0 {
		return u.String(), nil
	}

	values := u.Query()
	for _, key := range sortedKeys(r.Query) {
		addValues(values, key, r.Query[key])
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// encodeBody returns the encoded body and the content type it implies.
// An empty content type means the caller's headers decide.
func (r *Request) encodeBody(baseDir string) ([]byte, string, error) {
	if len(r.Attachments) > 0 {
		return r.encodeMultipart(baseDir)
	}
	if r.Body == nil {
		return nil, "", nil
	}

	contentType := strings.ToLower(r.Header("Content-Type"))
	switch {
	case strings.HasPrefix(contentType, ContentTypeForm):
		switch b := r.Body.(type) {
		case string:
			return []byte(b), "", nil
		case map[string]any:
			values := url.Values{}
			for _, key := range sortedKeys(b) {
				addValues(values, key, b[key])
			}
			return []byte(values.Encode()), "", nil
		}
	case contentType != "" && !strings.Contains(contentType, "json"):
		if b, ok := r.Body.(string); ok {
			return []byte(b), "", nil
		}
	}

	switch b := r.Body.(type) {
	case []byte:
		return b, "", nil
	case string:
		if contentType == "" && !r.JSON {
			return []byte(b), "text/plain; charset=utf-8", nil
		}
	}

	data, err := json.Marshal(r.Body)
	if err != nil {
		return nil, "", &RequestError{Message: "failed to encode request body", Cause: err}
	}
	return data, ContentTypeJSON, nil
}

func (r *Request) encodeMultipart(baseDir string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if fields, ok := r.Body.(map[string]any); ok {
		for _, key := range sortedKeys(fields) {
			if fields[key] == nil {
				continue
			}
			if err := w.WriteField(key, template.Stringify(fields[key])); err != nil {
				return nil, "", &RequestError{Message: "failed to write form field", Cause: err}
			}
		}
	}

	for _, a := range r.Attachments {
		path := a.Path
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		filename := a.Filename
		if filename == "" {
			filename = filepath.Base(a.Path)
		}
		if err := writeFilePart(w, a.Field, filename, path); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", &RequestError{Message: "failed to finish multipart body", Cause: err}
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field, filename, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &RequestError{Message: fmt.Sprintf("failed to open attachment %q", path), Cause: err}
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return &RequestError{Message: "failed to create form file", Cause: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return &RequestError{Message: fmt.Sprintf("failed to read attachment %q", path), Cause: err}
	}
	return nil
}

// applyHeaders copies Headers onto an http.Header.
func (r *Request) applyHeaders(h http.Header) {
	for _, key := range sortedKeys(r.Headers) {
		switch v := r.Headers[key].(type) {
		case nil:
		case []any:
			for _, item := range v {
				if item != nil {
					h.Add(key, template.Stringify(item))
				}
			}
		default:
			h.Set(key, template.Stringify(v))
		}
	}
}

// Response is a completed HTTP exchange.
type Response struct {
	// StatusCode is the HTTP status code
	StatusCode int

	// Header holds the response headers
	Header http.Header

	// Body is the raw response body
	Body []byte
}

// IsJSON reports whether the response declares a JSON content type.
func (r *Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "json")
}

// Decode returns the body as a JSON value when asJSON is set or the
// response declares JSON, and as a string otherwise. An empty body decodes
// to nil.
func (r *Response) Decode(asJSON bool) (any, error) {
	if len(r.Body) == 0 {
		return nil, nil
	}
	if !asJSON && !r.IsJSON() {
		return string(r.Body), nil
	}

	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		if !r.IsJSON() {
			// The server never claimed JSON; hand back the text.
			return string(r.Body), nil
		}
		return nil, &ParseError{RawResponse: truncate(string(r.Body), 1024), Cause: err}
	}
	return v, nil
}

func addValues(values url.Values, key string, v any) {
	switch x := v.(type) {
	case nil:
	case []any:
		for _, item := range x {
			if item != nil {
				values.Add(key, template.Stringify(item))
			}
		}
	case []string:
		for _, item := range x {
			values.Add(key, item)
		}
	default:
		values.Add(key, template.Stringify(x))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
