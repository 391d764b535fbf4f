package rest

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ohler55/ojg/jp"

	"mercator-hq/restconnector/pkg/telemetry/logging"
	"mercator-hq/restconnector/pkg/template"
	"mercator-hq/restconnector/pkg/transport"
)

// Result is the outcome of an invocation.
type Result struct {
	// Body is the decoded response body after responsePath or the parser
	// has been applied
	Body any

	// Response is the raw HTTP response
	Response *transport.Response
}

// StatusCode returns the HTTP status code of the response.
func (r *Result) StatusCode() int {
	if r == nil || r.Response == nil {
		return 0
	}
	return r.Response.StatusCode
}

// Invoke builds the request template with params and sends the request.
//
// Null query and header values are dropped. Responses are decoded as JSON
// unless a Content-Type or Accept header names another media type. Non-2xx
// responses are returned as transport errors.
func (b *RequestBuilder) Invoke(ctx context.Context, params template.Params) (*Result, error) {
	if logging.GetRequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, uuid.NewString())
	}

	built, err := b.Build(params)
	if err != nil {
		return nil, err
	}

	req, responsePath, err := NewTransportRequest(built)
	if err != nil {
		return nil, err
	}

	if b.debug {
		b.logger.InfoContext(ctx, "sending request",
			"method", req.Method,
			"url", req.URL,
			"query", req.Query,
			"headers", req.Headers,
			"json", req.JSON,
		)
	}

	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	body, err := resp.Decode(req.JSON)
	if err != nil {
		return nil, err
	}

	switch {
	case b.parser != nil:
		body, err = b.parser(body, resp)
		if err != nil {
			return nil, fmt.Errorf("response parser failed: %w", err)
		}
	case responsePath != "":
		body, err = SelectPath(body, responsePath)
		if err != nil {
			return nil, err
		}
	}

	b.logger.DebugContext(ctx, "request completed",
		"method", req.Method,
		"url", req.URL,
		"status", resp.StatusCode,
	)

	return &Result{Body: body, Response: resp}, nil
}

// SelectPath evaluates a JSONPath expression against body and returns the
// list of matches.
func SelectPath(body any, path string) ([]any, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid response path %q: %w", path, err)
	}
	matches := x.Get(body)
	if matches == nil {
		matches = []any{}
	}
	return matches, nil
}

// NewTransportRequest maps a built request template to a transport request.
// It also returns the responsePath of the template, if any.
func NewTransportRequest(built map[string]any) (*transport.Request, string, error) {
	req := &transport.Request{
		Method: strings.ToUpper(template.Stringify(built[KeyMethod])),
		URL:    template.Stringify(built[KeyURL]),
		JSON:   true,
	}
	if req.Method == "" {
		req.Method = "GET"
	}
	if req.URL == "" {
		return nil, "", fmt.Errorf("request template has no url")
	}

	query, err := objectField(built, KeyQuery)
	if err != nil {
		return nil, "", err
	}
	req.Query = query

	headers, err := objectField(built, KeyHeaders)
	if err != nil {
		return nil, "", err
	}
	req.Headers = headers

	if body, ok := built[KeyBody]; ok {
		req.Body = body
	}

	if v := jsonFlag(req.Headers); v != nil {
		req.JSON = *v
	}

	if v, ok := built[KeyTimeout]; ok && v != nil {
		ms, ok := template.Coerce(v, template.TypeNumber).(float64)
		if !ok || ms < 0 {
			return nil, "", fmt.Errorf("invalid timeout %v", v)
		}
		req.Timeout = time.Duration(ms * float64(time.Millisecond))
	}

	if v, ok := built[KeyMaxRedirects]; ok && v != nil {
		n, ok := template.Coerce(v, template.TypeNumber).(float64)
		if !ok {
			return nil, "", fmt.Errorf("invalid maxRedirects %v", v)
		}
		limit := int(n)
		req.MaxRedirects = &limit
	}

	attachments, err := attachmentsField(built[KeyAttachments])
	if err != nil {
		return nil, "", err
	}
	req.Attachments = attachments

	var responsePath string
	if v, ok := built[KeyResponsePath]; ok && v != nil {
		responsePath = template.Stringify(v)
	}

	return req, responsePath, nil
}

// objectField returns the object under key without null entries. A query
// given as a string is parsed as a query string.
func objectField(built map[string]any, key string) (map[string]any, error) {
	switch v := built[key].(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			if item != nil {
				out[k] = item
			}
		}
		return out, nil
	case string:
		if key != KeyQuery {
			break
		}
		values, err := url.ParseQuery(strings.TrimPrefix(v, "?"))
		if err != nil {
			return nil, fmt.Errorf("invalid query string %q: %w", v, err)
		}
		return valuesMap(values), nil
	}
	return nil, fmt.Errorf("request template %s must be an object, got %T", key, built[key])
}

// jsonFlag derives the JSON flag from the Content-Type and Accept headers.
// Headers are examined in case-insensitive name order and the last match
// wins, so Content-Type takes precedence over Accept. It returns nil when
// neither header is present.
func jsonFlag(headers map[string]any) *bool {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	var flag *bool
	for _, name := range names {
		switch strings.ToLower(name) {
		case "accept", "accepts", "content-type":
			mediaType, _, err := mime.ParseMediaType(template.Stringify(headers[name]))
			isJSON := err == nil && mediaType == "application/json"
			flag = &isJSON
		}
	}
	return flag
}

func attachmentsField(v any) ([]transport.Attachment, error) {
	items, ok := v.([]any)
	if v == nil || (ok && len(items) == 0) {
		return nil, nil
	}
	if !ok {
		return nil, fmt.Errorf("request template attachments must be an array, got %T", v)
	}

	attachments := make([]transport.Attachment, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("attachment %d must be an object, got %T", i, item)
		}
		a := transport.Attachment{
			Field:    template.Stringify(m["field"]),
			Path:     template.Stringify(m["path"]),
			Filename: template.Stringify(m["filename"]),
		}
		if a.Field == "" || a.Path == "" {
			return nil, fmt.Errorf("attachment %d requires field and path", i)
		}
		attachments = append(attachments, a)
	}
	return attachments, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
