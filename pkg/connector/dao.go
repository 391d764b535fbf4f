package connector

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"mercator-hq/restconnector/pkg/resource"
	"mercator-hq/restconnector/pkg/rest"
	"mercator-hq/restconnector/pkg/telemetry/logging"
)

// Filter selects records for All.
type Filter struct {
	// Where holds field equality conditions
	Where map[string]any

	// Order lists sort keys such as "name ASC"
	Order []string

	// Limit caps the number of records; 0 means no limit
	Limit int

	// Offset skips records
	Offset int

	// Fields restricts the returned properties
	Fields []string
}

// byID reports whether the filter only selects a single record by id.
func (f Filter) byID() (any, bool) {
	id, ok := f.Where["id"]
	if !ok || id == nil || len(f.Where) != 1 {
		return nil, false
	}
	return id, f.Limit == 1 && f.Offset == 0 && len(f.Order) == 0
}

// Query encodes the filter as query parameters: where[name]=value, order,
// limit, offset and fields.
func (f Filter) Query() map[string]any {
	q := make(map[string]any, len(f.Where)+4)
	for k, v := range f.Where {
		if v != nil {
			q["where["+k+"]"] = v
		}
	}
	if len(f.Order) > 0 {
		q["order"] = strings.Join(f.Order, ",")
	}
	if f.Limit > 0 {
		q["limit"] = f.Limit
	}
	if f.Offset > 0 {
		q["offset"] = f.Offset
	}
	if len(f.Fields) > 0 {
		q["fields"] = strings.Join(f.Fields, ",")
	}
	return q
}

// Define registers a model backed by the resource collection resourceName
// under the configured base URL. An empty resourceName defaults to the
// lower-cased model name with an "s" suffix.
func (c *Connector) Define(model, resourceName string) {
	if resourceName == "" {
		resourceName = strings.ToLower(model) + "s"
	}
	r := resource.New(c.cfg.Connector.BaseURL, resourceName,
		resource.WithClient(c.client),
		resource.WithLogger(c.logger),
	)

	c.mu.Lock()
	c.models[model] = r
	c.mu.Unlock()

	c.logger.Debug("model defined", "model", model, "url", r.URL())
}

// Models returns the defined model names in sorted order.
func (c *Connector) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.models))
	for name := range c.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Connector) resource(ctx context.Context, model string) (context.Context, *resource.Resource, error) {
	c.mu.RLock()
	r, ok := c.models[model]
	c.mu.RUnlock()
	if !ok {
		return ctx, nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return logging.WithModel(ctx, model), r, nil
}

// Create posts data to the model's collection and returns the id of the
// created record.
func (c *Connector) Create(ctx context.Context, model string, data map[string]any) (any, error) {
	ctx, r, err := c.resource(ctx, model)
	if err != nil {
		return nil, err
	}

	res, err := r.Create(ctx, PreProcess(data))
	if err != nil {
		return nil, err
	}
	switch res.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		body, _ := res.Body.(map[string]any)
		return body["id"], nil
	}
	return nil, &UnexpectedStatusError{Model: model, Op: "create", StatusCode: res.StatusCode(), Body: res.Body}
}

// Find returns the record with the given id.
func (c *Connector) Find(ctx context.Context, model string, id any) (any, error) {
	ctx, r, err := c.resource(ctx, model)
	if err != nil {
		return nil, err
	}
	res, err := r.Find(ctx, id)
	return handleResponse(model, "find", res, err)
}

// Exists reports whether a record with the given id exists. A 404 response
// means it does not.
func (c *Connector) Exists(ctx context.Context, model string, id any) (bool, error) {
	ctx, r, err := c.resource(ctx, model)
	if err != nil {
		return false, err
	}

	res, err := r.Find(ctx, id)
	if err != nil {
		if StatusCode(err) == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	if res.StatusCode() == http.StatusOK {
		return true, nil
	}
	return false, &UnexpectedStatusError{Model: model, Op: "exists", StatusCode: res.StatusCode(), Body: res.Body}
}

// Save replaces the record identified by data["id"].
func (c *Connector) Save(ctx context.Context, model string, data map[string]any) (any, error) {
	ctx, r, err := c.resource(ctx, model)
	if err != nil {
		return nil, err
	}
	res, err := r.Update(ctx, data["id"], PreProcess(data))
	return handleResponse(model, "save", res, err)
}

// UpdateOrCreate saves data when a record with its id exists and creates
// it otherwise. The returned record carries the id.
func (c *Connector) UpdateOrCreate(ctx context.Context, model string, data map[string]any) (map[string]any, error) {
	if id, ok := data["id"]; ok && id != nil {
		exists, err := c.Exists(ctx, model, id)
		if err != nil {
			return nil, err
		}
		if exists {
			saved, err := c.Save(ctx, model, data)
			if err != nil {
				return nil, err
			}
			if record, ok := saved.(map[string]any); ok {
				return record, nil
			}
			return data, nil
		}
	}

	id, err := c.Create(ctx, model, data)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["id"] = id
	return out, nil
}

// Destroy deletes the record with the given id.
func (c *Connector) Destroy(ctx context.Context, model string, id any) (any, error) {
	ctx, r, err := c.resource(ctx, model)
	if err != nil {
		return nil, err
	}
	res, err := r.Delete(ctx, id)
	return handleResponse(model, "destroy", res, err)
}

// DestroyAll deletes the record where["id"] names, or every record when
// where has no id.
func (c *Connector) DestroyAll(ctx context.Context, model string, where map[string]any) (any, error) {
	ctx, r, err := c.resource(ctx, model)
	if err != nil {
		return nil, err
	}

	var res *rest.Result
	if id, ok := where["id"]; ok && id != nil {
		res, err = r.Delete(ctx, id)
	} else {
		res, err = r.DeleteAll(ctx)
	}
	return handleResponse(model, "destroyAll", res, err)
}

// All returns the records matching filter. A filter selecting one id with
// limit 1 and no offset or order is answered by Find.
func (c *Connector) All(ctx context.Context, model string, filter Filter) ([]any, error) {
	if id, ok := filter.byID(); ok {
		record, err := c.Find(ctx, model, id)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return []any{}, nil
		}
		return []any{record}, nil
	}

	ctx, r, err := c.resource(ctx, model)
	if err != nil {
		return nil, err
	}
	res, err := r.All(ctx, filter.Query())
	body, err := handleResponse(model, "all", res, err)
	if err != nil {
		return nil, err
	}
	switch v := body.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return v, nil
	}
	return nil, fmt.Errorf("%s all: expected an array response, got %T", model, body)
}

// UpdateAttributes sets data["id"] to id and saves the record.
func (c *Connector) UpdateAttributes(ctx context.Context, model string, id any, data map[string]any) (any, error) {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["id"] = id
	return c.Save(ctx, model, out)
}

// Count is not supported by the REST binding.
func (c *Connector) Count(ctx context.Context, model string, where map[string]any) (int, error) {
	return 0, fmt.Errorf("%s count: %w", model, ErrNotSupported)
}

// PreProcess returns a copy of data without null fields.
func PreProcess(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// handleResponse accepts 200 responses only.
func handleResponse(model, op string, res *rest.Result, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		return nil, &UnexpectedStatusError{Model: model, Op: op, StatusCode: res.StatusCode(), Body: res.Body}
	}
	return res.Body, nil
}
