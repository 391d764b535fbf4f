// Package mockapi provides an in-memory REST API for tests.
//
// The server stores JSON records per collection and answers the CRUD calls
// a REST client makes:
//
//	POST   /<plural>       create (id assigned when missing), 201
//	GET    /<plural>       list, filtered by query parameters
//	                       (name=v or where[name]=v), paged by limit/offset
//	DELETE /<plural>       delete all
//	GET    /<plural>/<id>  find, 404 when missing
//	PUT    /<plural>/<id>  replace, 404 when missing
//	DELETE /<plural>/<id>  delete, 404 when missing
//
// Canned responses set with SetResponse take precedence over the
// collections, and every request is recorded for later inspection.
package mockapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Server is a mock REST API backed by in-memory collections.
type Server struct {
	server *httptest.Server

	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	responses   map[string]Response
	requests    []Request
	nextID      int
}

// Response defines a canned response.
type Response struct {
	StatusCode int
	Body       any
	Delay      time.Duration
	Headers    map[string]string
}

// Request is a recorded request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body.
func (r Request) JSON() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(r.Body, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// NewServer starts a server that serves the named collections.
func NewServer(collections ...string) *Server {
	s := &Server{
		collections: make(map[string]map[string]map[string]any),
		responses:   make(map[string]Response),
	}
	for _, c := range collections {
		s.collections[c] = make(map[string]map[string]any)
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.server.Close()
}

// SetResponse sets a canned response for method and path. An empty method
// matches every method.
func (s *Server) SetResponse(method, path string, response Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[responseKey(method, path)] = response
}

// Seed stores a record in a collection. The record must carry an id.
func (s *Server) Seed(collection string, record map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(collection)[idKey(record["id"])] = record
}

// Records returns the records of a collection ordered by id.
func (s *Server) Records(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(collection, nil)
}

// Requests returns every recorded request.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// RequestCount returns the number of requests received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	response, canned := s.responses[responseKey(r.Method, r.URL.Path)]
	if !canned {
		response, canned = s.responses[responseKey("", r.URL.Path)]
	}
	s.mu.Unlock()

	if canned {
		writeResponse(w, response)
		return
	}

	collection, id, ok := s.route(r.URL.Path)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no such collection"))
		return
	}

	s.mu.Lock()
	status, result := s.serve(r.Method, collection, id, r.URL.Query(), body)
	s.mu.Unlock()

	writeJSON(w, status, result)
}

// route finds the collection segment in path and the optional id after it.
func (s *Server) route(path string) (string, string, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, seg := range segments {
		if _, ok := s.collections[seg]; !ok {
			continue
		}
		switch len(segments) - i {
		case 1:
			return seg, "", true
		case 2:
			id, err := url.PathUnescape(segments[i+1])
			if err != nil {
				return "", "", false
			}
			return seg, id, true
		}
	}
	return "", "", false
}

// serve applies one CRUD call. The caller holds s.mu.
func (s *Server) serve(method, collection, id string, query url.Values, body []byte) (int, any) {
	records := s.collection(collection)

	if id == "" {
		switch method {
		case http.MethodPost:
			var record map[string]any
			if err := json.Unmarshal(body, &record); err != nil || record == nil {
				return http.StatusBadRequest, errorBody("invalid JSON body")
			}
			if record["id"] == nil {
				s.nextID++
				record["id"] = float64(s.nextID)
			}
			records[idKey(record["id"])] = record
			return http.StatusCreated, record
		case http.MethodGet:
			return http.StatusOK, s.list(collection, query)
		case http.MethodDelete:
			n := len(records)
			s.collections[collection] = make(map[string]map[string]any)
			return http.StatusOK, map[string]any{"count": n}
		}
		return http.StatusMethodNotAllowed, errorBody("method not allowed")
	}

	record, exists := records[id]
	switch method {
	case http.MethodGet:
		if !exists {
			return http.StatusNotFound, errorBody(fmt.Sprintf("%s %s not found", collection, id))
		}
		return http.StatusOK, record
	case http.MethodPut:
		if !exists {
			return http.StatusNotFound, errorBody(fmt.Sprintf("%s %s not found", collection, id))
		}
		var updated map[string]any
		if err := json.Unmarshal(body, &updated); err != nil || updated == nil {
			return http.StatusBadRequest, errorBody("invalid JSON body")
		}
		updated["id"] = record["id"]
		records[id] = updated
		return http.StatusOK, updated
	case http.MethodDelete:
		if !exists {
			return http.StatusNotFound, errorBody(fmt.Sprintf("%s %s not found", collection, id))
		}
		delete(records, id)
		return http.StatusOK, map[string]any{"count": 1}
	}
	return http.StatusMethodNotAllowed, errorBody("method not allowed")
}

// list returns records whose fields match every filter parameter. The
// caller holds s.mu.
func (s *Server) list(collection string, query url.Values) []map[string]any {
	records := s.collection(collection)
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.ParseFloat(ids[i], 64)
		b, errB := strconv.ParseFloat(ids[j], 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})

	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		record := records[id]
		if matches(record, query) {
			out = append(out, record)
		}
	}

	if offset, err := strconv.Atoi(query.Get("offset")); err == nil && offset > 0 {
		if offset > len(out) {
			offset = len(out)
		}
		out = out[offset:]
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (s *Server) collection(name string) map[string]map[string]any {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]map[string]any)
		s.collections[name] = c
	}
	return c
}

// pagingParams are list parameters that are not field filters.
var pagingParams = map[string]bool{"limit": true, "offset": true, "skip": true, "order": true}

func matches(record map[string]any, query url.Values) bool {
	for key := range query {
		field := key
		if strings.HasPrefix(key, "where[") && strings.HasSuffix(key, "]") {
			field = key[len("where[") : len(key)-1]
		} else if pagingParams[key] {
			continue
		}
		v, ok := record[field]
		if !ok || idKey(v) != query.Get(key) {
			return false
		}
	}
	return true
}

func idKey(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}

func responseKey(method, path string) string {
	return method + " " + path
}

func errorBody(message string) map[string]any {
	return map[string]any{"error": map[string]any{"message": message}}
}

func writeResponse(w http.ResponseWriter, response Response) {
	if response.Delay > 0 {
		time.Sleep(response.Delay)
	}
	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	switch v := response.Body.(type) {
	case nil:
		w.WriteHeader(status)
	case string:
		w.WriteHeader(status)
		_, _ = w.Write([]byte(v))
	case []byte:
		w.WriteHeader(status)
		_, _ = w.Write(v)
	default:
		writeJSON(w, status, v)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorResponse creates a canned error response.
func ErrorResponse(statusCode int, message string) Response {
	return Response{
		StatusCode: statusCode,
		Body:       errorBody(message),
	}
}

// ServerError creates a 500 internal server error response.
func ServerError() Response {
	return ErrorResponse(http.StatusInternalServerError, "Internal server error")
}
