package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mercator-hq/restconnector/pkg/connector"
	"mercator-hq/restconnector/pkg/openapi"
	"mercator-hq/restconnector/pkg/telemetry/logging"
	"mercator-hq/restconnector/pkg/template"
	"mercator-hq/restconnector/pkg/transport"
)

// OpenAPIPath serves the OpenAPI document of the current functions, under
// the base path.
const OpenAPIPath = "/openapi.json"

// routes is the function mux of one connector.
type routes struct {
	conn *connector.Connector
	mux  *http.ServeMux

	// redactor scrubs credentials, including the connector's secrets, from
	// error messages sent to callers
	redactor *logging.Redactor
}

func (s *Server) buildRoutes(conn *connector.Connector) *routes {
	mux := http.NewServeMux()
	fns := conn.Functions()

	cfg := conn.Config()
	rt := &routes{
		conn:     conn,
		mux:      mux,
		redactor: logging.NewRedactor(append(cfg.SecretPatterns(), cfg.Telemetry.Logging.RedactPatterns...)),
	}

	for _, fn := range fns {
		pattern := strings.ToUpper(fn.HTTP.Verb) + " " + openapi.Path(s.config.BasePath, fn.HTTP.Path)
		mux.Handle(pattern, s.functionHandler(rt, fn))
		s.logger.Debug("route registered", "function", fn.Name, "pattern", pattern)
	}

	doc, err := openapi.Generate(context.Background(), fns, openapi.Options{
		Title:    cfg.Connector.Name,
		BasePath: s.config.BasePath,
	})
	if err != nil {
		s.logger.Warn("openapi document unavailable", "error", err)
	} else if data, err := openapi.Marshal(doc, "json"); err == nil {
		mux.HandleFunc("GET "+openapi.Path(s.config.BasePath, OpenAPIPath), func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(data)
		})
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no function at %s %s", r.Method, r.URL.Path), nil)
	})

	return rt
}

// functionHandler reads the accepted arguments of fn from the request,
// calls it and writes the result body as JSON.
func (s *Server) functionHandler(rt *routes, fn *connector.Function) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithFunction(r.Context(), fn.Name)

		status := http.StatusOK
		defer func() {
			if s.metrics != nil {
				s.metrics.RecordCall(fn.Name, status, time.Since(start))
			}
		}()

		args, err := readArgs(r, fn)
		if err != nil {
			status = http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeError(w, status, err.Error(), nil)
			return
		}

		res, err := rt.conn.Call(ctx, fn.Name, args...)
		if err != nil {
			var details any
			status, details = errorStatus(err)
			writeError(w, status, rt.redactor.RedactString(err.Error()), details)
			return
		}

		writeJSON(w, status, res.Body)
	})
}

// readArgs collects the positional arguments of fn from the path, query,
// headers and JSON body of r, converted to their declared types.
func readArgs(r *http.Request, fn *connector.Function) ([]any, error) {
	var body map[string]any
	for _, arg := range fn.Accepts {
		if arg.Source == connector.SourceBody {
			var err error
			if body, err = readBody(r); err != nil {
				return nil, err
			}
			break
		}
	}

	if fn.Name == connector.InvokeFunction {
		return []any{body}, nil
	}

	args := make([]any, len(fn.Accepts))
	for i, arg := range fn.Accepts {
		var raw any
		switch arg.Source {
		case connector.SourcePath:
			raw = emptyToNil(r.PathValue(arg.Name))
		case connector.SourceHeader:
			raw = emptyToNil(r.Header.Get(arg.Name))
		case connector.SourceBody:
			raw = body[arg.Name]
		default:
			values, ok := r.URL.Query()[arg.Name]
			switch {
			case !ok:
			case len(values) == 1:
				raw = values[0]
			default:
				items := make([]any, len(values))
				for j, v := range values {
					items[j] = v
				}
				raw = items
			}
		}

		if raw == nil {
			continue
		}
		v := template.Coerce(raw, arg.Type)
		if v == nil {
			return nil, fmt.Errorf("argument %q must be a %s", arg.Name, arg.Type)
		}
		args[i] = v
	}
	return args, nil
}

func readBody(r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]any{}, nil
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("request body must be a JSON object: %w", err)
	}
	return body, nil
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// errorStatus maps a call error to a response status and optional details
// from the upstream response.
func errorStatus(err error) (int, any) {
	switch {
	case errors.Is(err, template.ErrMissingRequiredVariable),
		errors.Is(err, template.ErrInvalidVariableExpression):
		return http.StatusBadRequest, nil
	case errors.Is(err, connector.ErrUnknownFunction):
		return http.StatusNotFound, nil
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, nil
	}

	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, decodeDetails(statusErr.Body)
	}
	var timeoutErr *transport.TimeoutError
	if errors.As(err, &timeoutErr) {
		return http.StatusGatewayTimeout, nil
	}
	return http.StatusBadGateway, nil
}

func decodeDetails(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}
