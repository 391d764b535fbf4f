package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"mercator-hq/restconnector/pkg/template"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "connector.base_url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateConnector(&cfg.Connector)...)
	errs = append(errs, validateOperations(cfg.Operations)...)
	errs = append(errs, validateModels(cfg.Models)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateConnector validates the HTTP client settings.
func validateConnector(cfg *ConnectorConfig) []FieldError {
	var errs []FieldError

	if cfg.BaseURL == "" {
		errs = append(errs, FieldError{
			Field:   "connector.base_url",
			Message: "base URL is required",
		})
	} else if u, err := url.Parse(cfg.BaseURL); err != nil {
		errs = append(errs, FieldError{
			Field:   "connector.base_url",
			Message: fmt.Sprintf("invalid URL format: %v", err),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, FieldError{
			Field:   "connector.base_url",
			Message: fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme),
		})
	} else if u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "connector.base_url",
			Message: "URL must include a host",
		})
	}

	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "connector.timeout",
			Message: "timeout must be non-negative",
		})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "connector.max_retries",
			Message: "max retries must be non-negative",
		})
	}
	if cfg.MaxRetries > 10 {
		errs = append(errs, FieldError{
			Field:   "connector.max_retries",
			Message: "max retries exceeds reasonable limit (10)",
		})
	}
	if cfg.RetryBackoff < 0 {
		errs = append(errs, FieldError{
			Field:   "connector.retry_backoff",
			Message: "retry backoff must be non-negative",
		})
	}
	if cfg.MaxIdleConns < 0 || cfg.MaxIdleConnsPerHost < 0 {
		errs = append(errs, FieldError{
			Field:   "connector.max_idle_conns",
			Message: "connection pool sizes must be non-negative",
		})
	}

	for name := range cfg.Headers {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, FieldError{
				Field:   "connector.headers",
				Message: "header name must not be empty",
			})
		}
	}

	return errs
}

var validSources = map[string]bool{"": true, "query": true, "path": true, "header": true, "body": true}

// validateOperations validates templates and function bindings.
func validateOperations(ops []OperationConfig) []FieldError {
	var errs []FieldError
	seen := make(map[string]int)

	for i, op := range ops {
		prefix := fmt.Sprintf("operations[%d]", i)

		switch {
		case op.Template == nil && op.TemplateFile == "":
			errs = append(errs, FieldError{
				Field:   prefix + ".template",
				Message: "operation template is missing",
			})
		case op.Template != nil && op.TemplateFile != "":
			errs = append(errs, FieldError{
				Field:   prefix + ".template_file",
				Message: "template and template_file are mutually exclusive",
			})
		}

		for _, name := range op.FunctionNames() {
			field := fmt.Sprintf("%s.functions.%s", prefix, name)
			if !template.IsIdentifier(name) {
				errs = append(errs, FieldError{
					Field:   field,
					Message: fmt.Sprintf("invalid function name %q", name),
				})
			}
			if first, dup := seen[name]; dup {
				errs = append(errs, FieldError{
					Field:   field,
					Message: fmt.Sprintf("function %q is already defined by operations[%d]", name, first),
				})
			} else {
				seen[name] = i
			}

			params := make(map[string]bool)
			for j, p := range op.Functions[name] {
				pfield := fmt.Sprintf("%s[%d]", field, j)
				if !template.IsIdentifier(p.Name) {
					errs = append(errs, FieldError{
						Field:   pfield,
						Message: fmt.Sprintf("invalid parameter name %q", p.Name),
					})
				}
				if params[p.Name] {
					errs = append(errs, FieldError{
						Field:   pfield,
						Message: fmt.Sprintf("duplicate parameter %q", p.Name),
					})
				}
				params[p.Name] = true
				if !validSources[p.Source] {
					errs = append(errs, FieldError{
						Field:   pfield + ".source",
						Message: fmt.Sprintf("invalid source %q: must be 'query', 'path', 'header' or 'body'", p.Source),
					})
				}
			}
		}
	}

	return errs
}

// validateModels validates CRUD model declarations.
func validateModels(models []ModelConfig) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool)

	for i, m := range models {
		field := fmt.Sprintf("models[%d].name", i)
		if m.Name == "" {
			errs = append(errs, FieldError{
				Field:   field,
				Message: "model name is required",
			})
			continue
		}
		if seen[m.Name] {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("model %q is defined more than once", m.Name),
			})
		}
		seen[m.Name] = true
		if strings.Contains(m.ResourceName, "/") {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("models[%d].resource_name", i),
				Message: "resource name must be a single path segment",
			})
		}
	}

	return errs
}

// validateServer validates the remoting server settings.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address: %v", err),
		})
	}

	if cfg.BasePath != "" && !strings.HasPrefix(cfg.BasePath, "/") {
		errs = append(errs, FieldError{
			Field:   "server.base_path",
			Message: "base path must start with /",
		})
	}

	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 || cfg.IdleTimeout < 0 || cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server",
			Message: "timeouts must be non-negative",
		})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_body_bytes",
			Message: "max body bytes must be non-negative",
		})
	}

	return errs
}

// validateTelemetry validates logging and metrics settings.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text' or 'console'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: "pattern is required",
			})
		} else if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid pattern: %v", err),
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never' or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Exporter != "otlp" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.exporter",
			Message: fmt.Sprintf("unsupported exporter %q: must be 'otlp'", cfg.Tracing.Exporter),
		})
	}

	return errs
}
