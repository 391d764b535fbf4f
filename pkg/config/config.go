package config

import (
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/restconnector/pkg/security/secrets"
)

// Config is the root configuration structure for a REST connector.
// It describes the remote API, the templated operations bound to it, the
// CRUD models, the remoting server and telemetry.
type Config struct {
	// Connector contains the HTTP client settings shared by every operation.
	Connector ConnectorConfig `yaml:"connector"`

	// Operations lists the templated requests and the functions bound to
	// them.
	Operations []OperationConfig `yaml:"operations"`

	// Models lists the models exposed through the CRUD data access object.
	Models []ModelConfig `yaml:"models"`

	// Server contains configuration for the remoting HTTP server.
	Server ServerConfig `yaml:"server"`

	// Secrets configures how ${secret:name} references are resolved.
	Secrets SecretsConfig `yaml:"secrets"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Dir is the directory of the loaded file. Relative template files and
	// attachments resolve against it.
	Dir string `yaml:"-"`

	// resolver resolved the secret references of this configuration; nil
	// when it was parsed without resolving them.
	resolver *secrets.Manager
}

// ConnectorConfig contains the HTTP client settings of the connector.
type ConnectorConfig struct {
	// Name identifies the connector in logs and metrics.
	// Default: "rest"
	Name string `yaml:"name"`

	// BaseURL is the root of the CRUD resources, e.g. "http://localhost:3000/api".
	// Default: "http://localhost:3000/"
	BaseURL string `yaml:"base_url"`

	// Timeout is the default per-request timeout.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries for network errors and 5xx
	// responses.
	// Default: 0
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the base delay between retries, doubled per attempt.
	// Default: 1s
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// MaxIdleConns is the maximum number of idle pooled connections.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the maximum number of idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout is how long idle connections stay pooled.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`

	// Headers are sent with every request unless a template sets them.
	Headers map[string]string `yaml:"headers"`

	// CRUD enables the CRUD data access object even when operations are
	// configured. It is always enabled when there are no operations.
	CRUD bool `yaml:"crud"`

	// Debug logs every outgoing request at debug level.
	Debug bool `yaml:"debug"`
}

// OperationConfig binds a request template to named functions.
type OperationConfig struct {
	// Name labels the operation in logs; it defaults to the sorted list of
	// its function names.
	Name string `yaml:"name"`

	// Template is the inline request template.
	Template map[string]any `yaml:"template"`

	// TemplateFile is a JSON (with comments) request template file. Exactly
	// one of Template and TemplateFile must be set.
	TemplateFile string `yaml:"template_file"`

	// Functions maps function names to their ordered parameters.
	Functions map[string][]ParamConfig `yaml:"functions"`
}

// ParamConfig is one function parameter. In YAML it is either a plain
// name or an object with name and source.
type ParamConfig struct {
	// Name is the template variable bound to the argument.
	Name string `yaml:"name"`

	// Source overrides where the remoting server reads the argument:
	// "query", "path", "header" or "body". Empty infers it from the
	// template.
	Source string `yaml:"source"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (p *ParamConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.Name = node.Value
		p.Source = ""
		return nil
	}
	type plain ParamConfig
	return node.Decode((*plain)(p))
}

// ModelConfig declares a model served by the CRUD data access object.
type ModelConfig struct {
	// Name is the model name used by callers.
	Name string `yaml:"name"`

	// ResourceName is the path segment under the base URL.
	// Default: the lower-cased name with an "s" suffix
	ResourceName string `yaml:"resource_name"`
}

// ServerConfig contains configuration for the remoting HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// BasePath prefixes every function route, e.g. "/api".
	BasePath string `yaml:"base_path"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits request bodies read by the server.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// SecretsConfig configures secret providers. A secrets directory is
// searched before the environment.
type SecretsConfig struct {
	// Dir holds one file per secret, relative to the configuration file.
	Dir string `yaml:"dir"`

	// EnvPrefix prefixes the environment variable of every secret.
	// Default: "RESTCONNECTOR_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// Redact enables redaction of credentials in log entries.
	// Default: true
	Redact bool `yaml:"redact"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "restconnector"
	Namespace string `yaml:"namespace"`

	// RequestDurationBuckets defines histogram buckets for request duration (seconds).
	// Default: [0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// CRUDEnabled reports whether the CRUD data access object is active.
func (c *Config) CRUDEnabled() bool {
	return c.Connector.CRUD || len(c.Operations) == 0
}

// FunctionNames returns the operation's function names in sorted order.
func (o OperationConfig) FunctionNames() []string {
	names := make([]string, 0, len(o.Functions))
	for name := range o.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Label returns Name, or the joined function names when Name is empty.
func (o OperationConfig) Label() string {
	if o.Name != "" {
		return o.Name
	}
	if len(o.Functions) == 0 {
		return "invoke"
	}
	return strings.Join(o.FunctionNames(), ",")
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are recorded and exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName is the service.name resource attribute.
	// Default: "restconnector"
	ServiceName string `yaml:"service_name"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
