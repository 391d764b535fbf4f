package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/restconnector/pkg/template"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "RESTCONNECTOR_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
//
// ${secret:name} references are resolved before validation.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	cfg, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	m, err := cfg.SecretManager()
	if err != nil {
		return nil, fmt.Errorf("failed to set up secrets: %w", err)
	}
	if err := cfg.ResolveSecrets(context.Background(), m); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets in %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention RESTCONNECTOR_SECTION_FIELD (e.g., RESTCONNECTOR_CONNECTOR_BASE_URL).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration on top of the defaults. dir is recorded
// as Config.Dir. Parse does not validate.
func Parse(data []byte, dir string) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	ApplyDefaults(cfg)
	cfg.Dir = dir
	return cfg, nil
}

// ResolvePath resolves a path relative to the configuration directory.
func (c *Config) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// LoadTemplate returns the request template of an operation, reading
// TemplateFile when the template is not inline.
func (c *Config) LoadTemplate(op OperationConfig) (*template.Template, error) {
	if op.TemplateFile != "" {
		path := c.ResolvePath(op.TemplateFile)
		tmpl, err := template.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load template file %q: %w", path, err)
		}
		if tmpl, err = c.resolveTemplate(tmpl); err != nil {
			return nil, fmt.Errorf("template file %q: %w", path, err)
		}
		return tmpl, nil
	}
	if op.Template == nil {
		return nil, fmt.Errorf("operation %q has no template", op.Label())
	}
	return template.New(op.Template)
}

// TemplateFiles returns the resolved paths of every template file.
func (c *Config) TemplateFiles() []string {
	var files []string
	for _, op := range c.Operations {
		if op.TemplateFile != "" {
			files = append(files, c.ResolvePath(op.TemplateFile))
		}
	}
	return files
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format RESTCONNECTOR_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Connector overrides
	if val := os.Getenv(EnvPrefix + "CONNECTOR_NAME"); val != "" {
		cfg.Connector.Name = val
	}
	if val := os.Getenv(EnvPrefix + "CONNECTOR_BASE_URL"); val != "" {
		cfg.Connector.BaseURL = val
	}
	if val := os.Getenv(EnvPrefix + "CONNECTOR_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Connector.Timeout = d
		}
	}
	if val := os.Getenv(EnvPrefix + "CONNECTOR_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Connector.MaxRetries = i
		}
	}
	if val := os.Getenv(EnvPrefix + "CONNECTOR_RETRY_BACKOFF"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Connector.RetryBackoff = d
		}
	}
	if val := os.Getenv(EnvPrefix + "CONNECTOR_CRUD"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Connector.CRUD = b
		}
	}
	if val := os.Getenv(EnvPrefix + "CONNECTOR_DEBUG"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Connector.Debug = b
		}
	}

	// Server overrides
	if val := os.Getenv(EnvPrefix + "SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv(EnvPrefix + "SERVER_BASE_PATH"); val != "" {
		cfg.Server.BasePath = val
	}
	if val := os.Getenv(EnvPrefix + "SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Telemetry overrides
	if val := os.Getenv(EnvPrefix + "TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_LOGGING_REDACT"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Logging.Redact = b
		}
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}
