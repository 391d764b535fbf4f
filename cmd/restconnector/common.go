package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"mercator-hq/restconnector/pkg/cli"
	"mercator-hq/restconnector/pkg/config"
	"mercator-hq/restconnector/pkg/telemetry/logging"
	"mercator-hq/restconnector/pkg/telemetry/tracing"
	"mercator-hq/restconnector/pkg/template"
)

// output returns the writer for command results.
func output(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}

// printResult writes v in the format named by a --format flag.
func printResult(cmd *cobra.Command, format string, v any) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(format))
	if err != nil {
		return err
	}
	return formatter.FormatTo(output(cmd), v)
}

// loadConfig loads the --config file with environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return cfg, nil
}

// newLogger creates the command logger on stderr. --verbose forces debug
// level. Resolved secret values are always redacted.
func newLogger(cfg *config.Config, levelOverride string) (*logging.Logger, error) {
	lc := config.Default().Telemetry.Logging
	if cfg != nil {
		lc = cfg.Telemetry.Logging
		lc.RedactPatterns = append(cfg.SecretPatterns(), lc.RedactPatterns...)
	}
	if levelOverride != "" {
		lc.Level = levelOverride
	}
	if verbose {
		lc.Level = "debug"
	}
	return logging.New(logging.FromConfig(lc, os.Stderr))
}

// newTracer creates the tracer configured under telemetry.tracing.
func newTracer(cfg *config.Config) (*tracing.Tracer, error) {
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return tracer, nil
}

// shutdownTracer flushes pending spans, giving the exporter five seconds.
func shutdownTracer(tracer *tracing.Tracer, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracer.Shutdown(ctx); err != nil {
		log.Warn("failed to flush traces", "error", err)
	}
}

// parseParams merges a parameter file with name=value pairs. Pairs written
// as name:=value take a JSON value; plain pairs are strings and are
// converted by the template's declared types.
func parseParams(pairs []string, file string) (template.Params, error) {
	params := template.Params{}

	if file != "" {
		fromFile, err := readParamsFile(file)
		if err != nil {
			return nil, err
		}
		for k, v := range fromFile {
			params[k] = v
		}
	}

	for _, pair := range pairs {
		if name, raw, ok := strings.Cut(pair, ":="); ok && !strings.Contains(name, "=") {
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, fmt.Errorf("parameter %q: invalid JSON value: %w", name, err)
			}
			params[name] = v
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("parameter %q must be name=value or name:=json", pair)
		}
		params[name] = value
	}
	return params, nil
}

// readParamsFile reads a YAML file, or JSON with comments, holding a
// parameter object.
func readParamsFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters file %q: %w", path, err)
	}

	var params map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &params)
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), &params)
	}
	if err != nil {
		return nil, fmt.Errorf("parameters file %q must hold an object: %w", path, err)
	}
	return params, nil
}

// commandContext returns the command context, which is nil when a command
// function is called directly.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
