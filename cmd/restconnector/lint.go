package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/restconnector/pkg/cli"
	"mercator-hq/restconnector/pkg/config"
	"mercator-hq/restconnector/pkg/connector"
)

var lintFlags struct {
	watch  bool
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate configuration and compile every template",
	Long: `Validate the connector configuration and compile every request template.

The lint command performs:
  - YAML syntax and field validation
  - Template file loading (JSON with comments allowed)
  - Template compilation, including the variables override map
  - Function binding checks (unique and non-reserved names)

With --watch the configuration is linted again whenever it or one of its
template files changes.

Examples:
  restconnector lint --config connector.yaml
  restconnector lint --format json
  restconnector lint --watch`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().BoolVarP(&lintFlags.watch, "watch", "w", false, "lint again on every change")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json, yaml")
}

// LintResult is the outcome of linting one configuration file.
type LintResult struct {
	File       string   `json:"file" yaml:"file"`
	Valid      bool     `json:"valid" yaml:"valid"`
	Errors     []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Operations []string `json:"operations,omitempty" yaml:"operations,omitempty"`
	Functions  []string `json:"functions,omitempty" yaml:"functions,omitempty"`
	Models     []string `json:"models,omitempty" yaml:"models,omitempty"`
}

func runLint(cmd *cobra.Command, args []string) error {
	if !lintFlags.watch {
		result := lintFile(cfgFile)
		if err := printLint(cmd, result); err != nil {
			return err
		}
		if !result.Valid {
			return cli.NewCommandError("lint", fmt.Errorf("validation failed"))
		}
		return nil
	}

	logger, err := newLogger(nil, "")
	if err != nil {
		return err
	}
	watcher, err := config.NewWatcher(cfgFile, 0, logger.Slog())
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(commandContext(cmd))
	defer stop()

	// Configurations failing validation are logged by the watcher; the
	// callback sees those that load.
	return watcher.Watch(ctx, func(cfg *config.Config) error {
		return printLint(cmd, lintConfig(cfgFile, cfg))
	})
}

// lintFile loads and lints the configuration file at path.
func lintFile(path string) LintResult {
	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		result := LintResult{File: path}
		var verr config.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Errors {
				result.Errors = append(result.Errors, fe.Error())
			}
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
		return result
	}
	return lintConfig(path, cfg)
}

// lintConfig compiles every template of a loaded configuration.
func lintConfig(path string, cfg *config.Config) LintResult {
	result := LintResult{File: path}

	conn, err := connector.New(cfg)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	defer conn.Close()

	for _, op := range conn.Operations() {
		result.Operations = append(result.Operations, op.Name)
	}
	for _, fn := range conn.Functions() {
		result.Functions = append(result.Functions, fn.Name)
	}
	result.Models = conn.Models()
	result.Valid = true
	return result
}

func printLint(cmd *cobra.Command, result LintResult) error {
	if lintFlags.format != "" && lintFlags.format != "text" {
		return printResult(cmd, lintFlags.format, result)
	}

	w := output(cmd)
	fmt.Fprintf(w, "Validating %s...\n", result.File)
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "✗ Error: %s\n", msg)
	}
	if result.Valid {
		fmt.Fprintln(w, "✓ Configuration valid")
		fmt.Fprintf(w, "✓ %d operation(s), %d function(s), %d model(s)\n",
			len(result.Operations), len(result.Functions), len(result.Models))
	}
	return nil
}
