package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/restconnector/pkg/cli"
	"mercator-hq/restconnector/pkg/connector"
	"mercator-hq/restconnector/pkg/template"
)

var callFlags struct {
	params     []string
	paramsFile string
	format     string
	timeout    time.Duration
}

var callCmd = &cobra.Command{
	Use:   "call <function> [args...]",
	Short: "Call a configured function",
	Long: `Call a function of the configured connector and print the response body.

Positional arguments are bound to the function's parameters in order and
converted to their declared types. The invoke function takes its
parameter object from --param and --params instead.

Examples:
  restconnector call geocode "1 Main St" Paris
  restconnector call invoke --param street="1 Main St" --param city=Paris
  restconnector call findUser 42 --format yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringArrayVarP(&callFlags.params, "param", "p", nil, "invoke parameter as name=value or name:=json (repeatable)")
	callCmd.Flags().StringVar(&callFlags.paramsFile, "params", "", "invoke parameters file (JSON, JSONC or YAML)")
	callCmd.Flags().StringVar(&callFlags.format, "format", "json", "output format: json, yaml, text")
	callCmd.Flags().DurationVar(&callFlags.timeout, "timeout", 0, "overall call timeout (0 for the connector timeout)")
}

func runCall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, "")
	if err != nil {
		return err
	}

	tracer, err := newTracer(cfg)
	if err != nil {
		return err
	}
	defer shutdownTracer(tracer, logger.Slog())

	conn, err := connector.New(cfg,
		connector.WithLogger(logger.Slog()),
		connector.WithTracer(tracer),
	)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	defer conn.Close()

	name := args[0]
	fn, ok := conn.Function(name)
	if !ok {
		return fmt.Errorf("%w: %s", connector.ErrUnknownFunction, name)
	}

	callArgs, err := callArguments(fn, args[1:])
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if callFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, callFlags.timeout)
		defer cancel()
	}

	res, err := conn.Call(ctx, name, callArgs...)
	if err != nil {
		return cli.NewCommandError("call", err)
	}
	return printResult(cmd, callFlags.format, res.Body)
}

// callArguments converts positional command arguments to fn's declared
// types, or collects the parameter object of the invoke function.
func callArguments(fn *connector.Function, args []string) ([]any, error) {
	if fn.Name == connector.InvokeFunction {
		if len(args) > 0 {
			return nil, fmt.Errorf("invoke takes --param or --params, not positional arguments")
		}
		params, err := parseParams(callFlags.params, callFlags.paramsFile)
		if err != nil {
			return nil, err
		}
		return []any{map[string]any(params)}, nil
	}

	if len(args) > len(fn.Accepts) {
		return nil, fmt.Errorf("%s accepts %d argument(s), got %d", fn.Name, len(fn.Accepts), len(args))
	}

	out := make([]any, len(args))
	for i, raw := range args {
		arg := fn.Accepts[i]
		v := template.Coerce(raw, arg.Type)
		if v == nil {
			return nil, fmt.Errorf("argument %q must be a %s", arg.Name, arg.Type)
		}
		out[i] = v
	}
	return out, nil
}
