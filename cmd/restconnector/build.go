package main

import (
	"github.com/spf13/cobra"
)

var buildFlags struct {
	operation  string
	params     []string
	paramsFile string
	format     string
}

var buildCmd = &cobra.Command{
	Use:   "build [template-file]",
	Short: "Build a template without sending it",
	Long: `Expand a request template with parameters and print the result.

Parameters are given as name=value pairs, whose values are converted to
the declared variable type, or as name:=json for a raw JSON value. A
parameters file in JSON, JSON with comments or YAML supplies the rest.

Examples:
  restconnector build templates/geocode.json --param street="1 Main St" --param city=Paris
  restconnector build --operation search --param 'filter:={"active":true}'
  restconnector build templates/order.json --params order.yaml --format yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildFlags.operation, "operation", "o", "", "configured operation to build")
	buildCmd.Flags().StringArrayVarP(&buildFlags.params, "param", "p", nil, "parameter as name=value or name:=json (repeatable)")
	buildCmd.Flags().StringVar(&buildFlags.paramsFile, "params", "", "parameters file (JSON, JSONC or YAML)")
	buildCmd.Flags().StringVar(&buildFlags.format, "format", "json", "output format: json, yaml, text")
}

func runBuild(cmd *cobra.Command, args []string) error {
	tmpl, err := resolveTemplate(args, buildFlags.operation)
	if err != nil {
		return err
	}

	params, err := parseParams(buildFlags.params, buildFlags.paramsFile)
	if err != nil {
		return err
	}

	built, err := tmpl.Build(params)
	if err != nil {
		return err
	}
	return printResult(cmd, buildFlags.format, built)
}
