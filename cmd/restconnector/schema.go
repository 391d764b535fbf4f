package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mercator-hq/restconnector/pkg/template"
)

var schemaFlags struct {
	operation string
	format    string
}

var schemaCmd = &cobra.Command{
	Use:   "schema [template-file]",
	Short: "Print the variables a template accepts",
	Long: `Compile a request template and print the schema of its variables:
type, whether it is required, default value and the top-level key it
was found under.

Examples:
  # Schema of a template file
  restconnector schema templates/geocode.json

  # Schema of a configured operation
  restconnector schema --operation geocode --config connector.yaml

  # YAML output
  restconnector schema templates/geocode.json --format yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVarP(&schemaFlags.operation, "operation", "o", "", "configured operation to describe")
	schemaCmd.Flags().StringVar(&schemaFlags.format, "format", "text", "output format: text, json, yaml")
}

func runSchema(cmd *cobra.Command, args []string) error {
	tmpl, err := resolveTemplate(args, schemaFlags.operation)
	if err != nil {
		return err
	}

	schema, err := tmpl.Compile()
	if err != nil {
		return err
	}

	if schemaFlags.format == "" || schemaFlags.format == "text" {
		return printSchemaTable(cmd, schema)
	}
	return printResult(cmd, schemaFlags.format, schema)
}

// resolveTemplate loads a template file argument, or the template of a
// configured operation.
func resolveTemplate(args []string, operation string) (*template.Template, error) {
	switch {
	case len(args) == 1 && operation != "":
		return nil, fmt.Errorf("give either a template file or --operation, not both")
	case len(args) == 1:
		return template.ParseFile(args[0])
	case operation == "":
		return nil, fmt.Errorf("a template file or --operation must be specified")
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, op := range cfg.Operations {
		if op.Label() == operation {
			return cfg.LoadTemplate(op)
		}
	}
	return nil, fmt.Errorf("operation %q is not configured", operation)
}

func printSchemaTable(cmd *cobra.Command, schema template.Schema) error {
	w := tabwriter.NewWriter(output(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tREQUIRED\tDEFAULT\tROOT\tDESCRIPTION")
	for _, name := range schema.Names() {
		v := schema[name]
		def := "-"
		if v.HasDefault {
			def = template.Stringify(v.Default)
		}
		root := v.Root
		if root == "" {
			root = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\n", v.Name, v.Type, v.Required, def, root, v.Description)
	}
	return w.Flush()
}
