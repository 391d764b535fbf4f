package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/restconnector/pkg/cli"
	"mercator-hq/restconnector/pkg/connector"
	"mercator-hq/restconnector/pkg/openapi"
)

var openapiFlags struct {
	format    string
	output    string
	serverURL string
	title     string
}

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Export the configured functions as an OpenAPI document",
	Long: `Generate an OpenAPI 3 document describing every configured function at
its remoting route under server.base_path.

Examples:
  restconnector openapi > openapi.json
  restconnector openapi --format yaml --output openapi.yaml
  restconnector openapi --server-url http://localhost:8080`,
	RunE: runOpenAPI,
}

func init() {
	rootCmd.AddCommand(openapiCmd)

	openapiCmd.Flags().StringVar(&openapiFlags.format, "format", "json", "document format: json, yaml")
	openapiCmd.Flags().StringVarP(&openapiFlags.output, "output", "o", "", "write the document to a file")
	openapiCmd.Flags().StringVar(&openapiFlags.serverURL, "server-url", "", "add a servers entry")
	openapiCmd.Flags().StringVar(&openapiFlags.title, "title", "", "document title (defaults to connector.name)")
}

func runOpenAPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := connector.New(cfg)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	defer conn.Close()

	title := openapiFlags.title
	if title == "" {
		title = cfg.Connector.Name
	}

	doc, err := openapi.Generate(commandContext(cmd), conn.Functions(), openapi.Options{
		Title:     title,
		Version:   Version,
		BasePath:  cfg.Server.BasePath,
		ServerURL: openapiFlags.serverURL,
	})
	if err != nil {
		return err
	}

	data, err := openapi.Marshal(doc, openapiFlags.format)
	if err != nil {
		return err
	}

	if openapiFlags.output == "" {
		_, err = output(cmd).Write(data)
		return err
	}
	if err := os.WriteFile(openapiFlags.output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", openapiFlags.output, err)
	}
	fmt.Fprintf(output(cmd), "✓ OpenAPI document written to %s (%d paths)\n", openapiFlags.output, doc.Paths.Len())
	return nil
}
