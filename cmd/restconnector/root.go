package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/restconnector/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "restconnector",
	Short: "Declarative REST connector",
	Long: `Restconnector turns declarative JSON request templates into callable
REST operations.

A template describes an HTTP request whose strings may contain variables
such as {name}, {!id} or {limit=10:number}. The connector compiles each
template into a schema of accepted variables, binds operations to named
functions and sends the built requests.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "connector.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
