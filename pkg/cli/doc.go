/*
Package cli provides command-line helpers for the restconnector command.

Output Formatting:

Command results are printed as text, JSON or YAML:

	formatter, err := cli.NewFormatter(cli.FormatYAML)
	if err != nil {
		return err
	}
	if err := formatter.FormatTo(os.Stdout, schema); err != nil {
		return err
	}

Signal Handling:

Long-running commands stop on SIGINT or SIGTERM and reload on SIGHUP:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	reload, stopReload := cli.ReloadSignals()
	defer stopReload()
*/
package cli
