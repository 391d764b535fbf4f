package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/restconnector/pkg/cli"
	"mercator-hq/restconnector/pkg/config"
	"mercator-hq/restconnector/pkg/connector"
	"mercator-hq/restconnector/pkg/server"
	"mercator-hq/restconnector/pkg/telemetry/metrics"
	"mercator-hq/restconnector/pkg/telemetry/tracing"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	watch         bool
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the configured functions over HTTP",
	Long: `Start the remoting server. Every function is served at its route under
server.base_path, alongside /health, /ready, /version and the metrics
endpoint.

The configuration is reloaded on SIGHUP, and on file changes with
--watch. A configuration that fails to load keeps the previous one
serving.

Examples:
  restconnector serve --config connector.yaml
  restconnector serve --listen 0.0.0.0:8080 --log-level debug
  restconnector serve --watch
  restconnector serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVarP(&serveFlags.watch, "watch", "w", false, "reload when the configuration changes")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeOverrides(cfg)

	logger, err := newLogger(cfg, serveFlags.logLevel)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	log := logger.Slog()
	slog.SetDefault(log)

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	// Tracing settings are read once; a reload keeps the running tracer.
	tracer, err := newTracer(cfg)
	if err != nil {
		return err
	}
	defer shutdownTracer(tracer, log)

	conn, err := newServeConnector(cfg, log, collector, tracer)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}

	if serveFlags.dryRun {
		conn.Close()
		fmt.Fprintln(output(cmd), "✓ Configuration valid")
		return nil
	}

	srv := server.NewServer(&cfg.Server, conn,
		server.WithLogger(log),
		server.WithMetrics(collector),
		server.WithTracer(tracer),
		server.WithVersion(versionInfo()),
	)

	ctx, stop := cli.SignalContext(commandContext(cmd))
	defer stop()

	reload := func(next *config.Config) error {
		applyServeOverrides(next)
		c, err := newServeConnector(next, log, collector, tracer)
		if err != nil {
			return err
		}
		srv.Reload(c)
		return nil
	}

	if serveFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, 0, log)
		if err != nil {
			return err
		}
		first := true
		go func() {
			err := watcher.Watch(ctx, func(next *config.Config) error {
				// The watcher reports the configuration it starts from.
				if first {
					first = false
					return nil
				}
				return reload(next)
			})
			if err != nil {
				log.Error("config watcher failed", "error", err)
			}
		}()
	}

	hup, stopHup := cli.ReloadSignals()
	defer stopHup()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				next, err := loadConfig()
				if err == nil {
					err = reload(next)
				}
				if err != nil {
					log.Error("reload failed, keeping current configuration", "error", err)
					continue
				}
				log.Info("configuration reloaded on SIGHUP")
			}
		}
	}()

	fmt.Fprintf(output(cmd), "✓ Serving %d function(s) on %s%s\n",
		len(conn.Functions()), cfg.Server.ListenAddress, cfg.Server.BasePath)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	fmt.Fprintln(output(cmd), "✓ Server stopped")
	return nil
}

func applyServeOverrides(cfg *config.Config) {
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
}

func newServeConnector(cfg *config.Config, log *slog.Logger, collector *metrics.Collector, tracer *tracing.Tracer) (*connector.Connector, error) {
	opts := []connector.Option{connector.WithLogger(log), connector.WithTracer(tracer)}
	if collector.Enabled() {
		opts = append(opts, connector.WithRecorder(collector))
	}
	return connector.New(cfg, opts...)
}
