package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/matzehuels/recipegraph/internal/server"
	"github.com/matzehuels/recipegraph/pkg/observability"
)

// serveCommand starts the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
		in        inputOpts
		df        detectFlags
	)

	cmd := &cobra.Command{
		Use:   "serve [records...]",
		Short: "Serve the graph and its communities over HTTP",
		Long: `Serve the graph and its communities over HTTP.

Records are loaded once at startup; POST /api/refresh reloads them.
Prometheus metrics are exposed on /metrics unless --no-metrics is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := c.pipelineOptions()
			cleanup, err := c.applyInputs(ctx, &opts, args, in)
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := c.newRunner(ctx, df.noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			var metrics http.Handler
			if !noMetrics {
				collector := observability.NewCollector(appName)
				observability.SetPipelineHooks(collector)
				observability.SetCacheHooks(collector)
				observability.SetServerHooks(collector)
				defer observability.Reset()
				metrics = collector.Handler()
			}

			srv := server.New(runner, opts, c.Logger, metrics)
			if err := srv.Refresh(ctx); err != nil {
				return fmt.Errorf("initial load: %w", err)
			}

			cfg := c.Config.Server
			if addr != "" {
				cfg.Addr = addr
			}
			printSuccess("Serving on %s", StyleValue.Render(cfg.Addr))
			return srv.Run(ctx, server.Config{
				Addr:            cfg.Addr,
				ReadTimeout:     cfg.ReadTimeout,
				WriteTimeout:    cfg.WriteTimeout,
				ShutdownTimeout: cfg.ShutdownTimeout,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: [server] addr)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")
	cmd.Flags().BoolVar(&df.noCache, "no-cache", false, "disable caching")
	in.register(cmd)
	return cmd
}
