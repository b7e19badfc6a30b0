package cmd

import (
	"github.com/spf13/cobra"

	"github.com/filmio/pageload/internal/common/app"
	"github.com/filmio/pageload/internal/common/serve"
	"github.com/filmio/pageload/internal/handler"
	"github.com/filmio/pageload/internal/pageload"
	"github.com/filmio/pageload/internal/worker"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume run events from the configured queue and run their sessions",
		Long: `Consume run events from the redis, pulsar or nats queue the planner dispatches to, running up to
worker.concurrency sessions at once. Metrics are exposed on metricsPort until the process is stopped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			concurrency, err := cmd.Flags().GetInt("concurrency")
			if err != nil {
				return err
			}
			if concurrency <= 0 {
				concurrency = config.Worker.Concurrency
			}

			ctx := app.CreateContextWithShutdown()
			runner, err := pageload.NewRunner(ctx, config)
			if err != nil {
				return err
			}
			source, cleanup, err := worker.NewSource(config.Dispatch, config.FunctionName)
			if err != nil {
				return err
			}

			shutdownMetricServer := serve.ServeMetrics(config.MetricsPort)
			defer shutdownMetricServer()

			return worker.Serve(ctx, source, cleanup, handler.NewHandler(nil, runner), concurrency)
		},
	}
	cmd.Flags().Int("concurrency", 0, "Sessions run at once; defaults to worker.concurrency")
	return cmd
}
