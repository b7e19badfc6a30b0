package cmd

import (
	"github.com/spf13/cobra"

	"github.com/filmio/pageload/internal/common/app"
	"github.com/filmio/pageload/internal/common/util"
	"github.com/filmio/pageload/internal/pageload"
	"github.com/filmio/pageload/pkg/api"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run ./path/to/payload.json",
		Short: "Run a single browser session locally",
		Long: `Run a single browser session from a worker payload, e.g.

{"runId": "smoke-0", "urls": ["/explore", "/project/night-shift"], "jwt": null, "test": "Smoke test"}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := api.WorkerPayload{}
			if err := util.BindJsonOrYaml(args[0], &payload); err != nil {
				return err
			}
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runner, err := pageload.NewRunner(cmd.Context(), config)
			if err != nil {
				return err
			}
			if err := runner.Run(app.CreateContextWithShutdown(), payload); err != nil {
				return err
			}
			cmd.Println("Done")
			return nil
		},
	}
}
