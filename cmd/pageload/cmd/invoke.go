package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/filmio/pageload/internal/common/app"
	"github.com/filmio/pageload/internal/pageload"
)

func invokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invoke ./path/to/event.json",
		Short: "Handle one plan or run event the way a deployed function would",
		Long: `Handle one event of either kind:

{"kind": "plan", "config": {"testType": "FLAT", "testId": "smoke", "numberOfUsers": 3}}
{"kind": "run", "payload": {"runId": "smoke-0", "urls": ["/explore"]}}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.WithStack(err)
			}
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			handler, cleanup, err := pageload.NewHandler(cmd.Context(), config)
			if err != nil {
				return err
			}
			defer cleanup()
			result, err := handler.HandleJson(app.CreateContextWithShutdown(), data)
			if err != nil {
				return err
			}
			cmd.Println(result)
			return nil
		},
	}
}
