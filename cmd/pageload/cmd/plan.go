package cmd

import (
	"github.com/spf13/cobra"

	"github.com/filmio/pageload/internal/common/app"
	"github.com/filmio/pageload/internal/common/util"
	"github.com/filmio/pageload/internal/pageload"
	"github.com/filmio/pageload/pkg/api"
)

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan ./path/to/run.yaml",
		Short: "Dispatch every session of a load test",
		Long: `Dispatch every session of a load test described by a run file and exit once the last session
has been handed to the dispatcher. Sessions are not waited for.

Example flat run:

testType: FLAT
testId: smoke
test: Smoke test
numberOfUsers: 20
numberOfRandomProjectURLs: 2

Example step run:

testType: STEP
testId: ramp
numberOfUsers: 9
userIncrease: 5
stepTime: 1
timeToStay: 2
links:
  - /project/the-last-frame
  - /project/night-shift
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runConfig := api.RunConfig{}
			if err := util.BindJsonOrYaml(args[0], &runConfig); err != nil {
				return err
			}
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			planner, cleanup, err := pageload.NewPlanner(cmd.Context(), config)
			if err != nil {
				return err
			}
			defer cleanup()
			return planner.Plan(app.CreateContextWithShutdown(), runConfig)
		},
	}
}
