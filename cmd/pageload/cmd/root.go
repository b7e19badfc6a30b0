package cmd

import (
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	commonconfig "github.com/filmio/pageload/internal/common/config"
	"github.com/filmio/pageload/internal/common/logging"
	"github.com/filmio/pageload/internal/pageload/configuration"
)

const (
	defaultConfigPath = "./config/pageload"
	configFlag        = "config"
	envFileFlag       = "env-file"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pageload",
		Short: "pageload drives fleets of headless browsers against a web application and records page load metrics.",
		Long: `pageload plans load tests, dispatches browser sessions to workers and runs those sessions.

Configuration is read from ./config/pageload/config.yaml, then from every file passed with --config,
and finally from PAGELOAD_* environment variables, e.g. PAGELOAD_SINK_URL.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringSlice(
		configFlag,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)",
	)
	cmd.PersistentFlags().String(envFileFlag, ".env", "Environment file loaded before configuration; ignored when missing")

	cmd.AddCommand(
		planCmd(),
		runCmd(),
		invokeCmd(),
		serveCmd(),
		collageCmd(),
	)
	return cmd
}

// loadConfig reads and validates the application configuration and applies its logging settings.
func loadConfig(cmd *cobra.Command) (configuration.Configuration, error) {
	var config configuration.Configuration

	envFile, err := cmd.Flags().GetString(envFileFlag)
	if err != nil {
		return config, errors.WithStack(err)
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Debugf("no environment file loaded from %s: %s", envFile, err)
		}
	}

	overrides, err := cmd.Flags().GetStringSlice(configFlag)
	if err != nil {
		return config, errors.WithStack(err)
	}
	if _, err := commonconfig.LoadConfig(&config, defaultConfigPath, overrides); err != nil {
		return config, err
	}
	if err := commonconfig.Validate(config); err != nil {
		commonconfig.LogValidationErrors(err)
		return config, errors.WithMessage(err, "invalid configuration")
	}
	if err := logging.ConfigureLogging(config.Logging); err != nil {
		return config, err
	}
	return config, nil
}
