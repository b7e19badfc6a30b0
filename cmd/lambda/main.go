// Command lambda serves plan and run events as an AWS Lambda function.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	log "github.com/sirupsen/logrus"

	// The Lambda runtime image ships without a zoneinfo database.
	_ "time/tzdata"

	commonconfig "github.com/filmio/pageload/internal/common/config"
	"github.com/filmio/pageload/internal/common/logging"
	"github.com/filmio/pageload/internal/pageload"
	"github.com/filmio/pageload/internal/pageload/configuration"
)

func main() {
	var config configuration.Configuration
	configPath := os.Getenv("PAGELOAD_CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/pageload"
	}
	if _, err := commonconfig.LoadConfig(&config, configPath, nil); err != nil {
		log.Fatal(err)
	}
	if err := commonconfig.Validate(config); err != nil {
		commonconfig.LogValidationErrors(err)
		os.Exit(1)
	}
	if err := logging.ConfigureLogging(config.Logging); err != nil {
		log.Fatal(err)
	}

	handler, cleanup, err := pageload.NewHandler(context.Background(), config)
	if err != nil {
		logging.WithStacktrace(log.NewEntry(log.StandardLogger()), err).Fatal("error starting handler")
	}
	defer cleanup()

	lambda.Start(func(ctx context.Context, event json.RawMessage) (string, error) {
		return handler.HandleJson(ctx, event)
	})
}
