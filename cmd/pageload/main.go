package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/filmio/pageload/cmd/pageload/cmd"
	"github.com/filmio/pageload/internal/common/logging"
)

func main() {
	logging.ConfigureCliLogging()
	if err := cmd.RootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
