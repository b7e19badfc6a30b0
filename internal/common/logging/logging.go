package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJson LogFormat = "json"
)

type Config struct {
	Level  string
	Format LogFormat
}

// ConfigureLogging sets up the standard logger for long running processes and Lambda handlers.
func ConfigureLogging(config Config) error {
	return configure(os.Stdout, config)
}

// ConfigureCliLogging sets up the standard logger for interactive use.
func ConfigureCliLogging() {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}

func configure(out io.Writer, config Config) error {
	level := log.InfoLevel
	if strings.TrimSpace(config.Level) != "" {
		parsed, err := log.ParseLevel(config.Level)
		if err != nil {
			return errors.WithStack(err)
		}
		level = parsed
	}

	switch config.Format {
	case FormatJson:
		log.SetFormatter(&log.JSONFormatter{})
	case FormatText, "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	default:
		return errors.Errorf("unknown log format %q", config.Format)
	}
	log.SetOutput(out)
	log.SetLevel(level)
	return nil
}
