package logger

import (
	"ble-linepos/internal/config/components"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"io"
	"os"
	"strings"
	"time"
)

func NewLogger(cfg components.LoggerConfigImpl) zerolog.Logger {
	log.Logger = build(cfg, os.Stdout)
	return log.Logger
}

func build(cfg components.LoggerConfigImpl, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    false,
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
