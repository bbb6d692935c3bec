// Package logging wraps the global zerolog logger. Components grab a
// sub-logger with With().Str("component", ...) and log through it.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Setup sets the global level from a config string ("debug", "info", ...)
// and switches to JSON output when pretty is false.
func Setup(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if !pretty {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// SetOutput redirects the global logger, mostly for tests.
func SetOutput(w io.Writer) {
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func GlobalLogger() *zerolog.Logger {
	return &log.Logger
}

func Debug() *zerolog.Event {
	return log.Debug().Timestamp()
}

func Info() *zerolog.Event {
	return log.Info().Timestamp()
}

func Warn() *zerolog.Event {
	return log.Warn().Timestamp()
}

func Error() *zerolog.Event {
	return log.Error().Timestamp()
}

func Fatal() *zerolog.Event {
	return log.Fatal().Timestamp()
}

func With() zerolog.Context {
	return log.With()
}

// Component returns a sub-logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
