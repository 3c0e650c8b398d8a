package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

// New returns a console logger tagged with the given component name
func New(component string) zerolog.Logger {
	return zerolog.New(output).With().Timestamp().Str("component", component).Logger()
}

// SetOutput redirects every logger created afterwards
func SetOutput(w io.Writer) {
	output = w
}

// SetLevel sets the global log level from a name such as "debug" or "warn".
// Unknown names fall back to info.
func SetLevel(name string) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || name == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
