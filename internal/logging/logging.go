// Package logging builds the leveled, scoped loggers used across keysynth.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pion/logging"
)

// Options describe how to configure a logger factory.
type Options struct {
	Level  string
	Output io.Writer
}

// NewFactory returns a pion logger factory writing at the requested level.
// Loggers are obtained per scope with NewLogger("server") and friends.
func NewFactory(opts Options) (*logging.DefaultLoggerFactory, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	f := logging.NewDefaultLoggerFactory()
	f.Writer = out
	f.DefaultLogLevel = lvl
	return f, nil
}

// ParseLevel maps a config level name to a pion log level. An empty level is
// info.
func ParseLevel(level string) (logging.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return logging.LogLevelInfo, nil
	case "trace":
		return logging.LogLevelTrace, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "error":
		return logging.LogLevelError, nil
	case "disabled", "off", "none":
		return logging.LogLevelDisabled, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("unsupported log level %q", level)
	}
}
