// Package log configures the process-wide zerolog logger and hands out
// the component- and actor-scoped child loggers the scheduler uses.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/bosunhq/bosun/pkg/config"
)

// root is the process logger. Until Setup runs (library use, tests) it
// writes JSON to stdout at the zerolog default level.
var root = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Setup builds the process logger from the daemon configuration's
// logging section: JSON output for machine consumption, a console
// writer for operators. Unknown levels fall back to info rather than
// failing startup; config validation has already rejected anything
// the daemon should refuse.
func Setup(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	root = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return root
}

// WithComponent creates a child logger for one scheduler component.
func WithComponent(component string) zerolog.Logger {
	return root.With().Str("component", component).Logger()
}

// WithAsset creates a child logger scoped to one installation.
func WithAsset(asset string) zerolog.Logger {
	return root.With().Str("asset", asset).Logger()
}

// WithActor creates a child logger carrying an actor's level and id,
// so every discarded iteration and publish can be traced to the actor
// that produced it.
func WithActor(level, actorID string) zerolog.Logger {
	return root.With().Str("level", level).Str("actor_id", actorID).Logger()
}
