// Package logger builds the zerolog loggers used across the sync engine.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

type LogBuild struct {
	writer io.Writer
	level  string
}

func New() *LogBuild {
	return &LogBuild{}
}

func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

func (build *LogBuild) WithLevel(level string) *LogBuild {
	build.level = level
	return build
}

// Make assembles the logger. The default sink is stderr so that log output
// never mixes with data the process writes to stdout. Unknown level strings
// fall back to info.
func (build *LogBuild) Make() zerolog.Logger {
	w := build.writer
	if w == nil {
		w = os.Stderr
	}
	level, err := zerolog.ParseLevel(build.level)
	if err != nil || build.level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
