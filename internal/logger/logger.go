// Package logger builds the process logger. Output goes to stdout so that the
// per-event body and status lines land next to the rest of the worker output.
package logger

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.elastic.co/ecslogrus"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatECS  = "ecs"
)

// New returns a logger writing to stdout at the given level and format.
func New(level, format string) (*logrus.Logger, error) {
	return NewWithOutput(os.Stdout, level, format)
}

func NewWithOutput(w io.Writer, level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	log.SetLevel(lvl)

	switch format {
	case FormatText, "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case FormatJSON:
		log.SetFormatter(&logrus.JSONFormatter{})
	case FormatECS:
		log.SetFormatter(&ecslogrus.Formatter{})
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
	return log, nil
}
