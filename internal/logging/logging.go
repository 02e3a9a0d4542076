// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to w at the named level. Unknown levels
// fall back to info.
func New(level string, w io.Writer) *logrus.Logger {
	if w == nil {
		w = os.Stderr
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Setup configures the standard logger the same way New does and returns it.
func Setup(level string) *logrus.Logger {
	std := logrus.StandardLogger()
	configured := New(level, os.Stderr)
	std.SetOutput(configured.Out)
	std.SetFormatter(configured.Formatter)
	std.SetLevel(configured.GetLevel())
	return std
}
