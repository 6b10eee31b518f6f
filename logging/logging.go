// Package logging configures the agent's structured logger.
//
// All components log through logrus with a component field, writing to
// stdout for the container runtime to collect. The level comes from
// LOG_LEVEL; an unrecognized name falls back to info rather than failing
// startup.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates the agent's root logger at the given level.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// Component returns an entry tagged with the component name. Each package's
// log lines carry it so interleaved loop output stays attributable.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}
