package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if os.Getenv("PEERDROP_DEBUG") != "" {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// NewSilentLogger returns a logger that discards everything. Tests use it
// to keep output quiet.
func NewSilentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
