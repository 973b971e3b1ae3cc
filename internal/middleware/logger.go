// internal/middleware/logger.go
package middleware

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger. level is a logrus level name (invalid
// names fall back to info). When logFile is set, output is also written to a
// rotating file.
func NewLogger(level, logFile string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if logFile != "" {
		logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // MB
			MaxAge:     14, // days
			MaxBackups: 5,
			Compress:   true,
		}))
	}
	return logger
}
