package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Fields aliases logrus.Fields so callers avoid the extra import.
type Fields = logrus.Fields

var std = logrus.New()

// Init configures the process logger: level from LOG_LEVEL, JSON output to
// stdout plus a size-rotated file when logPath is non-empty.
func Init(logPath string) {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	std.SetLevel(lvl)

	std.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	out := io.Writer(os.Stdout)
	if logPath != "" {
		rotated := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotated)
	}
	std.SetOutput(out)
}

// L returns the shared logger.
func L() *logrus.Logger { return std }

// WithModule tags entries with the owning subsystem.
func WithModule(name string) *logrus.Entry {
	return std.WithField("module", name)
}
