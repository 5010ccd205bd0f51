package config

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// LogWriter is the writer used for application, access and database logs.
var LogWriter io.Writer = os.Stdout

var logger = newLogger(os.Stdout)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	l.SetOutput(w)
	return l
}

// Logger returns the shared structured logger.
func Logger() *logrus.Logger {
	return logger
}

// LogFilePath returns the path to the backend log file.
func LogFilePath() string {
	return filepath.Join("logs", "grants-api.log")
}

// InitLogging prepares the log file and points the standard and structured
// loggers at stdout plus the file.
func InitLogging() (*os.File, io.Writer) {
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	logPath := filepath.Dir(LogFilePath())
	if err := os.MkdirAll(logPath, os.ModePerm); err != nil {
		logger.WithError(err).Warn("failed to create logs directory")
	}

	logFile, err := os.OpenFile(LogFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.WithError(err).Warn("failed to open log file")
		LogWriter = os.Stdout
		log.SetOutput(LogWriter)
		logger.SetOutput(LogWriter)
		return nil, LogWriter
	}

	LogWriter = io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(LogWriter)
	logger.SetOutput(LogWriter)
	return logFile, LogWriter
}

// LogError records a failed operation with the module and function it
// happened in.
func LogError(module, funcName string, fields logrus.Fields, err error) {
	entry := logger.WithFields(logrus.Fields{
		"module":   module,
		"funcName": funcName,
	})
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(err.Error())
}
