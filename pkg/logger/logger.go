package logger

import (
	"os"
	"path/filepath"

	"github.com/iamvkosarev/legal-ai-assistant/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a logger from the logging config. The terminal front-end owns
// stdout, so the default output is a rotated file.
func NewLogger(cfg config.Logging) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(
			&logrus.JSONFormatter{
				TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
				FieldMap: logrus.FieldMap{
					logrus.FieldKeyTime:  "timestamp",
					logrus.FieldKeyLevel: "level",
					logrus.FieldKeyMsg:   "message",
				},
			},
		)
	} else {
		logger.SetFormatter(
			&logrus.TextFormatter{
				TimestampFormat: "2006-01-02 15:04:05",
				FullTimestamp:   true,
			},
		)
	}

	switch cfg.Output {
	case "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), 0755); err != nil {
			return nil, err
		}
		logger.SetOutput(
			&lumberjack.Logger{
				Filename:   cfg.File.Path,
				MaxSize:    cfg.File.MaxSize,
				MaxBackups: cfg.File.MaxBackups,
				MaxAge:     cfg.File.MaxAge,
				Compress:   true,
			},
		)
	}

	return logger, nil
}

// WithSession adds the session fields shared by chat log lines.
func WithSession(logger *logrus.Logger, sessionID string, mode string) *logrus.Entry {
	return logger.WithFields(
		logrus.Fields{
			"session_id": sessionID,
			"mode":       mode,
		},
	)
}
