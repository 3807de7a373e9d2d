// Package logger builds the application-wide logrus instance.
package logger

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"intenserp-api/internal/config"
)

// New creates a logger configured from the logging.* config keys.
func New(cfg *config.Store) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.GetString("logging.level", "info"))
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	if cfg.GetString("logging.format", "text") == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
		})
	}

	switch cfg.GetString("logging.output", "stdout") {
	case "file":
		path := cfg.GetString("logging.file.path", "logs/intenserp.log")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		log.SetOutput(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.GetInt("logging.file.max_size", 20),
			MaxBackups: cfg.GetInt("logging.file.max_backups", 3),
			MaxAge:     cfg.GetInt("logging.file.max_age", 14),
			Compress:   true,
		})
	default:
		log.SetOutput(os.Stdout)
	}

	return log, nil
}
