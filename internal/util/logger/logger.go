package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"tenantbase-backend/internal/config"
)

var (
	once   sync.Once
	logger *slog.Logger
)

func GetLogger() *slog.Logger {
	once.Do(func() {
		env := config.GetEnv()

		stdoutHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLevel(env.LogLevel),
		})

		var fileWriter *FileWriter
		if env.LogFile != "" {
			writer, err := NewFileWriter(env.LogFile)
			if err != nil {
				// fall back to stdout only
				slog.New(stdoutHandler).Error("Failed to open log file", "path", env.LogFile, "error", err)
			} else {
				fileWriter = writer
			}
		}

		logger = slog.New(NewMultiHandler(stdoutHandler, fileWriter))
	})

	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
