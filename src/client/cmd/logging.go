package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/apimgr/idealista/src/client/paths"
)

var loggerOnce sync.Once

// logConfig holds logging configuration.
type logConfig struct {
	Level    string // debug, info, warn, error (default: warn)
	File     string // log file path (empty = {log_dir}/cli.log)
	MaxSize  int    // max log file size in MB (default: 10)
	MaxFiles int    // max rotated files to keep (default: 5)
}

// getLogConfig returns logging configuration from viper. Only valid after
// initConfig has loaded the config file.
func getLogConfig() logConfig {
	return logConfig{
		Level:    viper.GetString("logging.level"),
		File:     viper.GetString("logging.file"),
		MaxSize:  viper.GetInt("logging.max_size"),
		MaxFiles: viper.GetInt("logging.max_files"),
	}
}

// initLogging sets up the rotating JSON logger and installs it as the slog
// default. Every record carries a per-invocation session id so one CLI
// run's HTTP attempts can be correlated in the log. Runs after the config
// file is read, so the logging.* settings from cli.yml take effect.
func initLogging() error {
	var initErr error
	loggerOnce.Do(func() {
		cfg := getLogConfig()

		logPath := cfg.File
		if logPath == "" {
			logPath = paths.LogFile()
		}
		if len(logPath) > 0 && logPath[0] == '~' {
			home, _ := os.UserHomeDir()
			logPath = filepath.Join(home, logPath[1:])
		}

		if err := paths.EnsureFile(logPath); err != nil {
			initErr = fmt.Errorf("create log dir: %w", err)
			return
		}

		maxSize := cfg.MaxSize
		if maxSize == 0 {
			maxSize = 10
		}
		maxFiles := cfg.MaxFiles
		if maxFiles == 0 {
			maxFiles = 5
		}

		rotatingWriter := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    maxSize, // MB
			MaxBackups: maxFiles,
			MaxAge:     30, // days
			Compress:   true,
		}

		handler := slog.NewJSONHandler(rotatingWriter, &slog.HandlerOptions{Level: logLevel(cfg.Level)})
		slog.SetDefault(slog.New(handler).With("session", uuid.NewString()))
	})
	return initErr
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
