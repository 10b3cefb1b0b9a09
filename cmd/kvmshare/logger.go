package main

import (
	"log/slog"
	"os"

	"github.com/kvmshare/kvmshare/internal/logging"
)

func setupLogger(format, level string, appName string) *slog.Logger {
	l := logging.New(format, logging.LevelFromString(level), os.Stderr).With("app", appName)
	logging.Set(l)
	return l
}
