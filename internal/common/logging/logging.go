package logging

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
)

func NewProgramAttr() slog.Attr {
	version := "(devel)"
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		version = buildInfo.Main.Version
	}

	hostname, _ := os.Hostname()

	return slog.Group("program",
		slog.Int("pid", os.Getpid()),
		slog.String("machine", hostname),
		slog.String("version", version),
	)
}

func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.Level(-1), fmt.Errorf("invalid log level: %s", levelStr)
	}
}
