package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/vailabel/vailabel-studio-sub002/internal/config"
)

// SlogAdapter routes asynq's internal logging into slog.
type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter(l *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: l.With(slog.String("component", "asynq"))}
}

func (a *SlogAdapter) log(level slog.Level, args ...any) {
	a.logger.Log(context.Background(), level, fmt.Sprint(args...))
}

func (a *SlogAdapter) Debug(args ...any) { a.log(slog.LevelDebug, args...) }
func (a *SlogAdapter) Info(args ...any)  { a.log(slog.LevelInfo, args...) }
func (a *SlogAdapter) Warn(args ...any)  { a.log(slog.LevelWarn, args...) }
func (a *SlogAdapter) Error(args ...any) { a.log(slog.LevelError, args...) }

func (a *SlogAdapter) Fatal(args ...any) {
	a.log(slog.LevelError, args...)
	os.Exit(1)
}

func asynqLogLevel() asynq.LogLevel {
	switch config.LogLevel() {
	case slog.LevelDebug:
		return asynq.DebugLevel
	case slog.LevelWarn:
		return asynq.WarnLevel
	case slog.LevelError:
		return asynq.ErrorLevel
	}
	return asynq.InfoLevel
}
