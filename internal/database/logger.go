package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils"

	"github.com/vailabel/vailabel-studio-sub002/internal/config"
)

// SlogGormLogger routes gorm's statement log into slog. DEBUG logs every
// statement, INFO only slow ones and errors.
type SlogGormLogger struct {
	Logger        *slog.Logger
	LogLevel      logger.LogLevel
	SlowThreshold time.Duration
}

func NewSlogGormLogger(l *slog.Logger) *SlogGormLogger {
	if l == nil {
		l = slog.Default()
	}

	gormLevel := logger.Warn
	switch config.LogLevel() {
	case slog.LevelDebug:
		gormLevel = logger.Info
	case slog.LevelError:
		gormLevel = logger.Error
	}

	return &SlogGormLogger{
		Logger:        l.With(slog.String("component", "gorm")),
		LogLevel:      gormLevel,
		SlowThreshold: 200 * time.Millisecond,
	}
}

func (l *SlogGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	nl := *l
	nl.LogLevel = level
	return &nl
}

func (l *SlogGormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.LogLevel >= logger.Info {
		l.Logger.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *SlogGormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.LogLevel >= logger.Warn {
		l.Logger.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *SlogGormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.LogLevel >= logger.Error {
		l.Logger.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *SlogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	attrs := func() []any {
		sql, rows := fc()
		return []any{
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("latency", elapsed),
			slog.String("source", utils.FileWithLineNum()),
		}
	}

	switch {
	case err != nil && l.LogLevel >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		l.Logger.ErrorContext(ctx, "sql_error", append(attrs(), slog.String("err", err.Error()))...)
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold && l.LogLevel >= logger.Warn:
		l.Logger.WarnContext(ctx, "sql_slow", append(attrs(), slog.Duration("slow_threshold", l.SlowThreshold))...)
	case l.LogLevel >= logger.Info:
		l.Logger.DebugContext(ctx, "sql", attrs()...)
	}
}
