package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

const gormSlowQueryThreshold = 200 * time.Millisecond

// gormLogger adapts our Logger to gorm's logger.Interface
type gormLogger struct {
	logger *Logger
	level  gormlogger.LogLevel
}

// GetGormLogger returns a gorm logger. Statements are logged at debug when
// the level is Info, slow statements at warn, failures at error. A missing
// record is not a failure.
func (l *Logger) GetGormLogger(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{logger: l, level: level}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{logger: g.logger, level: level}
}

func (g *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.logger.WithContext(ctx).Infow(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.logger.WithContext(ctx).Warnw(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.logger.WithContext(ctx).Errorw(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		query, rows := fc()
		g.logger.WithContext(ctx).Errorw("database query failed",
			"sql", query,
			"rows", rows,
			"elapsed", elapsed,
			"error", err)
	case elapsed > gormSlowQueryThreshold && g.level >= gormlogger.Warn:
		query, rows := fc()
		g.logger.WithContext(ctx).Warnw("slow database query",
			"sql", query,
			"rows", rows,
			"elapsed", elapsed)
	case g.level >= gormlogger.Info:
		query, rows := fc()
		g.logger.WithContext(ctx).Debugw("database query",
			"sql", query,
			"rows", rows,
			"elapsed", elapsed)
	}
}
