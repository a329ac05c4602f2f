package logger

import (
	"context"

	"github.com/rentpay/rentpay/internal/config"
	"github.com/rentpay/rentpay/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger passed to every component. Keyed entries
// (the ...w methods) are mirrored to Fluentd when a sink is configured.
type Logger struct {
	*zap.SugaredLogger
	sink *fluentSink
}

func NewLogger(cfg *config.Configuration) (*Logger, error) {
	zapLogger, err := zapConfig(cfg.Logging.Level).Build()
	if err != nil {
		return nil, err
	}
	sugar := zapLogger.Sugar()

	return &Logger{
		SugaredLogger: sugar,
		sink:          newFluentSink(cfg, sugar),
	}, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func zapConfig(level types.LogLevel) zap.Config {
	cfg := zap.NewProductionConfig()
	if level == types.LogLevelDebug {
		cfg = zap.NewDevelopmentConfig()
	}

	switch level {
	case types.LogLevelWarn:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case types.LogLevelError:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	return cfg
}

// WithContext returns a child logger carrying the request and caller ids
// found on ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []interface{}{
		"request_id", types.GetRequestID(ctx),
		"user_id", types.GetUserID(ctx),
	}
	if role := types.GetRole(ctx); role != "" {
		fields = append(fields, "role", role)
	}
	if tenantID := types.GetTenantID(ctx); tenantID != "" {
		fields = append(fields, "tenant_id", tenantID)
	}
	return l.With(fields...)
}

func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(keysAndValues...),
		sink:          l.sink.with(keysAndValues...),
	}
}

func (l *Logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
	l.sink.post(zapcore.DebugLevel, msg, keysAndValues)
}

func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
	l.sink.post(zapcore.InfoLevel, msg, keysAndValues)
}

func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
	l.sink.post(zapcore.WarnLevel, msg, keysAndValues)
}

func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
	l.sink.post(zapcore.ErrorLevel, msg, keysAndValues)
}

func (l *Logger) Fatalw(msg string, keysAndValues ...interface{}) {
	l.sink.post(zapcore.FatalLevel, msg, keysAndValues)
	l.SugaredLogger.Fatalw(msg, keysAndValues...)
}
