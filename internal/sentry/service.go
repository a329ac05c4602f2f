package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rentpay/rentpay/internal/config"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/types"
)

// Service reports errors and spans to Sentry. A disabled service is a no-op so
// callers never need to check configuration themselves.
type Service struct {
	cfg    *config.Configuration
	logger *logger.Logger
}

// NewSentryService initialises the global Sentry client when enabled.
func NewSentryService(cfg *config.Configuration, log *logger.Logger) *Service {
	s := &Service{cfg: cfg, logger: log}
	if !cfg.Sentry.Enabled || cfg.Sentry.DSN == "" {
		return s
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		SampleRate:       cfg.Sentry.SampleRate,
		EnableTracing:    true,
		TracesSampleRate: cfg.Sentry.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		log.Warnw("failed to initialise sentry, reporting disabled", "error", err)
		cfg.Sentry.Enabled = false
	}
	return s
}

// NewNoopService returns a service that never reports.
func NewNoopService() *Service {
	return &Service{cfg: &config.Configuration{}, logger: logger.NewNopLogger()}
}

func (s *Service) IsEnabled() bool {
	return s != nil && s.cfg != nil && s.cfg.Sentry.Enabled
}

// CaptureException reports err.
func (s *Service) CaptureException(err error) {
	if !s.IsEnabled() || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CaptureExceptionWithContext reports err tagged with the request scope of ctx
// and the given tags.
func (s *Service) CaptureExceptionWithContext(ctx context.Context, err error, tags map[string]string) {
	if !s.IsEnabled() || err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if requestID := types.GetRequestID(ctx); requestID != "" {
			scope.SetTag("request_id", requestID)
		}
		if userID := types.GetUserID(ctx); userID != "" {
			scope.SetUser(sentry.User{ID: userID})
		}
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// StartMonitoringSpan starts a span named operation. It returns a nil span and
// the original context when reporting is disabled.
func (s *Service) StartMonitoringSpan(ctx context.Context, operation string, data map[string]interface{}) (*sentry.Span, context.Context) {
	if !s.IsEnabled() {
		return nil, ctx
	}
	span := sentry.StartSpan(ctx, operation)
	for k, v := range data {
		span.SetData(k, v)
	}
	return span, span.Context()
}

// Flush waits for buffered events on shutdown.
func (s *Service) Flush(timeout time.Duration) {
	if !s.IsEnabled() {
		return
	}
	sentry.Flush(timeout)
}
