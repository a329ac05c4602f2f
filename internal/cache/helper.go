package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// UnmarshalCacheValue converts a cache value to T. The in-memory cache stores
// objects; Redis stores JSON strings.
func UnmarshalCacheValue[T any](value interface{}) (*T, bool) {
	if value == nil {
		return nil, false
	}

	if typed, ok := value.(*T); ok {
		return typed, true
	}

	if str, ok := value.(string); ok {
		var result T
		if err := json.Unmarshal([]byte(str), &result); err == nil {
			return &result, true
		}
	}

	return nil, false
}

// StartCacheSpan creates a span for a cache operation. Returns nil when the
// context carries no Sentry transaction.
func StartCacheSpan(ctx context.Context, cache, operation string, params map[string]interface{}) *sentry.Span {
	if sentry.TransactionFromContext(ctx) == nil {
		return nil
	}

	span := sentry.StartSpan(ctx, "cache."+cache+"."+operation)
	span.Description = "cache." + cache + "." + operation
	span.Op = "db.cache"
	span.SetData("cache", cache)
	span.SetData("operation", operation)
	for k, v := range params {
		span.SetData(k, v)
	}
	return span
}

func FinishSpan(span *sentry.Span) {
	if span != nil {
		span.Finish()
	}
}

func SetSpanError(span *sentry.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.Status = sentry.SpanStatusInternalError
	span.SetData("error", err.Error())
}

func SetSpanSuccess(span *sentry.Span) {
	if span != nil {
		span.Status = sentry.SpanStatusOK
	}
}
