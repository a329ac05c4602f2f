package middleware

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/rentpay/rentpay/internal/config"
	"github.com/rentpay/rentpay/internal/types"
)

// SentryMiddleware returns a middleware that captures errors and performance data
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryTenantContextMiddleware tags the Sentry scope with the caller once
// AuthenticateMiddleware has run.
func SentryTenantContextMiddleware(c *gin.Context) {
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		c.Next()
		return
	}
	ctx := c.Request.Context()
	if tenantID := types.GetTenantID(ctx); tenantID != "" {
		hub.Scope().SetTag("tenant_id", tenantID)
	}
	if role := types.GetRole(ctx); role != "" {
		hub.Scope().SetTag("role", string(role))
	}
	c.Next()
}
