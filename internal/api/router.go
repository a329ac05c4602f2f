package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rentpay/rentpay/internal/api/cron"
	v1 "github.com/rentpay/rentpay/internal/api/v1"
	"github.com/rentpay/rentpay/internal/auth"
	"github.com/rentpay/rentpay/internal/config"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/rest/middleware"
	"github.com/rentpay/rentpay/internal/types"
)

type Handlers struct {
	Payment       *v1.PaymentHandler
	Autopay       *v1.AutopayHandler
	PaymentMethod *v1.PaymentMethodHandler
	Webhook       *v1.WebhookHandler
	CronRecurring *cron.RecurringPaymentsCronHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger, authProvider auth.Provider) *gin.Engine {
	if cfg.Logging.Level != types.LogLevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.RecoveryWithWriter(log.GetGinLogger()),
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.LoggingMiddleware(log),
		middleware.ErrorHandler(log),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := router.Group("/v1")
	{
		// gateway signatures authenticate these
		public.POST("/webhooks/:provider", handlers.Webhook.HandleWebhook)
	}

	private := router.Group("/v1",
		middleware.AuthenticateMiddleware(authProvider, log),
		middleware.SentryTenantContextMiddleware,
	)

	payments := private.Group("/payments")
	{
		payments.POST("", middleware.RequireRole(types.RoleTenant), handlers.Payment.CreatePayment)
		payments.GET("", handlers.Payment.ListPayments)
		payments.GET("/:id", handlers.Payment.GetPayment)
		payments.POST("/:id/reconcile", handlers.Payment.ReconcilePayment)
		payments.POST("/:id/refund", middleware.RequireRole(types.RoleAdmin), handlers.Payment.RefundPayment)
	}

	autopay := private.Group("/autopay")
	{
		autopay.POST("", middleware.RequireRole(types.RoleTenant), handlers.Autopay.CreateSchedule)
		autopay.GET("", handlers.Autopay.GetSchedules)
		autopay.GET("/:id", handlers.Autopay.GetSchedule)
		autopay.PATCH("/:id", handlers.Autopay.UpdateSchedule)
		autopay.DELETE("/:id", handlers.Autopay.CancelSchedule)
	}

	paymentMethods := private.Group("/payment-methods", middleware.RequireRole(types.RoleTenant))
	{
		paymentMethods.POST("", handlers.PaymentMethod.CreatePaymentMethod)
		paymentMethods.GET("", handlers.PaymentMethod.ListPaymentMethods)
		paymentMethods.GET("/:id", handlers.PaymentMethod.GetPaymentMethod)
		paymentMethods.PATCH("/:id", handlers.PaymentMethod.UpdatePaymentMethod)
		paymentMethods.POST("/:id/default", handlers.PaymentMethod.SetDefault)
		paymentMethods.DELETE("/:id", handlers.PaymentMethod.DeletePaymentMethod)
	}

	cronGroup := private.Group("/cron/recurring-payments", middleware.RequireRole(types.RoleAdmin))
	{
		cronGroup.POST("/run", handlers.CronRecurring.Run)
		cronGroup.POST("/schedules/:id/process", handlers.CronRecurring.ProcessSchedule)
		cronGroup.GET("/status", handlers.CronRecurring.Status)
	}

	return router
}
