package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/service"
	"github.com/rentpay/rentpay/internal/types"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives gateway notifications. Requests are authenticated
// by the provider signature, not by a bearer token.
type WebhookHandler struct {
	service service.GatewayWebhookService
	log     *logger.Logger
}

func NewWebhookHandler(service service.GatewayWebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, log: log}
}

// @Summary Receive a gateway webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param provider path string true "Gateway provider" Enums(cybersource, stripe)
// @Success 200 {object} map[string]interface{}
// @Router /webhooks/{provider} [post]
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	provider := types.GatewayProvider(c.Param("provider"))
	if err := provider.Validate(); err != nil {
		c.Error(err)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read webhook body").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), provider, payload, c.Request.Header); err != nil {
		h.log.WithContext(c.Request.Context()).Warnw("webhook rejected",
			"provider", provider,
			"error", err,
		)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
