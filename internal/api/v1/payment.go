package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rentpay/rentpay/internal/api/dto"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/service"
	"github.com/rentpay/rentpay/internal/types"
)

type PaymentHandler struct {
	service service.PaymentSettlementService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentSettlementService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, log: log}
}

// @Summary Pay rent
// @Description Charge a saved payment method for one lease period
// @Tags Payments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param payment body dto.InitiatePaymentRequest true "Payment"
// @Success 201 {object} dto.PaymentResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 402 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /payments [post]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req dto.InitiatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	req.TenantID = types.GetTenantID(c.Request.Context())

	resp, err := h.service.InitiateOneTimePayment(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary List payments
// @Tags Payments
// @Produce json
// @Security ApiKeyAuth
// @Param filter query types.RentPaymentFilter false "Filter"
// @Success 200 {object} dto.ListPaymentsResponse
// @Router /payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	filter := types.NewRentPaymentFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}
	if tenantID := callerTenantID(c); tenantID != "" {
		filter.TenantID = tenantID
	}

	resp, err := h.service.ListPayments(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get a payment
// @Tags Payments
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	resp, err := h.service.GetPaymentStatus(c.Request.Context(), c.Param("id"), callerTenantID(c), false)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Reconcile a payment
// @Description Refresh the payment status from the gateway
// @Tags Payments
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} dto.PaymentResponse
// @Router /payments/{id}/reconcile [post]
func (h *PaymentHandler) ReconcilePayment(c *gin.Context) {
	resp, err := h.service.GetPaymentStatus(c.Request.Context(), c.Param("id"), callerTenantID(c), true)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Refund a payment
// @Tags Payments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Payment ID"
// @Param refund body dto.RefundPaymentRequest false "Refund"
// @Success 200 {object} dto.PaymentResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /payments/{id}/refund [post]
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	var req dto.RefundPaymentRequest
	// an empty body refunds the full amount
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.RefundPayment(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.log.WithContext(c.Request.Context()).Errorw("refund failed", "payment_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
