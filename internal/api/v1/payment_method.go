package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rentpay/rentpay/internal/api/dto"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/service"
	"github.com/rentpay/rentpay/internal/types"
)

type PaymentMethodHandler struct {
	service service.PaymentMethodService
	log     *logger.Logger
}

func NewPaymentMethodHandler(service service.PaymentMethodService, log *logger.Logger) *PaymentMethodHandler {
	return &PaymentMethodHandler{service: service, log: log}
}

// @Summary Save a payment method
// @Description Register a card or bank account already tokenized with the gateway
// @Tags Payment Methods
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param payment_method body dto.CreatePaymentMethodRequest true "Payment method"
// @Success 201 {object} dto.PaymentMethodResponse
// @Router /payment-methods [post]
func (h *PaymentMethodHandler) CreatePaymentMethod(c *gin.Context) {
	var req dto.CreatePaymentMethodRequest
	if !bindJSON(c, &req) {
		return
	}
	req.TenantID = types.GetTenantID(c.Request.Context())

	resp, err := h.service.CreatePaymentMethod(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary List payment methods
// @Tags Payment Methods
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.ListPaymentMethodsResponse
// @Router /payment-methods [get]
func (h *PaymentMethodHandler) ListPaymentMethods(c *gin.Context) {
	resp, err := h.service.ListPaymentMethods(c.Request.Context(), types.GetTenantID(c.Request.Context()))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get a payment method
// @Tags Payment Methods
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Payment method ID"
// @Success 200 {object} dto.PaymentMethodResponse
// @Router /payment-methods/{id} [get]
func (h *PaymentMethodHandler) GetPaymentMethod(c *gin.Context) {
	resp, err := h.service.GetPaymentMethod(c.Request.Context(), c.Param("id"), types.GetTenantID(c.Request.Context()))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Update a payment method
// @Tags Payment Methods
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Payment method ID"
// @Param payment_method body dto.UpdatePaymentMethodRequest true "Changes"
// @Success 200 {object} dto.PaymentMethodResponse
// @Router /payment-methods/{id} [patch]
func (h *PaymentMethodHandler) UpdatePaymentMethod(c *gin.Context) {
	var req dto.UpdatePaymentMethodRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.UpdatePaymentMethod(c.Request.Context(), c.Param("id"), types.GetTenantID(c.Request.Context()), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Make a payment method the default
// @Tags Payment Methods
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Payment method ID"
// @Success 200 {object} dto.PaymentMethodResponse
// @Router /payment-methods/{id}/default [post]
func (h *PaymentMethodHandler) SetDefault(c *gin.Context) {
	resp, err := h.service.SetDefault(c.Request.Context(), c.Param("id"), types.GetTenantID(c.Request.Context()))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Delete a payment method
// @Tags Payment Methods
// @Security ApiKeyAuth
// @Param id path string true "Payment method ID"
// @Success 204
// @Failure 422 {object} ierr.ErrorResponse
// @Router /payment-methods/{id} [delete]
func (h *PaymentMethodHandler) DeletePaymentMethod(c *gin.Context) {
	if err := h.service.DeletePaymentMethod(c.Request.Context(), c.Param("id"), types.GetTenantID(c.Request.Context())); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
