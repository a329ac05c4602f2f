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

// AutopayHandler exposes recurring rent schedules to tenants.
type AutopayHandler struct {
	service service.RecurringScheduleService
	log     *logger.Logger
}

func NewAutopayHandler(service service.RecurringScheduleService, log *logger.Logger) *AutopayHandler {
	return &AutopayHandler{service: service, log: log}
}

// @Summary Set up auto-pay
// @Description Create a recurring schedule for a lease, replacing any active one
// @Tags Autopay
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param schedule body dto.CreateRecurringScheduleRequest true "Schedule"
// @Success 201 {object} dto.RecurringScheduleResponse
// @Router /autopay [post]
func (h *AutopayHandler) CreateSchedule(c *gin.Context) {
	var req dto.CreateRecurringScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	req.TenantID = types.GetTenantID(c.Request.Context())

	resp, err := h.service.CreateSchedule(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get auto-pay
// @Description With lease_id returns the active schedule for that lease, otherwise lists the caller's schedules
// @Tags Autopay
// @Produce json
// @Security ApiKeyAuth
// @Param lease_id query string false "Lease ID"
// @Success 200 {object} dto.RecurringScheduleResponse
// @Router /autopay [get]
func (h *AutopayHandler) GetSchedules(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := callerTenantID(c)

	if leaseID := c.Query("lease_id"); leaseID != "" {
		resp, err := h.service.GetActiveScheduleForLease(ctx, leaseID, tenantID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	filter := types.NewRecurringScheduleFilter()
	filter.TenantID = tenantID
	filter.ActiveOnly = c.Query("active_only") == "true"
	resp, err := h.service.ListSchedules(ctx, filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get an auto-pay schedule
// @Tags Autopay
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Schedule ID"
// @Success 200 {object} dto.RecurringScheduleResponse
// @Router /autopay/{id} [get]
func (h *AutopayHandler) GetSchedule(c *gin.Context) {
	resp, err := h.service.GetSchedule(c.Request.Context(), c.Param("id"), callerTenantID(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Update auto-pay
// @Tags Autopay
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Schedule ID"
// @Param schedule body dto.UpdateRecurringScheduleRequest true "Changes"
// @Success 200 {object} dto.RecurringScheduleResponse
// @Router /autopay/{id} [patch]
func (h *AutopayHandler) UpdateSchedule(c *gin.Context) {
	var req dto.UpdateRecurringScheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.UpdateSchedule(c.Request.Context(), c.Param("id"), callerTenantID(c), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Cancel auto-pay
// @Tags Autopay
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Schedule ID"
// @Success 200 {object} dto.RecurringScheduleResponse
// @Router /autopay/{id} [delete]
func (h *AutopayHandler) CancelSchedule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("schedule id is required").
			WithHint("Schedule ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CancelSchedule(c.Request.Context(), id, callerTenantID(c))
	if err != nil {
		c.Error(err)
		return
	}

	h.log.WithContext(c.Request.Context()).Infow("auto-pay cancelled", "schedule_id", id)
	c.JSON(http.StatusOK, resp)
}
