package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stratumhq/sitepay-api/internal/dto"
	"github.com/stratumhq/sitepay-api/internal/models"
	"github.com/stratumhq/sitepay-api/internal/service"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
	"github.com/stratumhq/sitepay-api/pkg/response"
)

// PayrollHandler exposes salary calculation, approval and export endpoints.
type PayrollHandler struct {
	payroll  *service.PayrollService
	runs     *service.PayrollRunService
	payslips *service.PayslipService
}

// NewPayrollHandler constructs handler.
func NewPayrollHandler(payroll *service.PayrollService, runs *service.PayrollRunService, payslips *service.PayslipService) *PayrollHandler {
	return &PayrollHandler{payroll: payroll, runs: runs, payslips: payslips}
}

// Calculate godoc
// @Summary Calculate one employee's salary for a period
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body dto.CalculatePayrollRequest true "Calculation payload"
// @Success 201 {object} response.Envelope
// @Router /payroll/calculate [post]
func (h *PayrollHandler) Calculate(c *gin.Context) {
	var req dto.CalculatePayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	period, err := models.ParsePayPeriod(req.Period)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid period"))
		return
	}
	header, err := h.payroll.Calculate(c.Request.Context(), req.EmployeeID, period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, header)
}

// Run godoc
// @Summary Run payroll for every active employee
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body dto.RunPayrollRequest true "Run payload"
// @Success 202 {object} response.Envelope
// @Router /payroll/run [post]
func (h *PayrollHandler) Run(c *gin.Context) {
	var req dto.RunPayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	period, err := models.ParsePayPeriod(req.Period)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid period"))
		return
	}
	summary, err := h.runs.Run(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, summary)
}

// Get godoc
// @Summary Fetch one salary header with its component lines
// @Tags Payroll
// @Produce json
// @Param id path string true "Salary header ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/{id} [get]
func (h *PayrollHandler) Get(c *gin.Context) {
	header, err := h.payroll.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, header)
}

// Approve godoc
// @Summary Approve a pending salary at the caller's level
// @Tags Payroll
// @Accept json
// @Produce json
// @Param id path string true "Salary header ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/{id}/approve [post]
func (h *PayrollHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	header, err := h.payroll.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, header)
}

// Reject godoc
// @Summary Reject a pending salary with a reason
// @Tags Payroll
// @Accept json
// @Produce json
// @Param id path string true "Salary header ID"
// @Param payload body dto.RejectionRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /payroll/{id}/reject [post]
func (h *PayrollHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Reason == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required"))
		return
	}
	header, err := h.payroll.RejectHeader(c.Request.Context(), c.Param("id"), claims.UserID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, header)
}

// Register godoc
// @Summary Monthly register, latest version per employee
// @Tags Payroll
// @Produce json
// @Param period query string true "Pay period YYYY-MM"
// @Success 200 {object} response.Envelope
// @Router /payroll/register [get]
func (h *PayrollHandler) Register(c *gin.Context) {
	period, err := models.ParsePayPeriod(c.Query("period"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid period"))
		return
	}
	headers, err := h.payroll.Register(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, headers)
}

// RegisterCSV godoc
// @Summary Monthly register as CSV
// @Tags Payroll
// @Produce text/csv
// @Param period query string true "Pay period YYYY-MM"
// @Success 200 {file} file
// @Router /payroll/register.csv [get]
func (h *PayrollHandler) RegisterCSV(c *gin.Context) {
	period, err := models.ParsePayPeriod(c.Query("period"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid period"))
		return
	}
	data, err := h.payslips.RenderRegisterCSV(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("payroll-register-%s.csv", period)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// Payslip godoc
// @Summary Payslip PDF for an approved salary
// @Tags Payroll
// @Produce application/pdf
// @Param id path string true "Salary header ID"
// @Success 200 {file} file
// @Router /payroll/{id}/payslip.pdf [get]
func (h *PayrollHandler) Payslip(c *gin.Context) {
	data, err := h.payslips.RenderPayslip(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("payslip-%s.pdf", c.Param("id"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// Pending godoc
// @Summary Salaries awaiting the caller's approval
// @Tags Payroll
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payroll/pending [get]
func (h *PayrollHandler) Pending(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	headers, err := h.payroll.PendingForApprover(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, headers)
}
