package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stratumhq/sitepay-api/internal/dto"
	"github.com/stratumhq/sitepay-api/internal/service"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
	"github.com/stratumhq/sitepay-api/pkg/response"
)

const dateLayout = "2006-01-02"

// LoanHandler exposes loan, repayment and postponement endpoints.
type LoanHandler struct {
	loans *service.LoanService
}

// NewLoanHandler constructs handler.
func NewLoanHandler(loans *service.LoanService) *LoanHandler {
	return &LoanHandler{loans: loans}
}

// Submit godoc
// @Summary Submit a loan for approval
// @Tags Loans
// @Accept json
// @Produce json
// @Param payload body dto.SubmitLoanRequest true "Loan payload"
// @Success 201 {object} response.Envelope
// @Router /loans [post]
func (h *LoanHandler) Submit(c *gin.Context) {
	var req dto.SubmitLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	firstDue, err := time.Parse(dateLayout, req.FirstInstallmentDate)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "firstInstallmentDate must be YYYY-MM-DD"))
		return
	}
	loan, err := h.loans.Submit(c.Request.Context(), req.EmployeeID, req.Principal, req.InstallmentCount, firstDue)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, loan)
}

// Get godoc
// @Summary Fetch one loan with its repayment schedule
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} response.Envelope
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *gin.Context) {
	loan, err := h.loans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan)
}

// Approve godoc
// @Summary Approve a pending loan at the caller's level
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} response.Envelope
// @Router /loans/{id}/approve [post]
func (h *LoanHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	loan, err := h.loans.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan)
}

// Reject godoc
// @Summary Reject a pending loan with a reason
// @Tags Loans
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param payload body dto.RejectionRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /loans/{id}/reject [post]
func (h *LoanHandler) Reject(c *gin.Context) {
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
	loan, err := h.loans.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan)
}

// RecordPayment godoc
// @Summary Record a repayment against a loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param payload body dto.RecordPaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Router /loans/{id}/payments [post]
func (h *LoanHandler) RecordPayment(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	loan, err := h.loans.RecordPayment(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan)
}

// Postpone godoc
// @Summary Request postponement of one unpaid installment
// @Tags Loans
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param payload body dto.PostponeInstallmentRequest true "Postponement payload"
// @Success 201 {object} response.Envelope
// @Router /loans/{id}/postponements [post]
func (h *LoanHandler) Postpone(c *gin.Context) {
	var req dto.PostponeInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	newDue, err := time.Parse(dateLayout, req.NewDueDate)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "newDueDate must be YYYY-MM-DD"))
		return
	}
	request, err := h.loans.Postpone(c.Request.Context(), c.Param("id"), req.InstallmentID, newDue, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// ApprovePostponement godoc
// @Summary Approve a pending postponement at the caller's level
// @Tags Loans
// @Produce json
// @Param id path string true "Postponement ID"
// @Success 200 {object} response.Envelope
// @Router /loan-postponements/{id}/approve [post]
func (h *LoanHandler) ApprovePostponement(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.loans.DecidePostponement(c.Request.Context(), c.Param("id"), claims.UserID, "", true)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request)
}

// RejectPostponement godoc
// @Summary Reject a pending postponement with a reason
// @Tags Loans
// @Accept json
// @Produce json
// @Param id path string true "Postponement ID"
// @Param payload body dto.RejectionRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /loan-postponements/{id}/reject [post]
func (h *LoanHandler) RejectPostponement(c *gin.Context) {
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
	request, err := h.loans.DecidePostponement(c.Request.Context(), c.Param("id"), claims.UserID, req.Reason, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request)
}
