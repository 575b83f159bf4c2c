package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratumhq/sitepay-api/internal/middleware"
	"github.com/stratumhq/sitepay-api/internal/models"
	"github.com/stratumhq/sitepay-api/internal/service"
)

type stubSalaryStore struct {
	header *models.SalaryHeader
}

func (s *stubSalaryStore) CreateWithDetails(context.Context, *models.SalaryHeader) error { return nil }

func (s *stubSalaryStore) GetByID(_ context.Context, id string) (*models.SalaryHeader, error) {
	if s.header == nil || s.header.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.header
	return &copied, nil
}

func (s *stubSalaryStore) GetLatest(context.Context, string, models.PayPeriod) (*models.SalaryHeader, error) {
	return nil, sql.ErrNoRows
}

func (s *stubSalaryStore) ListByPeriod(context.Context, models.PayPeriod) ([]models.SalaryHeader, error) {
	return nil, nil
}

func (s *stubSalaryStore) ListPendingForApprover(context.Context, string) ([]models.SalaryHeader, error) {
	return nil, nil
}

func (s *stubSalaryStore) UpdateApprovalState(context.Context, string, int, models.ApprovalState) error {
	return nil
}

func newPayrollTestHandler(store *stubSalaryStore) *PayrollHandler {
	payroll := service.NewPayrollService(nil, nil, nil, store, nil, nil, nil, nil, nil, nil,
		service.PayrollServiceConfig{})
	return NewPayrollHandler(payroll, nil, nil)
}

func TestPayrollHandlerCalculateInvalidPeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPayrollTestHandler(&stubSalaryStore{})

	payload, _ := json.Marshal(map[string]string{"employeeId": "emp-1", "period": "2025-13"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payroll/calculate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Calculate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayrollHandlerCalculateMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPayrollTestHandler(&stubSalaryStore{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payroll/calculate", bytes.NewBufferString(`{"employeeId":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Calculate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayrollHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPayrollTestHandler(&stubSalaryStore{
		header: &models.SalaryHeader{
			ID:         "hdr-1",
			EmployeeID: "emp-1",
			Period:     models.PayPeriod{Year: 2025, Month: time.April},
			Version:    1,
			NetSalary:  decimal.NewFromInt(3000),
			ApprovalState: models.ApprovalState{
				Status: models.ApprovalStatusApproved,
			},
		},
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/payroll/hdr-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "hdr-1"}}

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.SalaryHeader `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "hdr-1", envelope.Data.ID)
	assert.Equal(t, "2025-04", envelope.Data.Period.String())
}

func TestPayrollHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPayrollTestHandler(&stubSalaryStore{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/payroll/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPayrollHandlerApproveWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPayrollTestHandler(&stubSalaryStore{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payroll/hdr-1/approve", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "hdr-1"}}

	handler.Approve(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPayrollHandlerRejectRequiresReason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPayrollTestHandler(&stubSalaryStore{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payroll/hdr-1/reject", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "hdr-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "mgr-1", Role: models.RoleHRManager})

	handler.Reject(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
