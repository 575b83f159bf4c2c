package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stratumhq/sitepay-api/internal/dto"
	"github.com/stratumhq/sitepay-api/internal/models"
	"github.com/stratumhq/sitepay-api/internal/service"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
	"github.com/stratumhq/sitepay-api/pkg/response"
)

// ApprovalHandler exposes approval chain configuration endpoints.
type ApprovalHandler struct {
	chains *service.ChainAdminService
}

// NewApprovalHandler constructs handler.
func NewApprovalHandler(chains *service.ChainAdminService) *ApprovalHandler {
	return &ApprovalHandler{chains: chains}
}

// CreateLevel godoc
// @Summary Configure one approval chain level
// @Tags Approvals
// @Accept json
// @Produce json
// @Param payload body dto.CreateChainLevelRequest true "Chain level payload"
// @Success 201 {object} response.Envelope
// @Router /approval-chains [post]
func (h *ApprovalHandler) CreateLevel(c *gin.Context) {
	var req dto.CreateChainLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	def, err := h.chains.CreateLevel(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, def)
}

// List godoc
// @Summary List approval chain levels
// @Tags Approvals
// @Produce json
// @Param requestType query string false "Filter by request type"
// @Param scopeKind query string false "Filter by scope kind"
// @Param scopeId query string false "Filter by scope id"
// @Success 200 {object} response.Envelope
// @Router /approval-chains [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	query := dto.ChainQuery{
		RequestType: models.RequestType(c.Query("requestType")),
		ScopeKind:   models.ScopeKind(c.Query("scopeKind")),
		ScopeID:     c.Query("scopeId"),
	}
	defs, err := h.chains.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, defs)
}
