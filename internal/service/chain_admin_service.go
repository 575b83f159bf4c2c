package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stratumhq/sitepay-api/internal/dto"
	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
)

type chainAdminStore interface {
	Create(ctx context.Context, def *models.ApprovalChainDefinition) error
	List(ctx context.Context, requestType models.RequestType, scopeKind models.ScopeKind, scopeID string) ([]models.ApprovalChainDefinition, error)
}

// ChainAdminService manages approval chain configuration.
type ChainAdminService struct {
	chains chainAdminStore
	logger *zap.Logger
}

// NewChainAdminService constructs the service.
func NewChainAdminService(chains chainAdminStore, logger *zap.Logger) *ChainAdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainAdminService{chains: chains, logger: logger}
}

// CreateLevel adds one chain level. Approver kinds outside the closed enum
// are rejected so a chain can never reference an unresolvable approver.
func (s *ChainAdminService) CreateLevel(ctx context.Context, req dto.CreateChainLevelRequest) (*models.ApprovalChainDefinition, error) {
	if req.RequestType == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requestType is required")
	}
	if req.LevelNo < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "levelNo must be at least 1")
	}
	known := false
	for _, kind := range models.ApproverKinds {
		if kind == req.ApproverKind {
			known = true
			break
		}
	}
	if !known {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("unknown approver kind %s", req.ApproverKind))
	}

	scopeKind := req.ScopeKind
	if scopeKind == "" {
		scopeKind = models.ScopeGlobal
	}
	if scopeKind != models.ScopeGlobal && req.ScopeID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scoped chains require a scopeId")
	}

	def := &models.ApprovalChainDefinition{
		RequestType:  req.RequestType,
		ScopeKind:    scopeKind,
		LevelNo:      req.LevelNo,
		ApproverKind: req.ApproverKind,
		ClosesChain:  req.ClosesChain,
		Active:       true,
	}
	if req.ScopeID != "" {
		def.ScopeID = &req.ScopeID
	}

	if err := s.chains.Create(ctx, def); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create chain level")
	}

	s.logger.Info("approval chain level created",
		zap.String("request_type", string(def.RequestType)),
		zap.String("scope_kind", string(def.ScopeKind)),
		zap.Int("level", def.LevelNo),
		zap.String("approver_kind", string(def.ApproverKind)))
	return def, nil
}

// List returns chain definitions matching the filter.
func (s *ChainAdminService) List(ctx context.Context, query dto.ChainQuery) ([]models.ApprovalChainDefinition, error) {
	defs, err := s.chains.List(ctx, query.RequestType, query.ScopeKind, query.ScopeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list chain levels")
	}
	return defs, nil
}
