package dto

import "github.com/stratumhq/sitepay-api/internal/models"

// CreateChainLevelRequest configures one approval chain level.
type CreateChainLevelRequest struct {
	RequestType  models.RequestType  `json:"requestType" validate:"required"`
	ScopeKind    models.ScopeKind    `json:"scopeKind"`
	ScopeID      string              `json:"scopeId"`
	LevelNo      int                 `json:"levelNo" validate:"required,min=1"`
	ApproverKind models.ApproverKind `json:"approverKind" validate:"required"`
	ClosesChain  bool                `json:"closesChain"`
}

// ChainQuery filters chain definition listings.
type ChainQuery struct {
	RequestType models.RequestType
	ScopeKind   models.ScopeKind
	ScopeID     string
}
