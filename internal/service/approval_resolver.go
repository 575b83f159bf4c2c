package service

import (
	"context"
	"fmt"

	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
)

type chainStore interface {
	ListActive(ctx context.Context, requestType models.RequestType, scope models.Scope) ([]models.ApprovalChainDefinition, error)
}

// ChainResolver picks the approval chain that applies to a transaction.
// Resolution order, first non-empty wins: department scope, project scope,
// global. The resolver never caches: chain membership can change between
// levels when an employee moves departments mid-approval.
type ChainResolver struct {
	store chainStore
}

// NewChainResolver constructs the resolver.
func NewChainResolver(store chainStore) *ChainResolver {
	return &ChainResolver{store: store}
}

// Resolve returns the ordered chain for the request type and scope hints.
// An empty result everywhere is a fatal misconfiguration for request types
// that callers expect to be approvable.
func (r *ChainResolver) Resolve(ctx context.Context, requestType models.RequestType, departmentID, projectID *string) ([]models.ApprovalChainDefinition, error) {
	if departmentID != nil && *departmentID != "" {
		chain, err := r.store.ListActive(ctx, requestType, models.DepartmentScope(*departmentID))
		if err != nil {
			return nil, err
		}
		if len(chain) > 0 {
			return chain, nil
		}
	}

	if projectID != nil && *projectID != "" {
		chain, err := r.store.ListActive(ctx, requestType, models.ProjectScope(*projectID))
		if err != nil {
			return nil, err
		}
		if len(chain) > 0 {
			return chain, nil
		}
	}

	chain, err := r.store.ListActive(ctx, requestType, models.GlobalScope)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConfiguration,
			fmt.Sprintf("no approval chain configured for request type %s", requestType))
	}
	return chain, nil
}
