package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
)

func strPtr(s string) *string { return &s }

func TestResolverDepartmentScopeWinsOverGlobal(t *testing.T) {
	deptChain := []models.ApprovalChainDefinition{
		{RequestType: models.RequestTypePayroll, ScopeKind: models.ScopeDepartment, ScopeID: strPtr("dept-7"), LevelNo: 1, ApproverKind: models.ApproverHRManager, ClosesChain: true, Active: true},
	}
	store := &mockChainStore{chains: map[string][]models.ApprovalChainDefinition{
		chainKey(models.RequestTypePayroll, models.DepartmentScope("dept-7")): deptChain,
		chainKey(models.RequestTypePayroll, models.GlobalScope):               threeLevelChain(models.RequestTypePayroll),
	}}

	chain, err := NewChainResolver(store).Resolve(context.Background(), models.RequestTypePayroll, strPtr("dept-7"), strPtr("proj-1"))
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, models.ScopeDepartment, chain[0].ScopeKind)
}

func TestResolverProjectScopeWinsOverGlobal(t *testing.T) {
	projChain := []models.ApprovalChainDefinition{
		{RequestType: models.RequestTypeLoan, ScopeKind: models.ScopeProject, ScopeID: strPtr("proj-1"), LevelNo: 1, ApproverKind: models.ApproverProjectManager, ClosesChain: true, Active: true},
	}
	store := &mockChainStore{chains: map[string][]models.ApprovalChainDefinition{
		chainKey(models.RequestTypeLoan, models.ProjectScope("proj-1")): projChain,
		chainKey(models.RequestTypeLoan, models.GlobalScope):            threeLevelChain(models.RequestTypeLoan),
	}}

	chain, err := NewChainResolver(store).Resolve(context.Background(), models.RequestTypeLoan, nil, strPtr("proj-1"))
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, models.ScopeProject, chain[0].ScopeKind)
}

func TestResolverFallsBackToGlobal(t *testing.T) {
	store := &mockChainStore{chains: map[string][]models.ApprovalChainDefinition{
		chainKey(models.RequestTypePayroll, models.GlobalScope): threeLevelChain(models.RequestTypePayroll),
	}}

	chain, err := NewChainResolver(store).Resolve(context.Background(), models.RequestTypePayroll, strPtr("dept-unconfigured"), nil)
	require.NoError(t, err)
	assert.Len(t, chain, 3)
}

func TestResolverEmptyEverywhereIsConfigurationError(t *testing.T) {
	store := &mockChainStore{chains: map[string][]models.ApprovalChainDefinition{}}

	_, err := NewChainResolver(store).Resolve(context.Background(), models.RequestTypeLeave, nil, nil)
	assert.ErrorIs(t, err, appErrors.ErrConfiguration)
}

func TestRegistryRejectsMissingKind(t *testing.T) {
	resolvers := staticResolvers(map[models.ApproverKind]string{})
	delete(resolvers, models.ApproverFinanceManager)

	_, err := NewApproverRegistry(resolvers)
	assert.ErrorIs(t, err, appErrors.ErrConfiguration)
}

func TestRegistryRejectsUnknownKind(t *testing.T) {
	resolvers := staticResolvers(map[models.ApproverKind]string{})
	resolvers[models.ApproverKind("CFO_UNCLE")] = func(context.Context, string, models.Scope) (string, error) {
		return "x", nil
	}

	_, err := NewApproverRegistry(resolvers)
	assert.ErrorIs(t, err, appErrors.ErrConfiguration)
}

func TestRegistryRejectsEmptyApprover(t *testing.T) {
	registry, err := NewApproverRegistry(staticResolvers(map[models.ApproverKind]string{
		models.ApproverDirectManager:  "",
		models.ApproverHRManager:      "hr-1",
		models.ApproverFinanceManager: "fin-1",
		models.ApproverGeneralManager: "gm-1",
		models.ApproverProjectManager: "pm-1",
	}))
	require.NoError(t, err)

	_, err = registry.Resolve(context.Background(), models.ApproverDirectManager, "emp-1", models.GlobalScope)
	assert.ErrorIs(t, err, appErrors.ErrConfiguration)
}
