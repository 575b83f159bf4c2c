package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
)

type mockChainStore struct {
	chains map[string][]models.ApprovalChainDefinition
}

func (m *mockChainStore) ListActive(_ context.Context, requestType models.RequestType, scope models.Scope) ([]models.ApprovalChainDefinition, error) {
	key := string(requestType) + "/" + string(scope.Kind) + "/" + scope.ID
	return m.chains[key], nil
}

func chainKey(requestType models.RequestType, scope models.Scope) string {
	return string(requestType) + "/" + string(scope.Kind) + "/" + scope.ID
}

func staticResolvers(byKind map[models.ApproverKind]string) map[models.ApproverKind]ApproverResolverFunc {
	resolvers := make(map[models.ApproverKind]ApproverResolverFunc, len(models.ApproverKinds))
	for _, kind := range models.ApproverKinds {
		k := kind
		resolvers[k] = func(context.Context, string, models.Scope) (string, error) {
			return byKind[k], nil
		}
	}
	return resolvers
}

func threeLevelChain(requestType models.RequestType) []models.ApprovalChainDefinition {
	return []models.ApprovalChainDefinition{
		{RequestType: requestType, ScopeKind: models.ScopeGlobal, LevelNo: 1, ApproverKind: models.ApproverDirectManager, Active: true},
		{RequestType: requestType, ScopeKind: models.ScopeGlobal, LevelNo: 2, ApproverKind: models.ApproverHRManager, Active: true},
		{RequestType: requestType, ScopeKind: models.ScopeGlobal, LevelNo: 3, ApproverKind: models.ApproverGeneralManager, ClosesChain: true, Active: true},
	}
}

func newTestEngine(t *testing.T, store chainStore) *ApprovalEngine {
	t.Helper()
	registry, err := NewApproverRegistry(staticResolvers(map[models.ApproverKind]string{
		models.ApproverDirectManager:  "mgr-1",
		models.ApproverHRManager:      "hr-1",
		models.ApproverFinanceManager: "fin-1",
		models.ApproverGeneralManager: "gm-1",
		models.ApproverProjectManager: "pm-1",
	}))
	require.NoError(t, err)
	return NewApprovalEngine(NewChainResolver(store), registry, nil)
}

func TestEngineInitializeStartsAtLevelOne(t *testing.T) {
	store := &mockChainStore{chains: map[string][]models.ApprovalChainDefinition{
		chainKey(models.RequestTypePayroll, models.GlobalScope): threeLevelChain(models.RequestTypePayroll),
	}}
	engine := newTestEngine(t, store)

	state, err := engine.Initialize(context.Background(), models.RequestTypePayroll, "emp-1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusPending, state.Status)
	require.NotNil(t, state.CurrentLevel)
	assert.Equal(t, 1, *state.CurrentLevel)
	require.NotNil(t, state.NextApproverID)
	assert.Equal(t, "mgr-1", *state.NextApproverID)
}

func TestEngineInitializeNoChainConfigured(t *testing.T) {
	engine := newTestEngine(t, &mockChainStore{chains: map[string][]models.ApprovalChainDefinition{}})

	_, err := engine.Initialize(context.Background(), models.RequestTypeLoan, "emp-1", nil, nil)
	assert.ErrorIs(t, err, appErrors.ErrNoApprovalChain)
}

func TestEngineAdvanceWalksEveryLevelToApproval(t *testing.T) {
	store := &mockChainStore{chains: map[string][]models.ApprovalChainDefinition{
		chainKey(models.RequestTypePayroll, models.GlobalScope): threeLevelChain(models.RequestTypePayroll),
	}}
	engine := newTestEngine(t, store)
	ctx := context.Background()

	state, err := engine.Initialize(ctx, models.RequestTypePayroll, "emp-1", nil, nil)
	require.NoError(t, err)

	state, err = engine.Advance(ctx, models.RequestTypePayroll, *state.CurrentLevel, "mgr-1", "emp-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, state.Status)
	assert.Equal(t, 2, *state.CurrentLevel)
	assert.Equal(t, "hr-1", *state.NextApproverID)

	state, err = engine.Advance(ctx, models.RequestTypePayroll, *state.CurrentLevel, "hr-1", "emp-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, *state.CurrentLevel)
	assert.Equal(t, "gm-1", *state.NextApproverID)

	state, err = engine.Advance(ctx, models.RequestTypePayroll, *state.CurrentLevel, "gm-1", "emp-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, state.Status)
	assert.Nil(t, state.CurrentLevel)
	require.NotNil(t, state.ApprovedBy)
	assert.Equal(t, "gm-1", *state.ApprovedBy)
}

func TestEngineAdvanceClosesOnClosingLevelEvenWithLaterLevels(t *testing.T) {
	chain := []models.ApprovalChainDefinition{
		{RequestType: models.RequestTypeLoan, ScopeKind: models.ScopeGlobal, LevelNo: 1, ApproverKind: models.ApproverDirectManager, ClosesChain: true, Active: true},
		{RequestType: models.RequestTypeLoan, ScopeKind: models.ScopeGlobal, LevelNo: 2, ApproverKind: models.ApproverHRManager, Active: true},
	}
	store := &mockChainStore{chains: map[string][]models.ApprovalChainDefinition{
		chainKey(models.RequestTypeLoan, models.GlobalScope): chain,
	}}
	engine := newTestEngine(t, store)

	state, err := engine.Advance(context.Background(), models.RequestTypeLoan, 1, "mgr-1", "emp-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, state.Status)
}

func TestEngineCanApprove(t *testing.T) {
	engine := newTestEngine(t, &mockChainStore{})
	level := 2
	approver := "hr-1"
	state := models.ApprovalState{
		Status:         models.ApprovalStatusPending,
		CurrentLevel:   &level,
		NextApproverID: &approver,
	}

	assert.True(t, engine.CanApprove(state, 2, "hr-1"))
	assert.False(t, engine.CanApprove(state, 1, "hr-1"))
	assert.False(t, engine.CanApprove(state, 2, "someone-else"))
	assert.False(t, engine.CanApprove(models.ApprovalState{Status: models.ApprovalStatusApproved}, 2, "hr-1"))
}

func TestEngineRejectRequiresExpectedApprover(t *testing.T) {
	engine := newTestEngine(t, &mockChainStore{})
	level := 1
	approver := "mgr-1"
	state := models.ApprovalState{
		Status:         models.ApprovalStatusPending,
		CurrentLevel:   &level,
		NextApproverID: &approver,
	}

	_, err := engine.Reject(state, "intruder", "nope")
	assert.ErrorIs(t, err, appErrors.ErrNotAuthorized)

	rejected, err := engine.Reject(state, "mgr-1", "budget freeze")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "budget freeze", *rejected.RejectionReason)
}

func TestEngineRejectTerminalState(t *testing.T) {
	engine := newTestEngine(t, &mockChainStore{})

	_, err := engine.Reject(models.ApprovalState{Status: models.ApprovalStatusApproved}, "mgr-1", "too late")
	assert.ErrorIs(t, err, appErrors.ErrNotAuthorized)
}
