package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
)

// ApprovalEngine is the generic multi-level approval state machine shared by
// payroll, loans, postponements and the other approvable request types.
//
//	Pending(1) -> Pending(2) -> ... -> Approved
//	Pending(k) -> Rejected (terminal from any pending level)
//
// The engine only computes state transitions; callers persist the returned
// state and trigger side effects (materializing installments, finalizing a
// payslip) when the returned status is Approved.
type ApprovalEngine struct {
	resolver *ChainResolver
	registry *ApproverRegistry
	logger   *zap.Logger
}

// NewApprovalEngine constructs the engine.
func NewApprovalEngine(resolver *ChainResolver, registry *ApproverRegistry, logger *zap.Logger) *ApprovalEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalEngine{resolver: resolver, registry: registry, logger: logger}
}

// Initialize resolves the applicable chain and returns the Pending state at
// level 1 with its approver resolved.
func (e *ApprovalEngine) Initialize(ctx context.Context, requestType models.RequestType, employeeID string, departmentID, projectID *string) (models.ApprovalState, error) {
	chain, err := e.resolver.Resolve(ctx, requestType, departmentID, projectID)
	if err != nil {
		if errors.Is(err, appErrors.ErrConfiguration) {
			return models.ApprovalState{}, appErrors.Clone(appErrors.ErrNoApprovalChain,
				fmt.Sprintf("no approval chain for %s", requestType))
		}
		return models.ApprovalState{}, err
	}

	first := chain[0]
	if first.LevelNo != 1 {
		return models.ApprovalState{}, appErrors.Clone(appErrors.ErrConfiguration,
			fmt.Sprintf("chain for %s does not start at level 1", requestType))
	}

	approverID, err := e.registry.Resolve(ctx, first.ApproverKind, employeeID, scopeOf(first))
	if err != nil {
		return models.ApprovalState{}, err
	}

	level := 1
	return models.ApprovalState{
		Status:         models.ApprovalStatusPending,
		CurrentLevel:   &level,
		NextApproverID: &approverID,
	}, nil
}

// CanApprove reports whether the acting user is the expected approver at
// the persisted level. Pure check, no mutation.
func (e *ApprovalEngine) CanApprove(state models.ApprovalState, level int, actingUserID string) bool {
	if !state.Pending() || state.CurrentLevel == nil || state.NextApproverID == nil {
		return false
	}
	return *state.CurrentLevel == level && *state.NextApproverID == actingUserID
}

// Advance moves a pending transaction past the given level. The chain is
// re-resolved on every call: membership can depend on the employee's current
// department/project, so it is never cached across levels. Reaching a level
// whose definition closes the chain, or running out of levels, yields the
// terminal Approved state with the acting user recorded.
func (e *ApprovalEngine) Advance(ctx context.Context, requestType models.RequestType, level int, actingUserID, employeeID string, departmentID, projectID *string) (models.ApprovalState, error) {
	chain, err := e.resolver.Resolve(ctx, requestType, departmentID, projectID)
	if err != nil {
		return models.ApprovalState{}, err
	}

	var current, next *models.ApprovalChainDefinition
	for i := range chain {
		switch chain[i].LevelNo {
		case level:
			current = &chain[i]
		case level + 1:
			next = &chain[i]
		}
	}
	if current == nil {
		return models.ApprovalState{}, appErrors.Clone(appErrors.ErrConfiguration,
			fmt.Sprintf("chain for %s has no level %d", requestType, level))
	}

	if current.ClosesChain || next == nil {
		e.logger.Info("approval chain closed",
			zap.String("request_type", string(requestType)),
			zap.String("employee_id", employeeID),
			zap.Int("final_level", level))
		return models.ApprovalState{
			Status:     models.ApprovalStatusApproved,
			ApprovedBy: &actingUserID,
		}, nil
	}

	approverID, err := e.registry.Resolve(ctx, next.ApproverKind, employeeID, scopeOf(*next))
	if err != nil {
		return models.ApprovalState{}, err
	}

	nextLevel := next.LevelNo
	return models.ApprovalState{
		Status:         models.ApprovalStatusPending,
		CurrentLevel:   &nextLevel,
		NextApproverID: &approverID,
	}, nil
}

// Reject terminates a pending transaction. Only the currently expected
// approver may reject; the reason is recorded on the terminal state.
func (e *ApprovalEngine) Reject(state models.ApprovalState, actingUserID, reason string) (models.ApprovalState, error) {
	if !state.Pending() || state.NextApproverID == nil {
		return models.ApprovalState{}, appErrors.Clone(appErrors.ErrNotAuthorized, "transaction is not pending approval")
	}
	if *state.NextApproverID != actingUserID {
		return models.ApprovalState{}, appErrors.Clone(appErrors.ErrNotAuthorized,
			fmt.Sprintf("user %s is not the expected approver", actingUserID))
	}
	return models.ApprovalState{
		Status:          models.ApprovalStatusRejected,
		RejectionReason: &reason,
	}, nil
}

func scopeOf(def models.ApprovalChainDefinition) models.Scope {
	scope := models.Scope{Kind: def.ScopeKind}
	if def.ScopeID != nil {
		scope.ID = *def.ScopeID
	}
	if scope.Kind == "" {
		scope.Kind = models.ScopeGlobal
	}
	return scope
}
