package service

import (
	"context"
	"fmt"

	"github.com/stratumhq/sitepay-api/internal/models"
)

type roleHolderFinder interface {
	FindRoleHolder(ctx context.Context, role models.UserRole) (string, error)
}

type projectManagerFinder interface {
	GetByID(ctx context.Context, id string) (*models.EmployeeProfile, error)
	GetProjectManager(ctx context.Context, projectID string) (string, error)
}

// DefaultApproverResolvers builds the standard resolver set backed by the
// employee directory and the accounts table. Direct and project managers are
// looked up per employee; the organization-wide roles resolve to their
// single holder.
func DefaultApproverResolvers(employees projectManagerFinder, users roleHolderFinder) map[models.ApproverKind]ApproverResolverFunc {
	roleResolver := func(role models.UserRole) ApproverResolverFunc {
		return func(ctx context.Context, _ string, _ models.Scope) (string, error) {
			return users.FindRoleHolder(ctx, role)
		}
	}

	return map[models.ApproverKind]ApproverResolverFunc{
		models.ApproverDirectManager: func(ctx context.Context, employeeID string, _ models.Scope) (string, error) {
			profile, err := employees.GetByID(ctx, employeeID)
			if err != nil {
				return "", err
			}
			if profile.ManagerID == nil || *profile.ManagerID == "" {
				return "", fmt.Errorf("employee %s has no direct manager", employeeID)
			}
			return *profile.ManagerID, nil
		},
		models.ApproverHRManager:      roleResolver(models.RoleHRManager),
		models.ApproverFinanceManager: roleResolver(models.RoleFinanceManager),
		models.ApproverGeneralManager: roleResolver(models.RoleGeneralManager),
		models.ApproverProjectManager: func(ctx context.Context, employeeID string, scope models.Scope) (string, error) {
			projectID := ""
			if scope.Kind == models.ScopeProject && scope.ID != "" {
				projectID = scope.ID
			} else {
				profile, err := employees.GetByID(ctx, employeeID)
				if err != nil {
					return "", err
				}
				if profile.ProjectID != nil {
					projectID = *profile.ProjectID
				}
			}
			if projectID == "" {
				return "", fmt.Errorf("employee %s is not assigned to a project", employeeID)
			}
			return employees.GetProjectManager(ctx, projectID)
		},
	}
}
