package service

import (
	"context"
	"fmt"

	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
)

// ApproverResolverFunc maps an employee and scope to the user who must act
// at a given approval level ("direct manager", "HR manager", ...).
type ApproverResolverFunc func(ctx context.Context, employeeID string, scope models.Scope) (string, error)

// ApproverRegistry binds the closed set of approver kinds to typed resolver
// functions. The registry is assembled once at startup; an incomplete
// registry fails construction so misconfiguration never reaches approval
// time.
type ApproverRegistry struct {
	resolvers map[models.ApproverKind]ApproverResolverFunc
}

// NewApproverRegistry validates that every supported approver kind has a
// resolver and that no unknown kinds were supplied.
func NewApproverRegistry(resolvers map[models.ApproverKind]ApproverResolverFunc) (*ApproverRegistry, error) {
	known := make(map[models.ApproverKind]struct{}, len(models.ApproverKinds))
	for _, kind := range models.ApproverKinds {
		known[kind] = struct{}{}
		if resolvers[kind] == nil {
			return nil, appErrors.Clone(appErrors.ErrConfiguration,
				fmt.Sprintf("no resolver registered for approver kind %s", kind))
		}
	}
	for kind := range resolvers {
		if _, ok := known[kind]; !ok {
			return nil, appErrors.Clone(appErrors.ErrConfiguration,
				fmt.Sprintf("unknown approver kind %s", kind))
		}
	}

	copied := make(map[models.ApproverKind]ApproverResolverFunc, len(resolvers))
	for kind, fn := range resolvers {
		copied[kind] = fn
	}
	return &ApproverRegistry{resolvers: copied}, nil
}

// Resolve invokes the resolver for the given kind.
func (r *ApproverRegistry) Resolve(ctx context.Context, kind models.ApproverKind, employeeID string, scope models.Scope) (string, error) {
	fn, ok := r.resolvers[kind]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrConfiguration,
			fmt.Sprintf("no resolver registered for approver kind %s", kind))
	}
	approverID, err := fn(ctx, employeeID, scope)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status,
			fmt.Sprintf("resolving %s approver for employee %s", kind, employeeID))
	}
	if approverID == "" {
		return "", appErrors.Clone(appErrors.ErrConfiguration,
			fmt.Sprintf("%s resolver returned no approver for employee %s", kind, employeeID))
	}
	return approverID, nil
}
