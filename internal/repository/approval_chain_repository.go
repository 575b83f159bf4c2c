package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stratumhq/sitepay-api/internal/models"
)

// ApprovalChainRepository persists approval chain configuration. Definitions
// are seeded once and read-only during transaction processing.
type ApprovalChainRepository struct {
	db *sqlx.DB
}

// NewApprovalChainRepository constructs the repository.
func NewApprovalChainRepository(db *sqlx.DB) *ApprovalChainRepository {
	return &ApprovalChainRepository{db: db}
}

const chainColumns = `id, request_type, scope_kind, scope_id, level_no, approver_kind, closes_chain, active`

// ListActive returns the active chain levels for a request type and scope,
// ordered by level number.
func (r *ApprovalChainRepository) ListActive(ctx context.Context, requestType models.RequestType, scope models.Scope) ([]models.ApprovalChainDefinition, error) {
	var definitions []models.ApprovalChainDefinition
	if scope.Kind == models.ScopeGlobal || scope.Kind == "" {
		query := fmt.Sprintf(`SELECT %s FROM approval_chain_definitions
		WHERE request_type = $1 AND scope_kind = $2 AND active = TRUE
		ORDER BY level_no`, chainColumns)
		if err := r.db.SelectContext(ctx, &definitions, query, requestType, models.ScopeGlobal); err != nil {
			return nil, fmt.Errorf("list global chain for %s: %w", requestType, err)
		}
		return definitions, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM approval_chain_definitions
	WHERE request_type = $1 AND scope_kind = $2 AND scope_id = $3 AND active = TRUE
	ORDER BY level_no`, chainColumns)
	if err := r.db.SelectContext(ctx, &definitions, query, requestType, scope.Kind, scope.ID); err != nil {
		return nil, fmt.Errorf("list %s chain for %s: %w", scope.Kind, requestType, err)
	}
	return definitions, nil
}

// Create inserts a chain level definition.
func (r *ApprovalChainRepository) Create(ctx context.Context, def *models.ApprovalChainDefinition) error {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if def.ScopeKind == "" {
		def.ScopeKind = models.ScopeGlobal
	}
	const query = `INSERT INTO approval_chain_definitions
	(id, request_type, scope_kind, scope_id, level_no, approver_kind, closes_chain, active)
	VALUES (:id, :request_type, :scope_kind, :scope_id, :level_no, :approver_kind, :closes_chain, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, def); err != nil {
		return fmt.Errorf("create chain definition: %w", err)
	}
	return nil
}

// List returns definitions matching the optional filters, active or not.
func (r *ApprovalChainRepository) List(ctx context.Context, requestType models.RequestType, scopeKind models.ScopeKind, scopeID string) ([]models.ApprovalChainDefinition, error) {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("SELECT %s FROM approval_chain_definitions", chainColumns))

	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 3)
	if requestType != "" {
		args = append(args, requestType)
		conditions = append(conditions, fmt.Sprintf("request_type = $%d", len(args)))
	}
	if scopeKind != "" {
		args = append(args, scopeKind)
		conditions = append(conditions, fmt.Sprintf("scope_kind = $%d", len(args)))
	}
	if scopeID != "" {
		args = append(args, scopeID)
		conditions = append(conditions, fmt.Sprintf("scope_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY request_type, scope_kind, level_no")

	var definitions []models.ApprovalChainDefinition
	if err := r.db.SelectContext(ctx, &definitions, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list chain definitions: %w", err)
	}
	return definitions, nil
}
