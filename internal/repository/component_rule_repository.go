package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/stratumhq/sitepay-api/internal/models"
)

// ComponentRuleRepository reads the salary breakdown configuration
// (percentage splits per employee category).
type ComponentRuleRepository struct {
	db *sqlx.DB
}

// NewComponentRuleRepository constructs the repository.
func NewComponentRuleRepository(db *sqlx.DB) *ComponentRuleRepository {
	return &ComponentRuleRepository{db: db}
}

// ListByCategory returns the ordered percentage splits for a category. An
// empty result is valid; the calculation engine falls back to a single
// basic component.
func (r *ComponentRuleRepository) ListByCategory(ctx context.Context, category string) ([]models.ComponentRule, error) {
	const query = `SELECT category, component_code, percentage, sort_order
	FROM salary_component_rules WHERE category = $1 ORDER BY sort_order`
	var rules []models.ComponentRule
	if err := r.db.SelectContext(ctx, &rules, query, category); err != nil {
		return nil, fmt.Errorf("list component rules for %s: %w", category, err)
	}
	return rules, nil
}
