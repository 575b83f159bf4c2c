package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/stratumhq/sitepay-api/internal/models"
)

// UserRepository reads authentication accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByEmail fetches an account by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, email, full_name, password_hash, role, employee_id, active, created_at
	FROM users WHERE email = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindRoleHolder returns the active account holding an organization-wide
// role. Roles like HR manager are expected to have exactly one holder; when
// several exist the oldest account wins.
func (r *UserRepository) FindRoleHolder(ctx context.Context, role models.UserRole) (string, error) {
	const query = `SELECT id FROM users WHERE role = $1 AND active = true ORDER BY created_at LIMIT 1`
	var id string
	if err := r.db.GetContext(ctx, &id, query, role); err != nil {
		return "", err
	}
	return id, nil
}
