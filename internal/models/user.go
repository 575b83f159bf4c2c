package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole drives RBAC on the HTTP surface.
type UserRole string

const (
	RoleSuperAdmin     UserRole = "SUPER_ADMIN"
	RoleHRManager      UserRole = "HR_MANAGER"
	RoleFinanceManager UserRole = "FINANCE_MANAGER"
	RoleGeneralManager UserRole = "GENERAL_MANAGER"
	RoleProjectManager UserRole = "PROJECT_MANAGER"
	RoleEmployee       UserRole = "EMPLOYEE"
)

// User is an authenticated account, usually linked to an employee.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"fullName"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	EmployeeID   *string   `db:"employee_id" json:"employeeId,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	Role       UserRole `json:"role"`
	Email      string   `json:"email"`
	EmployeeID string   `json:"employee_id,omitempty"`
	jwt.RegisteredClaims
}
