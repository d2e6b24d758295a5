package model

import (
	"errors"
	"time"
)

// User represents an authenticated account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdministrator = "administrator"
	RoleOperator      = "operator"
	RoleMember        = "member"
)

// ValidRole reports whether role is a known role.
func ValidRole(role string) bool {
	switch role {
	case RoleAdministrator, RoleOperator, RoleMember:
		return true
	}
	return false
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
