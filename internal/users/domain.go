package users

import (
	"errors"
	"time"

	"github.com/tenantdesk/tenantdesk/internal/rbac"
)

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrSelfAssignment blocks administrators from changing their own role.
	ErrSelfAssignment = errors.New("users: cannot change own role")
)

// User represents a user account for management.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        rbac.Role `json:"role"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
