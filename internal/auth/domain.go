package auth

import (
	"time"

	"github.com/tenantdesk/tenantdesk/internal/rbac"
)

// User represents an account known to the identity store.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         rbac.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public view of a user.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        rbac.Role `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// Profile returns the public view of u.
func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
	}
}
