package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the fixed classification of a subject.
type Role string

// Known roles. RoleNone is the anonymous case and is always least privileged.
const (
	RoleNone          Role = ""
	RoleUser          Role = "user"
	RoleClientAdmin   Role = "client_admin"
	RolePlatformAdmin Role = "platform_admin"
)

// Action names understood by the ownership policy.
type Action string

const (
	ActionView        Action = "view"
	ActionCreate      Action = "create"
	ActionEdit        Action = "edit"
	ActionDelete      Action = "delete"
	ActionAssignRoles Action = "assign_roles"
	ActionExport      Action = "export"
)

var (
	// ErrInvalidRole indicates a role outside the closed set.
	ErrInvalidRole = errors.New("rbac: invalid role")
	// ErrUnknownPermission indicates a permission id missing from the catalog.
	ErrUnknownPermission = errors.New("rbac: unknown permission")
	// ErrEmptyAllowedRoles indicates a catalog entry no role may hold.
	ErrEmptyAllowedRoles = errors.New("rbac: permission has no allowed roles")
	// ErrDuplicatePermission indicates two catalog entries share an id.
	ErrDuplicatePermission = errors.New("rbac: duplicate permission id")
)

// Permission is a catalog entry.
type Permission struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	AllowedRoles []Role `json:"allowed_roles"`
}

// allows reports whether role is one of the entry's allowed roles.
func (p Permission) allows(role Role) bool {
	for _, allowed := range p.AllowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Subject describes the authenticated caller of a single request.
type Subject struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// RoleOf returns the subject's role, or RoleNone for a nil subject.
func (s *Subject) RoleOf() Role {
	if s == nil {
		return RoleNone
	}
	return s.Role
}

// IDOf returns the subject id, or an empty string for a nil subject.
func (s *Subject) IDOf() string {
	if s == nil {
		return ""
	}
	return s.ID
}

// EffectivePermissions aggregates what a role may do.
type EffectivePermissions struct {
	Permissions      []Permission `json:"permissions"`
	RoleLevel        int          `json:"role_level"`
	CanManageUsers   bool         `json:"can_manage_users"`
	CanManageSystem  bool         `json:"can_manage_system"`
	CanViewAnalytics bool         `json:"can_view_analytics"`
}

// Roles lists every concrete role from least to most privileged.
func Roles() []Role {
	return []Role{RoleUser, RoleClientAdmin, RolePlatformAdmin}
}

// ParseRole converts a raw value into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(raw))
	if _, ok := hierarchy[role]; !ok {
		return RoleNone, fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
	return role, nil
}

// Valid reports whether r is one of the concrete roles.
func (r Role) Valid() bool {
	_, ok := hierarchy[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}
