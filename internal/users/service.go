package users

import (
	"context"
	"fmt"

	"github.com/tenantdesk/tenantdesk/internal/rbac"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	UpdateRole(ctx context.Context, id string, role rbac.Role) (User, error)
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// AssignRole changes the role of userID on behalf of requester. Sessions
// already issued keep their role until the user signs in again.
func (s *Service) AssignRole(ctx context.Context, requester *rbac.Subject, userID string, role rbac.Role) (User, error) {
	if !role.Valid() {
		return User{}, fmt.Errorf("%w: %q", rbac.ErrInvalidRole, role)
	}
	if requester.IDOf() == userID {
		return User{}, ErrSelfAssignment
	}
	return s.repo.UpdateRole(ctx, userID, role)
}
