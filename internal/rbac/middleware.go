package rbac

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tenantdesk/tenantdesk/internal/platform/httpx"
)

// DecisionObserver receives every authorization decision taken over HTTP.
type DecisionObserver interface {
	ObserveAuthzDecision(check string, allowed bool)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Catalog  *Catalog
	Logger   *slog.Logger
	Observer DecisionObserver
	// Strict panics on unknown permission ids at mount time. Enable outside production.
	Strict bool
}

// RequirePermission ensures the current subject holds at least one of the permissions.
func (m Middleware) RequirePermission(perms ...string) func(http.Handler) http.Handler {
	known := m.checkKnown("require permission", perms)
	return m.gate("permission", func(subject *Subject) bool {
		for _, id := range known {
			if m.catalog().holds(subject.Role, id) {
				return true
			}
		}
		return false
	})
}

// RequireAllPermissions ensures the current subject holds every permission.
func (m Middleware) RequireAllPermissions(perms ...string) func(http.Handler) http.Handler {
	known := m.checkKnown("require all permissions", perms)
	complete := len(known) == len(normalizePermissions(perms))
	return m.gate("all_permissions", func(subject *Subject) bool {
		if !complete || len(known) == 0 {
			return false
		}
		for _, id := range known {
			if !m.catalog().holds(subject.Role, id) {
				return false
			}
		}
		return true
	})
}

// RequireRole ensures the current subject meets or exceeds required.
func (m Middleware) RequireRole(required Role) func(http.Handler) http.Handler {
	if !required.Valid() {
		m.fail(fmt.Errorf("require role: %w: %q", ErrInvalidRole, required))
	}
	return m.gate("role", func(subject *Subject) bool {
		return HasRole(subject.Role, required)
	})
}

// Authorize applies the ownership policy for the subject on r.
func (m Middleware) Authorize(r *http.Request, action Action, resourceOwnerID string) bool {
	subject := SubjectFromContext(r.Context())
	allowed := CanPerformAction(subject.RoleOf(), action, resourceOwnerID, subject.IDOf())
	m.observe("action", allowed)
	if !allowed && m.Logger != nil {
		m.Logger.Info("rbac action denied",
			slog.String("action", string(action)),
			slog.String("role", subject.RoleOf().String()),
			slog.String("path", r.URL.Path))
	}
	return allowed
}

func (m Middleware) gate(check string, allow func(*Subject) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := SubjectFromContext(r.Context())
			if subject == nil || subject.Role == RoleNone {
				m.observe(check, false)
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !allow(subject) {
				m.observe(check, false)
				if m.Logger != nil {
					m.Logger.Info("rbac denied",
						slog.String("check", check),
						slog.String("role", subject.Role.String()),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			m.observe(check, true)
			next.ServeHTTP(w, r)
		})
	}
}

// checkKnown drops ids absent from the catalog, failing loudly in strict mode.
func (m Middleware) checkKnown(op string, perms []string) []string {
	normalized := normalizePermissions(perms)
	known := make([]string, 0, len(normalized))
	for _, id := range normalized {
		if !m.catalog().Contains(id) {
			m.fail(fmt.Errorf("%s: %w: %s", op, ErrUnknownPermission, id))
			continue
		}
		known = append(known, id)
	}
	return known
}

func (m Middleware) fail(err error) {
	if m.Strict {
		panic(err)
	}
	if m.Logger != nil {
		m.Logger.Error("rbac misconfigured route", slog.Any("error", err))
	}
}

func (m Middleware) observe(check string, allowed bool) {
	if m.Observer != nil {
		m.Observer.ObserveAuthzDecision(check, allowed)
	}
}

func (m Middleware) catalog() *Catalog {
	if m.Catalog == nil {
		return defaultCatalog
	}
	return m.Catalog
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, seen := unique[p]; seen {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
