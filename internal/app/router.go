package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tenantdesk/tenantdesk/internal/auth"
	"github.com/tenantdesk/tenantdesk/internal/guard"
	"github.com/tenantdesk/tenantdesk/internal/observability"
	"github.com/tenantdesk/tenantdesk/internal/platform/httpx"
	"github.com/tenantdesk/tenantdesk/internal/rbac"
	"github.com/tenantdesk/tenantdesk/internal/shared"
	"github.com/tenantdesk/tenantdesk/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Guard              *guard.Guard
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	PermissionsHandler *rbac.PermissionsHandler
	UsersHandler       *users.Handler
	RBACMiddleware     rbac.Middleware
	Metrics            *observability.Metrics
}

type roleOverview struct {
	Role        rbac.Role `json:"role"`
	Level       int       `json:"level"`
	Permissions int       `json:"permissions"`
}

// NewRouter constructs the chi.Router with the guard installed ahead of every route.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:      params.Logger,
		Config:      params.Config,
		Guard:       params.Guard,
		CSRFManager: params.CSRFManager,
		Metrics:     params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{"service": "tenantdesk"}
		if subject := rbac.SubjectFromContext(r.Context()); subject != nil {
			payload["role"] = subject.Role
		}
		httpx.JSON(w, http.StatusOK, payload)
	})

	r.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		subject := rbac.SubjectFromContext(r.Context())
		if subject == nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{
			"user_id":     subject.ID,
			"role":        subject.Role,
			"permissions": rbac.GetUserEffectivePermissions(subject.Role),
		})
	})

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Route("/api/protected", func(r chi.Router) {
		if params.PermissionsHandler != nil {
			params.PermissionsHandler.MountRoutes(r)
		}
		if params.AuthHandler != nil {
			params.AuthHandler.MountAPIRoutes(r)
		}
		if params.UsersHandler != nil {
			params.UsersHandler.MountRoutes(r)
		}
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireRole(rbac.RolePlatformAdmin))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			roles := rbac.Roles()
			out := make([]roleOverview, 0, len(roles))
			for _, role := range roles {
				out = append(out, roleOverview{
					Role:        role,
					Level:       rbac.Level(role),
					Permissions: len(rbac.GetRolePermissions(role)),
				})
			}
			httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
