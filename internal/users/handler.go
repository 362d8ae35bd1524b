package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tenantdesk/tenantdesk/internal/platform/httpx"
	"github.com/tenantdesk/tenantdesk/internal/rbac"
)

// Handler manages user administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermViewUsers))
		r.Get("/users", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermAssignRoles))
		r.Put("/users/{id}/role", h.assignRole)
	})
}

type assignRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user client_admin platform_admin"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !h.rbac.Authorize(r, rbac.ActionAssignRoles, userID) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "request body must be a JSON object with a role")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
		return
	}

	user, err := h.service.AssignRole(r.Context(), rbac.SubjectFromContext(r.Context()), userID, rbac.Role(req.Role))
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrSelfAssignment):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case err != nil:
		h.logger.Error("assign role failed", slog.String("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
	default:
		h.logger.Info("role assigned", slog.String("user_id", userID), slog.String("role", user.Role.String()))
		httpx.JSON(w, http.StatusOK, user)
	}
}
