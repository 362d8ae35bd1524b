package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/tenantdesk/tenantdesk/internal/platform/httpx"
	"github.com/tenantdesk/tenantdesk/internal/rbac"
	"github.com/tenantdesk/tenantdesk/internal/shared"
)

const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// Paths holds the redirect targets used by the auth flows.
type Paths struct {
	Login   string
	Landing string
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	validator *validator.Validate
	paths     Paths
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, rbac rbac.Middleware, paths Paths) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		sessions:  sessions,
		csrf:      csrf,
		rbac:      rbac,
		validator: validator.New(),
		paths:     paths,
	}
}

// MountRoutes registers the sign-in flows under /auth.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(loginRateLimit, loginRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.RespondError(w, httpx.ErrRateLimited)
		}),
	)
	r.Get("/login", h.showLogin)
	r.Post("/logout", h.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(limiter)
		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
	})
}

// MountAPIRoutes registers the authenticated account endpoints.
func (h *Handler) MountAPIRoutes(r chi.Router) {
	r.Get("/me", h.showMe)
	r.Get("/users/{id}", h.showProfile)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type registerForm struct {
	Email       string `validate:"required,email"`
	DisplayName string `validate:"required,max=120"`
	Password    string `validate:"required,min=8,max=72"`
}

type loginPage struct {
	Action     string   `json:"action"`
	Fields     []string `json:"fields"`
	RedirectTo string   `json:"redirectTo,omitempty"`
}

type mePayload struct {
	Subject     *rbac.Subject             `json:"subject"`
	Permissions rbac.EffectivePermissions `json:"permissions"`
	CSRFToken   string                    `json:"csrf_token,omitempty"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, loginPage{
		Action:     h.paths.Login,
		Fields:     []string{"email", "password", "redirectTo"},
		RedirectTo: safeRedirect(r.URL.Query().Get("redirectTo"), ""),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	if errs := h.validate(form); len(errs) > 0 {
		httpx.JSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		h.logger.Info("login rejected", slog.String("email", form.Email))
		httpx.Problem(w, http.StatusBadRequest, "Invalid Credentials", "email or password is not valid")
		return
	}
	if !h.startSession(w, r, user) {
		return
	}
	http.Redirect(w, r, safeRedirect(r.PostFormValue("redirectTo"), h.paths.Landing), http.StatusSeeOther)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	form := registerForm{
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		DisplayName: strings.TrimSpace(r.PostFormValue("display_name")),
		Password:    r.PostFormValue("password"),
	}
	if errs := h.validate(form); len(errs) > 0 {
		httpx.JSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}
	user, err := h.service.Register(r.Context(), form.Email, form.DisplayName, form.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpx.RespondError(w, httpx.ErrDuplicate)
			return
		}
		h.logger.Error("register user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !h.startSession(w, r, user) {
		return
	}
	http.Redirect(w, r, h.paths.Landing, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := h.sessions.Destroy(r.Context(), r.Cookies())
	if err != nil {
		h.logger.Warn("destroy session", slog.Any("error", err))
	}
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	http.Redirect(w, r, h.paths.Login, http.StatusSeeOther)
}

func (h *Handler) showMe(w http.ResponseWriter, r *http.Request) {
	subject := rbac.SubjectFromContext(r.Context())
	if subject == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	payload := mePayload{
		Subject:     subject,
		Permissions: rbac.GetUserEffectivePermissions(subject.Role),
	}
	if token, err := h.csrf.Token(shared.LoginIDFromContext(r.Context())); err == nil {
		payload.CSRFToken = token
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "id")
	if !h.rbac.Authorize(r, rbac.ActionView, ownerID) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	profile, err := h.service.Profile(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("load profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *User) bool {
	cookie, err := h.sessions.Create(r.Context(), user.ID, user.Role)
	if err != nil {
		h.logger.Error("create session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return false
	}
	http.SetCookie(w, cookie)
	return true
}

func (h *Handler) validate(form any) map[string]string {
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = fieldErr.Tag()
			}
		} else {
			errs["general"] = err.Error()
		}
	}
	return errs
}

// safeRedirect accepts only local absolute paths, falling back otherwise.
func safeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return target
}
