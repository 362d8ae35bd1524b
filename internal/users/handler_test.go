package users_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantdesk/tenantdesk/internal/rbac"
	"github.com/tenantdesk/tenantdesk/internal/users"
)

type memoryRepo struct {
	mu    sync.Mutex
	users []users.User
}

func (m *memoryRepo) ListUsers(ctx context.Context) ([]users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]users.User(nil), m.users...), nil
}

func (m *memoryRepo) UpdateRole(ctx context.Context, id string, role rbac.Role) (users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].Role = role
			return m.users[i], nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func newRouter(repo *memoryRepo, subject *rbac.Subject) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if subject != nil {
				req = req.WithContext(rbac.ContextWithSubject(req.Context(), subject))
			}
			next.ServeHTTP(w, req)
		})
	})
	h := users.NewHandler(nil, users.NewService(repo), rbac.Middleware{Strict: true})
	r.Route("/api/protected", h.MountRoutes)
	return r
}

func seed() *memoryRepo {
	return &memoryRepo{users: []users.User{
		{ID: "u1", Email: "alice@example.com", Role: rbac.RoleUser, IsActive: true},
		{ID: "p1", Email: "root@example.com", Role: rbac.RolePlatformAdmin, IsActive: true},
	}}
}

func TestListUsersRequiresViewUsers(t *testing.T) {
	repo := seed()

	rr := httptest.NewRecorder()
	newRouter(repo, &rbac.Subject{ID: "u1", Role: rbac.RoleUser}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/protected/users", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	newRouter(repo, &rbac.Subject{ID: "c1", Role: rbac.RoleClientAdmin}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/protected/users", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Users []users.User `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Users, 2)
}

func putRole(h http.Handler, id, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, "/api/protected/users/"+id+"/role", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAssignRole(t *testing.T) {
	repo := seed()
	h := newRouter(repo, &rbac.Subject{ID: "p1", Role: rbac.RolePlatformAdmin})

	rr := putRole(h, "u1", `{"role":"client_admin"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var updated users.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, rbac.RoleClientAdmin, updated.Role)
	assert.Equal(t, rbac.RoleClientAdmin, repo.users[0].Role)

	assert.Equal(t, http.StatusNotFound, putRole(h, "missing", `{"role":"user"}`).Code)
	assert.Equal(t, http.StatusConflict, putRole(h, "p1", `{"role":"user"}`).Code)
	assert.Equal(t, http.StatusBadRequest, putRole(h, "u1", `{"role":"owner"}`).Code)
	assert.Equal(t, http.StatusBadRequest, putRole(h, "u1", `{"role":"user","extra":1}`).Code)
}

func TestAssignRoleDeniedForClientAdmin(t *testing.T) {
	repo := seed()
	h := newRouter(repo, &rbac.Subject{ID: "c1", Role: rbac.RoleClientAdmin})

	rr := putRole(h, "u1", `{"role":"platform_admin"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, rbac.RoleUser, repo.users[0].Role)
}
