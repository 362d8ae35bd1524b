package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	perms := DefaultCatalog().Permissions()
	require.Len(t, perms, len(defaultEntries))

	seen := make(map[string]bool, len(perms))
	for _, p := range perms {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
		assert.NotEmpty(t, p.Name, p.ID)
		assert.NotEmpty(t, p.AllowedRoles, p.ID)
		for _, role := range p.AllowedRoles {
			assert.True(t, role.Valid(), "%s allows invalid role %q", p.ID, role)
		}
	}
	for _, id := range []string{PermCreateUsers, PermManageSettings, PermViewAnalytics, PermViewPermissions} {
		assert.True(t, seen[id], "catalog misses %s", id)
	}
}

func TestNewCatalogRejectsBadEntries(t *testing.T) {
	cases := []struct {
		name    string
		entries []Permission
		wantErr error
	}{
		{
			name:    "empty allowed roles",
			entries: []Permission{{ID: "a", Name: "A"}},
			wantErr: ErrEmptyAllowedRoles,
		},
		{
			name: "duplicate id",
			entries: []Permission{
				{ID: "a", AllowedRoles: []Role{RoleUser}},
				{ID: "a", AllowedRoles: []Role{RoleClientAdmin}},
			},
			wantErr: ErrDuplicatePermission,
		},
		{
			name:    "unknown role",
			entries: []Permission{{ID: "a", AllowedRoles: []Role{"owner"}}},
			wantErr: ErrInvalidRole,
		},
		{
			name:    "anonymous role",
			entries: []Permission{{ID: "a", AllowedRoles: []Role{RoleNone}}},
			wantErr: ErrInvalidRole,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCatalog(tc.entries)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	_, err := NewCatalog([]Permission{{ID: "  ", AllowedRoles: []Role{RoleUser}}})
	assert.Error(t, err)
}

func TestMustCatalogPanicsOnInvalidTable(t *testing.T) {
	assert.Panics(t, func() {
		mustCatalog([]Permission{{ID: "orphan"}})
	})
}

func TestCatalogReturnsCopies(t *testing.T) {
	c := DefaultCatalog()

	perms := c.Permissions()
	perms[0].ID = "tampered"
	perms[0].AllowedRoles[0] = RoleNone

	entry, ok := c.Lookup(PermViewDashboard)
	require.True(t, ok)
	assert.Equal(t, PermViewDashboard, entry.ID)
	assert.Equal(t, RolePlatformAdmin, entry.AllowedRoles[0])

	entry.AllowedRoles[0] = RoleNone
	again, _ := c.Lookup(PermViewDashboard)
	assert.Equal(t, RolePlatformAdmin, again.AllowedRoles[0])

	_, ok = c.Lookup("nope")
	assert.False(t, ok)
}

func TestValidateHierarchy(t *testing.T) {
	require.NoError(t, validateHierarchy(Roles(), hierarchy))

	assert.ErrorIs(t, validateHierarchy(Roles(), map[Role]int{RoleUser: 1, RoleClientAdmin: 2}), ErrInvalidRole)
	assert.Error(t, validateHierarchy(Roles(), map[Role]int{RoleUser: 1, RoleClientAdmin: 1, RolePlatformAdmin: 3}))
	assert.Error(t, validateHierarchy(Roles(), map[Role]int{RoleUser: 0, RoleClientAdmin: 2, RolePlatformAdmin: 3}))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" client_admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleClientAdmin, role)

	_, err = ParseRole("")
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = ParseRole("Platform_Admin")
	assert.ErrorIs(t, err, ErrInvalidRole)
}
