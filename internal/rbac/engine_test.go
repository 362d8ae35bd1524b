package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allActions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionAssignRoles, ActionExport, "archive", ""}

func TestHasPermissionMatchesAllowedRoles(t *testing.T) {
	for _, p := range DefaultCatalog().Permissions() {
		for _, role := range Roles() {
			got, err := HasPermission(role, p.ID)
			require.NoError(t, err)
			assert.Equal(t, p.allows(role), got, "%s/%s", role, p.ID)
		}
		got, err := HasPermission(RoleNone, p.ID)
		require.NoError(t, err)
		assert.False(t, got, "anonymous must not hold %s", p.ID)
	}
}

func TestHasPermissionUnknownID(t *testing.T) {
	ok, err := HasPermission(RolePlatformAdmin, "launch_rockets")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnknownPermission)

	// Absent role short-circuits before the lookup.
	ok, err = HasPermission(RoleNone, "launch_rockets")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestHasRoleFollowsHierarchy(t *testing.T) {
	for _, r1 := range Roles() {
		assert.True(t, HasRole(r1, r1), "reflexive for %s", r1)
		for _, r2 := range Roles() {
			assert.Equal(t, Level(r1) >= Level(r2), HasRole(r1, r2), "%s vs %s", r1, r2)
		}
		assert.False(t, HasRole(RoleNone, r1))
		assert.False(t, HasRole(r1, Role("owner")))
	}
	assert.True(t, HasRole(RolePlatformAdmin, RoleUser))
	assert.False(t, HasRole(RoleUser, RoleClientAdmin))
	assert.Equal(t, 0, Level(RoleNone))
}

func TestCanPerformActionPlatformAdminBypass(t *testing.T) {
	for _, action := range allActions {
		assert.True(t, CanPerformAction(RolePlatformAdmin, action, "", ""), string(action))
		assert.True(t, CanPerformAction(RolePlatformAdmin, action, "a", "b"), string(action))
	}
}

func TestCanPerformActionClientAdmin(t *testing.T) {
	for _, action := range []Action{ActionView, ActionCreate, ActionEdit} {
		assert.True(t, CanPerformAction(RoleClientAdmin, action, "", ""), string(action))
		assert.True(t, CanPerformAction(RoleClientAdmin, action, "owner", "other"), string(action))
	}
	for _, action := range []Action{ActionDelete, ActionAssignRoles, ActionExport, "archive", ""} {
		assert.False(t, CanPerformAction(RoleClientAdmin, action, "x", "x"), string(action))
	}
}

func TestCanPerformActionUserOwnership(t *testing.T) {
	assert.True(t, CanPerformAction(RoleUser, ActionView, "u1", "u1"))
	assert.False(t, CanPerformAction(RoleUser, ActionView, "u1", "u2"))
	assert.False(t, CanPerformAction(RoleUser, ActionView, "", "u1"))
	assert.False(t, CanPerformAction(RoleUser, ActionView, "u1", ""))
	assert.False(t, CanPerformAction(RoleUser, ActionView, "", ""), "empty ids are absent, not equal")
	for _, action := range allActions[1:] {
		assert.False(t, CanPerformAction(RoleUser, action, "u1", "u1"), string(action))
	}
}

func TestCanPerformActionAnonymousAndUnknownRoles(t *testing.T) {
	for _, action := range allActions {
		assert.False(t, CanPerformAction(RoleNone, action, "u1", "u1"))
		assert.False(t, CanPerformAction(Role("owner"), action, "u1", "u1"))
	}
}

func TestGetRolePermissions(t *testing.T) {
	catalog := DefaultCatalog().Permissions()
	for _, role := range Roles() {
		got := GetRolePermissions(role)
		var want []string
		for _, p := range catalog {
			if p.allows(role) {
				want = append(want, p.ID)
			}
		}
		ids := make([]string, 0, len(got))
		for _, p := range got {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, want, ids, "catalog order preserved for %s", role)
	}

	assert.Len(t, GetRolePermissions(RoleUser), 3)
	assert.Len(t, GetRolePermissions(RoleClientAdmin), 16)
	assert.Len(t, GetRolePermissions(RolePlatformAdmin), len(catalog))

	none := GetRolePermissions(RoleNone)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGetUserEffectivePermissions(t *testing.T) {
	user := GetUserEffectivePermissions(RoleUser)
	assert.Equal(t, 1, user.RoleLevel)
	assert.False(t, user.CanManageUsers)
	assert.False(t, user.CanManageSystem)
	assert.False(t, user.CanViewAnalytics)

	client := GetUserEffectivePermissions(RoleClientAdmin)
	assert.Equal(t, 2, client.RoleLevel)
	assert.True(t, client.CanManageUsers)
	assert.False(t, client.CanManageSystem)
	assert.True(t, client.CanViewAnalytics)

	platform := GetUserEffectivePermissions(RolePlatformAdmin)
	assert.Equal(t, 3, platform.RoleLevel)
	assert.True(t, platform.CanManageUsers)
	assert.True(t, platform.CanManageSystem)
	assert.True(t, platform.CanViewAnalytics)

	anon := GetUserEffectivePermissions(RoleNone)
	assert.Equal(t, 0, anon.RoleLevel)
	assert.Empty(t, anon.Permissions)
	assert.False(t, anon.CanManageUsers || anon.CanManageSystem || anon.CanViewAnalytics)
}

func TestEffectivePermissionsOnSparseCatalog(t *testing.T) {
	c, err := NewCatalog([]Permission{{ID: PermCreateUsers, AllowedRoles: []Role{RoleUser}}})
	require.NoError(t, err)

	eff := c.EffectivePermissions(RoleUser)
	assert.True(t, eff.CanManageUsers)
	assert.False(t, eff.CanManageSystem, "missing ids read as not held")
	assert.False(t, eff.CanViewAnalytics)
}

func TestEngineIsIdempotent(t *testing.T) {
	before := DefaultCatalog().Permissions()
	levels := map[Role]int{}
	for k, v := range hierarchy {
		levels[k] = v
	}

	for _, role := range append(Roles(), RoleNone) {
		assert.Equal(t, GetRolePermissions(role), GetRolePermissions(role))
		assert.Equal(t, GetUserEffectivePermissions(role), GetUserEffectivePermissions(role))
		for _, p := range before {
			a, errA := HasPermission(role, p.ID)
			b, errB := HasPermission(role, p.ID)
			assert.Equal(t, a, b)
			assert.Equal(t, errA, errB)
		}
		for _, action := range allActions {
			assert.Equal(t, CanPerformAction(role, action, "u", "u"), CanPerformAction(role, action, "u", "u"))
		}
	}

	// Mutating returned values never reaches the catalog.
	perms := GetRolePermissions(RolePlatformAdmin)
	perms[0].AllowedRoles = nil
	eff := GetUserEffectivePermissions(RolePlatformAdmin)
	eff.Permissions[0].Name = "changed"

	assert.Equal(t, before, DefaultCatalog().Permissions())
	assert.Equal(t, levels, hierarchy)
}

func BenchmarkHasPermission(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HasPermission(RoleClientAdmin, PermExportAnalytics)
	}
}

func BenchmarkGetUserEffectivePermissions(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = GetUserEffectivePermissions(RolePlatformAdmin)
	}
}
