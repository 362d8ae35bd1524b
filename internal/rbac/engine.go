package rbac

import "fmt"

// HasPermission reports whether role holds the permission id.
// An id missing from the catalog is a programming error and yields ErrUnknownPermission.
func (c *Catalog) HasPermission(role Role, id string) (bool, error) {
	if role == RoleNone {
		return false, nil
	}
	i, ok := c.index[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownPermission, id)
	}
	return c.entries[i].allows(role), nil
}

// CanPerformAction applies the ownership policy. It never consults the catalog.
func CanPerformAction(role Role, action Action, resourceOwnerID, requesterID string) bool {
	switch role {
	case RolePlatformAdmin:
		return true
	case RoleClientAdmin:
		switch action {
		case ActionView, ActionCreate, ActionEdit:
			return true
		default:
			return false
		}
	case RoleUser:
		if action != ActionView {
			return false
		}
		return resourceOwnerID != "" && requesterID != "" && resourceOwnerID == requesterID
	default:
		return false
	}
}

// RolePermissions returns every entry role may hold, in catalog order.
func (c *Catalog) RolePermissions(role Role) []Permission {
	out := make([]Permission, 0)
	if role == RoleNone {
		return out
	}
	for _, entry := range c.entries {
		if entry.allows(role) {
			out = append(out, clonePermission(entry))
		}
	}
	return out
}

// EffectivePermissions builds the aggregate view for role.
func (c *Catalog) EffectivePermissions(role Role) EffectivePermissions {
	eff := EffectivePermissions{Permissions: c.RolePermissions(role)}
	if role == RoleNone {
		return eff
	}
	eff.RoleLevel = Level(role)
	eff.CanManageUsers = c.holds(role, PermCreateUsers)
	eff.CanManageSystem = c.holds(role, PermManageSettings)
	eff.CanViewAnalytics = c.holds(role, PermViewAnalytics)
	return eff
}

// holds is HasPermission for ids a catalog may legitimately omit.
func (c *Catalog) holds(role Role, id string) bool {
	ok, err := c.HasPermission(role, id)
	return err == nil && ok
}

// HasPermission checks id against the default catalog.
func HasPermission(role Role, id string) (bool, error) {
	return defaultCatalog.HasPermission(role, id)
}

// GetRolePermissions filters the default catalog by role.
func GetRolePermissions(role Role) []Permission {
	return defaultCatalog.RolePermissions(role)
}

// GetUserEffectivePermissions aggregates the default catalog for role.
func GetUserEffectivePermissions(role Role) EffectivePermissions {
	return defaultCatalog.EffectivePermissions(role)
}
