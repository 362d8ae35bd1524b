package rbac

import "fmt"

// hierarchy is the total order over concrete roles. Higher is more privileged.
var hierarchy = map[Role]int{
	RoleUser:          1,
	RoleClientAdmin:   2,
	RolePlatformAdmin: 3,
}

func init() {
	if err := validateHierarchy(Roles(), hierarchy); err != nil {
		panic(err)
	}
}

// validateHierarchy checks every role has a positive, distinct level.
func validateHierarchy(roles []Role, levels map[Role]int) error {
	seen := make(map[int]Role, len(roles))
	for _, role := range roles {
		level, ok := levels[role]
		if !ok || level <= 0 {
			return fmt.Errorf("%w: %q has no hierarchy level", ErrInvalidRole, role)
		}
		if other, dup := seen[level]; dup {
			return fmt.Errorf("rbac: roles %q and %q share level %d", other, role, level)
		}
		seen[level] = role
	}
	if len(levels) != len(roles) {
		return fmt.Errorf("rbac: hierarchy defines %d levels for %d roles", len(levels), len(roles))
	}
	return nil
}

// Level returns the hierarchy level of role, 0 for absent or unknown roles.
func Level(role Role) int {
	return hierarchy[role]
}

// HasRole reports whether role meets or exceeds required.
func HasRole(role, required Role) bool {
	if role == RoleNone || !required.Valid() {
		return false
	}
	return Level(role) >= Level(required)
}
