package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Permission ids referenced from Go code.
const (
	PermViewDashboard     = "view_dashboard"
	PermViewCompanies     = "view_companies"
	PermCreateCompanies   = "create_companies"
	PermEditCompanies     = "edit_companies"
	PermDeleteCompanies   = "delete_companies"
	PermViewUsers         = "view_users"
	PermCreateUsers       = "create_users"
	PermEditUsers         = "edit_users"
	PermDeleteUsers       = "delete_users"
	PermAssignRoles       = "assign_roles"
	PermViewCalculators   = "view_calculators"
	PermCreateCalculators = "create_calculators"
	PermEditCalculators   = "edit_calculators"
	PermDeleteCalculators = "delete_calculators"
	PermViewLeads         = "view_leads"
	PermExportLeads       = "export_leads"
	PermDeleteLeads       = "delete_leads"
	PermViewAnalytics     = "view_analytics"
	PermExportAnalytics   = "export_analytics"
	PermManageSettings    = "manage_settings"
	PermViewPermissions   = "view_permissions"
)

var (
	allRoles     = []Role{RolePlatformAdmin, RoleClientAdmin, RoleUser}
	adminRoles   = []Role{RolePlatformAdmin, RoleClientAdmin}
	platformOnly = []Role{RolePlatformAdmin}
)

var defaultEntries = []Permission{
	{ID: PermViewDashboard, Name: "View dashboard", Description: "Open the authenticated dashboard", AllowedRoles: allRoles},
	{ID: PermViewCompanies, Name: "View companies", Description: "List and open company records", AllowedRoles: adminRoles},
	{ID: PermCreateCompanies, Name: "Create companies", Description: "Register new tenant companies", AllowedRoles: platformOnly},
	{ID: PermEditCompanies, Name: "Edit companies", Description: "Change company details", AllowedRoles: adminRoles},
	{ID: PermDeleteCompanies, Name: "Delete companies", Description: "Remove tenant companies", AllowedRoles: platformOnly},
	{ID: PermViewUsers, Name: "View users", Description: "List users and their roles", AllowedRoles: adminRoles},
	{ID: PermCreateUsers, Name: "Create users", Description: "Invite or create user accounts", AllowedRoles: adminRoles},
	{ID: PermEditUsers, Name: "Edit users", Description: "Change user profiles", AllowedRoles: adminRoles},
	{ID: PermDeleteUsers, Name: "Delete users", Description: "Remove user accounts", AllowedRoles: platformOnly},
	{ID: PermAssignRoles, Name: "Assign roles", Description: "Grant or revoke roles", AllowedRoles: platformOnly},
	{ID: PermViewCalculators, Name: "View calculators", Description: "Open published calculators", AllowedRoles: allRoles},
	{ID: PermCreateCalculators, Name: "Create calculators", Description: "Build new calculators", AllowedRoles: adminRoles},
	{ID: PermEditCalculators, Name: "Edit calculators", Description: "Change calculator configuration", AllowedRoles: adminRoles},
	{ID: PermDeleteCalculators, Name: "Delete calculators", Description: "Remove calculators", AllowedRoles: adminRoles},
	{ID: PermViewLeads, Name: "View leads", Description: "Read captured leads", AllowedRoles: allRoles},
	{ID: PermExportLeads, Name: "Export leads", Description: "Download leads as CSV", AllowedRoles: adminRoles},
	{ID: PermDeleteLeads, Name: "Delete leads", Description: "Remove captured leads", AllowedRoles: adminRoles},
	{ID: PermViewAnalytics, Name: "View analytics", Description: "Open analytics widgets", AllowedRoles: adminRoles},
	{ID: PermExportAnalytics, Name: "Export analytics", Description: "Download analytics reports", AllowedRoles: adminRoles},
	{ID: PermManageSettings, Name: "Manage settings", Description: "Change platform-wide settings", AllowedRoles: platformOnly},
	{ID: PermViewPermissions, Name: "View permissions", Description: "Read the permission catalog", AllowedRoles: adminRoles},
}

var defaultCatalog = mustCatalog(defaultEntries)

// Catalog is an immutable permission table. The zero value is empty.
type Catalog struct {
	entries []Permission
	index   map[string]int
}

// NewCatalog validates entries and builds a Catalog. Entries are copied.
func NewCatalog(entries []Permission) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Permission, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, entry := range entries {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, errors.New("rbac: permission id required")
		}
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePermission, id)
		}
		if len(entry.AllowedRoles) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyAllowedRoles, id)
		}
		roles := make([]Role, 0, len(entry.AllowedRoles))
		for _, role := range entry.AllowedRoles {
			if !role.Valid() {
				return nil, fmt.Errorf("%w: %q in permission %s", ErrInvalidRole, role, id)
			}
			roles = append(roles, role)
		}
		entry.ID = id
		entry.AllowedRoles = roles
		c.index[id] = len(c.entries)
		c.entries = append(c.entries, entry)
	}
	return c, nil
}

func mustCatalog(entries []Permission) *Catalog {
	c, err := NewCatalog(entries)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog returns the process-wide catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// Permissions returns a copy of every entry in catalog order.
func (c *Catalog) Permissions() []Permission {
	out := make([]Permission, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, clonePermission(entry))
	}
	return out
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id string) (Permission, bool) {
	i, ok := c.index[id]
	if !ok {
		return Permission{}, false
	}
	return clonePermission(c.entries[i]), true
}

// Contains reports whether id resolves to a catalog entry.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

func clonePermission(p Permission) Permission {
	roles := make([]Role, len(p.AllowedRoles))
	copy(roles, p.AllowedRoles)
	p.AllowedRoles = roles
	return p
}
