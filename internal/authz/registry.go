package authz

// Grant pairs a permission with the scope it is exercised under.
type Grant struct {
	Permission Permission
	Scope      Scope
}

// matrix is the single source of truth for the role/permission model. The
// decision engine, the seed migration for the database row-filter layer and
// the registry tests all derive from it. Edit it only alongside a catalog
// migration.
var matrix = map[Role][]Grant{
	RoleOwner: {
		{PermUsersView, ScopeGlobal},
		{PermUsersCreate, ScopeGlobal},
		{PermUsersEdit, ScopeGlobal},
		{PermUsersDelete, ScopeGlobal},
		{PermClientsView, ScopeGlobal},
		{PermClientsCreate, ScopeGlobal},
		{PermClientsEdit, ScopeGlobal},
		{PermClientsDelete, ScopeGlobal},
		{PermOrgView, ScopeGlobal},
		{PermOrgEdit, ScopeGlobal},
		{PermOrgDelete, ScopeGlobal},
		{PermOrgTransfer, ScopeGlobal},
	},
	RoleAdmin: {
		{PermUsersView, ScopeGlobal},
		{PermUsersCreate, ScopeGlobal},
		{PermUsersEdit, ScopeGlobal},
		{PermUsersDelete, ScopeGlobal},
		{PermClientsView, ScopeGlobal},
		{PermClientsCreate, ScopeGlobal},
		{PermClientsEdit, ScopeGlobal},
		{PermClientsDelete, ScopeGlobal},
		{PermOrgView, ScopeGlobal},
		{PermOrgEdit, ScopeGlobal},
	},
	RoleManager: {
		{PermUsersView, ScopeGlobal},
		{PermUsersEdit, ScopeSelf},
		{PermClientsView, ScopeGlobal},
		{PermClientsCreate, ScopeGlobal},
		{PermClientsEdit, ScopeGlobal},
	},
	RoleStaff: {
		{PermUsersEdit, ScopeSelf},
		{PermClientsView, ScopeGlobal},
	},
}

func init() {
	// super_admin mirrors owner; the cross-tenant bypass lives in the guard,
	// not in the grant list.
	matrix[RoleSuperAdmin] = matrix[RoleOwner]
}

// PermissionsFor returns the allow-set for a role mapped to grant scope.
// The map is a copy; callers may mutate it freely.
func PermissionsFor(role Role) map[Permission]Scope {
	grants := matrix[role]
	out := make(map[Permission]Scope, len(grants))
	for _, g := range grants {
		out[g.Permission] = g.Scope
	}
	return out
}

// GrantFor reports whether role holds perm and, if so, under which scope.
func GrantFor(role Role, perm Permission) (Scope, bool) {
	for _, g := range matrix[role] {
		if g.Permission == perm {
			return g.Scope, true
		}
	}
	return "", false
}

// ExportedGrant is one row of the declarative policy export.
type ExportedGrant struct {
	Role       string `json:"role"`
	Permission string `json:"permission"`
	Scope      string `json:"scope"`
}

// Export flattens the matrix in stable order. The seed migration feeds it
// into role_permissions so the database-level filter never drifts from the
// in-process engine.
func Export() []ExportedGrant {
	var out []ExportedGrant
	for _, role := range AllRoles() {
		for _, g := range matrix[role] {
			out = append(out, ExportedGrant{
				Role:       role.String(),
				Permission: g.Permission.String(),
				Scope:      string(g.Scope),
			})
		}
	}
	return out
}
