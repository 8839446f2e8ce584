package authz

import (
	"fmt"
	"strings"
)

// Role names a built-in role. Roles are a fixed set; organizations do not
// define their own.
type Role string

const (
	RoleStaff      Role = "staff"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleOwner      Role = "owner"
	RoleSuperAdmin Role = "super_admin"
)

// roleRanks is a total order over roles. Rank gates who may edit, delete or
// promote whom: the actor must strictly outrank the target.
var roleRanks = map[Role]int{
	RoleStaff:      10,
	RoleManager:    20,
	RoleAdmin:      30,
	RoleOwner:      40,
	RoleSuperAdmin: 50,
}

// AllRoles returns the built-in roles ordered by ascending rank.
func AllRoles() []Role {
	return []Role{RoleStaff, RoleManager, RoleAdmin, RoleOwner, RoleSuperAdmin}
}

// Rank returns the privilege rank for the role. Unknown roles rank zero,
// below every real role.
func (r Role) Rank() int { return roleRanks[r] }

// Valid reports whether r is a built-in role.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

func (r Role) String() string { return string(r) }

// ParseRole normalizes and validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(strings.ToLower(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
