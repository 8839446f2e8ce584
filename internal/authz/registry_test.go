package authz

import "testing"

func TestCatalogSize(t *testing.T) {
	if len(allPermissions) != 12 {
		t.Fatalf("catalog has %d permissions, want 12", len(allPermissions))
	}
	seen := make(map[Permission]struct{})
	for _, p := range allPermissions {
		if !p.Valid() {
			t.Fatalf("catalog permission %q fails Valid()", p)
		}
		if _, dup := seen[p]; dup {
			t.Fatalf("duplicate permission %q in catalog", p)
		}
		seen[p] = struct{}{}
	}
}

// Every role must partition the catalog: allowed plus denied covers all 12
// permissions, and the two sets are disjoint.
func TestRolePartition(t *testing.T) {
	for _, role := range AllRoles() {
		allowed := PermissionsFor(role)
		denied := 0
		for _, p := range allPermissions {
			if _, ok := allowed[p]; !ok {
				denied++
			}
		}
		if len(allowed)+denied != len(allPermissions) {
			t.Fatalf("role %s: %d allowed + %d denied != %d", role, len(allowed), denied, len(allPermissions))
		}
		for p := range allowed {
			if !p.Valid() {
				t.Fatalf("role %s grants unknown permission %q", role, p)
			}
		}
	}
}

func TestRoleAllowCounts(t *testing.T) {
	counts := map[Role]int{
		RoleOwner:      12,
		RoleSuperAdmin: 12,
		RoleAdmin:      10,
		RoleManager:    5,
		RoleStaff:      2,
	}
	for role, want := range counts {
		if got := len(PermissionsFor(role)); got != want {
			t.Fatalf("role %s allows %d permissions, want %d", role, got, want)
		}
	}
}

func TestNotableDenials(t *testing.T) {
	cases := []struct {
		role Role
		perm Permission
	}{
		{RoleAdmin, PermOrgDelete},
		{RoleAdmin, PermOrgTransfer},
		{RoleManager, PermUsersCreate},
		{RoleManager, PermUsersDelete},
		{RoleManager, PermClientsDelete},
		{RoleManager, PermOrgView},
		{RoleManager, PermOrgEdit},
		{RoleManager, PermOrgDelete},
		{RoleManager, PermOrgTransfer},
		{RoleStaff, PermUsersView},
		{RoleStaff, PermClientsCreate},
	}
	for _, tc := range cases {
		if _, ok := GrantFor(tc.role, tc.perm); ok {
			t.Fatalf("role %s unexpectedly granted %s", tc.role, tc.perm)
		}
	}
}

func TestUsersEditScopePerRole(t *testing.T) {
	wantScopes := map[Role]Scope{
		RoleOwner:      ScopeGlobal,
		RoleSuperAdmin: ScopeGlobal,
		RoleAdmin:      ScopeGlobal,
		RoleManager:    ScopeSelf,
		RoleStaff:      ScopeSelf,
	}
	for role, want := range wantScopes {
		scope, ok := GrantFor(role, PermUsersEdit)
		if !ok {
			t.Fatalf("role %s missing users.edit", role)
		}
		if scope != want {
			t.Fatalf("role %s users.edit scope = %s, want %s", role, scope, want)
		}
	}
}

func TestRankTotalOrder(t *testing.T) {
	order := AllRoles()
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("rank order broken: %s (%d) <= %s (%d)",
				order[i], order[i].Rank(), order[i-1], order[i-1].Rank())
		}
	}
	if Role("intruder").Rank() != 0 {
		t.Fatalf("unknown role must rank zero")
	}
}

func TestExportMirrorsMatrix(t *testing.T) {
	rows := Export()
	perRole := make(map[string]int)
	for _, row := range rows {
		perRole[row.Role]++
		if !Permission(row.Permission).Valid() {
			t.Fatalf("export contains unknown permission %q", row.Permission)
		}
		if row.Scope != string(ScopeGlobal) && row.Scope != string(ScopeSelf) {
			t.Fatalf("export contains unknown scope %q", row.Scope)
		}
	}
	for _, role := range AllRoles() {
		if perRole[role.String()] != len(PermissionsFor(role)) {
			t.Fatalf("export row count for %s = %d, want %d",
				role, perRole[role.String()], len(PermissionsFor(role)))
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("  Owner "); err != nil || r != RoleOwner {
		t.Fatalf("ParseRole(Owner) = %v, %v", r, err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
