package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"praxis.software/internal/authz"
)

const rolePermissionsSeedName = "001_role_permissions.sql"

// WriteRolePermissionsSeed renders the permission matrix into a seed file.
// The role_permissions table is regenerated from the in-process registry on
// every invocation, so the database-level view of the matrix cannot drift
// from the engine that actually decides.
func WriteRolePermissionsSeed(seedsDir string) (string, error) {
	if err := os.MkdirAll(seedsDir, 0o755); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("-- Generated from the permission registry. Do not edit by hand.\n")
	b.WriteString("delete from role_permissions;\n")
	for _, g := range authz.Export() {
		fmt.Fprintf(&b, "insert into role_permissions (role, permission, scope) values ('%s', '%s', '%s');\n",
			g.Role, g.Permission, g.Scope)
	}

	path := filepath.Join(seedsDir, rolePermissionsSeedName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
