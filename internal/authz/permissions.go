package authz

// Permission identifies a single capability in the platform catalog.
// The catalog is closed: it changes by registry migration, never at runtime.
type Permission string

const (
	PermUsersView   Permission = "users.view"
	PermUsersCreate Permission = "users.create"
	PermUsersEdit   Permission = "users.edit"
	PermUsersDelete Permission = "users.delete"

	PermClientsView   Permission = "clients.view"
	PermClientsCreate Permission = "clients.create"
	PermClientsEdit   Permission = "clients.edit"
	PermClientsDelete Permission = "clients.delete"

	PermOrgView     Permission = "organization.view"
	PermOrgEdit     Permission = "organization.edit"
	PermOrgDelete   Permission = "organization.delete"
	PermOrgTransfer Permission = "organization.transfer"
)

// allPermissions is the canonical catalog order. Registry tests assert the
// partition property against this slice.
var allPermissions = []Permission{
	PermUsersView,
	PermUsersCreate,
	PermUsersEdit,
	PermUsersDelete,
	PermClientsView,
	PermClientsCreate,
	PermClientsEdit,
	PermClientsDelete,
	PermOrgView,
	PermOrgEdit,
	PermOrgDelete,
	PermOrgTransfer,
}

// AllPermissions returns a copy of the full catalog in stable order.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// Valid reports whether p belongs to the catalog.
func (p Permission) Valid() bool {
	for _, known := range allPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// Reads reports whether the permission only observes state. System-wide
// resources are visible under read permissions but writable only by a
// super admin, so the cross-tenant guard depends on this predicate.
func (p Permission) Reads() bool {
	switch p {
	case PermUsersView, PermClientsView, PermOrgView:
		return true
	}
	return false
}

func (p Permission) String() string { return string(p) }

// Scope narrows a grant. ScopeSelf restricts the capability to the actor's
// own record.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeSelf   Scope = "self"
)
