// Package authz is the policy-decision core: a fixed permission catalog, the
// role grant matrix and a pure decision function over them. It performs no
// I/O; persistence and auditing belong to the callers.
package authz

// Reason codes attached to every denial. They are recorded in the audit log
// but not necessarily surfaced to clients verbatim.
type Reason string

const (
	ReasonNotGranted     Reason = "NOT_GRANTED"
	ReasonSelfScope      Reason = "SELF_SCOPE_VIOLATION"
	ReasonCrossTenant    Reason = "CROSS_TENANT"
	ReasonSystemReadOnly Reason = "SYSTEM_RESOURCE_READ_ONLY"
	ReasonPrivilegeRank  Reason = "PRIVILEGE_RANK"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow returns an allowing decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny returns a denial carrying the given reason.
func Deny(reason Reason) Decision { return Decision{Reason: reason} }

// Actor is the identity resolved from a session. The organization is the one
// the session was minted for, fixed for the session's lifetime.
type Actor struct {
	UserID         string
	OrganizationID string
	Role           Role
}

// Resource describes the target of an operation, as much of it as the
// caller knows. OrganizationID nil marks a system-wide resource (no owning
// tenant). TargetRole and AssignRole only matter for operations against
// user records: TargetRole is the target's current role, AssignRole a role
// being assigned by the operation.
type Resource struct {
	ID             string
	OrganizationID *string
	TargetRole     Role
	AssignRole     Role

	// PrivilegeMutation marks operations that change the target's standing
	// without assigning a role, such as deactivation. They carry the same
	// rank gate as deletion.
	PrivilegeMutation bool
}

// Authorize decides whether actor may exercise perm against res. It is pure
// and deterministic: identical inputs always produce the identical decision,
// with no hidden state advance. res may be nil for operations without a
// concrete target.
func Authorize(actor Actor, perm Permission, res *Resource) Decision {
	scope, ok := GrantFor(actor.Role, perm)
	if !ok {
		return Deny(ReasonNotGranted)
	}

	if scope == ScopeSelf {
		if res == nil || res.ID == "" || res.ID != actor.UserID {
			return Deny(ReasonSelfScope)
		}
	}

	if res != nil {
		if d := CheckTenant(actor, res.OrganizationID, perm); !d.Allowed {
			return d
		}
	}

	// Privilege-rank rules apply to mutations that change a target's role or
	// existence: deleting a user, or assigning a role.
	if res != nil {
		if (perm == PermUsersDelete || res.PrivilegeMutation) && res.TargetRole != "" {
			if actor.Role.Rank() <= res.TargetRole.Rank() {
				return Deny(ReasonPrivilegeRank)
			}
		}
		if res.AssignRole != "" {
			if res.TargetRole != "" && actor.Role.Rank() <= res.TargetRole.Rank() {
				return Deny(ReasonPrivilegeRank)
			}
			if actor.Role == RoleOwner {
				// An owner may assign any rank up to and including owner.
				if res.AssignRole.Rank() > RoleOwner.Rank() {
					return Deny(ReasonPrivilegeRank)
				}
			} else if actor.Role.Rank() <= res.AssignRole.Rank() {
				return Deny(ReasonPrivilegeRank)
			}
		}
	}

	return Allow()
}
