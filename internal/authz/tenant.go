package authz

// CheckTenant enforces the tenant isolation boundary. resourceOrgID nil
// marks a system-wide resource: visible to every tenant under a read
// permission, writable only by a super admin. Everything else requires the
// resource to live in the actor's session organization.
//
// The engine calls this for every resource-bearing decision; business
// services may also call it directly when composing their own pipelines.
func CheckTenant(actor Actor, resourceOrgID *string, perm Permission) Decision {
	if actor.Role == RoleSuperAdmin {
		return Allow()
	}
	if resourceOrgID == nil {
		if perm.Reads() {
			return Allow()
		}
		return Deny(ReasonSystemReadOnly)
	}
	if *resourceOrgID == actor.OrganizationID {
		return Allow()
	}
	return Deny(ReasonCrossTenant)
}
