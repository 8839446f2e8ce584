package auth

import (
	"time"

	"praxis.software/internal/authz"
)

const (
	OrgStatusActive  = "active"
	OrgStatusDeleted = "deleted"
)

// Organization is the tenant unit. Organizations are soft-deleted: the row
// survives while sessions or audit entries still reference it.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a member of exactly one organization. Deleting a user removes the
// row; audit entries store actor ids as opaque strings and survive the
// deletion.
type User struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name,omitempty"`
	LastName       string     `json:"last_name,omitempty"`
	Role           authz.Role `json:"role"`
	IsActive       bool       `json:"is_active"`
	PasswordHash   string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Session is the authoritative record behind every issued token. A token is
// only as valid as its row: revocation and expiry are checked here, never
// against token contents alone.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Revoked        bool      `json:"revoked"`
}

// ActorContext is the resolved identity handed to business services. The
// (user, organization) pair is fixed for the session's lifetime.
type ActorContext struct {
	UserID         string
	OrganizationID string
	Role           authz.Role
	SessionID      string
}

// Actor converts the context into the decision engine's actor shape.
func (a ActorContext) Actor() authz.Actor {
	return authz.Actor{
		UserID:         a.UserID,
		OrganizationID: a.OrganizationID,
		Role:           a.Role,
	}
}
