package auth

import (
	"context"
	"time"

	"praxis.software/internal/authz"
)

// Store describes the persistence required by the identity subsystem.
// Implementations: internal/store/pg for production, MemoryStore for tests
// and DSN-less development runs.
type Store interface {
	Organizations() OrganizationStore
	Users() UserStore
	Sessions() SessionStore
}

type OrganizationStore interface {
	Create(ctx context.Context, org *Organization) error
	Find(ctx context.Context, id string) (*Organization, error)
	Update(ctx context.Context, id string, upd OrganizationUpdate) (*Organization, error)
}

// UserStore manages user rows. Create must rely on a storage-level unique
// constraint over the normalized email: two concurrent creates for the same
// email must leave exactly one row, the loser receiving ErrConflict.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ListByOrg(ctx context.Context, orgID string) ([]*User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// SessionStore owns session rows exclusively. Expiry is passive: rows are
// judged stale at validation time, no sweeper is required.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllExcept(ctx context.Context, userID, keepID string) error
	RevokeAll(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// OrganizationUpdate applies partial changes; nil fields are untouched.
type OrganizationUpdate struct {
	Name   *string
	Status *string
}

// UserUpdate applies partial changes; nil fields are untouched. Role and
// IsActive changes must already have passed the decision engine.
type UserUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *authz.Role
	IsActive  *bool
}
