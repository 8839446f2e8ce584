package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"praxis.software/internal/audit"
	"praxis.software/internal/authz"
	"praxis.software/internal/obs"
)

// Service ties the identity store, session manager, lockout machine and
// audit recorder into the operations the HTTP layer and business services
// consume. Every authorization check funnels through authorize so denials
// are uniformly audited and counted.
type Service struct {
	store    Store
	sessions *SessionManager
	lockout  *Lockout
	recorder *audit.Recorder
	now      func() time.Time
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source. Test use.
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(store Store, sessions *SessionManager, lockout *Lockout, recorder *audit.Recorder, opts ...ServiceOption) (*Service, error) {
	if store == nil || sessions == nil || lockout == nil || recorder == nil {
		return nil, fmt.Errorf("%w: store, sessions, lockout and recorder are required", ErrInvalidInput)
	}
	s := &Service{
		store:    store,
		sessions: sessions,
		lockout:  lockout,
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sessions exposes the session manager for the HTTP authentication layer.
func (s *Service) Sessions() *SessionManager { return s.sessions }

// authorize runs the decision engine, audits and counts every denial, and
// returns a DeniedError carrying the reason code.
func (s *Service) authorize(ctx context.Context, actor ActorContext, perm authz.Permission, res *authz.Resource, targetType, targetID string) error {
	d := authz.Authorize(actor.Actor(), perm, res)
	obs.ObserveAuthzDecision(d.Allowed, string(d.Reason))
	if d.Allowed {
		return nil
	}
	_ = s.recorder.Record(ctx, audit.Entry{
		ActorID:        actor.UserID,
		OrganizationID: actor.OrganizationID,
		Action:         perm.String(),
		TargetType:     targetType,
		TargetID:       targetID,
		Outcome:        audit.OutcomeDeny,
		Reason:         string(d.Reason),
	})
	return Denied(d.Reason)
}

// auditAllow records a security-relevant successful action.
func (s *Service) auditAllow(ctx context.Context, actor ActorContext, action, targetType, targetID string) {
	_ = s.recorder.Record(ctx, audit.Entry{
		ActorID:        actor.UserID,
		OrganizationID: actor.OrganizationID,
		Action:         action,
		TargetType:     targetType,
		TargetID:       targetID,
		Outcome:        audit.OutcomeAllow,
	})
}

// Login authenticates credentials behind the lockout machine. While an
// identifier is locked the attempt fails with ErrLocked before credentials
// are inspected, so correctness of the password is unobservable. Unknown
// identifier and wrong password are likewise indistinguishable.
func (s *Service) Login(ctx context.Context, email, password, clientIP string) (string, ActorContext, error) {
	email = normalizeIdentifier(email)
	if email == "" || password == "" {
		obs.ObserveLogin("invalid_credentials")
		return "", ActorContext{}, ErrInvalidCredentials
	}
	identifiers := []string{email, clientIP}

	state, err := s.lockout.Check(ctx, identifiers...)
	if err != nil {
		return "", ActorContext{}, err
	}
	if state.Blocked() {
		// Attempts against a locked identifier still count, so a client
		// that keeps hammering through a soft lock reaches the hard lock.
		next, lerr := s.lockout.RecordFailure(ctx, identifiers...)
		if lerr != nil {
			return "", ActorContext{}, lerr
		}
		if next != state && next.Blocked() {
			obs.ObserveLockoutTransition(next.String())
			_ = s.recorder.Record(ctx, audit.Entry{
				Action:     "auth.lockout",
				TargetType: "identifier",
				TargetID:   email,
				Outcome:    audit.OutcomeDeny,
				Reason:     strings.ToUpper(next.String()),
			})
		}
		obs.ObserveLogin("locked")
		_ = s.recorder.Record(ctx, audit.Entry{
			Action:     "auth.login",
			TargetType: "identifier",
			TargetID:   email,
			Outcome:    audit.OutcomeDeny,
			Reason:     "LOCKED",
		})
		return "", ActorContext{}, ErrLocked
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	if err == nil && user.IsActive {
		if verr := VerifyPassword(user.PasswordHash, password); verr == nil {
			if err := s.lockout.RecordSuccess(ctx, identifiers...); err != nil {
				return "", ActorContext{}, err
			}
			token, sess, err := s.sessions.Issue(ctx, user)
			if err != nil {
				return "", ActorContext{}, err
			}
			actor := ActorContext{
				UserID:         user.ID,
				OrganizationID: user.OrganizationID,
				Role:           user.Role,
				SessionID:      sess.ID,
			}
			obs.ObserveLogin("success")
			s.auditAllow(ctx, actor, "auth.login", "session", sess.ID)
			return token, actor, nil
		}
	}

	next, lerr := s.lockout.RecordFailure(ctx, identifiers...)
	if lerr != nil {
		return "", ActorContext{}, lerr
	}
	if next.Blocked() {
		obs.ObserveLockoutTransition(next.String())
		_ = s.recorder.Record(ctx, audit.Entry{
			Action:     "auth.lockout",
			TargetType: "identifier",
			TargetID:   email,
			Outcome:    audit.OutcomeDeny,
			Reason:     strings.ToUpper(next.String()),
		})
	}
	obs.ObserveLogin("invalid_credentials")
	return "", ActorContext{}, ErrInvalidCredentials
}

// Logout revokes the current session.
func (s *Service) Logout(ctx context.Context, actor ActorContext) error {
	if err := s.sessions.Revoke(ctx, actor.SessionID); err != nil {
		return err
	}
	s.auditAllow(ctx, actor, "auth.logout", "session", actor.SessionID)
	return nil
}

// LogoutOthers revokes every other session of the actor.
func (s *Service) LogoutOthers(ctx context.Context, actor ActorContext) error {
	if err := s.sessions.RevokeOthers(ctx, actor.UserID, actor.SessionID); err != nil {
		return err
	}
	s.auditAllow(ctx, actor, "auth.logout_others", "user", actor.UserID)
	return nil
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every session of the user, the current one included.
func (s *Service) ChangePassword(ctx context.Context, actor ActorContext, current, next string) error {
	user, err := s.store.Users().Find(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.store.Users().UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	if err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		return err
	}
	s.auditAllow(ctx, actor, "auth.password_change", "user", user.ID)
	return nil
}

// NewUserInput describes a user being created.
type NewUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      authz.Role
}

// SignupOrganization creates a tenant and its first user, who becomes the
// owner. Email uniqueness rides on the store's constraint, so concurrent
// signups for one email produce exactly one account and one clean conflict.
func (s *Service) SignupOrganization(ctx context.Context, orgName string, input NewUserInput) (*Organization, *User, error) {
	orgName = strings.TrimSpace(orgName)
	if orgName == "" {
		return nil, nil, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	if err := validateEmail(input.Email); err != nil {
		return nil, nil, err
	}
	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	org := &Organization{Name: orgName, Status: OrgStatusActive}
	if err := s.store.Organizations().Create(ctx, org); err != nil {
		return nil, nil, err
	}
	user := &User{
		OrganizationID: org.ID,
		Email:          input.Email,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Role:           authz.RoleOwner,
		IsActive:       true,
		PasswordHash:   hash,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, nil, err
	}
	s.auditAllow(ctx, ActorContext{UserID: user.ID, OrganizationID: org.ID, Role: user.Role},
		"auth.signup", "organization", org.ID)
	return org, user, nil
}

// CreateUser adds a member to the actor's organization (invite-accept
// path). The decision engine gates both the create capability and the role
// being assigned.
func (s *Service) CreateUser(ctx context.Context, actor ActorContext, input NewUserInput) (*User, error) {
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	if !input.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, input.Role)
	}
	res := &authz.Resource{
		OrganizationID: &actor.OrganizationID,
		AssignRole:     input.Role,
	}
	if err := s.authorize(ctx, actor, authz.PermUsersCreate, res, "user", ""); err != nil {
		return nil, err
	}
	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	user := &User{
		OrganizationID: actor.OrganizationID,
		Email:          input.Email,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Role:           input.Role,
		IsActive:       true,
		PasswordHash:   hash,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	s.auditAllow(ctx, actor, "users.create", "user", user.ID)
	return user, nil
}

// GetUser fetches a user visible to the actor. Cross-tenant lookups deny
// with the reason the HTTP layer masks as 404.
// Me returns the actor's own user row. Every authenticated member may read
// their own identity, so this skips the users.view check that would deny
// roles without the grant.
func (s *Service) Me(ctx context.Context, actor ActorContext) (*User, error) {
	return s.store.Users().Find(ctx, actor.UserID)
}

func (s *Service) GetUser(ctx context.Context, actor ActorContext, userID string) (*User, error) {
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &authz.Resource{ID: user.ID, OrganizationID: &user.OrganizationID}
	if err := s.authorize(ctx, actor, authz.PermUsersView, res, "user", user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers lists the members of an organization. The org id comes from the
// request path, so cross-tenant attempts here surface as plain denials.
func (s *Service) ListUsers(ctx context.Context, actor ActorContext, orgID string) ([]*User, error) {
	res := &authz.Resource{ID: orgID, OrganizationID: &orgID}
	if err := s.authorize(ctx, actor, authz.PermUsersView, res, "organization", orgID); err != nil {
		return nil, err
	}
	return s.store.Users().ListByOrg(ctx, orgID)
}

// UpdateUser applies a partial update. Self-scope, tenant and rank rules
// all run inside the engine; a role change is modelled as AssignRole so the
// rank rules see it.
func (s *Service) UpdateUser(ctx context.Context, actor ActorContext, userID string, upd UserUpdate) (*User, error) {
	target, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &authz.Resource{ID: target.ID, OrganizationID: &target.OrganizationID}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *upd.Role)
		}
		res.TargetRole = target.Role
		res.AssignRole = *upd.Role
	}
	if upd.IsActive != nil && *upd.IsActive != target.IsActive {
		// Deactivation is a privilege mutation: same rank gate as deletion.
		res.TargetRole = target.Role
		res.PrivilegeMutation = true
	}
	if err := s.authorize(ctx, actor, authz.PermUsersEdit, res, "user", target.ID); err != nil {
		return nil, err
	}
	updated, err := s.store.Users().Update(ctx, userID, upd)
	if err != nil {
		return nil, err
	}
	if upd.Role != nil || upd.IsActive != nil {
		s.auditAllow(ctx, actor, "users.edit.privileged", "user", target.ID)
	}
	return updated, nil
}

// DeleteUser removes a member. Rank rules prevent deleting a peer or a
// superior; the deletion of any privileged user is audited.
func (s *Service) DeleteUser(ctx context.Context, actor ActorContext, userID string) error {
	target, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return err
	}
	res := &authz.Resource{
		ID:             target.ID,
		OrganizationID: &target.OrganizationID,
		TargetRole:     target.Role,
	}
	if err := s.authorize(ctx, actor, authz.PermUsersDelete, res, "user", target.ID); err != nil {
		return err
	}
	if err := s.sessions.RevokeAll(ctx, target.ID); err != nil {
		return err
	}
	if err := s.store.Users().Delete(ctx, userID); err != nil {
		return err
	}
	s.auditAllow(ctx, actor, "users.delete", "user", target.ID)
	return nil
}

// GetOrganization returns an organization visible to the actor.
func (s *Service) GetOrganization(ctx context.Context, actor ActorContext, orgID string) (*Organization, error) {
	org, err := s.store.Organizations().Find(ctx, orgID)
	if err != nil {
		return nil, err
	}
	res := &authz.Resource{ID: org.ID, OrganizationID: &org.ID}
	if err := s.authorize(ctx, actor, authz.PermOrgView, res, "organization", org.ID); err != nil {
		return nil, err
	}
	return org, nil
}

// UpdateOrganization renames the actor's organization.
func (s *Service) UpdateOrganization(ctx context.Context, actor ActorContext, orgID string, upd OrganizationUpdate) (*Organization, error) {
	res := &authz.Resource{ID: orgID, OrganizationID: &orgID}
	if err := s.authorize(ctx, actor, authz.PermOrgEdit, res, "organization", orgID); err != nil {
		return nil, err
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	return s.store.Organizations().Update(ctx, orgID, upd)
}

// DeleteOrganization soft-deletes the tenant. Owner only, per the matrix.
func (s *Service) DeleteOrganization(ctx context.Context, actor ActorContext, orgID string) error {
	res := &authz.Resource{ID: orgID, OrganizationID: &orgID}
	if err := s.authorize(ctx, actor, authz.PermOrgDelete, res, "organization", orgID); err != nil {
		return err
	}
	status := OrgStatusDeleted
	if _, err := s.store.Organizations().Update(ctx, orgID, OrganizationUpdate{Status: &status}); err != nil {
		return err
	}
	s.auditAllow(ctx, actor, "organization.delete", "organization", orgID)
	return nil
}

// TransferOrganization hands ownership to another member: the target
// becomes owner and the current owner drops to admin.
func (s *Service) TransferOrganization(ctx context.Context, actor ActorContext, orgID, newOwnerID string) error {
	res := &authz.Resource{ID: orgID, OrganizationID: &orgID}
	if err := s.authorize(ctx, actor, authz.PermOrgTransfer, res, "organization", orgID); err != nil {
		return err
	}
	target, err := s.store.Users().Find(ctx, newOwnerID)
	if err != nil {
		return err
	}
	if target.OrganizationID != orgID || !target.IsActive {
		return fmt.Errorf("%w: transfer target must be an active member", ErrInvalidInput)
	}
	owner := authz.RoleOwner
	if _, err := s.store.Users().Update(ctx, target.ID, UserUpdate{Role: &owner}); err != nil {
		return err
	}
	if actor.UserID != target.ID {
		admin := authz.RoleAdmin
		if _, err := s.store.Users().Update(ctx, actor.UserID, UserUpdate{Role: &admin}); err != nil {
			return err
		}
	}
	s.auditAllow(ctx, actor, "organization.transfer", "user", target.ID)
	return nil
}

// UnlockIdentifier releases a hard lock. Out-of-band action, super_admin
// only.
func (s *Service) UnlockIdentifier(ctx context.Context, actor ActorContext, identifier string) error {
	if actor.Role != authz.RoleSuperAdmin {
		return s.authorizeUnlockDenial(ctx, actor, identifier)
	}
	if err := s.lockout.Unlock(ctx, identifier); err != nil {
		return err
	}
	s.auditAllow(ctx, actor, "auth.unlock", "identifier", normalizeIdentifier(identifier))
	return nil
}

func (s *Service) authorizeUnlockDenial(ctx context.Context, actor ActorContext, identifier string) error {
	_ = s.recorder.Record(ctx, audit.Entry{
		ActorID:        actor.UserID,
		OrganizationID: actor.OrganizationID,
		Action:         "auth.unlock",
		TargetType:     "identifier",
		TargetID:       normalizeIdentifier(identifier),
		Outcome:        audit.OutcomeDeny,
		Reason:         string(authz.ReasonNotGranted),
	})
	return Denied(authz.ReasonNotGranted)
}

func validateEmail(email string) error {
	email = normalizeIdentifier(email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	return nil
}
