package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"praxis.software/internal/authz"
)

const testSecret = "session-test-secret"

func seedUser(t *testing.T, store Store, email string, role authz.Role) *User {
	t.Helper()
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	org := &Organization{Name: "Acme", Status: OrgStatusActive}
	if err := store.Organizations().Create(context.Background(), org); err != nil {
		t.Fatalf("create org: %v", err)
	}
	user := &User{
		OrganizationID: org.ID,
		Email:          email,
		Role:           role,
		IsActive:       true,
		PasswordHash:   hash,
	}
	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestSessionIssueAndValidate(t *testing.T) {
	store := NewMemoryStore()
	mgr, err := NewSessionManager(store, testSecret)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	user := seedUser(t, store, "owner@acme.test", authz.RoleOwner)

	token, sess, err := mgr.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if sess.UserID != user.ID || sess.OrganizationID != user.OrganizationID {
		t.Fatalf("session bound to wrong identity: %+v", sess)
	}

	actor, err := mgr.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if actor.UserID != user.ID || actor.OrganizationID != user.OrganizationID {
		t.Fatalf("unexpected actor: %+v", actor)
	}
	if actor.Role != authz.RoleOwner || actor.SessionID != sess.ID {
		t.Fatalf("unexpected actor role/session: %+v", actor)
	}
}

func TestSessionTamperedToken(t *testing.T) {
	store := NewMemoryStore()
	mgr, _ := NewSessionManager(store, testSecret)
	user := seedUser(t, store, "owner@acme.test", authz.RoleOwner)

	token, _, err := mgr.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Flip one character of the payload segment. The signature check must
	// reject outright; it can never resolve to a different identity.
	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	if payload[3] == 'A' {
		payload[3] = 'B'
	} else {
		payload[3] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := mgr.Validate(context.Background(), tampered); err != ErrInvalidToken {
		t.Fatalf("tampered token: got %v, want ErrInvalidToken", err)
	}

	if _, err := mgr.Validate(context.Background(), ""); err != ErrInvalidToken {
		t.Fatalf("empty token: got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now().UTC()
	clock := func() time.Time { return current }
	mgr, _ := NewSessionManager(store, testSecret, WithSessionTTL(time.Hour), WithClock(clock))
	user := seedUser(t, store, "owner@acme.test", authz.RoleOwner)

	token, _, err := mgr.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := mgr.Validate(context.Background(), token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	current = current.Add(2 * time.Hour)
	if _, err := mgr.Validate(context.Background(), token); err != ErrSessionExpired && err != ErrInvalidToken {
		t.Fatalf("expired token: got %v", err)
	}
}

func TestSessionRevocationIsPerSession(t *testing.T) {
	store := NewMemoryStore()
	mgr, _ := NewSessionManager(store, testSecret)
	user := seedUser(t, store, "owner@acme.test", authz.RoleOwner)
	ctx := context.Background()

	tok1, sess1, err := mgr.Issue(ctx, user)
	if err != nil {
		t.Fatalf("Issue 1: %v", err)
	}
	tok2, _, err := mgr.Issue(ctx, user)
	if err != nil {
		t.Fatalf("Issue 2: %v", err)
	}

	if err := mgr.Revoke(ctx, sess1.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := mgr.Validate(ctx, tok1); err != ErrSessionExpired {
		t.Fatalf("revoked token: got %v, want ErrSessionExpired", err)
	}
	// The second device keeps working.
	if _, err := mgr.Validate(ctx, tok2); err != nil {
		t.Fatalf("second session rejected: %v", err)
	}
}

func TestSessionRevokeOthersKeepsCurrent(t *testing.T) {
	store := NewMemoryStore()
	mgr, _ := NewSessionManager(store, testSecret)
	user := seedUser(t, store, "owner@acme.test", authz.RoleOwner)
	ctx := context.Background()

	tok1, sess1, _ := mgr.Issue(ctx, user)
	tok2, _, _ := mgr.Issue(ctx, user)
	tok3, _, _ := mgr.Issue(ctx, user)

	if err := mgr.RevokeOthers(ctx, user.ID, sess1.ID); err != nil {
		t.Fatalf("RevokeOthers: %v", err)
	}
	if _, err := mgr.Validate(ctx, tok1); err != nil {
		t.Fatalf("current session revoked: %v", err)
	}
	for i, tok := range []string{tok2, tok3} {
		if _, err := mgr.Validate(ctx, tok); err != ErrSessionExpired {
			t.Fatalf("other session %d: got %v", i+2, err)
		}
	}
}

func TestSessionInactiveUser(t *testing.T) {
	store := NewMemoryStore()
	mgr, _ := NewSessionManager(store, testSecret)
	user := seedUser(t, store, "staff@acme.test", authz.RoleStaff)
	ctx := context.Background()

	token, _, err := mgr.Issue(ctx, user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	inactive := false
	if _, err := store.Users().Update(ctx, user.ID, UserUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := mgr.Validate(ctx, token); err != ErrInactiveUser {
		t.Fatalf("inactive user: got %v, want ErrInactiveUser", err)
	}
}

func TestSessionDifferentSecretRejected(t *testing.T) {
	store := NewMemoryStore()
	mgr, _ := NewSessionManager(store, testSecret)
	other, _ := NewSessionManager(store, "a-different-secret")
	user := seedUser(t, store, "owner@acme.test", authz.RoleOwner)

	token, _, err := mgr.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := other.Validate(context.Background(), token); err != ErrInvalidToken {
		t.Fatalf("foreign-secret token: got %v", err)
	}
}
