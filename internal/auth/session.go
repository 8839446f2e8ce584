package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"praxis.software/internal/ids"
)

const defaultSessionTTL = 12 * time.Hour

// sessionClaims binds the token to a specific session row and organization.
// The token is a locator, not an authority: validation always re-reads the
// row, so server-side revocation wins regardless of the token's window.
type sessionClaims struct {
	OrganizationID string `json:"org"`
	SessionID      string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionManager issues, validates and revokes sessions.
type SessionManager struct {
	store  Store
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// SessionOption configures SessionManager.
type SessionOption func(*SessionManager)

// WithSessionTTL overrides the default session lifetime.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithIssuer sets the token issuer claim.
func WithIssuer(issuer string) SessionOption {
	return func(m *SessionManager) {
		m.issuer = strings.TrimSpace(issuer)
	}
}

// WithClock overrides the time source. Test use.
func WithClock(fn func() time.Time) SessionOption {
	return func(m *SessionManager) {
		if fn != nil {
			m.now = fn
		}
	}
}

func NewSessionManager(store Store, secret string, opts ...SessionOption) (*SessionManager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is required")
	}
	m := &SessionManager{
		store:  store,
		secret: []byte(secret),
		issuer: "praxis",
		ttl:    defaultSessionTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue mints a session for the (user, organization) pair and returns the
// signed token. Concurrent sessions per user are permitted.
func (m *SessionManager) Issue(ctx context.Context, user *User) (string, Session, error) {
	now := m.now().UTC()
	sess := Session{
		ID:             ids.New(),
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		IssuedAt:       now,
		ExpiresAt:      now.Add(m.ttl),
	}
	if err := m.store.Sessions().Create(ctx, &sess); err != nil {
		return "", Session{}, err
	}
	claims := sessionClaims{
		OrganizationID: user.OrganizationID,
		SessionID:      sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", Session{}, err
	}
	return token, sess, nil
}

// Validate verifies the token signature, then treats the session row as the
// single source of truth: absent, revoked or expired rows reject the token,
// and a deactivated user rejects it even inside the validity window. Any
// bit-level tamper fails the signature check; it can never resolve to a
// different identity.
func (m *SessionManager) Validate(ctx context.Context, token string) (ActorContext, error) {
	claims, err := m.parse(token)
	if err != nil {
		return ActorContext{}, ErrInvalidToken
	}

	sess, err := m.store.Sessions().Find(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ActorContext{}, ErrSessionExpired
		}
		return ActorContext{}, err
	}
	if sess.Revoked || m.now().After(sess.ExpiresAt) {
		return ActorContext{}, ErrSessionExpired
	}
	// The claims must agree with the row; a mismatch means the token was
	// minted for another session entirely.
	if sess.UserID != claims.Subject || sess.OrganizationID != claims.OrganizationID {
		return ActorContext{}, ErrInvalidToken
	}

	user, err := m.store.Users().Find(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ActorContext{}, ErrSessionExpired
		}
		return ActorContext{}, err
	}
	if !user.IsActive {
		return ActorContext{}, ErrInactiveUser
	}

	return ActorContext{
		UserID:         user.ID,
		OrganizationID: sess.OrganizationID,
		Role:           user.Role,
		SessionID:      sess.ID,
	}, nil
}

// Revoke marks one session revoked (logout).
func (m *SessionManager) Revoke(ctx context.Context, sessionID string) error {
	return m.store.Sessions().Revoke(ctx, sessionID)
}

// RevokeOthers revokes every session of the user except the current one
// ("log out other devices").
func (m *SessionManager) RevokeOthers(ctx context.Context, userID, currentSessionID string) error {
	return m.store.Sessions().RevokeAllExcept(ctx, userID, currentSessionID)
}

// RevokeAll revokes every session of the user, the current one included.
// Password resets and changes go through here to force re-authentication.
func (m *SessionManager) RevokeAll(ctx context.Context, userID string) error {
	return m.store.Sessions().RevokeAll(ctx, userID)
}

func (m *SessionManager) parse(token string) (*sessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
