package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"praxis.software/internal/ids"
)

// MemoryStore is an in-process Store. It mirrors the Postgres semantics the
// service depends on, including the unique-email constraint, and is safe for
// concurrent use. Tests get an isolated instance per run.
type MemoryStore struct {
	mu       sync.Mutex
	orgs     map[string]*Organization
	users    map[string]*User
	byEmail  map[string]string
	sessions map[string]*Session
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:     make(map[string]*Organization),
		users:    make(map[string]*User),
		byEmail:  make(map[string]string),
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Organizations() OrganizationStore { return (*memoryOrgs)(m) }
func (m *MemoryStore) Users() UserStore                 { return (*memoryUsers)(m) }
func (m *MemoryStore) Sessions() SessionStore           { return (*memorySessions)(m) }

type memoryOrgs MemoryStore

func (m *memoryOrgs) Create(ctx context.Context, org *Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if org.ID == "" {
		org.ID = ids.New()
	}
	if _, exists := m.orgs[org.ID]; exists {
		return ErrConflict
	}
	now := m.now().UTC()
	org.CreatedAt, org.UpdatedAt = now, now
	if org.Status == "" {
		org.Status = OrgStatusActive
	}
	cp := *org
	m.orgs[org.ID] = &cp
	return nil
}

func (m *memoryOrgs) Find(ctx context.Context, id string) (*Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (m *memoryOrgs) Update(ctx context.Context, id string, upd OrganizationUpdate) (*Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		org.Name = *upd.Name
	}
	if upd.Status != nil {
		org.Status = *upd.Status
	}
	org.UpdatedAt = m.now().UTC()
	cp := *org
	return &cp, nil
}

type memoryUsers MemoryStore

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (m *memoryUsers) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalizeEmail(u.Email)
	if _, taken := m.byEmail[key]; taken {
		return ErrConflict
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := m.now().UTC()
	u.Email = key
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	m.users[u.ID] = &cp
	m.byEmail[key] = u.ID
	return nil
}

func (m *memoryUsers) Find(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *memoryUsers) ListByOrg(ctx context.Context, orgID string) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*User
	for _, u := range m.users {
		if u.OrganizationID == orgID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryUsers) Update(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Email != nil {
		key := normalizeEmail(*upd.Email)
		if owner, taken := m.byEmail[key]; taken && owner != id {
			return nil, ErrConflict
		}
		delete(m.byEmail, u.Email)
		u.Email = key
		m.byEmail[key] = id
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	u.UpdatedAt = m.now().UTC()
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = m.now().UTC()
	return nil
}

func (m *memoryUsers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byEmail, u.Email)
	delete(m.users, id)
	return nil
}

type memorySessions MemoryStore

func (m *memorySessions) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = ids.New()
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memorySessions) Find(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memorySessions) Revoke(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Revoked = true
	return nil
}

func (m *memorySessions) RevokeAllExcept(ctx context.Context, userID, keepID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.ID != keepID {
			s.Revoked = true
		}
	}
	return nil
}

func (m *memorySessions) RevokeAll(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID {
			s.Revoked = true
		}
	}
	return nil
}

func (m *memorySessions) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
