package pg

import (
	"context"
	"database/sql"
	"time"

	"praxis.software/internal/auth"
	"praxis.software/internal/ids"
)

type sessionStore struct{ db *sql.DB }

func (s *sessionStore) Create(ctx context.Context, sess *auth.Session) error {
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into sessions (id, user_id, organization_id, issued_at, expires_at, revoked)
		values ($1, $2, $3, $4, $5, $6)
	`, sess.ID, sess.UserID, sess.OrganizationID, sess.IssuedAt, sess.ExpiresAt, sess.Revoked)
	return mapError(err)
}

func (s *sessionStore) Find(ctx context.Context, id string) (*auth.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, user_id, organization_id, issued_at, expires_at, revoked
		from sessions where id = $1
	`, id)
	var sess auth.Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.OrganizationID,
		&sess.IssuedAt, &sess.ExpiresAt, &sess.Revoked); err != nil {
		return nil, mapError(err)
	}
	return &sess, nil
}

func (s *sessionStore) Revoke(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update sessions set revoked = true where id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *sessionStore) RevokeAllExcept(ctx context.Context, userID, keepID string) error {
	_, err := s.db.ExecContext(ctx,
		`update sessions set revoked = true where user_id = $1 and id <> $2`, userID, keepID)
	return mapError(err)
}

func (s *sessionStore) RevokeAll(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`update sessions set revoked = true where user_id = $1`, userID)
	return mapError(err)
}

// DeleteExpired prunes rows whose validity window has passed. Expiry itself
// is enforced at validation time; this only keeps the table from growing.
func (s *sessionStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from sessions where expires_at < $1`, before)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}
