package pg

import (
	"context"
	"database/sql"
	"strings"

	"praxis.software/internal/auth"
	"praxis.software/internal/authz"
	"praxis.software/internal/ids"
)

// Organization store -------------------------------------------------------

type orgStore struct{ db *sql.DB }

func (s *orgStore) Create(ctx context.Context, org *auth.Organization) error {
	if org.ID == "" {
		org.ID = ids.New()
	}
	if org.Status == "" {
		org.Status = auth.OrgStatusActive
	}
	row := s.db.QueryRowContext(ctx, `
		insert into organizations (id, name, status)
		values ($1, $2, $3)
		returning created_at, updated_at
	`, org.ID, org.Name, org.Status)
	if err := row.Scan(&org.CreatedAt, &org.UpdatedAt); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *orgStore) Find(ctx context.Context, id string) (*auth.Organization, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, status, created_at, updated_at
		from organizations where id = $1
	`, id)
	var org auth.Organization
	if err := row.Scan(&org.ID, &org.Name, &org.Status, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &org, nil
}

func (s *orgStore) Update(ctx context.Context, id string, upd auth.OrganizationUpdate) (*auth.Organization, error) {
	row := s.db.QueryRowContext(ctx, `
		update organizations
		set name = coalesce($2, name),
		    status = coalesce($3, status),
		    updated_at = now()
		where id = $1
		returning id, name, status, created_at, updated_at
	`, id, upd.Name, upd.Status)
	var org auth.Organization
	if err := row.Scan(&org.ID, &org.Name, &org.Status, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &org, nil
}

// User store ---------------------------------------------------------------

type userStore struct{ db *sql.DB }

// Create relies on the unique index over lower(email): of two concurrent
// inserts for the same address exactly one commits, the other surfaces
// auth.ErrConflict.
func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, organization_id, email, first_name, last_name, role, is_active, password_hash)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning created_at, updated_at
	`, u.ID, u.OrganizationID, u.Email, u.FirstName, u.LastName, string(u.Role), u.IsActive, u.PasswordHash)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapError(err)
	}
	return nil
}

const userColumns = `id, organization_id, email, first_name, last_name, role, is_active, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*auth.User, error) {
	var (
		u    auth.User
		role string
	)
	if err := row.Scan(&u.ID, &u.OrganizationID, &u.Email, &u.FirstName, &u.LastName,
		&role, &u.IsActive, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	u.Role = authz.Role(role)
	return &u, nil
}

func (s *userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where lower(email) = $1`, email))
}

func (s *userStore) ListByOrg(ctx context.Context, orgID string) ([]*auth.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users where organization_id = $1 order by created_at asc`, orgID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *userStore) Update(ctx context.Context, id string, upd auth.UserUpdate) (*auth.User, error) {
	var role *string
	if upd.Role != nil {
		v := string(*upd.Role)
		role = &v
	}
	var email *string
	if upd.Email != nil {
		v := strings.TrimSpace(strings.ToLower(*upd.Email))
		email = &v
	}
	return scanUser(s.db.QueryRowContext(ctx, `
		update users
		set email = coalesce($2, email),
		    first_name = coalesce($3, first_name),
		    last_name = coalesce($4, last_name),
		    role = coalesce($5, role),
		    is_active = coalesce($6, is_active),
		    updated_at = now()
		where id = $1
		returning `+userColumns+`
	`, id, email, upd.FirstName, upd.LastName, role, upd.IsActive))
}

func (s *userStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash = $2, updated_at = now() where id = $1`, id, passwordHash)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
