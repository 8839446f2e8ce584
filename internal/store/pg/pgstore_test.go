package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"praxis.software/internal/audit"
	"praxis.software/internal/auth"
	"praxis.software/internal/authz"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("insert into users").
		WithArgs(sqlmock.AnyArg(), "org-1", "dup@example.com", "A", "B", "staff", true, sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.Users().Create(context.Background(), &auth.User{
		OrganizationID: "org-1",
		Email:          "Dup@Example.com",
		FirstName:      "A",
		LastName:       "B",
		Role:           authz.RoleStaff,
		IsActive:       true,
		PasswordHash:   "x",
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserFindByEmailLowercases(t *testing.T) {
	store, mock := newMock(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "organization_id", "email", "first_name", "last_name",
		"role", "is_active", "password_hash", "created_at", "updated_at"}).
		AddRow("u-1", "org-1", "ada@example.com", "Ada", "L", "manager", true, "hash", now, now)
	mock.ExpectQuery("select .* from users where lower\\(email\\)").
		WithArgs("ada@example.com").
		WillReturnRows(rows)

	u, err := store.Users().FindByEmail(context.Background(), "  Ada@Example.COM ")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.Role != authz.RoleManager {
		t.Fatalf("unexpected role: %s", u.Role)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserFindMissing(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("select .* from users where id").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Users().Find(context.Background(), "nope")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserCreateForeignKeyViolation(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("insert into users").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})

	err := store.Users().Create(context.Background(), &auth.User{
		OrganizationID: "no-such-org",
		Email:          "a@b.c",
		Role:           authz.RoleStaff,
	})
	if !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUserDeleteMissing(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("delete from users").
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Users().Delete(context.Background(), "nope"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRevoke(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("update sessions set revoked = true where id").
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Sessions().Revoke(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	mock.ExpectExec("update sessions set revoked = true where id").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Sessions().Revoke(context.Background(), "gone"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRevokeAllExcept(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("update sessions set revoked = true where user_id = \\$1 and id <> \\$2").
		WithArgs("u-1", "keep").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := store.Sessions().RevokeAllExcept(context.Background(), "u-1", "keep"); err != nil {
		t.Fatalf("RevokeAllExcept: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	store, mock := newMock(t)

	cutoff := time.Now()
	mock.ExpectExec("delete from sessions where expires_at").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := store.Sessions().DeleteExpired(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 pruned rows, got %d", n)
	}
}

func TestOrgCreateAndFind(t *testing.T) {
	store, mock := newMock(t)

	now := time.Now()
	mock.ExpectQuery("insert into organizations").
		WithArgs(sqlmock.AnyArg(), "Acme", "active").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	org := &auth.Organization{Name: "Acme"}
	if err := store.Organizations().Create(context.Background(), org); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if org.ID == "" {
		t.Fatal("expected generated id")
	}
	if org.Status != auth.OrgStatusActive {
		t.Fatalf("unexpected status: %s", org.Status)
	}

	mock.ExpectQuery("select id, name, status, created_at, updated_at.*from organizations").
		WithArgs(org.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status", "created_at", "updated_at"}).
			AddRow(org.ID, "Acme", "active", now, now))

	got, err := store.Organizations().Find(context.Background(), org.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Name != "Acme" {
		t.Fatalf("unexpected name: %s", got.Name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditAppend(t *testing.T) {
	store, mock := newMock(t)
	audits := NewAuditStore(store)

	mock.ExpectExec("insert into audit_log").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "actor-1", "org-1", "users.delete",
			"user", "victim-1", "deny", "PRIVILEGE_RANK", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &audit.Entry{
		OccurredAt:     time.Now(),
		ActorID:        "actor-1",
		OrganizationID: "org-1",
		Action:         "users.delete",
		TargetType:     "user",
		TargetID:       "victim-1",
		Outcome:        audit.OutcomeDeny,
		Reason:         "PRIVILEGE_RANK",
	}
	if err := audits.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
