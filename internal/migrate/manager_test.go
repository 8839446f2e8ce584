package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"praxis.software/internal/authz"
)

func newManagerMock(t *testing.T, seedsDir string) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewManager(db, "", seedsDir), mock
}

func expectEnsureTables(mock sqlmock.Sqlmock) {
	mock.ExpectExec("create table if not exists schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table if not exists schema_seeds").
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectRolePermissionsApply(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec("delete from role_permissions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	for range authz.Export() {
		mock.ExpectExec("insert into role_permissions").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
}

func TestSeedGeneratesAndRecordsRegistrySeed(t *testing.T) {
	dir := t.TempDir()
	mgr, mock := newManagerMock(t, dir)

	expectEnsureTables(mock)
	mock.ExpectQuery("select name from schema_seeds").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	expectRolePermissionsApply(mock)
	mock.ExpectExec("insert into schema_seeds").
		WithArgs(rolePermissionsSeedName, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := mgr.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, rolePermissionsSeedName)); err != nil {
		t.Fatalf("generated seed missing: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSeedReappliesRegistrySeedWithoutRerecording(t *testing.T) {
	dir := t.TempDir()
	mgr, mock := newManagerMock(t, dir)

	expectEnsureTables(mock)
	mock.ExpectQuery("select name from schema_seeds").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow(rolePermissionsSeedName))
	// Already recorded, yet the registry seed runs again so later matrix
	// edits still reach the table. There must be no second bookkeeping
	// insert for it.
	expectRolePermissionsApply(mock)

	if err := mgr.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
