package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"

	"tms/internal/domain/auth"
)

func TestEnsureRolesPropagatesLookupFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	lookupErr := errors.New("connection reset")
	mock.ExpectQuery("SELECT id FROM roles").
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(lookupErr)

	if _, err := ensureRoles(context.Background(), mock); !errors.Is(err, lookupErr) {
		t.Fatalf("expected lookup error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureRolesInsertsMissingRoles(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	for i := 0; i < len(auth.RolePermissions); i++ {
		mock.ExpectQuery("SELECT id FROM roles").
			WithArgs(pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("INSERT INTO roles").
			WithArgs(pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(fmt.Sprintf("role-%d", i)))
	}

	roleIDs, err := ensureRoles(context.Background(), mock)
	if err != nil {
		t.Fatalf("ensure roles failed: %v", err)
	}
	if len(roleIDs) != len(auth.RolePermissions) {
		t.Fatalf("expected %d roles, got %d", len(auth.RolePermissions), len(roleIDs))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
