package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"

	"tms/internal/platform/crypto"
)

func TestCreateStaffMapsUniqueViolation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock, nil)
	mock.ExpectQuery("INSERT INTO staff").
		WithArgs("EMP-001", "Aisha", "aisha@example.com", "Engineer", "IT", pgxmock.AnyArg(), StaffStatusActive, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	member := Staff{StaffNo: "EMP-001", Name: "Aisha", Email: "aisha@example.com", Position: "Engineer", Department: "IT", Status: StaffStatusActive}
	if _, err := store.CreateStaff(context.Background(), member); !errors.Is(err, ErrDuplicateStaffNo) {
		t.Fatalf("expected ErrDuplicateStaffNo, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetStaffNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock, nil)
	mock.ExpectQuery("SELECT (.+) FROM staff").
		WithArgs("staff-missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := store.GetStaff(context.Background(), "staff-missing"); !errors.Is(err, ErrStaffNotFound) {
		t.Fatalf("expected ErrStaffNotFound, got %v", err)
	}
}

func TestUpdateStaffWritesNationalID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	cryptoSvc, err := crypto.New("")
	if err != nil {
		t.Fatalf("failed to create crypto service: %v", err)
	}

	store := NewStore(mock, cryptoSvc)
	mock.ExpectExec("UPDATE staff").
		WithArgs("Aisha", "aisha@example.com", "Engineer", "IT", []byte("900101-14-5678"), "staff-a").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	member := Staff{Name: "Aisha", Email: "aisha@example.com", Position: "Engineer", Department: "IT", NationalID: "900101-14-5678"}
	if err := store.UpdateStaff(context.Background(), "staff-a", member); err != nil {
		t.Fatalf("update staff: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAssignSupervisorRequiresActiveSupervisor(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock, nil)
	mock.ExpectExec("UPDATE staff").
		WithArgs("sup-inactive", "staff-a", StaffStatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.AssignSupervisor(context.Background(), "staff-a", "sup-inactive"); !errors.Is(err, ErrSupervisorNotFound) {
		t.Fatalf("expected ErrSupervisorNotFound, got %v", err)
	}
}

func TestSetStaffStatusNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock, nil)
	mock.ExpectExec("UPDATE staff").
		WithArgs(StaffStatusInactive, "staff-missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.SetStaffStatus(context.Background(), "staff-missing", StaffStatusInactive); !errors.Is(err, ErrStaffNotFound) {
		t.Fatalf("expected ErrStaffNotFound, got %v", err)
	}
}
