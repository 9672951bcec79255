package training

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"tms/internal/domain/directory"
)

type fakeDirectory struct {
	staff map[string]directory.Staff
}

func (f *fakeDirectory) GetStaff(ctx context.Context, staffID string) (directory.Staff, error) {
	member, ok := f.staff[staffID]
	if !ok {
		return directory.Staff{}, directory.ErrStaffNotFound
	}
	return member, nil
}

type memStore struct {
	programs     map[string]*Program
	enrollments  map[string]*Enrollment
	certificates map[string]*Certificate
	seq          int
}

func newMemStore() *memStore {
	return &memStore{
		programs:     map[string]*Program{},
		enrollments:  map[string]*Enrollment{},
		certificates: map[string]*Certificate{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) CreateProgram(ctx context.Context, program Program) (string, error) {
	id := m.nextID("prog")
	stored := program
	stored.ID = id
	stored.CreatedAt = time.Now().UTC()
	m.programs[id] = &stored
	return id, nil
}

func (m *memStore) ListPrograms(ctx context.Context, limit, offset int) ([]Program, error) {
	var out []Program
	for _, p := range m.programs {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memStore) GetProgram(ctx context.Context, programID string) (Program, error) {
	program, ok := m.programs[programID]
	if !ok {
		return Program{}, ErrProgramNotFound
	}
	return *program, nil
}

func (m *memStore) CountEnrollments(ctx context.Context, programID string) (int, error) {
	count := 0
	for _, e := range m.enrollments {
		if e.ProgramID == programID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) CreateEnrollment(ctx context.Context, programID, staffID string) (string, error) {
	for _, e := range m.enrollments {
		if e.ProgramID == programID && e.StaffID == staffID {
			return "", ErrAlreadyEnrolled
		}
	}
	id := m.nextID("enr")
	m.enrollments[id] = &Enrollment{
		ID:         id,
		ProgramID:  programID,
		StaffID:    staffID,
		Status:     EnrollmentStatusEnrolled,
		EnrolledAt: time.Now().UTC(),
	}
	return id, nil
}

func (m *memStore) ListEnrollments(ctx context.Context, programID string) ([]Enrollment, error) {
	var out []Enrollment
	for _, e := range m.enrollments {
		if e.ProgramID == programID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memStore) SetEnrollmentStatus(ctx context.Context, programID, staffID, status string) error {
	for _, e := range m.enrollments {
		if e.ProgramID == programID && e.StaffID == staffID {
			e.Status = status
			return nil
		}
	}
	return ErrEnrollmentNotFound
}

func (m *memStore) EnrollmentStatus(ctx context.Context, programID, staffID string) (string, error) {
	for _, e := range m.enrollments {
		if e.ProgramID == programID && e.StaffID == staffID {
			return e.Status, nil
		}
	}
	return "", ErrEnrollmentNotFound
}

func (m *memStore) CreateCertificate(ctx context.Context, cert Certificate) (string, error) {
	id := m.nextID("cert")
	stored := cert
	stored.ID = id
	stored.IssuedAt = time.Now().UTC()
	m.certificates[id] = &stored
	return id, nil
}

func (m *memStore) GetCertificate(ctx context.Context, certificateID string) (Certificate, error) {
	cert, ok := m.certificates[certificateID]
	if !ok {
		return Certificate{}, ErrCertificateNotFound
	}
	return *cert, nil
}

func (m *memStore) ReportRows(ctx context.Context) ([]ReportRow, error) {
	var out []ReportRow
	for _, e := range m.enrollments {
		program := m.programs[e.ProgramID]
		out = append(out, ReportRow{
			ProgramID:    e.ProgramID,
			ProgramTitle: program.Title,
			StaffID:      e.StaffID,
			Status:       e.Status,
			EnrolledAt:   e.EnrolledAt,
		})
	}
	return out, nil
}

func (m *memStore) ListCertificatesForStaff(ctx context.Context, staffID string) ([]Certificate, error) {
	var out []Certificate
	for _, c := range m.certificates {
		if c.StaffID == staffID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func twoStaffDirectory() *fakeDirectory {
	return &fakeDirectory{staff: map[string]directory.Staff{
		"staff-a": {ID: "staff-a", Name: "Aisha"},
		"staff-b": {ID: "staff-b", Name: "Badrul"},
	}}
}

func scheduledProgram(t *testing.T, service *Service, capacity int) Program {
	t.Helper()
	program, err := service.CreateProgram(context.Background(), Program{
		Title:     "Incident Response Basics",
		Venue:     "HQ Training Room",
		StartDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		Capacity:  capacity,
	})
	if err != nil {
		t.Fatalf("create program failed: %v", err)
	}
	if program.Status != ProgramStatusScheduled {
		t.Fatalf("expected scheduled status, got %s", program.Status)
	}
	return program
}

func TestEnrollEnforcesCapacity(t *testing.T) {
	service := NewService(newMemStore(), twoStaffDirectory(), 0)
	program := scheduledProgram(t, service, 1)

	if _, err := service.Enroll(context.Background(), program.ID, "staff-a"); err != nil {
		t.Fatalf("first enrollment failed: %v", err)
	}
	if _, err := service.Enroll(context.Background(), program.ID, "staff-b"); !errors.Is(err, ErrProgramFull) {
		t.Fatalf("expected ErrProgramFull, got %v", err)
	}
}

func TestEnrollZeroCapacityIsUnlimited(t *testing.T) {
	service := NewService(newMemStore(), twoStaffDirectory(), 0)
	program := scheduledProgram(t, service, 0)

	for _, staffID := range []string{"staff-a", "staff-b"} {
		if _, err := service.Enroll(context.Background(), program.ID, staffID); err != nil {
			t.Fatalf("enrollment for %s failed: %v", staffID, err)
		}
	}
}

func TestEnrollRejectsDuplicates(t *testing.T) {
	service := NewService(newMemStore(), twoStaffDirectory(), 0)
	program := scheduledProgram(t, service, 10)

	if _, err := service.Enroll(context.Background(), program.ID, "staff-a"); err != nil {
		t.Fatalf("first enrollment failed: %v", err)
	}
	if _, err := service.Enroll(context.Background(), program.ID, "staff-a"); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}
}

func TestEnrollUnknownStaff(t *testing.T) {
	service := NewService(newMemStore(), twoStaffDirectory(), 0)
	program := scheduledProgram(t, service, 10)

	if _, err := service.Enroll(context.Background(), program.ID, "staff-missing"); !errors.Is(err, directory.ErrStaffNotFound) {
		t.Fatalf("expected ErrStaffNotFound, got %v", err)
	}
}

func TestIssueCertificateRequiresAttendance(t *testing.T) {
	service := NewService(newMemStore(), twoStaffDirectory(), 0)
	program := scheduledProgram(t, service, 10)
	if _, err := service.Enroll(context.Background(), program.ID, "staff-a"); err != nil {
		t.Fatalf("enrollment failed: %v", err)
	}

	if _, err := service.IssueCertificate(context.Background(), program.ID, "staff-a"); !errors.Is(err, ErrNotAttended) {
		t.Fatalf("expected ErrNotAttended while still enrolled, got %v", err)
	}

	if err := service.MarkAttendance(context.Background(), program.ID, "staff-a", false); err != nil {
		t.Fatalf("mark absent failed: %v", err)
	}
	if _, err := service.IssueCertificate(context.Background(), program.ID, "staff-a"); !errors.Is(err, ErrNotAttended) {
		t.Fatalf("expected ErrNotAttended for absent staff, got %v", err)
	}

	if err := service.MarkAttendance(context.Background(), program.ID, "staff-a", true); err != nil {
		t.Fatalf("mark attended failed: %v", err)
	}
	cert, err := service.IssueCertificate(context.Background(), program.ID, "staff-a")
	if err != nil {
		t.Fatalf("issue certificate failed: %v", err)
	}
	if cert.Status != CertificateStatusValid {
		t.Fatalf("expected valid certificate, got %s", cert.Status)
	}
	if !strings.HasPrefix(cert.SerialNo, fmt.Sprintf("TC-%d-", time.Now().UTC().Year())) {
		t.Fatalf("unexpected serial: %s", cert.SerialNo)
	}
	if cert.ExpiresAt != nil {
		t.Fatalf("expected no expiry with zero validity, got %v", cert.ExpiresAt)
	}
}

func TestIssueCertificateStampsValidity(t *testing.T) {
	service := NewService(newMemStore(), twoStaffDirectory(), 365*24*time.Hour)
	program := scheduledProgram(t, service, 10)
	if _, err := service.Enroll(context.Background(), program.ID, "staff-a"); err != nil {
		t.Fatalf("enrollment failed: %v", err)
	}
	if err := service.MarkAttendance(context.Background(), program.ID, "staff-a", true); err != nil {
		t.Fatalf("mark attended failed: %v", err)
	}

	cert, err := service.IssueCertificate(context.Background(), program.ID, "staff-a")
	if err != nil {
		t.Fatalf("issue certificate failed: %v", err)
	}
	if cert.ExpiresAt == nil {
		t.Fatal("expected expiry timestamp")
	}
	remaining := time.Until(*cert.ExpiresAt)
	if remaining < 364*24*time.Hour || remaining > 366*24*time.Hour {
		t.Fatalf("expiry outside expected window: %v", cert.ExpiresAt)
	}
}

func TestCertificatePDFRenders(t *testing.T) {
	service := NewService(newMemStore(), twoStaffDirectory(), 0)
	program := scheduledProgram(t, service, 10)
	if _, err := service.Enroll(context.Background(), program.ID, "staff-a"); err != nil {
		t.Fatalf("enrollment failed: %v", err)
	}
	if err := service.MarkAttendance(context.Background(), program.ID, "staff-a", true); err != nil {
		t.Fatalf("mark attended failed: %v", err)
	}
	cert, err := service.IssueCertificate(context.Background(), program.ID, "staff-a")
	if err != nil {
		t.Fatalf("issue certificate failed: %v", err)
	}

	pdf, err := service.CertificatePDF(context.Background(), cert.ID)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected PDF output, got %q", pdf[:min(8, len(pdf))])
	}
}

func TestMarkAttendanceUnknownEnrollment(t *testing.T) {
	service := NewService(newMemStore(), twoStaffDirectory(), 0)
	program := scheduledProgram(t, service, 10)

	if err := service.MarkAttendance(context.Background(), program.ID, "staff-a", true); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("expected ErrEnrollmentNotFound, got %v", err)
	}
}
