package training

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"

	"tms/internal/domain/directory"
)

// Directory is the slice of the staff directory the training area needs.
type Directory interface {
	GetStaff(ctx context.Context, staffID string) (directory.Staff, error)
}

type Service struct {
	store     StoreAPI
	directory Directory

	// CertificateValidity of zero issues certificates that never expire.
	CertificateValidity time.Duration
}

func NewService(store StoreAPI, dir Directory, validity time.Duration) *Service {
	return &Service{store: store, directory: dir, CertificateValidity: validity}
}

func (s *Service) CreateProgram(ctx context.Context, program Program) (Program, error) {
	if program.Status == "" {
		program.Status = ProgramStatusScheduled
	}
	id, err := s.store.CreateProgram(ctx, program)
	if err != nil {
		return Program{}, err
	}
	return s.store.GetProgram(ctx, id)
}

func (s *Service) ListPrograms(ctx context.Context, limit, offset int) ([]Program, error) {
	return s.store.ListPrograms(ctx, limit, offset)
}

func (s *Service) GetProgram(ctx context.Context, programID string) (Program, error) {
	return s.store.GetProgram(ctx, programID)
}

// Enroll seats a staff member on a program, enforcing capacity. The capacity
// check is a read-then-insert; the unique (program_id, staff_id) index keeps
// duplicates out even under concurrent requests.
func (s *Service) Enroll(ctx context.Context, programID, staffID string) (Enrollment, error) {
	program, err := s.store.GetProgram(ctx, programID)
	if err != nil {
		return Enrollment{}, err
	}
	if _, err := s.directory.GetStaff(ctx, staffID); err != nil {
		return Enrollment{}, err
	}

	if program.Capacity > 0 {
		seated, err := s.store.CountEnrollments(ctx, programID)
		if err != nil {
			return Enrollment{}, err
		}
		if seated >= program.Capacity {
			return Enrollment{}, ErrProgramFull
		}
	}

	id, err := s.store.CreateEnrollment(ctx, programID, staffID)
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{ID: id, ProgramID: programID, StaffID: staffID, Status: EnrollmentStatusEnrolled}, nil
}

func (s *Service) ListEnrollments(ctx context.Context, programID string) ([]Enrollment, error) {
	if _, err := s.store.GetProgram(ctx, programID); err != nil {
		return nil, err
	}
	return s.store.ListEnrollments(ctx, programID)
}

func (s *Service) MarkAttendance(ctx context.Context, programID, staffID string, attended bool) error {
	status := EnrollmentStatusAttended
	if !attended {
		status = EnrollmentStatusAbsent
	}
	return s.store.SetEnrollmentStatus(ctx, programID, staffID, status)
}

// IssueCertificate mints a certificate for a staff member who attended the
// program. Validity is stamped from the issue time when configured.
func (s *Service) IssueCertificate(ctx context.Context, programID, staffID string) (Certificate, error) {
	status, err := s.store.EnrollmentStatus(ctx, programID, staffID)
	if err != nil {
		return Certificate{}, err
	}
	if status != EnrollmentStatusAttended {
		return Certificate{}, ErrNotAttended
	}

	cert := Certificate{
		ProgramID: programID,
		StaffID:   staffID,
		SerialNo:  newSerial(time.Now().UTC()),
		Status:    CertificateStatusValid,
	}
	if s.CertificateValidity > 0 {
		expires := time.Now().UTC().Add(s.CertificateValidity)
		cert.ExpiresAt = &expires
	}

	id, err := s.store.CreateCertificate(ctx, cert)
	if err != nil {
		return Certificate{}, err
	}
	return s.store.GetCertificate(ctx, id)
}

func (s *Service) GetCertificate(ctx context.Context, certificateID string) (Certificate, error) {
	return s.store.GetCertificate(ctx, certificateID)
}

func (s *Service) ListCertificatesForStaff(ctx context.Context, staffID string) ([]Certificate, error) {
	return s.store.ListCertificatesForStaff(ctx, staffID)
}

// EnrollmentReport returns every enrollment with program and staff context.
func (s *Service) EnrollmentReport(ctx context.Context) ([]ReportRow, error) {
	return s.store.ReportRows(ctx)
}

// CertificatePDF renders the printable certificate.
func (s *Service) CertificatePDF(ctx context.Context, certificateID string) ([]byte, error) {
	cert, err := s.store.GetCertificate(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	program, err := s.store.GetProgram(ctx, cert.ProgramID)
	if err != nil {
		return nil, err
	}
	staff, err := s.directory.GetStaff(ctx, cert.StaffID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 28)
	pdf.CellFormat(0, 30, "Certificate of Completion", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, "This certifies that", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 14, staff.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, "has successfully completed the training program", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 12, program.Title, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Held %s to %s at %s",
		program.StartDate.Format("2 Jan 2006"), program.EndDate.Format("2 Jan 2006"), program.Venue),
		"", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Issued %s", cert.IssuedAt.Format("2 Jan 2006")), "", 1, "C", false, 0, "")
	if cert.ExpiresAt != nil {
		pdf.CellFormat(0, 8, fmt.Sprintf("Valid until %s", cert.ExpiresAt.Format("2 Jan 2006")), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 8, fmt.Sprintf("Serial: %s", cert.SerialNo), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newSerial(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("TC-%d-%s", now.Year(), suffix)
}
