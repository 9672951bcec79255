package training

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tms/internal/platform/db"
)

type Store struct {
	DB db.Querier
}

func NewStore(pool db.Querier) *Store {
	return &Store{DB: pool}
}

func (s *Store) CreateProgram(ctx context.Context, program Program) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO training_programs (title, description, venue, start_date, end_date, capacity, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, program.Title, program.Description, program.Venue, program.StartDate, program.EndDate,
		program.Capacity, program.Status).Scan(&id)
	return id, err
}

func (s *Store) ListPrograms(ctx context.Context, limit, offset int) ([]Program, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, title, description, venue, start_date, end_date, capacity, status, created_at
    FROM training_programs
    ORDER BY start_date DESC
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var programs []Program
	for rows.Next() {
		var p Program
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Venue, &p.StartDate, &p.EndDate,
			&p.Capacity, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

func (s *Store) GetProgram(ctx context.Context, programID string) (Program, error) {
	var p Program
	err := s.DB.QueryRow(ctx, `
    SELECT id, title, description, venue, start_date, end_date, capacity, status, created_at
    FROM training_programs
    WHERE id = $1
  `, programID).Scan(&p.ID, &p.Title, &p.Description, &p.Venue, &p.StartDate, &p.EndDate,
		&p.Capacity, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Program{}, ErrProgramNotFound
		}
		return Program{}, err
	}
	return p, nil
}

func (s *Store) CountEnrollments(ctx context.Context, programID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM training_enrollments WHERE program_id = $1", programID).Scan(&count)
	return count, err
}

func (s *Store) CreateEnrollment(ctx context.Context, programID, staffID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO training_enrollments (program_id, staff_id, status)
    VALUES ($1,$2,$3)
    RETURNING id
  `, programID, staffID, EnrollmentStatusEnrolled).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrAlreadyEnrolled
		}
		return "", err
	}
	return id, nil
}

func (s *Store) ListEnrollments(ctx context.Context, programID string) ([]Enrollment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id, e.program_id, e.staff_id, st.name, e.status, e.enrolled_at
    FROM training_enrollments e
    JOIN staff st ON e.staff_id = st.id
    WHERE e.program_id = $1
    ORDER BY st.name
  `, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []Enrollment
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.ProgramID, &e.StaffID, &e.StaffName, &e.Status, &e.EnrolledAt); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

func (s *Store) SetEnrollmentStatus(ctx context.Context, programID, staffID, status string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE training_enrollments
    SET status = $1
    WHERE program_id = $2 AND staff_id = $3
  `, status, programID, staffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEnrollmentNotFound
	}
	return nil
}

func (s *Store) EnrollmentStatus(ctx context.Context, programID, staffID string) (string, error) {
	var status string
	err := s.DB.QueryRow(ctx, `
    SELECT status FROM training_enrollments WHERE program_id = $1 AND staff_id = $2
  `, programID, staffID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrEnrollmentNotFound
	}
	return status, err
}

func (s *Store) CreateCertificate(ctx context.Context, cert Certificate) (string, error) {
	var expires any
	if cert.ExpiresAt != nil {
		expires = *cert.ExpiresAt
	}
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO certificates (program_id, staff_id, serial_no, status, expires_at)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, cert.ProgramID, cert.StaffID, cert.SerialNo, cert.Status, expires).Scan(&id)
	return id, err
}

func (s *Store) GetCertificate(ctx context.Context, certificateID string) (Certificate, error) {
	var cert Certificate
	err := s.DB.QueryRow(ctx, `
    SELECT id, program_id, staff_id, serial_no, status, issued_at, expires_at
    FROM certificates
    WHERE id = $1
  `, certificateID).Scan(&cert.ID, &cert.ProgramID, &cert.StaffID, &cert.SerialNo, &cert.Status,
		&cert.IssuedAt, &cert.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Certificate{}, ErrCertificateNotFound
		}
		return Certificate{}, err
	}
	return cert, nil
}

func (s *Store) ListCertificatesForStaff(ctx context.Context, staffID string) ([]Certificate, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, program_id, staff_id, serial_no, status, issued_at, expires_at
    FROM certificates
    WHERE staff_id = $1
    ORDER BY issued_at DESC
  `, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var certs []Certificate
	for rows.Next() {
		var cert Certificate
		if err := rows.Scan(&cert.ID, &cert.ProgramID, &cert.StaffID, &cert.SerialNo, &cert.Status,
			&cert.IssuedAt, &cert.ExpiresAt); err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	return certs, rows.Err()
}

func (s *Store) ReportRows(ctx context.Context) ([]ReportRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT p.id, p.title, st.id, st.staff_no, st.name, e.status, e.enrolled_at
    FROM training_enrollments e
    JOIN training_programs p ON e.program_id = p.id
    JOIN staff st ON e.staff_id = st.id
    ORDER BY p.title, st.name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(&row.ProgramID, &row.ProgramTitle, &row.StaffID, &row.StaffNo,
			&row.StaffName, &row.Status, &row.EnrolledAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ExpireCertificates flips past-expiry certificates to expired and returns the
// affected count. Run by the background sweep.
func ExpireCertificates(ctx context.Context, pool db.Querier, now time.Time) (int64, error) {
	tag, err := pool.Exec(ctx, `
    UPDATE certificates
    SET status = $1
    WHERE status = $2 AND expires_at IS NOT NULL AND expires_at < $3
  `, CertificateStatusExpired, CertificateStatusValid, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
