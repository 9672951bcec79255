package training

import "context"

type StoreAPI interface {
	CreateProgram(ctx context.Context, program Program) (string, error)
	ListPrograms(ctx context.Context, limit, offset int) ([]Program, error)
	GetProgram(ctx context.Context, programID string) (Program, error)
	CountEnrollments(ctx context.Context, programID string) (int, error)
	CreateEnrollment(ctx context.Context, programID, staffID string) (string, error)
	ListEnrollments(ctx context.Context, programID string) ([]Enrollment, error)
	SetEnrollmentStatus(ctx context.Context, programID, staffID, status string) error
	EnrollmentStatus(ctx context.Context, programID, staffID string) (string, error)
	CreateCertificate(ctx context.Context, cert Certificate) (string, error)
	GetCertificate(ctx context.Context, certificateID string) (Certificate, error)
	ListCertificatesForStaff(ctx context.Context, staffID string) ([]Certificate, error)
	ReportRows(ctx context.Context) ([]ReportRow, error)
}
