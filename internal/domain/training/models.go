package training

import "time"

const (
	ProgramStatusScheduled = "scheduled"
	ProgramStatusCompleted = "completed"
	ProgramStatusCancelled = "cancelled"

	EnrollmentStatusEnrolled = "enrolled"
	EnrollmentStatusAttended = "attended"
	EnrollmentStatusAbsent   = "absent"

	CertificateStatusValid   = "valid"
	CertificateStatusExpired = "expired"
)

type Program struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Capacity    int       `json:"capacity"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Enrollment struct {
	ID         string    `json:"id"`
	ProgramID  string    `json:"programId"`
	StaffID    string    `json:"staffId"`
	StaffName  string    `json:"staffName,omitempty"`
	Status     string    `json:"status"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// ReportRow is one line of the enrollment export.
type ReportRow struct {
	ProgramID    string    `json:"programId"`
	ProgramTitle string    `json:"programTitle"`
	StaffID      string    `json:"staffId"`
	StaffNo      string    `json:"staffNo"`
	StaffName    string    `json:"staffName"`
	Status       string    `json:"status"`
	EnrolledAt   time.Time `json:"enrolledAt"`
}

type Certificate struct {
	ID        string     `json:"id"`
	ProgramID string     `json:"programId"`
	StaffID   string     `json:"staffId"`
	SerialNo  string     `json:"serialNo"`
	Status    string     `json:"status"`
	IssuedAt  time.Time  `json:"issuedAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
