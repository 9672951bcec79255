package appraisal

import "time"

type EvaluationCycle struct {
	ID        string      `json:"id"`
	Year      int         `json:"year"`
	StartDate time.Time   `json:"startDate"`
	EndDate   time.Time   `json:"endDate"`
	Status    CycleStatus `json:"status"`
	CreatedBy string      `json:"createdBy"`
	CreatedAt time.Time   `json:"createdAt"`
}

// EvaluationRecord holds one staff member's two-phase evaluation for a cycle.
// SupervisorID is a snapshot taken at cycle open; later reassignment in the
// directory never rewrites it.
type EvaluationRecord struct {
	ID                    string       `json:"id"`
	CycleID               string       `json:"cycleId"`
	StaffID               string       `json:"staffId"`
	SupervisorID          string       `json:"supervisorId"`
	StaffAnswers          Answers      `json:"staffAnswers,omitempty"`
	SupervisorAnswers     Answers      `json:"supervisorAnswers,omitempty"`
	StaffSubmittedAt      *time.Time   `json:"staffSubmittedAt,omitempty"`
	SupervisorSubmittedAt *time.Time   `json:"supervisorSubmittedAt,omitempty"`
	Status                RecordStatus `json:"status"`
}

type CycleStats struct {
	Total             int `json:"total"`
	PendingStaff      int `json:"pendingStaff"`
	PendingSupervisor int `json:"pendingSupervisor"`
	Completed         int `json:"completed"`
	PercentComplete   int `json:"percentComplete"`
}

type YearStats struct {
	Total               int `json:"total"`
	StaffSubmitted      int `json:"staffSubmitted"`
	SupervisorSubmitted int `json:"supervisorSubmitted"`
}

// PendingReminder identifies a record still waiting on its staff member.
type PendingReminder struct {
	RecordID string
	StaffID  string
	Year     int
}
