package directory

import "time"

const (
	StaffStatusActive   = "active"
	StaffStatusInactive = "inactive"
)

// Staff is one roster member. SupervisorID is the live assignment and is empty
// when nobody has been assigned yet.
type Staff struct {
	ID           string    `json:"id"`
	StaffNo      string    `json:"staffNo"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Position     string    `json:"position"`
	Department   string    `json:"department"`
	SupervisorID string    `json:"supervisorId,omitempty"`
	Status       string    `json:"status"`
	NationalID   string    `json:"nationalId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
