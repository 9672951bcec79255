package appraisal

type CycleStatus string

const (
	CycleStatusActive CycleStatus = "active"
	CycleStatusClosed CycleStatus = "closed"
)

type RecordStatus string

const (
	RecordStatusPendingStaff      RecordStatus = "pending_staff"
	RecordStatusPendingSupervisor RecordStatus = "pending_supervisor"
	RecordStatusCompleted         RecordStatus = "completed"
)

const (
	RatingExcellent = "Excellent"
	RatingGood      = "Good"
	RatingModerate  = "Moderate"
	RatingWeak      = "Weak"
	RatingVeryWeak  = "Very Weak"
)
