package notifications

const (
	TypeEvaluationAssigned  = "evaluation_assigned"
	TypeStaffSubmitted      = "evaluation_staff_submitted"
	TypeCycleOpened         = "evaluation_cycle_opened"
	TypeEvaluationReminder  = "evaluation_reminder"
	TypeEvaluationCompleted = "evaluation_completed"
	TypeCertificateIssued   = "certificate_issued"
	TypeTrainingReminder    = "training_reminder"
)
