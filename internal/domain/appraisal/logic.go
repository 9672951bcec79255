package appraisal

import "time"

// ValidateAnswers checks an answer set covers the full catalog with levels in
// range. Submissions are all-or-nothing; a partial or off-catalog payload is
// rejected before any write happens.
func ValidateAnswers(answers Answers) error {
	for id, level := range answers {
		if !isCatalogQuestion(id) {
			return ErrIncompleteAnswers
		}
		if _, err := ScoreOf(level); err != nil {
			return err
		}
	}
	if len(answers) != QuestionCount() {
		return ErrIncompleteAnswers
	}
	return nil
}

// GuardStaffSubmit reports whether a record can accept the staff self-assessment.
// Staff answers are write-once; any later state means they were already filed.
func GuardStaffSubmit(status RecordStatus) error {
	switch status {
	case RecordStatusPendingStaff:
		return nil
	case RecordStatusPendingSupervisor, RecordStatusCompleted:
		return ErrAlreadySubmitted
	default:
		return ErrInvalidTransition
	}
}

// GuardSupervisorSubmit reports whether a record can accept the supervisor review.
func GuardSupervisorSubmit(status RecordStatus) error {
	switch status {
	case RecordStatusPendingSupervisor:
		return nil
	case RecordStatusPendingStaff:
		return ErrInvalidTransition
	case RecordStatusCompleted:
		return ErrAlreadySubmitted
	default:
		return ErrInvalidTransition
	}
}

// CycleWindow returns the fixed evaluation window for a year: 1 December through
// 28 February of the following year, regardless of leap years.
func CycleWindow(year int) (time.Time, time.Time) {
	start := time.Date(year, time.December, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, time.February, 28, 0, 0, 0, 0, time.UTC)
	return start, end
}
