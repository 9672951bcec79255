package appraisal

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateYear     = errors.New("an evaluation cycle already exists for that year")
	ErrInvalidTransition = errors.New("evaluation record is not ready for this step")
	ErrIncompleteAnswers = errors.New("answers must cover every competency question exactly once")
	ErrAlreadySubmitted  = errors.New("evaluation answers were already submitted")
	ErrInvalidLevel      = errors.New("competency level must be between 1 and 5")
	ErrCycleNotFound     = errors.New("evaluation cycle not found")
	ErrRecordNotFound    = errors.New("evaluation record not found")

	// ErrDependencyUnavailable wraps roster or store I/O failures so callers can
	// retry with backoff instead of treating them as workflow violations.
	ErrDependencyUnavailable = errors.New("evaluation backend dependency unavailable")
)

// MissingSupervisorsError reports the active staff blocking a cycle open.
type MissingSupervisorsError struct {
	Names []string
}

func (e *MissingSupervisorsError) Error() string {
	return fmt.Sprintf("%d active staff have no supervisor assigned", len(e.Names))
}

func (e *MissingSupervisorsError) Count() int {
	return len(e.Names)
}
