package appraisal

import (
	"context"
	"errors"
	"fmt"

	"tms/internal/domain/directory"
)

// Roster is the directory surface the evaluation engine reads. It never mutates
// supervisor assignments.
type Roster interface {
	ListActiveStaff(ctx context.Context) ([]directory.Staff, error)
	ListActiveStaffWithoutSupervisor(ctx context.Context) ([]directory.Staff, error)
}

type Service struct {
	store  StoreAPI
	roster Roster
}

func NewService(store StoreAPI, roster Roster) *Service {
	return &Service{store: store, roster: roster}
}

// wrapDependency surfaces I/O failures as a retryable kind while letting the
// workflow sentinels through untouched.
func wrapDependency(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		ErrDuplicateYear, ErrInvalidTransition, ErrIncompleteAnswers,
		ErrAlreadySubmitted, ErrInvalidLevel, ErrCycleNotFound, ErrRecordNotFound,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
}
