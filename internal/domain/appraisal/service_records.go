package appraisal

import (
	"context"
	"encoding/json"
	"time"
)

// SubmitStaffEvaluation files the self-assessment and advances the record to
// pending_supervisor. The write is a status-guarded compare-and-set, so a retry
// after success (or any repeat call) surfaces ErrAlreadySubmitted instead of
// overwriting the first submission.
func (s *Service) SubmitStaffEvaluation(ctx context.Context, recordID string, answers Answers) (EvaluationRecord, error) {
	if err := ValidateAnswers(answers); err != nil {
		return EvaluationRecord{}, err
	}
	payload, err := json.Marshal(answers)
	if err != nil {
		return EvaluationRecord{}, err
	}

	updated, err := s.store.MarkStaffSubmitted(ctx, recordID, payload, time.Now().UTC())
	if err != nil {
		return EvaluationRecord{}, wrapDependency(err)
	}
	if !updated {
		record, err := s.store.GetRecord(ctx, recordID)
		if err != nil {
			return EvaluationRecord{}, wrapDependency(err)
		}
		if guardErr := GuardStaffSubmit(record.Status); guardErr != nil {
			return EvaluationRecord{}, guardErr
		}
		return EvaluationRecord{}, ErrInvalidTransition
	}
	record, err := s.store.GetRecord(ctx, recordID)
	return record, wrapDependency(err)
}

// SubmitSupervisorEvaluation files the review and completes the record. Calling
// it before the self-assessment fails with ErrInvalidTransition; calling it on a
// completed record fails with ErrAlreadySubmitted.
func (s *Service) SubmitSupervisorEvaluation(ctx context.Context, recordID string, answers Answers) (EvaluationRecord, error) {
	if err := ValidateAnswers(answers); err != nil {
		return EvaluationRecord{}, err
	}
	payload, err := json.Marshal(answers)
	if err != nil {
		return EvaluationRecord{}, err
	}

	updated, err := s.store.MarkSupervisorSubmitted(ctx, recordID, payload, time.Now().UTC())
	if err != nil {
		return EvaluationRecord{}, wrapDependency(err)
	}
	if !updated {
		record, err := s.store.GetRecord(ctx, recordID)
		if err != nil {
			return EvaluationRecord{}, wrapDependency(err)
		}
		if guardErr := GuardSupervisorSubmit(record.Status); guardErr != nil {
			return EvaluationRecord{}, guardErr
		}
		return EvaluationRecord{}, ErrInvalidTransition
	}
	record, err := s.store.GetRecord(ctx, recordID)
	return record, wrapDependency(err)
}

func (s *Service) GetRecord(ctx context.Context, recordID string) (EvaluationRecord, error) {
	record, err := s.store.GetRecord(ctx, recordID)
	return record, wrapDependency(err)
}

func (s *Service) ListRecordsByCycle(ctx context.Context, cycleID string) ([]EvaluationRecord, error) {
	records, err := s.store.ListRecordsByCycle(ctx, cycleID)
	return records, wrapDependency(err)
}

func (s *Service) ListRecordsForStaff(ctx context.Context, staffID string) ([]EvaluationRecord, error) {
	records, err := s.store.ListRecordsForStaff(ctx, staffID)
	return records, wrapDependency(err)
}

func (s *Service) ListRecordsForSupervisor(ctx context.Context, supervisorID string) ([]EvaluationRecord, error) {
	records, err := s.store.ListRecordsForSupervisor(ctx, supervisorID)
	return records, wrapDependency(err)
}
