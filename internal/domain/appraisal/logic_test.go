package appraisal

import (
	"errors"
	"testing"
	"time"
)

func TestValidateAnswersComplete(t *testing.T) {
	if err := ValidateAnswers(completeAnswers(4)); err != nil {
		t.Fatalf("complete answers rejected: %v", err)
	}
}

func TestValidateAnswersMissingQuestion(t *testing.T) {
	answers := completeAnswers(3)
	delete(answers, "q05")
	if err := ValidateAnswers(answers); !errors.Is(err, ErrIncompleteAnswers) {
		t.Fatalf("expected ErrIncompleteAnswers, got %v", err)
	}
}

func TestValidateAnswersUnknownQuestion(t *testing.T) {
	answers := completeAnswers(3)
	delete(answers, "q10")
	answers["q99"] = 3
	if err := ValidateAnswers(answers); !errors.Is(err, ErrIncompleteAnswers) {
		t.Fatalf("expected ErrIncompleteAnswers, got %v", err)
	}
}

func TestValidateAnswersBadLevel(t *testing.T) {
	answers := completeAnswers(3)
	answers["q02"] = 9
	if err := ValidateAnswers(answers); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}

func TestGuardStaffSubmit(t *testing.T) {
	if err := GuardStaffSubmit(RecordStatusPendingStaff); err != nil {
		t.Fatalf("pending_staff should allow staff submit: %v", err)
	}
	if err := GuardStaffSubmit(RecordStatusPendingSupervisor); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	if err := GuardStaffSubmit(RecordStatusCompleted); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestGuardSupervisorSubmit(t *testing.T) {
	if err := GuardSupervisorSubmit(RecordStatusPendingSupervisor); err != nil {
		t.Fatalf("pending_supervisor should allow review: %v", err)
	}
	if err := GuardSupervisorSubmit(RecordStatusPendingStaff); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := GuardSupervisorSubmit(RecordStatusCompleted); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestCycleWindow(t *testing.T) {
	start, end := CycleWindow(2025)
	if !start.Equal(time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start date: %v", start)
	}
	if !end.Equal(time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end date: %v", end)
	}
}
