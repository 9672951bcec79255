package appraisal

import (
	"context"
	"time"
)

type StoreAPI interface {
	CycleYearExists(ctx context.Context, year int) (bool, error)
	CreateCycleWithRecords(ctx context.Context, cycle EvaluationCycle, records []EvaluationRecord) (string, time.Time, error)
	GetCycle(ctx context.Context, cycleID string) (EvaluationCycle, error)
	ListCycles(ctx context.Context) ([]EvaluationCycle, error)
	MarkCycleClosed(ctx context.Context, cycleID string) (bool, error)
	GetRecord(ctx context.Context, recordID string) (EvaluationRecord, error)
	ListRecordsByCycle(ctx context.Context, cycleID string) ([]EvaluationRecord, error)
	ListRecordsForStaff(ctx context.Context, staffID string) ([]EvaluationRecord, error)
	ListRecordsForSupervisor(ctx context.Context, supervisorID string) ([]EvaluationRecord, error)
	MarkStaffSubmitted(ctx context.Context, recordID string, answersJSON []byte, submittedAt time.Time) (bool, error)
	MarkSupervisorSubmitted(ctx context.Context, recordID string, answersJSON []byte, submittedAt time.Time) (bool, error)
	CountRecordsByStatus(ctx context.Context, cycleID string) (map[RecordStatus]int, error)
	YearAnswerCounts(ctx context.Context, year int) (YearStats, error)
}
