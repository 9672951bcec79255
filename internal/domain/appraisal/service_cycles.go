package appraisal

import (
	"context"
	"math"

	"tms/internal/domain/directory"
)

// OpenCycle starts the annual evaluation for a year: it verifies every active
// staff member has a supervisor, then creates the cycle and one pending record
// per staff member, snapshotting each member's current supervisor. The cycle and
// its cohort are written atomically.
func (s *Service) OpenCycle(ctx context.Context, year int, initiatedBy string) (EvaluationCycle, error) {
	missing, err := s.roster.ListActiveStaffWithoutSupervisor(ctx)
	if err != nil {
		return EvaluationCycle{}, wrapDependency(err)
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, member := range missing {
			names = append(names, member.Name)
		}
		return EvaluationCycle{}, &MissingSupervisorsError{Names: names}
	}

	exists, err := s.store.CycleYearExists(ctx, year)
	if err != nil {
		return EvaluationCycle{}, wrapDependency(err)
	}
	if exists {
		return EvaluationCycle{}, ErrDuplicateYear
	}

	staff, err := s.roster.ListActiveStaff(ctx)
	if err != nil {
		return EvaluationCycle{}, wrapDependency(err)
	}

	start, end := CycleWindow(year)
	cycle := EvaluationCycle{
		Year:      year,
		StartDate: start,
		EndDate:   end,
		Status:    CycleStatusActive,
		CreatedBy: initiatedBy,
	}

	records := make([]EvaluationRecord, 0, len(staff))
	for _, member := range staff {
		records = append(records, EvaluationRecord{
			StaffID:      member.ID,
			SupervisorID: member.SupervisorID,
			Status:       RecordStatusPendingStaff,
		})
	}

	cycleID, createdAt, err := s.store.CreateCycleWithRecords(ctx, cycle, records)
	if err != nil {
		return EvaluationCycle{}, wrapDependency(err)
	}
	cycle.ID = cycleID
	cycle.CreatedAt = createdAt
	return cycle, nil
}

// CloseCycle is terminal and idempotent: closing an already-closed cycle is a
// no-op success. Records keep whatever state they were in.
func (s *Service) CloseCycle(ctx context.Context, cycleID string) error {
	cycle, err := s.store.GetCycle(ctx, cycleID)
	if err != nil {
		return wrapDependency(err)
	}
	if cycle.Status == CycleStatusClosed {
		return nil
	}
	if _, err := s.store.MarkCycleClosed(ctx, cycleID); err != nil {
		return wrapDependency(err)
	}
	return nil
}

func (s *Service) GetCycle(ctx context.Context, cycleID string) (EvaluationCycle, error) {
	cycle, err := s.store.GetCycle(ctx, cycleID)
	return cycle, wrapDependency(err)
}

func (s *Service) ListCycles(ctx context.Context) ([]EvaluationCycle, error) {
	cycles, err := s.store.ListCycles(ctx)
	return cycles, wrapDependency(err)
}

// CycleStats counts a cycle's records by status for dashboards. Reads are
// lock-free; a submission racing the query just shifts one bucket.
func (s *Service) CycleStats(ctx context.Context, cycleID string) (CycleStats, error) {
	if _, err := s.store.GetCycle(ctx, cycleID); err != nil {
		return CycleStats{}, wrapDependency(err)
	}
	counts, err := s.store.CountRecordsByStatus(ctx, cycleID)
	if err != nil {
		return CycleStats{}, wrapDependency(err)
	}

	stats := CycleStats{
		PendingStaff:      counts[RecordStatusPendingStaff],
		PendingSupervisor: counts[RecordStatusPendingSupervisor],
		Completed:         counts[RecordStatusCompleted],
	}
	stats.Total = stats.PendingStaff + stats.PendingSupervisor + stats.Completed
	if stats.Total > 0 {
		stats.PercentComplete = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	return stats, nil
}

// YearStats aggregates answer presence across every record belonging to the
// year's cycle, independent of current status.
func (s *Service) YearStats(ctx context.Context, year int) (YearStats, error) {
	stats, err := s.store.YearAnswerCounts(ctx, year)
	return stats, wrapDependency(err)
}

// StaffWithoutSupervisors exposes the same directory query the OpenCycle guard
// uses, so the dashboard signal and the precondition can never drift apart.
func (s *Service) StaffWithoutSupervisors(ctx context.Context) ([]directory.Staff, error) {
	missing, err := s.roster.ListActiveStaffWithoutSupervisor(ctx)
	return missing, wrapDependency(err)
}
