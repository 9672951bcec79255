package appraisal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"tms/internal/domain/directory"
)

type fakeRoster struct {
	staff   []directory.Staff
	missing []directory.Staff
	err     error
}

func (f *fakeRoster) ListActiveStaff(ctx context.Context) ([]directory.Staff, error) {
	return f.staff, f.err
}

func (f *fakeRoster) ListActiveStaffWithoutSupervisor(ctx context.Context) ([]directory.Staff, error) {
	return f.missing, f.err
}

type memStore struct {
	cycles  map[string]*EvaluationCycle
	records map[string]*EvaluationRecord
	seq     int
}

func newMemStore() *memStore {
	return &memStore{cycles: map[string]*EvaluationCycle{}, records: map[string]*EvaluationRecord{}}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) CycleYearExists(ctx context.Context, year int) (bool, error) {
	for _, c := range m.cycles {
		if c.Year == year {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateCycleWithRecords(ctx context.Context, cycle EvaluationCycle, records []EvaluationRecord) (string, time.Time, error) {
	if exists, _ := m.CycleYearExists(ctx, cycle.Year); exists {
		return "", time.Time{}, ErrDuplicateYear
	}
	id := m.nextID("cycle")
	stored := cycle
	stored.ID = id
	stored.CreatedAt = time.Now().UTC()
	m.cycles[id] = &stored
	for _, record := range records {
		rec := record
		rec.ID = m.nextID("rec")
		rec.CycleID = id
		m.records[rec.ID] = &rec
	}
	return id, stored.CreatedAt, nil
}

func (m *memStore) GetCycle(ctx context.Context, cycleID string) (EvaluationCycle, error) {
	cycle, ok := m.cycles[cycleID]
	if !ok {
		return EvaluationCycle{}, ErrCycleNotFound
	}
	return *cycle, nil
}

func (m *memStore) ListCycles(ctx context.Context) ([]EvaluationCycle, error) {
	var out []EvaluationCycle
	for _, c := range m.cycles {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memStore) MarkCycleClosed(ctx context.Context, cycleID string) (bool, error) {
	cycle, ok := m.cycles[cycleID]
	if !ok || cycle.Status != CycleStatusActive {
		return false, nil
	}
	cycle.Status = CycleStatusClosed
	return true, nil
}

func (m *memStore) GetRecord(ctx context.Context, recordID string) (EvaluationRecord, error) {
	record, ok := m.records[recordID]
	if !ok {
		return EvaluationRecord{}, ErrRecordNotFound
	}
	return *record, nil
}

func (m *memStore) ListRecordsByCycle(ctx context.Context, cycleID string) ([]EvaluationRecord, error) {
	var out []EvaluationRecord
	for _, r := range m.records {
		if r.CycleID == cycleID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) ListRecordsForStaff(ctx context.Context, staffID string) ([]EvaluationRecord, error) {
	var out []EvaluationRecord
	for _, r := range m.records {
		if r.StaffID == staffID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) ListRecordsForSupervisor(ctx context.Context, supervisorID string) ([]EvaluationRecord, error) {
	var out []EvaluationRecord
	for _, r := range m.records {
		if r.SupervisorID == supervisorID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) MarkStaffSubmitted(ctx context.Context, recordID string, answersJSON []byte, submittedAt time.Time) (bool, error) {
	record, ok := m.records[recordID]
	if !ok || record.Status != RecordStatusPendingStaff {
		return false, nil
	}
	var answers Answers
	if err := json.Unmarshal(answersJSON, &answers); err != nil {
		return false, err
	}
	record.StaffAnswers = answers
	record.StaffSubmittedAt = &submittedAt
	record.Status = RecordStatusPendingSupervisor
	return true, nil
}

func (m *memStore) MarkSupervisorSubmitted(ctx context.Context, recordID string, answersJSON []byte, submittedAt time.Time) (bool, error) {
	record, ok := m.records[recordID]
	if !ok || record.Status != RecordStatusPendingSupervisor {
		return false, nil
	}
	var answers Answers
	if err := json.Unmarshal(answersJSON, &answers); err != nil {
		return false, err
	}
	record.SupervisorAnswers = answers
	record.SupervisorSubmittedAt = &submittedAt
	record.Status = RecordStatusCompleted
	return true, nil
}

func (m *memStore) CountRecordsByStatus(ctx context.Context, cycleID string) (map[RecordStatus]int, error) {
	counts := map[RecordStatus]int{}
	for _, r := range m.records {
		if r.CycleID == cycleID {
			counts[r.Status]++
		}
	}
	return counts, nil
}

func (m *memStore) YearAnswerCounts(ctx context.Context, year int) (YearStats, error) {
	var stats YearStats
	for _, r := range m.records {
		cycle, ok := m.cycles[r.CycleID]
		if !ok || cycle.Year != year {
			continue
		}
		stats.Total++
		if r.StaffAnswers != nil {
			stats.StaffSubmitted++
		}
		if r.SupervisorAnswers != nil {
			stats.SupervisorSubmitted++
		}
	}
	return stats, nil
}

func threeStaffRoster() *fakeRoster {
	return &fakeRoster{staff: []directory.Staff{
		{ID: "staff-a", Name: "Aisha", SupervisorID: "sup-1"},
		{ID: "staff-b", Name: "Badrul", SupervisorID: "sup-1"},
		{ID: "staff-c", Name: "Chen", SupervisorID: "sup-2"},
	}}
}

func TestOpenCycleCreatesRecordPerActiveStaff(t *testing.T) {
	store := newMemStore()
	service := NewService(store, threeStaffRoster())

	cycle, err := service.OpenCycle(context.Background(), 2025, "admin-1")
	if err != nil {
		t.Fatalf("open cycle failed: %v", err)
	}
	if cycle.Status != CycleStatusActive || cycle.Year != 2025 {
		t.Fatalf("unexpected cycle: %+v", cycle)
	}
	if cycle.StartDate.Month() != time.December || cycle.EndDate.Month() != time.February {
		t.Fatalf("unexpected window: %v .. %v", cycle.StartDate, cycle.EndDate)
	}
	if !cycle.CreatedAt.Equal(store.cycles[cycle.ID].CreatedAt) {
		t.Fatalf("expected stored creation time %v, got %v", store.cycles[cycle.ID].CreatedAt, cycle.CreatedAt)
	}

	records, err := service.ListRecordsByCycle(context.Background(), cycle.ID)
	if err != nil {
		t.Fatalf("list records failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for _, record := range records {
		if record.Status != RecordStatusPendingStaff {
			t.Fatalf("expected pending_staff, got %s", record.Status)
		}
		if record.SupervisorID == "" {
			t.Fatalf("expected supervisor snapshot on record %s", record.ID)
		}
	}
}

func TestOpenCycleDuplicateYear(t *testing.T) {
	store := newMemStore()
	service := NewService(store, threeStaffRoster())

	if _, err := service.OpenCycle(context.Background(), 2025, "admin-1"); err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if _, err := service.OpenCycle(context.Background(), 2025, "admin-1"); !errors.Is(err, ErrDuplicateYear) {
		t.Fatalf("expected ErrDuplicateYear, got %v", err)
	}
	if len(store.cycles) != 1 {
		t.Fatalf("expected a single cycle, got %d", len(store.cycles))
	}
}

func TestOpenCycleBlockedByMissingSupervisors(t *testing.T) {
	store := newMemStore()
	roster := threeStaffRoster()
	roster.missing = []directory.Staff{{ID: "staff-b", Name: "Badrul"}, {ID: "staff-c", Name: "Chen"}}
	service := NewService(store, roster)

	_, err := service.OpenCycle(context.Background(), 2025, "admin-1")
	var missingErr *MissingSupervisorsError
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected MissingSupervisorsError, got %v", err)
	}
	if missingErr.Count() != 2 {
		t.Fatalf("expected 2 blocking staff, got %d", missingErr.Count())
	}
	if len(store.cycles) != 0 || len(store.records) != 0 {
		t.Fatalf("expected no writes, got %d cycles and %d records", len(store.cycles), len(store.records))
	}
}

func TestOpenCycleEmptyRosterCreatesEmptyCohort(t *testing.T) {
	store := newMemStore()
	service := NewService(store, &fakeRoster{})

	cycle, err := service.OpenCycle(context.Background(), 2026, "admin-1")
	if err != nil {
		t.Fatalf("open cycle failed: %v", err)
	}
	records, _ := service.ListRecordsByCycle(context.Background(), cycle.ID)
	if len(records) != 0 {
		t.Fatalf("expected zero records, got %d", len(records))
	}
}

func TestSubmitStaffIsWriteOnce(t *testing.T) {
	store := newMemStore()
	service := NewService(store, threeStaffRoster())
	cycle, _ := service.OpenCycle(context.Background(), 2025, "admin-1")
	records, _ := service.ListRecordsByCycle(context.Background(), cycle.ID)
	recordID := records[0].ID

	first := completeAnswers(3)
	record, err := service.SubmitStaffEvaluation(context.Background(), recordID, first)
	if err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if record.Status != RecordStatusPendingSupervisor {
		t.Fatalf("expected pending_supervisor, got %s", record.Status)
	}
	if record.StaffSubmittedAt == nil {
		t.Fatal("expected staff submission timestamp")
	}

	if _, err := service.SubmitStaffEvaluation(context.Background(), recordID, completeAnswers(5)); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}

	stored, _ := service.GetRecord(context.Background(), recordID)
	if stored.StaffAnswers["q01"] != 3 {
		t.Fatalf("second submission overwrote the first: %+v", stored.StaffAnswers)
	}
}

func TestSupervisorCannotSubmitBeforeStaff(t *testing.T) {
	store := newMemStore()
	service := NewService(store, threeStaffRoster())
	cycle, _ := service.OpenCycle(context.Background(), 2025, "admin-1")
	records, _ := service.ListRecordsByCycle(context.Background(), cycle.ID)

	if _, err := service.SubmitSupervisorEvaluation(context.Background(), records[0].ID, completeAnswers(4)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestSubmitRejectsIncompleteAnswers(t *testing.T) {
	store := newMemStore()
	service := NewService(store, threeStaffRoster())
	cycle, _ := service.OpenCycle(context.Background(), 2025, "admin-1")
	records, _ := service.ListRecordsByCycle(context.Background(), cycle.ID)

	partial := Answers{"q01": 3}
	if _, err := service.SubmitStaffEvaluation(context.Background(), records[0].ID, partial); !errors.Is(err, ErrIncompleteAnswers) {
		t.Fatalf("expected ErrIncompleteAnswers, got %v", err)
	}
}

func TestSubmitUnknownRecord(t *testing.T) {
	store := newMemStore()
	service := NewService(store, threeStaffRoster())

	if _, err := service.SubmitStaffEvaluation(context.Background(), "rec-missing", completeAnswers(3)); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestAnnualCycleScenario(t *testing.T) {
	store := newMemStore()
	service := NewService(store, threeStaffRoster())

	cycle, err := service.OpenCycle(context.Background(), 2025, "admin-1")
	if err != nil {
		t.Fatalf("open cycle failed: %v", err)
	}

	var recordA EvaluationRecord
	records, _ := service.ListRecordsByCycle(context.Background(), cycle.ID)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for _, record := range records {
		if record.StaffID == "staff-a" {
			recordA = record
		}
	}

	record, err := service.SubmitStaffEvaluation(context.Background(), recordA.ID, completeAnswers(3))
	if err != nil {
		t.Fatalf("staff submission failed: %v", err)
	}
	summary, err := Summarize(record.StaffAnswers)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if summary.Total != 60 || summary.Percentage != 60 || summary.Rating != RatingGood {
		t.Fatalf("unexpected staff summary: %+v", summary)
	}

	record, err = service.SubmitSupervisorEvaluation(context.Background(), recordA.ID, completeAnswers(5))
	if err != nil {
		t.Fatalf("supervisor submission failed: %v", err)
	}
	if record.Status != RecordStatusCompleted {
		t.Fatalf("expected completed, got %s", record.Status)
	}
	supSummary, _ := Summarize(record.SupervisorAnswers)
	if supSummary.Total != 100 {
		t.Fatalf("expected supervisor total 100, got %d", supSummary.Total)
	}

	stats, err := service.CycleStats(context.Background(), cycle.ID)
	if err != nil {
		t.Fatalf("cycle stats failed: %v", err)
	}
	want := CycleStats{Total: 3, PendingStaff: 2, PendingSupervisor: 0, Completed: 1, PercentComplete: 33}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}

	yearStats, err := service.YearStats(context.Background(), 2025)
	if err != nil {
		t.Fatalf("year stats failed: %v", err)
	}
	if yearStats.Total != 3 || yearStats.StaffSubmitted != 1 || yearStats.SupervisorSubmitted != 1 {
		t.Fatalf("unexpected year stats: %+v", yearStats)
	}
}

func TestCloseCycleIdempotent(t *testing.T) {
	store := newMemStore()
	service := NewService(store, threeStaffRoster())
	cycle, _ := service.OpenCycle(context.Background(), 2025, "admin-1")
	records, _ := service.ListRecordsByCycle(context.Background(), cycle.ID)
	if _, err := service.SubmitStaffEvaluation(context.Background(), records[0].ID, completeAnswers(2)); err != nil {
		t.Fatalf("staff submission failed: %v", err)
	}

	if err := service.CloseCycle(context.Background(), cycle.ID); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := service.CloseCycle(context.Background(), cycle.ID); err != nil {
		t.Fatalf("second close should be a no-op success: %v", err)
	}

	closed, _ := service.GetCycle(context.Background(), cycle.ID)
	if closed.Status != CycleStatusClosed {
		t.Fatalf("expected closed cycle, got %s", closed.Status)
	}

	// Closing never forces record completion.
	after, _ := service.ListRecordsByCycle(context.Background(), cycle.ID)
	pending := 0
	for _, record := range after {
		if record.Status == RecordStatusPendingStaff {
			pending++
		}
	}
	if pending != 2 {
		t.Fatalf("expected 2 records still pending_staff, got %d", pending)
	}
}

func TestCloseUnknownCycle(t *testing.T) {
	service := NewService(newMemStore(), threeStaffRoster())
	if err := service.CloseCycle(context.Background(), "cycle-missing"); !errors.Is(err, ErrCycleNotFound) {
		t.Fatalf("expected ErrCycleNotFound, got %v", err)
	}
}

func TestRosterFailureSurfacesDependencyError(t *testing.T) {
	roster := &fakeRoster{err: errors.New("directory timeout")}
	service := NewService(newMemStore(), roster)

	if _, err := service.OpenCycle(context.Background(), 2025, "admin-1"); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if _, err := service.StaffWithoutSupervisors(context.Background()); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}
