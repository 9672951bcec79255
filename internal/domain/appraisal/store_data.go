package appraisal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tms/internal/platform/db"
)

type Store struct {
	DB db.Querier
}

func NewStore(pool db.Querier) *Store {
	return &Store{DB: pool}
}

func (s *Store) CycleYearExists(ctx context.Context, year int) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM evaluation_cycles WHERE year = $1", year).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateCycleWithRecords inserts the cycle and its whole record cohort in one
// transaction; a failure on any row leaves nothing behind.
func (s *Store) CreateCycleWithRecords(ctx context.Context, cycle EvaluationCycle, records []EvaluationRecord) (string, time.Time, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", time.Time{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cycleID string
	var createdAt time.Time
	if err := tx.QueryRow(ctx, `
    INSERT INTO evaluation_cycles (year, start_date, end_date, status, created_by)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id, created_at
  `, cycle.Year, cycle.StartDate, cycle.EndDate, cycle.Status, cycle.CreatedBy).Scan(&cycleID, &createdAt); err != nil {
		if isUniqueViolation(err) {
			return "", time.Time{}, ErrDuplicateYear
		}
		return "", time.Time{}, err
	}

	for _, record := range records {
		var supervisor any
		if record.SupervisorID != "" {
			supervisor = record.SupervisorID
		}
		if _, err := tx.Exec(ctx, `
      INSERT INTO evaluation_records (cycle_id, staff_id, supervisor_id, status)
      VALUES ($1,$2,$3,$4)
    `, cycleID, record.StaffID, supervisor, record.Status); err != nil {
			return "", time.Time{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", time.Time{}, err
	}
	return cycleID, createdAt, nil
}

func (s *Store) GetCycle(ctx context.Context, cycleID string) (EvaluationCycle, error) {
	var cycle EvaluationCycle
	err := s.DB.QueryRow(ctx, `
    SELECT id, year, start_date, end_date, status, COALESCE(created_by::text, ''), created_at
    FROM evaluation_cycles
    WHERE id = $1
  `, cycleID).Scan(&cycle.ID, &cycle.Year, &cycle.StartDate, &cycle.EndDate, &cycle.Status, &cycle.CreatedBy, &cycle.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EvaluationCycle{}, ErrCycleNotFound
		}
		return EvaluationCycle{}, err
	}
	return cycle, nil
}

func (s *Store) ListCycles(ctx context.Context) ([]EvaluationCycle, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, year, start_date, end_date, status, COALESCE(created_by::text, ''), created_at
    FROM evaluation_cycles
    ORDER BY year DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []EvaluationCycle
	for rows.Next() {
		var cycle EvaluationCycle
		if err := rows.Scan(&cycle.ID, &cycle.Year, &cycle.StartDate, &cycle.EndDate, &cycle.Status, &cycle.CreatedBy, &cycle.CreatedAt); err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle)
	}
	return cycles, rows.Err()
}

// MarkCycleClosed reports false when the cycle was already closed.
func (s *Store) MarkCycleClosed(ctx context.Context, cycleID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluation_cycles
    SET status = $1
    WHERE id = $2 AND status = $3
  `, CycleStatusClosed, cycleID, CycleStatusActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const recordColumns = `id, cycle_id, staff_id, COALESCE(supervisor_id::text, ''), staff_answers, supervisor_answers, staff_submitted_at, supervisor_submitted_at, status`

func (s *Store) GetRecord(ctx context.Context, recordID string) (EvaluationRecord, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM evaluation_records
    WHERE id = $1
  `, recordID)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EvaluationRecord{}, ErrRecordNotFound
		}
		return EvaluationRecord{}, err
	}
	return record, nil
}

func (s *Store) ListRecordsByCycle(ctx context.Context, cycleID string) ([]EvaluationRecord, error) {
	return s.listRecords(ctx, "cycle_id", cycleID)
}

func (s *Store) ListRecordsForStaff(ctx context.Context, staffID string) ([]EvaluationRecord, error) {
	return s.listRecords(ctx, "staff_id", staffID)
}

func (s *Store) ListRecordsForSupervisor(ctx context.Context, supervisorID string) ([]EvaluationRecord, error) {
	return s.listRecords(ctx, "supervisor_id", supervisorID)
}

func (s *Store) listRecords(ctx context.Context, column, value string) ([]EvaluationRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM evaluation_records
    WHERE `+column+` = $1
    ORDER BY created_at
  `, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []EvaluationRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// MarkStaffSubmitted is a compare-and-set on status; false means the record was
// not in pending_staff (or does not exist) and nothing was written.
func (s *Store) MarkStaffSubmitted(ctx context.Context, recordID string, answersJSON []byte, submittedAt time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluation_records
    SET staff_answers = $1, staff_submitted_at = $2, status = $3
    WHERE id = $4 AND status = $5
  `, answersJSON, submittedAt, RecordStatusPendingSupervisor, recordID, RecordStatusPendingStaff)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) MarkSupervisorSubmitted(ctx context.Context, recordID string, answersJSON []byte, submittedAt time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluation_records
    SET supervisor_answers = $1, supervisor_submitted_at = $2, status = $3
    WHERE id = $4 AND status = $5
  `, answersJSON, submittedAt, RecordStatusCompleted, recordID, RecordStatusPendingSupervisor)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CountRecordsByStatus(ctx context.Context, cycleID string) (map[RecordStatus]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT status, COUNT(1)
    FROM evaluation_records
    WHERE cycle_id = $1
    GROUP BY status
  `, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[RecordStatus]int{}
	for rows.Next() {
		var status RecordStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// YearAnswerCounts counts answer presence independent of status: a completed
// record contributes to both submitted tallies.
func (s *Store) YearAnswerCounts(ctx context.Context, year int) (YearStats, error) {
	var stats YearStats
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1), COUNT(r.staff_answers), COUNT(r.supervisor_answers)
    FROM evaluation_records r
    JOIN evaluation_cycles c ON r.cycle_id = c.id
    WHERE c.year = $1
  `, year).Scan(&stats.Total, &stats.StaffSubmitted, &stats.SupervisorSubmitted)
	if err != nil {
		return YearStats{}, err
	}
	return stats, nil
}

func scanRecord(row pgx.Row) (EvaluationRecord, error) {
	var record EvaluationRecord
	var staffJSON, supervisorJSON []byte
	var staffAt, supervisorAt sql.NullTime
	if err := row.Scan(&record.ID, &record.CycleID, &record.StaffID, &record.SupervisorID,
		&staffJSON, &supervisorJSON, &staffAt, &supervisorAt, &record.Status); err != nil {
		return EvaluationRecord{}, err
	}
	if len(staffJSON) > 0 {
		if err := json.Unmarshal(staffJSON, &record.StaffAnswers); err != nil {
			return EvaluationRecord{}, err
		}
	}
	if len(supervisorJSON) > 0 {
		if err := json.Unmarshal(supervisorJSON, &record.SupervisorAnswers); err != nil {
			return EvaluationRecord{}, err
		}
	}
	if staffAt.Valid {
		at := staffAt.Time
		record.StaffSubmittedAt = &at
	}
	if supervisorAt.Valid {
		at := supervisorAt.Time
		record.SupervisorSubmittedAt = &at
	}
	return record, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
