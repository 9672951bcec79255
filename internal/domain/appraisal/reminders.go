package appraisal

import (
	"context"

	"tms/internal/platform/db"
)

// ListPendingReminders returns the records in active cycles still waiting on
// their staff member. Used by the background reminder sweep.
func ListPendingReminders(ctx context.Context, pool db.Querier) ([]PendingReminder, error) {
	rows, err := pool.Query(ctx, `
    SELECT r.id, r.staff_id, c.year
    FROM evaluation_records r
    JOIN evaluation_cycles c ON r.cycle_id = c.id
    WHERE c.status = $1 AND r.status = $2
  `, CycleStatusActive, RecordStatusPendingStaff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingReminder
	for rows.Next() {
		var p PendingReminder
		if err := rows.Scan(&p.RecordID, &p.StaffID, &p.Year); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}
