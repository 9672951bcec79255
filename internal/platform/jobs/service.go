package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tms/internal/domain/appraisal"
	"tms/internal/domain/notifications"
	"tms/internal/domain/training"
	"tms/internal/platform/config"
)

const (
	JobAppraisalReminders = "appraisal_reminders"
	JobCertificateExpiry  = "certificate_expiry"
)

type Service struct {
	DB       *pgxpool.Pool
	Cfg      config.Config
	Notifier *notifications.Service
	queue    chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config, notifier *notifications.Service) *Service {
	return &Service{
		DB:       db,
		Cfg:      cfg,
		Notifier: notifier,
		queue:    make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.ReminderInterval > 0 {
		go s.scheduleReminders(ctx, s.Cfg.ReminderInterval)
	}
	if s.Cfg.CertExpiryInterval > 0 {
		go s.scheduleCertificateExpiry(ctx, s.Cfg.CertExpiryInterval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

var ErrUnknownJob = errors.New("unknown job type")

// Trigger runs a named job immediately, outside its schedule.
func (s *Service) Trigger(ctx context.Context, jobType string) (any, error) {
	switch jobType {
	case JobAppraisalReminders:
		return s.RunNow(ctx, jobType, s.sendAppraisalReminders)
	case JobCertificateExpiry:
		return s.RunNow(ctx, jobType, func(ctx context.Context) (any, error) {
			expired, err := training.ExpireCertificates(ctx, s.DB, time.Now())
			return map[string]any{"expired": expired}, err
		})
	default:
		return nil, ErrUnknownJob
	}
}

type JobRun struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

func (s *Service) ListRuns(ctx context.Context, limit int) ([]JobRun, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, job_type, status, COALESCE(details_json, '{}'), started_at, completed_at
    FROM job_runs
    ORDER BY started_at DESC
    LIMIT $1
  `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []JobRun{}
	for rows.Next() {
		var run JobRun
		var details []byte
		if err := rows.Scan(&run.ID, &run.JobType, &run.Status, &details, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		run.Details = details
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, j.Type, "running").Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) scheduleReminders(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobAppraisalReminders, func(ctx context.Context) (any, error) {
				return s.sendAppraisalReminders(ctx)
			})
		}
	}
}

func (s *Service) sendAppraisalReminders(ctx context.Context) (any, error) {
	pending, err := appraisal.ListPendingReminders(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	sent := 0
	for _, p := range pending {
		body := fmt.Sprintf("Your self-evaluation for the %d competency cycle is still pending. Please submit it before the cycle closes.", p.Year)
		if err := s.Notifier.NotifyStaff(ctx, p.StaffID, notifications.TypeEvaluationReminder, "Evaluation reminder", body); err != nil {
			slog.Warn("reminder notification failed", "staffId", p.StaffID, "err", err)
			continue
		}
		sent++
	}
	return map[string]any{"pending": len(pending), "sent": sent}, nil
}

func (s *Service) scheduleCertificateExpiry(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobCertificateExpiry, func(ctx context.Context) (any, error) {
				expired, err := training.ExpireCertificates(ctx, s.DB, time.Now())
				return map[string]any{"expired": expired}, err
			})
		}
	}
}
