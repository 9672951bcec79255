package adminhandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tms/internal/domain/auth"
	"tms/internal/platform/jobs"
	"tms/internal/platform/metrics"
	"tms/internal/transport/http/api"
	"tms/internal/transport/http/middleware"
)

// Handler exposes operational endpoints for system administrators.
type Handler struct {
	Jobs      *jobs.Service
	Collector *metrics.Collector
	Perms     middleware.PermissionStore
}

func NewHandler(jobSvc *jobs.Service, collector *metrics.Collector, perms middleware.PermissionStore) *Handler {
	return &Handler{Jobs: jobSvc, Collector: collector, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms))
		if h.Collector != nil {
			r.Get("/metrics", h.handleMetrics)
		}
		r.Get("/jobs/runs", h.handleListJobRuns)
		r.Post("/jobs/{jobType}/run", h.handleRunJob)
	})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Collector.Snapshot(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListJobRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Jobs.ListRuns(r.Context(), 100)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunJob(w http.ResponseWriter, r *http.Request) {
	jobType := chi.URLParam(r, "jobType")
	details, err := h.Jobs.Trigger(r.Context(), jobType)
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownJob) {
			api.Fail(w, http.StatusNotFound, "unknown_job", "unknown job type", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "job_failed", "job run failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"jobType": jobType, "details": details}, middleware.GetRequestID(r.Context()))
}
