package appraisalhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tms/internal/domain/appraisal"
	"tms/internal/domain/audit"
	"tms/internal/domain/auth"
	"tms/internal/domain/notifications"
	"tms/internal/transport/http/api"
	"tms/internal/transport/http/middleware"
	"tms/internal/transport/http/shared"
)

type Handler struct {
	Service *appraisal.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
}

func NewHandler(service *appraisal.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appraisal", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/catalog", h.handleCatalog)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/cycles", h.handleListCycles)
		r.With(middleware.RequirePermission(auth.PermAppraisalManage, h.Perms)).Post("/cycles", h.handleOpenCycle)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/cycles/{cycleID}", h.handleGetCycle)
		r.With(middleware.RequirePermission(auth.PermAppraisalManage, h.Perms)).Post("/cycles/{cycleID}/close", h.handleCloseCycle)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/cycles/{cycleID}/progress", h.handleCycleProgress)
		r.With(middleware.RequirePermission(auth.PermAppraisalManage, h.Perms)).Get("/cycles/{cycleID}/records", h.handleListCycleRecords)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/years/{year}/stats", h.handleYearStats)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/records/mine", h.handleMyRecords)
		r.With(middleware.RequirePermission(auth.PermAppraisalReview, h.Perms)).Get("/records/review", h.handleReviewQueue)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/records/{recordID}", h.handleGetRecord)
		r.With(middleware.RequirePermission(auth.PermAppraisalSubmit, h.Perms)).Post("/records/{recordID}/self", h.handleSubmitSelf)
		r.With(middleware.RequirePermission(auth.PermAppraisalReview, h.Perms)).Post("/records/{recordID}/review", h.handleSubmitReview)
	})
}

// recordView decorates a record with score summaries for whichever phases have
// been submitted.
type recordView struct {
	appraisal.EvaluationRecord
	StaffScore      *appraisal.ScoreSummary `json:"staffScore,omitempty"`
	SupervisorScore *appraisal.ScoreSummary `json:"supervisorScore,omitempty"`
}

func viewOf(record appraisal.EvaluationRecord) recordView {
	view := recordView{EvaluationRecord: record}
	if len(record.StaffAnswers) > 0 {
		if summary, err := appraisal.Summarize(record.StaffAnswers); err == nil {
			view.StaffScore = &summary
		}
	}
	if len(record.SupervisorAnswers) > 0 {
		if summary, err := appraisal.Summarize(record.SupervisorAnswers); err == nil {
			view.SupervisorScore = &summary
		}
	}
	return view
}

func viewsOf(records []appraisal.EvaluationRecord) []recordView {
	views := make([]recordView, 0, len(records))
	for _, record := range records {
		views = append(views, viewOf(record))
	}
	return views
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	api.Success(w, map[string]any{
		"questions": appraisal.Questions(),
		"maxScore":  appraisal.MaxTotalScore(),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.Service.ListCycles(r.Context())
	if err != nil {
		h.failFromError(w, r, err, "failed to list cycles")
		return
	}
	api.Success(w, cycles, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOpenCycle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Year int `json:"year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Year < 2000 || payload.Year > 2200 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "year out of range", middleware.GetRequestID(r.Context()))
		return
	}

	cycle, err := h.Service.OpenCycle(r.Context(), payload.Year, user.UserID)
	if err != nil {
		var missing *appraisal.MissingSupervisorsError
		if errors.As(err, &missing) {
			api.FailWithDetails(w, http.StatusConflict, "missing_supervisors",
				"every active staff member needs a supervisor before a cycle can open",
				map[string]any{"staff": missing.Names, "count": missing.Count()},
				middleware.GetRequestID(r.Context()))
			return
		}
		h.failFromError(w, r, err, "failed to open cycle")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "appraisal.cycle.open", "evaluation_cycle", cycle.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]any{"year": payload.Year}); err != nil {
		slog.Warn("audit appraisal.cycle.open failed", "err", err)
	}

	if h.Notify != nil {
		records, err := h.Service.ListRecordsByCycle(r.Context(), cycle.ID)
		if err != nil {
			slog.Warn("cycle open record fan-out lookup failed", "err", err)
		}
		for _, record := range records {
			if err := h.Notify.NotifyStaff(r.Context(), record.StaffID, notifications.TypeEvaluationAssigned,
				"Evaluation assigned",
				"Your annual competency self-evaluation is ready to complete."); err != nil {
				slog.Warn("evaluation assigned notification failed", "staffId", record.StaffID, "err", err)
			}
		}
	}

	api.Created(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.Service.GetCycle(r.Context(), chi.URLParam(r, "cycleID"))
	if err != nil {
		h.failFromError(w, r, err, "failed to load cycle")
		return
	}
	api.Success(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCloseCycle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	cycleID := chi.URLParam(r, "cycleID")
	if err := h.Service.CloseCycle(r.Context(), cycleID); err != nil {
		h.failFromError(w, r, err, "failed to close cycle")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "appraisal.cycle.close", "evaluation_cycle", cycleID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil); err != nil {
		slog.Warn("audit appraisal.cycle.close failed", "err", err)
	}
	api.Success(w, map[string]string{"status": string(appraisal.CycleStatusClosed)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCycleProgress(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.CycleStats(r.Context(), chi.URLParam(r, "cycleID"))
	if err != nil {
		h.failFromError(w, r, err, "failed to compute cycle progress")
		return
	}
	api.Success(w, stats, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListCycleRecords(w http.ResponseWriter, r *http.Request) {
	cycleID := chi.URLParam(r, "cycleID")
	if _, err := h.Service.GetCycle(r.Context(), cycleID); err != nil {
		h.failFromError(w, r, err, "failed to load cycle")
		return
	}
	records, err := h.Service.ListRecordsByCycle(r.Context(), cycleID)
	if err != nil {
		h.failFromError(w, r, err, "failed to list records")
		return
	}
	api.Success(w, viewsOf(records), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleYearStats(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "year must be numeric", middleware.GetRequestID(r.Context()))
		return
	}
	stats, err := h.Service.YearStats(r.Context(), year)
	if err != nil {
		h.failFromError(w, r, err, "failed to compute year stats")
		return
	}
	api.Success(w, stats, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMyRecords(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user.StaffID == "" {
		api.Fail(w, http.StatusForbidden, "forbidden", "a staff profile is required", middleware.GetRequestID(r.Context()))
		return
	}
	records, err := h.Service.ListRecordsForStaff(r.Context(), user.StaffID)
	if err != nil {
		h.failFromError(w, r, err, "failed to list records")
		return
	}
	api.Success(w, viewsOf(records), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user.StaffID == "" {
		api.Fail(w, http.StatusForbidden, "forbidden", "a staff profile is required", middleware.GetRequestID(r.Context()))
		return
	}
	records, err := h.Service.ListRecordsForSupervisor(r.Context(), user.StaffID)
	if err != nil {
		h.failFromError(w, r, err, "failed to list review queue")
		return
	}
	api.Success(w, viewsOf(records), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	record, err := h.Service.GetRecord(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		h.failFromError(w, r, err, "failed to load record")
		return
	}
	if !canSeeRecord(user, record) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, viewOf(record), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmitSelf(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user.StaffID == "" {
		api.Fail(w, http.StatusForbidden, "forbidden", "a staff profile is required", middleware.GetRequestID(r.Context()))
		return
	}

	recordID := chi.URLParam(r, "recordID")
	record, err := h.Service.GetRecord(r.Context(), recordID)
	if err != nil {
		h.failFromError(w, r, err, "failed to load record")
		return
	}
	if record.StaffID != user.StaffID {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your evaluation", middleware.GetRequestID(r.Context()))
		return
	}

	answers, ok := decodeAnswers(w, r)
	if !ok {
		return
	}

	updated, err := h.Service.SubmitStaffEvaluation(r.Context(), recordID, answers)
	if err != nil {
		h.failFromError(w, r, err, "failed to submit self-evaluation")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "appraisal.record.self_submit", "evaluation_record", recordID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil); err != nil {
		slog.Warn("audit appraisal.record.self_submit failed", "err", err)
	}
	if h.Notify != nil && updated.SupervisorID != "" {
		if err := h.Notify.NotifyStaff(r.Context(), updated.SupervisorID, notifications.TypeStaffSubmitted,
			"Evaluation ready for review",
			"A staff member has submitted their self-evaluation and is awaiting your review."); err != nil {
			slog.Warn("staff submitted notification failed", "err", err)
		}
	}
	api.Success(w, viewOf(updated), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user.StaffID == "" {
		api.Fail(w, http.StatusForbidden, "forbidden", "a staff profile is required", middleware.GetRequestID(r.Context()))
		return
	}

	recordID := chi.URLParam(r, "recordID")
	record, err := h.Service.GetRecord(r.Context(), recordID)
	if err != nil {
		h.failFromError(w, r, err, "failed to load record")
		return
	}
	if record.SupervisorID != user.StaffID && user.RoleName != auth.RoleHRAdmin && user.RoleName != auth.RoleSystemAdmin {
		api.Fail(w, http.StatusForbidden, "forbidden", "not the assigned supervisor", middleware.GetRequestID(r.Context()))
		return
	}

	answers, ok := decodeAnswers(w, r)
	if !ok {
		return
	}

	updated, err := h.Service.SubmitSupervisorEvaluation(r.Context(), recordID, answers)
	if err != nil {
		h.failFromError(w, r, err, "failed to submit review")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "appraisal.record.review_submit", "evaluation_record", recordID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil); err != nil {
		slog.Warn("audit appraisal.record.review_submit failed", "err", err)
	}
	if h.Notify != nil {
		if err := h.Notify.NotifyStaff(r.Context(), updated.StaffID, notifications.TypeEvaluationCompleted,
			"Evaluation completed",
			"Your supervisor has completed your annual competency evaluation."); err != nil {
			slog.Warn("evaluation completed notification failed", "err", err)
		}
	}
	api.Success(w, viewOf(updated), middleware.GetRequestID(r.Context()))
}

func decodeAnswers(w http.ResponseWriter, r *http.Request) (appraisal.Answers, bool) {
	var payload struct {
		Answers appraisal.Answers `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return nil, false
	}
	if len(payload.Answers) == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "answers are required", middleware.GetRequestID(r.Context()))
		return nil, false
	}
	return payload.Answers, true
}

func canSeeRecord(user auth.UserContext, record appraisal.EvaluationRecord) bool {
	if user.RoleName == auth.RoleHRAdmin || user.RoleName == auth.RoleSystemAdmin {
		return true
	}
	return user.StaffID != "" && (record.StaffID == user.StaffID || record.SupervisorID == user.StaffID)
}

// failFromError translates workflow sentinels into their HTTP shape.
func (h *Handler) failFromError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, appraisal.ErrDuplicateYear):
		api.Fail(w, http.StatusConflict, "duplicate_year", err.Error(), requestID)
	case errors.Is(err, appraisal.ErrAlreadySubmitted):
		api.Fail(w, http.StatusConflict, "already_submitted", err.Error(), requestID)
	case errors.Is(err, appraisal.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, appraisal.ErrIncompleteAnswers):
		api.Fail(w, http.StatusBadRequest, "incomplete_answers", err.Error(), requestID)
	case errors.Is(err, appraisal.ErrInvalidLevel):
		api.Fail(w, http.StatusBadRequest, "invalid_level", err.Error(), requestID)
	case errors.Is(err, appraisal.ErrCycleNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, appraisal.ErrRecordNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, appraisal.ErrDependencyUnavailable):
		api.Fail(w, http.StatusServiceUnavailable, "dependency_unavailable", "a backing service is unavailable, retry shortly", requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", fallback, requestID)
	}
}
